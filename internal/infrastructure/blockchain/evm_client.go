package blockchain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	dialEVMClient    = ethclient.Dial
	getClientChainID = func(client *ethclient.Client, ctx context.Context) (*big.Int, error) {
		return client.ChainID(ctx)
	}
)

// ErrReceiptTimeout is returned when a receipt does not show up before the
// caller's deadline.
var ErrReceiptTimeout = errors.New("timed out waiting for transaction receipt")

// ErrNotConnected is returned by reads that need a live RPC connection.
var ErrNotConnected = errors.New("rpc client not connected")

// EVMClient wraps an ethclient connection to one chain.
type EVMClient struct {
	client  *ethclient.Client
	chainID *big.Int
	rpcURL  string
	// test hooks, set only by NewEVMClientWithCallView / WithReceiptSource
	testCallView func(ctx context.Context, to string, data []byte) ([]byte, error)
	testReceipt  func(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	testSend     func(ctx context.Context, tx *types.Transaction) error
}

// NewEVMClient dials rpcURL and resolves the chain id.
func NewEVMClient(rpcURL string) (*EVMClient, error) {
	client, err := dialEVMClient(rpcURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	chainID, err := getClientChainID(client, ctx)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &EVMClient{
		client:  client,
		chainID: chainID,
		rpcURL:  rpcURL,
	}, nil
}

// NewEVMClientWithCallView creates a socket-free client whose eth_call is
// served by callViewFn. Used by unit tests.
func NewEVMClientWithCallView(chainID *big.Int, callViewFn func(ctx context.Context, to string, data []byte) ([]byte, error)) *EVMClient {
	if chainID == nil {
		chainID = big.NewInt(1)
	}
	return &EVMClient{
		chainID:      chainID,
		testCallView: callViewFn,
	}
}

// WithReceiptSource installs a receipt lookup, overriding eth_getTransactionReceipt.
func (c *EVMClient) WithReceiptSource(fn func(ctx context.Context, hash common.Hash) (*types.Receipt, error)) *EVMClient {
	c.testReceipt = fn
	return c
}

// WithSender installs a transaction sink, overriding eth_sendRawTransaction.
func (c *EVMClient) WithSender(fn func(ctx context.Context, tx *types.Transaction) error) *EVMClient {
	c.testSend = fn
	return c
}

func (c *EVMClient) ChainID() *big.Int {
	return c.chainID
}

func (c *EVMClient) RPCURL() string {
	return c.rpcURL
}

// Backend exposes the connection for abigen-style bound contracts. It is
// nil for socket-free test clients.
func (c *EVMClient) Backend() bind.ContractBackend {
	if c.client == nil {
		return nil
	}
	return c.client
}

// CallView executes a read-only contract call against the latest block.
func (c *EVMClient) CallView(ctx context.Context, to string, data []byte) ([]byte, error) {
	if c.testCallView != nil {
		return c.testCallView(ctx, to, data)
	}
	addr := common.HexToAddress(to)
	msg := ethereum.CallMsg{
		To:   &addr,
		Data: data,
	}
	return c.client.CallContract(ctx, msg, nil)
}

// GetTransactionReceipt returns ethereum.NotFound while the tx is unmined.
func (c *EVMClient) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	hash := common.HexToHash(txHash)
	if c.testReceipt != nil {
		return c.testReceipt(ctx, hash)
	}
	return c.client.TransactionReceipt(ctx, hash)
}

// SendTransaction broadcasts an already signed transaction.
func (c *EVMClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if c.testSend != nil {
		return c.testSend(ctx, tx)
	}
	return c.client.SendTransaction(ctx, tx)
}

// GetBlockNumber returns the latest block; /health uses it to check the RPC.
func (c *EVMClient) GetBlockNumber(ctx context.Context) (uint64, error) {
	if c.client == nil {
		return 0, ErrNotConnected
	}
	return c.client.BlockNumber(ctx)
}

// GetBalance returns the latest native balance of address in wei.
func (c *EVMClient) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client.BalanceAt(ctx, common.HexToAddress(address), nil)
}

// WaitForReceipt polls until the receipt exists, ctx ends, or an RPC error
// other than "not found" occurs.
func (c *EVMClient) WaitForReceipt(ctx context.Context, txHash string, interval time.Duration) (*types.Receipt, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := c.GetTransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			// a lookup cut short by the deadline is a timeout, not an RPC failure
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrReceiptTimeout, txHash)
			}
			return nil, fmt.Errorf("receipt lookup %s: %w", txHash, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrReceiptTimeout, txHash)
		case <-ticker.C:
		}
	}
}

// Close closes the client connection
func (c *EVMClient) Close() {
	if c.client != nil {
		c.client.Close()
	}
}
