package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidPrivateKey = errors.New("invalid private key")

// Signer holds a hex-loaded ECDSA key used for operator and deployer
// transactions.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses a hex private key, with or without the 0x prefix.
func NewSigner(privateKeyHex string) (*Signer, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, ErrInvalidPrivateKey
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	publicKey, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrInvalidPrivateKey
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(*publicKey)}, nil
}

// Address is the account the signer sends from.
func (s *Signer) Address() common.Address {
	return s.address
}

// TransactOpts builds bind options bound to chainID and ctx.
func (s *Signer) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if chainID == nil {
		return nil, errors.New("chain id is nil")
	}
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, chainID)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	return opts, nil
}

// DecodeRawTransaction parses a wallet-signed transaction (0x-hex, typed or
// legacy) and recovers its sender for chainID.
func DecodeRawTransaction(rawHex string, chainID *big.Int) (*types.Transaction, common.Address, error) {
	raw := common.FromHex(strings.TrimSpace(rawHex))
	if len(raw) == 0 {
		return nil, common.Address{}, errors.New("empty raw transaction")
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, common.Address{}, fmt.Errorf("decode raw transaction: %w", err)
	}
	if tx.ChainId() != nil && tx.ChainId().Sign() != 0 && tx.ChainId().Cmp(chainID) != 0 {
		return nil, common.Address{}, fmt.Errorf("transaction chain id %s does not match %s", tx.ChainId(), chainID)
	}
	from, err := types.Sender(types.LatestSignerForChainID(chainID), tx)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("recover sender: %w", err)
	}
	return tx, from, nil
}
