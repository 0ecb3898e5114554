package contracts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/infrastructure/blockchain"
)

// ThreeLanceABI is used whenever the registry entry carries no ABI.
const ThreeLanceABI = `[
	{"inputs":[],"stateMutability":"nonpayable","type":"constructor"},
	{"inputs":[{"internalType":"uint256","name":"start","type":"uint256"},{"internalType":"uint256","name":"end","type":"uint256"}],"name":"getAllServices","outputs":[{"internalType":"uint256[]","name":"ids","type":"uint256[]"},{"internalType":"address[]","name":"owners","type":"address[]"},{"internalType":"uint256[]","name":"amounts","type":"uint256[]"},{"internalType":"bool[]","name":"statuses","type":"bool[]"},{"internalType":"uint256[]","name":"values","type":"uint256[]"},{"internalType":"string[]","name":"titles","type":"string[]"},{"internalType":"string[]","name":"descriptions","type":"string[]"},{"internalType":"string[][]","name":"mediaLinks","type":"string[][]"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"serviceCount","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"string","name":"_name","type":"string"},{"internalType":"string","name":"_description","type":"string"},{"internalType":"uint256","name":"_price","type":"uint256"},{"internalType":"string[]","name":"_mediaLinks","type":"string[]"}],"name":"createService","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"anonymous":false,"inputs":[{"indexed":true,"internalType":"uint256","name":"id","type":"uint256"},{"indexed":false,"internalType":"uint256","name":"price","type":"uint256"},{"indexed":false,"internalType":"string","name":"name","type":"string"},{"indexed":false,"internalType":"string","name":"description","type":"string"},{"indexed":false,"internalType":"string[]","name":"mediaLinks","type":"string[]"}],"name":"ServiceCreated","type":"event"}
]`

const (
	MethodGetAllServices = "getAllServices"
	MethodServiceCount   = "serviceCount"
	MethodCreateService  = "createService"
	EventServiceCreated  = "ServiceCreated"
)

var (
	DefaultABI = mustParseABI(ThreeLanceABI)

	performContractTransact = func(backend bind.ContractBackend, address common.Address, parsedABI abi.ABI, auth *bind.TransactOpts, method string, args ...interface{}) (*types.Transaction, error) {
		contract := bind.NewBoundContract(address, parsedABI, backend, backend, backend)
		return contract.Transact(auth, method, args...)
	}
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}

// ParseABI parses a stored ABI, falling back to DefaultABI when raw is
// empty or lacks one of the marketplace methods.
func ParseABI(raw string) (abi.ABI, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultABI, nil
	}
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse ThreeLance ABI: %w", err)
	}
	for _, m := range []string{MethodGetAllServices, MethodServiceCount, MethodCreateService} {
		if _, ok := parsed.Methods[m]; !ok {
			return DefaultABI, nil
		}
	}
	return parsed, nil
}

// ThreeLance is a binding to one deployment of the marketplace contract.
type ThreeLance struct {
	client  *blockchain.EVMClient
	address common.Address
	abi     abi.ABI
}

func NewThreeLance(client *blockchain.EVMClient, address string, parsedABI abi.ABI) (*ThreeLance, error) {
	if client == nil {
		return nil, errors.New("evm client is nil")
	}
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: bad contract address %q", domainerrors.ErrNotDeployed, address)
	}
	if len(parsedABI.Methods) == 0 {
		parsedABI = DefaultABI
	}
	return &ThreeLance{client: client, address: common.HexToAddress(address), abi: parsedABI}, nil
}

func (c *ThreeLance) Address() common.Address {
	return c.address
}

func (c *ThreeLance) ChainID() *big.Int {
	return c.client.ChainID()
}

func (c *ThreeLance) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := c.client.CallView(ctx, c.address.Hex(), data)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := c.abi.Methods[method].Outputs.Unpack(out)
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %v", domainerrors.ErrMalformedResult, method, err)
	}
	return values, nil
}

// GetAllServices reads services start..end and transposes the parallel
// columns into rows. Columns of unequal length are rejected as a whole.
func (c *ThreeLance) GetAllServices(ctx context.Context, start, end *big.Int) ([]*entities.Service, error) {
	values, err := c.call(ctx, MethodGetAllServices, start, end)
	if err != nil {
		return nil, err
	}
	cols, err := decodeColumns(values)
	if err != nil {
		return nil, err
	}
	rows, ok := cols.Rows()
	if !ok {
		return nil, fmt.Errorf("%w: getAllServices columns have different lengths", domainerrors.ErrMalformedResult)
	}
	return rows, nil
}

func decodeColumns(values []interface{}) (entities.ServiceColumns, error) {
	var cols entities.ServiceColumns
	if len(values) != 8 {
		return cols, fmt.Errorf("%w: getAllServices returned %d values", domainerrors.ErrMalformedResult, len(values))
	}
	var ok [8]bool
	cols.IDs, ok[0] = values[0].([]*big.Int)
	cols.Owners, ok[1] = values[1].([]common.Address)
	cols.Amounts, ok[2] = values[2].([]*big.Int)
	cols.Statuses, ok[3] = values[3].([]bool)
	cols.Values, ok[4] = values[4].([]*big.Int)
	cols.Titles, ok[5] = values[5].([]string)
	cols.Descriptions, ok[6] = values[6].([]string)
	cols.MediaLinks, ok[7] = values[7].([][]string)
	for i, good := range ok {
		if !good {
			return entities.ServiceColumns{}, fmt.Errorf("%w: getAllServices column %d has type %T", domainerrors.ErrMalformedResult, i, values[i])
		}
	}
	return cols, nil
}

func (c *ThreeLance) ServiceCount(ctx context.Context) (*big.Int, error) {
	values, err := c.call(ctx, MethodServiceCount)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%w: serviceCount returned %d values", domainerrors.ErrMalformedResult, len(values))
	}
	count, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: serviceCount returned %T", domainerrors.ErrMalformedResult, values[0])
	}
	return count, nil
}

// PackCreateService returns createService calldata for an external wallet.
func (c *ThreeLance) PackCreateService(call entities.CreateServiceCall) ([]byte, error) {
	return c.abi.Pack(MethodCreateService, call.Name, call.Description, call.PriceWei, mediaLinks(call))
}

// UnpackCreateService decodes createService calldata, as found in a
// wallet-signed transaction.
func (c *ThreeLance) UnpackCreateService(data []byte) (entities.CreateServiceCall, error) {
	method := c.abi.Methods[MethodCreateService]
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return entities.CreateServiceCall{}, fmt.Errorf("%w: not createService calldata", domainerrors.ErrInvalidInput)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil || len(args) != 4 {
		return entities.CreateServiceCall{}, fmt.Errorf("%w: malformed createService calldata", domainerrors.ErrInvalidInput)
	}
	name, ok1 := args[0].(string)
	description, ok2 := args[1].(string)
	price, ok3 := args[2].(*big.Int)
	links, ok4 := args[3].([]string)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return entities.CreateServiceCall{}, fmt.Errorf("%w: malformed createService calldata", domainerrors.ErrInvalidInput)
	}
	return entities.CreateServiceCall{Name: name, Description: description, PriceWei: price, MediaLinks: links}, nil
}

// CreateService signs createService with signer and broadcasts it.
func (c *ThreeLance) CreateService(ctx context.Context, signer *blockchain.Signer, call entities.CreateServiceCall) (*types.Transaction, error) {
	if signer == nil {
		return nil, domainerrors.ErrSignerMissing
	}
	backend := c.client.Backend()
	if backend == nil {
		return nil, fmt.Errorf("%w: no rpc backend", domainerrors.ErrUnavailable)
	}
	auth, err := signer.TransactOpts(ctx, c.client.ChainID())
	if err != nil {
		return nil, err
	}
	tx, err := performContractTransact(backend, c.address, c.abi, auth, MethodCreateService,
		call.Name, call.Description, call.PriceWei, mediaLinks(call))
	if err != nil {
		if reason, ok := DecodeRevert(err); ok {
			return nil, fmt.Errorf("%w: %s", domainerrors.ErrTxReverted, reason.Message)
		}
		return nil, err
	}
	return tx, nil
}

func mediaLinks(call entities.CreateServiceCall) []string {
	if call.MediaLinks == nil {
		return []string{}
	}
	return call.MediaLinks
}

// ServiceCreated is the decoded ServiceCreated event.
type ServiceCreated struct {
	ID          *big.Int
	Price       *big.Int
	Name        string
	Description string
	MediaLinks  []string
}

// ParseServiceCreated decodes lg if it is a ServiceCreated event. ok is
// false for logs of other events.
func ParseServiceCreated(parsedABI abi.ABI, lg *types.Log) (*ServiceCreated, bool, error) {
	event, found := parsedABI.Events[EventServiceCreated]
	if !found {
		event = DefaultABI.Events[EventServiceCreated]
		parsedABI = DefaultABI
	}
	if lg == nil || len(lg.Topics) < 2 || lg.Topics[0] != event.ID {
		return nil, false, nil
	}

	var out ServiceCreated
	if err := parsedABI.UnpackIntoInterface(&out, EventServiceCreated, lg.Data); err != nil {
		return nil, true, fmt.Errorf("%w: unpack ServiceCreated: %v", domainerrors.ErrMalformedResult, err)
	}
	out.ID = new(big.Int).SetBytes(lg.Topics[1].Bytes())
	return &out, true, nil
}

// FindServiceCreated returns the first ServiceCreated event in receipt.
func FindServiceCreated(parsedABI abi.ABI, receipt *types.Receipt) *ServiceCreated {
	if receipt == nil {
		return nil
	}
	for _, lg := range receipt.Logs {
		ev, ok, err := ParseServiceCreated(parsedABI, lg)
		if ok && err == nil {
			return ev
		}
	}
	return nil
}
