package usecases_test

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
	"threelance.backend/internal/domain/entities"
	"threelance.backend/internal/infrastructure/blockchain"
	"threelance.backend/internal/usecases"
	"threelance.backend/pkg/utils"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

// Mock SmartContractRepository
type MockSmartContractRepository struct {
	mock.Mock
}

func (m *MockSmartContractRepository) Create(ctx context.Context, contract *entities.SmartContract) error {
	args := m.Called(ctx, contract)
	return args.Error(0)
}

func (m *MockSmartContractRepository) GetActive(ctx context.Context, chainID, name string) (*entities.SmartContract, error) {
	args := m.Called(ctx, chainID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SmartContract), args.Error(1)
}

func (m *MockSmartContractRepository) GetByAddress(ctx context.Context, chainID, address string) (*entities.SmartContract, error) {
	args := m.Called(ctx, chainID, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SmartContract), args.Error(1)
}

func (m *MockSmartContractRepository) ListByChain(ctx context.Context, chainID string) ([]*entities.SmartContract, error) {
	args := m.Called(ctx, chainID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SmartContract), args.Error(1)
}

func (m *MockSmartContractRepository) DeactivateAll(ctx context.Context, chainID, name string) error {
	args := m.Called(ctx, chainID, name)
	return args.Error(0)
}

// Mock ServiceTransactionRepository
type MockServiceTransactionRepository struct {
	mock.Mock
}

func (m *MockServiceTransactionRepository) Create(ctx context.Context, tx *entities.ServiceTransaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockServiceTransactionRepository) GetByHash(ctx context.Context, hash string) (*entities.ServiceTransaction, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ServiceTransaction), args.Error(1)
}

func (m *MockServiceTransactionRepository) List(ctx context.Context, status *entities.TxStatus, pagination utils.PaginationParams) ([]*entities.ServiceTransaction, int64, error) {
	args := m.Called(ctx, status, pagination)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*entities.ServiceTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockServiceTransactionRepository) GetPending(ctx context.Context, limit int) ([]*entities.ServiceTransaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ServiceTransaction), args.Error(1)
}

func (m *MockServiceTransactionRepository) TouchPending(ctx context.Context, hash string) error {
	args := m.Called(ctx, hash)
	return args.Error(0)
}

func (m *MockServiceTransactionRepository) MarkDropped(ctx context.Context, hash string, errMsg string) error {
	args := m.Called(ctx, hash, errMsg)
	return args.Error(0)
}

func (m *MockServiceTransactionRepository) MarkResult(ctx context.Context, hash string, result entities.TxReceiptResult, errMsg string) error {
	args := m.Called(ctx, hash, result, errMsg)
	return args.Error(0)
}

// Mock ServiceContract
type MockServiceContract struct {
	mock.Mock
}

func (m *MockServiceContract) Address() common.Address {
	return m.Called().Get(0).(common.Address)
}

func (m *MockServiceContract) ChainID() *big.Int {
	return m.Called().Get(0).(*big.Int)
}

func (m *MockServiceContract) GetAllServices(ctx context.Context, start, end *big.Int) ([]*entities.Service, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Service), args.Error(1)
}

func (m *MockServiceContract) ServiceCount(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*big.Int), args.Error(1)
}

func (m *MockServiceContract) PackCreateService(call entities.CreateServiceCall) ([]byte, error) {
	args := m.Called(call)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockServiceContract) UnpackCreateService(data []byte) (entities.CreateServiceCall, error) {
	args := m.Called(data)
	return args.Get(0).(entities.CreateServiceCall), args.Error(1)
}

func (m *MockServiceContract) CreateService(ctx context.Context, signer *blockchain.Signer, call entities.CreateServiceCall) (*types.Transaction, error) {
	args := m.Called(ctx, signer, call)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Transaction), args.Error(1)
}

// Mock ContractProvider
type MockContractProvider struct {
	mock.Mock
}

func (m *MockContractProvider) Contract(ctx context.Context) (usecases.ServiceContract, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(usecases.ServiceContract), args.Error(1)
}

// Mock ChainGateway
type MockChainGateway struct {
	mock.Mock
}

func (m *MockChainGateway) ChainID() *big.Int {
	return m.Called().Get(0).(*big.Int)
}

func (m *MockChainGateway) GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error) {
	args := m.Called(ctx, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Receipt), args.Error(1)
}

func (m *MockChainGateway) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockChainGateway) WaitForReceipt(ctx context.Context, txHash string, interval time.Duration) (*types.Receipt, error) {
	args := m.Called(ctx, txHash, interval)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Receipt), args.Error(1)
}

// Mock ServiceIndexer
type MockServiceIndexer struct {
	mock.Mock
}

func (m *MockServiceIndexer) ServicesCreated(ctx context.Context) ([]entities.IndexedService, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.IndexedService), args.Error(1)
}
