package usecases

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"threelance.backend/internal/domain/entities"
	"threelance.backend/internal/infrastructure/blockchain"
)

// ServiceContract is the on-chain marketplace surface the usecases use.
type ServiceContract interface {
	Address() common.Address
	ChainID() *big.Int
	GetAllServices(ctx context.Context, start, end *big.Int) ([]*entities.Service, error)
	ServiceCount(ctx context.Context) (*big.Int, error)
	PackCreateService(call entities.CreateServiceCall) ([]byte, error)
	UnpackCreateService(data []byte) (entities.CreateServiceCall, error)
	CreateService(ctx context.Context, signer *blockchain.Signer, call entities.CreateServiceCall) (*types.Transaction, error)
}

// ContractProvider resolves the active marketplace deployment.
type ContractProvider interface {
	Contract(ctx context.Context) (ServiceContract, error)
}

// ChainGateway is the RPC surface used to broadcast and track transactions.
type ChainGateway interface {
	ChainID() *big.Int
	GetTransactionReceipt(ctx context.Context, txHash string) (*types.Receipt, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	WaitForReceipt(ctx context.Context, txHash string, interval time.Duration) (*types.Receipt, error)
}

type ServiceIndexer interface {
	ServicesCreated(ctx context.Context) ([]entities.IndexedService, error)
}

// QueryCache holds JSON query results keyed by query name.
type QueryCache interface {
	Load(ctx context.Context, queryKey string, dst interface{}) (bool, error)
	Store(ctx context.Context, queryKey string, value interface{}) error
	Invalidate(ctx context.Context, queryKey string) error
}
