package repositories

import (
	"context"

	"threelance.backend/internal/domain/entities"
)

// SmartContractRepository is the deployment registry.
type SmartContractRepository interface {
	Create(ctx context.Context, contract *entities.SmartContract) error
	// GetActive returns the active deployment of name on chainID.
	GetActive(ctx context.Context, chainID, name string) (*entities.SmartContract, error)
	GetByAddress(ctx context.Context, chainID, address string) (*entities.SmartContract, error)
	ListByChain(ctx context.Context, chainID string) ([]*entities.SmartContract, error)
	// DeactivateAll marks every deployment of name on chainID inactive.
	DeactivateAll(ctx context.Context, chainID, name string) error
}
