package repositories

import (
	"context"

	"threelance.backend/internal/domain/entities"
	"threelance.backend/pkg/utils"
)

// ServiceTransactionRepository persists transactions submitted by the backend.
type ServiceTransactionRepository interface {
	Create(ctx context.Context, tx *entities.ServiceTransaction) error
	GetByHash(ctx context.Context, hash string) (*entities.ServiceTransaction, error)
	List(ctx context.Context, status *entities.TxStatus, pagination utils.PaginationParams) ([]*entities.ServiceTransaction, int64, error)
	// GetPending returns up to limit pending transactions, least recently
	// checked first.
	GetPending(ctx context.Context, limit int) ([]*entities.ServiceTransaction, error)
	// TouchPending records a receipt check so the next batch rotates past it.
	TouchPending(ctx context.Context, hash string) error
	// MarkResult moves a pending transaction to CONFIRMED or FAILED.
	MarkResult(ctx context.Context, hash string, result entities.TxReceiptResult, errMsg string) error
	// MarkDropped fails a pending transaction that never produced a receipt.
	MarkDropped(ctx context.Context, hash string, errMsg string) error
}
