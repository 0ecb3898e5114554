package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/domain/repositories"
	"threelance.backend/internal/infrastructure/models"
	"threelance.backend/pkg/utils"
)

type serviceTransactionRepo struct {
	db *gorm.DB
}

func NewServiceTransactionRepository(db *gorm.DB) repositories.ServiceTransactionRepository {
	return &serviceTransactionRepo{db: db}
}

func normalizeHash(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

func (r *serviceTransactionRepo) Create(ctx context.Context, tx *entities.ServiceTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = utils.GenerateUUIDv7()
	}
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	if tx.Status == "" {
		tx.Status = entities.TxStatusPending
	}

	m := &models.ServiceTransaction{
		ID:              tx.ID,
		TxHash:          normalizeHash(tx.TxHash),
		ChainID:         tx.ChainID,
		ContractAddress: strings.ToLower(tx.ContractAddress),
		FromAddress:     strings.ToLower(tx.FromAddress),
		Method:          string(tx.Method),
		ServiceName:     tx.ServiceName,
		PriceWei:        tx.PriceWei,
		Status:          string(tx.Status),
		ErrorMessage:    tx.ErrorMessage.Ptr(),
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
	if err := GetDB(ctx, r.db).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *serviceTransactionRepo) GetByHash(ctx context.Context, hash string) (*entities.ServiceTransaction, error) {
	var m models.ServiceTransaction
	if err := GetDB(ctx, r.db).Where("tx_hash = ?", normalizeHash(hash)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *serviceTransactionRepo) List(ctx context.Context, status *entities.TxStatus, pagination utils.PaginationParams) ([]*entities.ServiceTransaction, int64, error) {
	query := GetDB(ctx, r.db).Model(&models.ServiceTransaction{})
	if status != nil && *status != "" {
		query = query.Where("status = ?", string(*status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}

	var ms []models.ServiceTransaction
	if err := query.Order("created_at DESC").Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	txs := make([]*entities.ServiceTransaction, 0, len(ms))
	for i := range ms {
		txs = append(txs, r.toEntity(&ms[i]))
	}
	return txs, total, nil
}

func (r *serviceTransactionRepo) GetPending(ctx context.Context, limit int) ([]*entities.ServiceTransaction, error) {
	var ms []models.ServiceTransaction
	query := GetDB(ctx, r.db).
		Where("status = ?", string(entities.TxStatusPending)).
		Order("updated_at ASC").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}

	txs := make([]*entities.ServiceTransaction, 0, len(ms))
	for i := range ms {
		txs = append(txs, r.toEntity(&ms[i]))
	}
	return txs, nil
}

func (r *serviceTransactionRepo) TouchPending(ctx context.Context, hash string) error {
	return GetDB(ctx, r.db).Model(&models.ServiceTransaction{}).
		Where("tx_hash = ? AND status = ?", normalizeHash(hash), string(entities.TxStatusPending)).
		Update("updated_at", time.Now()).Error
}

func (r *serviceTransactionRepo) MarkDropped(ctx context.Context, hash string, errMsg string) error {
	res := GetDB(ctx, r.db).Model(&models.ServiceTransaction{}).
		Where("tx_hash = ? AND status = ?", normalizeHash(hash), string(entities.TxStatusPending)).
		Updates(map[string]interface{}{
			"status":        string(entities.TxStatusFailed),
			"error_message": errMsg,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// MarkResult only touches rows still PENDING so a late duplicate receipt
// cannot flip a settled transaction.
func (r *serviceTransactionRepo) MarkResult(ctx context.Context, hash string, result entities.TxReceiptResult, errMsg string) error {
	status := entities.TxStatusConfirmed
	if !result.Success {
		status = entities.TxStatusFailed
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":       string(status),
		"block_number": int64(result.BlockNumber),
		"gas_used":     int64(result.GasUsed),
		"confirmed_at": now,
		"updated_at":   now,
	}
	if errMsg != "" {
		updates["error_message"] = errMsg
	}
	if result.ServiceID != "" {
		updates["service_id"] = result.ServiceID
	}

	res := GetDB(ctx, r.db).Model(&models.ServiceTransaction{}).
		Where("tx_hash = ? AND status = ?", normalizeHash(hash), string(entities.TxStatusPending)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func (r *serviceTransactionRepo) toEntity(m *models.ServiceTransaction) *entities.ServiceTransaction {
	tx := &entities.ServiceTransaction{
		ID:              m.ID,
		TxHash:          m.TxHash,
		ChainID:         m.ChainID,
		ContractAddress: m.ContractAddress,
		FromAddress:     m.FromAddress,
		Method:          entities.TxMethod(m.Method),
		ServiceName:     m.ServiceName,
		ServiceID:       null.StringFromPtr(m.ServiceID),
		PriceWei:        m.PriceWei,
		Status:          entities.TxStatus(m.Status),
		ErrorMessage:    null.StringFromPtr(m.ErrorMessage),
		ConfirmedAt:     null.TimeFromPtr(m.ConfirmedAt),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.BlockNumber != nil {
		tx.BlockNumber = null.Uint64From(uint64(*m.BlockNumber))
	}
	if m.GasUsed != nil {
		tx.GasUsed = null.Uint64From(uint64(*m.GasUsed))
	}
	return tx
}
