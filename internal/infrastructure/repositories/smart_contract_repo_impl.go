package repositories

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/domain/repositories"
	"threelance.backend/internal/infrastructure/models"
)

type smartContractRepo struct {
	db *gorm.DB
}

func NewSmartContractRepository(db *gorm.DB) repositories.SmartContractRepository {
	return &smartContractRepo{db: db}
}

func (r *smartContractRepo) Create(ctx context.Context, c *entities.SmartContract) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	m := &models.SmartContract{
		ID:              c.ID,
		Name:            c.Name,
		ChainID:         c.ChainID,
		ContractAddress: strings.ToLower(c.ContractAddress),
		ABI:             c.ABI,
		DeployerAddress: strings.ToLower(c.DeployerAddress),
		DeployTxHash:    c.DeployTxHash.Ptr(),
		Tags:            pq.StringArray(c.Tags),
		IsActive:        c.IsActive,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.BlockNumber.Valid {
		bn := int64(c.BlockNumber.Uint64)
		m.BlockNumber = &bn
	}
	return GetDB(ctx, r.db).Create(m).Error
}

func (r *smartContractRepo) GetActive(ctx context.Context, chainID, name string) (*entities.SmartContract, error) {
	var m models.SmartContract
	err := GetDB(ctx, r.db).
		Where("chain_id = ? AND name = ? AND is_active = ?", chainID, name, true).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *smartContractRepo) GetByAddress(ctx context.Context, chainID, address string) (*entities.SmartContract, error) {
	var m models.SmartContract
	err := GetDB(ctx, r.db).
		Where("chain_id = ? AND contract_address = ?", chainID, strings.ToLower(strings.TrimSpace(address))).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

func (r *smartContractRepo) ListByChain(ctx context.Context, chainID string) ([]*entities.SmartContract, error) {
	var ms []models.SmartContract
	if err := GetDB(ctx, r.db).Where("chain_id = ?", chainID).Order("created_at DESC").Find(&ms).Error; err != nil {
		return nil, err
	}

	contracts := make([]*entities.SmartContract, 0, len(ms))
	for i := range ms {
		contracts = append(contracts, r.toEntity(&ms[i]))
	}
	return contracts, nil
}

func (r *smartContractRepo) DeactivateAll(ctx context.Context, chainID, name string) error {
	return GetDB(ctx, r.db).Model(&models.SmartContract{}).
		Where("chain_id = ? AND name = ? AND is_active = ?", chainID, name, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
}

func (r *smartContractRepo) toEntity(m *models.SmartContract) *entities.SmartContract {
	c := &entities.SmartContract{
		ID:              m.ID,
		Name:            m.Name,
		ChainID:         m.ChainID,
		ContractAddress: m.ContractAddress,
		ABI:             m.ABI,
		DeployerAddress: m.DeployerAddress,
		DeployTxHash:    null.StringFromPtr(m.DeployTxHash),
		Tags:            []string(m.Tags),
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if m.BlockNumber != nil {
		c.BlockNumber = null.Uint64From(uint64(*m.BlockNumber))
	}
	return c
}
