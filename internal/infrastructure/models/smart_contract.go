package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type SmartContract struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name            string         `gorm:"type:varchar(100);not null;index:idx_contract_chain_name"`
	ChainID         string         `gorm:"type:varchar(50);not null;index:idx_contract_chain_name"` // CAIP-2
	ContractAddress string         `gorm:"type:varchar(42);not null"`
	ABI             string         `gorm:"type:text;not null"`
	DeployerAddress string         `gorm:"type:varchar(42)"`
	DeployTxHash    *string        `gorm:"type:varchar(66)"`
	BlockNumber     *int64
	Tags            pq.StringArray `gorm:"type:text[]"`
	IsActive        bool           `gorm:"default:true;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (SmartContract) TableName() string {
	return "smart_contracts"
}
