package models

import (
	"time"

	"github.com/google/uuid"
)

type ServiceTransaction struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	TxHash          string    `gorm:"type:varchar(66);not null;uniqueIndex"`
	ChainID         string    `gorm:"type:varchar(50);not null"`
	ContractAddress string    `gorm:"type:varchar(42)"`
	FromAddress     string    `gorm:"type:varchar(42)"`
	Method          string    `gorm:"type:varchar(50);not null"`
	ServiceName     string    `gorm:"type:varchar(255)"`
	ServiceID       *string   `gorm:"type:varchar(80)"`
	PriceWei        string    `gorm:"type:varchar(80)"`
	Status          string    `gorm:"type:varchar(20);not null;index"`
	BlockNumber     *int64
	GasUsed         *int64
	ErrorMessage    *string `gorm:"type:text"`
	ConfirmedAt     *time.Time
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time
}

func (ServiceTransaction) TableName() string {
	return "service_transactions"
}

// All lists every model the service migrates.
func All() []interface{} {
	return []interface{}{&SmartContract{}, &ServiceTransaction{}}
}
