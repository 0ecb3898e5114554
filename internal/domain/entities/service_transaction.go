package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// TxStatus tracks a submitted transaction until its receipt arrives.
type TxStatus string

const (
	TxStatusPending   TxStatus = "PENDING"
	TxStatusConfirmed TxStatus = "CONFIRMED"
	TxStatusFailed    TxStatus = "FAILED"
)

// TxMethod names the contract interaction a transaction performs.
type TxMethod string

const (
	TxMethodCreateService TxMethod = "createService"
	TxMethodDeploy        TxMethod = "deploy"
	TxMethodRelay         TxMethod = "relay"
)

// ServiceTransaction is a transaction submitted through this backend.
type ServiceTransaction struct {
	ID              uuid.UUID   `json:"id"`
	TxHash          string      `json:"txHash"`
	ChainID         string      `json:"chainId"`
	ContractAddress string      `json:"contractAddress"`
	FromAddress     string      `json:"fromAddress"`
	Method          TxMethod    `json:"method"`
	ServiceName     string      `json:"serviceName,omitempty"`
	ServiceID       null.String `json:"serviceId"` // from the ServiceCreated log
	PriceWei        string      `json:"priceWei,omitempty"`
	Status          TxStatus    `json:"status"`
	BlockNumber     null.Uint64 `json:"blockNumber"`
	GasUsed         null.Uint64 `json:"gasUsed"`
	ErrorMessage    null.String `json:"errorMessage"`
	ConfirmedAt     null.Time   `json:"confirmedAt"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// IsFinal reports whether the receipt has been observed.
func (t *ServiceTransaction) IsFinal() bool {
	return t.Status == TxStatusConfirmed || t.Status == TxStatusFailed
}

// TxReceiptResult is the part of a receipt the watcher records.
type TxReceiptResult struct {
	Success         bool
	BlockNumber     uint64
	GasUsed         uint64
	ContractAddress string
	ServiceID       string
}
