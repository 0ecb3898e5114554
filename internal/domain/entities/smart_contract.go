package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// ContractNameThreeLance is the registry name of the marketplace contract.
const ContractNameThreeLance = "ThreeLance"

// SmartContract is a deployment registry entry: where a named contract
// lives on a chain and the ABI used to talk to it.
type SmartContract struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	ChainID         string      `json:"chainId"`
	ContractAddress string      `json:"contractAddress"`
	ABI             string      `json:"abi"`
	DeployerAddress string      `json:"deployerAddress"`
	DeployTxHash    null.String `json:"deployTxHash"`
	BlockNumber     null.Uint64 `json:"blockNumber"`
	Tags            []string    `json:"tags"`
	IsActive        bool        `json:"isActive"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// HasTag reports whether the deployment carries tag.
func (c *SmartContract) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
