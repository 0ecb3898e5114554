package entities

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Service is one gig row as stored by the ThreeLance contract.
type Service struct {
	ID          *big.Int
	Owner       common.Address
	Amount      *big.Int // price in wei
	Status      bool     // true once the gig is completed
	Value       *big.Int
	Title       string
	Description string
	MediaLinks  []string
}

// ServiceColumns is the parallel-array shape returned by getAllServices.
// Index i of every column belongs to the same service.
type ServiceColumns struct {
	IDs          []*big.Int
	Owners       []common.Address
	Amounts      []*big.Int
	Statuses     []bool
	Values       []*big.Int
	Titles       []string
	Descriptions []string
	MediaLinks   [][]string
}

// Len returns the common column length, or -1 if the columns disagree.
func (c ServiceColumns) Len() int {
	n := len(c.IDs)
	for _, l := range []int{
		len(c.Owners), len(c.Amounts), len(c.Statuses), len(c.Values),
		len(c.Titles), len(c.Descriptions), len(c.MediaLinks),
	} {
		if l != n {
			return -1
		}
	}
	return n
}

// Rows transposes the columns into services. ok is false when the columns
// have different lengths; no partial rows are returned in that case.
func (c ServiceColumns) Rows() ([]*Service, bool) {
	n := c.Len()
	if n < 0 {
		return nil, false
	}
	rows := make([]*Service, 0, n)
	for i := 0; i < n; i++ {
		links := c.MediaLinks[i]
		if links == nil {
			links = []string{}
		}
		rows = append(rows, &Service{
			ID:          c.IDs[i],
			Owner:       c.Owners[i],
			Amount:      c.Amounts[i],
			Status:      c.Statuses[i],
			Value:       c.Values[i],
			Title:       c.Titles[i],
			Description: c.Descriptions[i],
			MediaLinks:  links,
		})
	}
	return rows, true
}

// IndexedService is a ServiceCreated event as mirrored by the subgraph.
type IndexedService struct {
	ID           string   `json:"id"`
	ThreeLanceID string   `json:"ThreeLance_id"`
	Price        string   `json:"price"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	MediaLinks   []string `json:"mediaLinks"`
}

// CreateServiceInput is the create-gig form.
type CreateServiceInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"` // ether, decimal string
	Image       string `json:"image"`
}

// CreateServiceCall is a validated form ready for ABI encoding.
type CreateServiceCall struct {
	Name        string
	Description string
	PriceWei    *big.Int
	MediaLinks  []string
}

// UnsignedTx is calldata a browser wallet can sign and broadcast itself.
type UnsignedTx struct {
	ChainID string `json:"chainId"`
	To      string `json:"to"`
	Data    string `json:"data"`
	Value   string `json:"value"`
}
