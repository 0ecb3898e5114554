package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"threelance.backend/internal/domain/entities"
	"threelance.backend/internal/interfaces/http/response"
)

type DeploymentRegistry interface {
	GetDeployment(ctx context.Context) (*entities.SmartContract, error)
	ListDeployments(ctx context.Context) ([]*entities.SmartContract, error)
}

// ContractHandler exposes the ThreeLance deployment registry
type ContractHandler struct {
	registry DeploymentRegistry
}

func NewContractHandler(registry DeploymentRegistry) *ContractHandler {
	return &ContractHandler{registry: registry}
}

// GetThreeLance returns the deployment the server is bound to
// GET /api/v1/contracts/threelance
func (h *ContractHandler) GetThreeLance(c *gin.Context) {
	contract, err := h.registry.GetDeployment(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, contract)
}

// ListDeployments lists every recorded deployment
// GET /api/v1/contracts
func (h *ContractHandler) ListDeployments(c *gin.Context) {
	items, err := h.registry.ListDeployments(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []*entities.SmartContract{}
	}
	response.Success(c, http.StatusOK, gin.H{"contracts": items})
}
