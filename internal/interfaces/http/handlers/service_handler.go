package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/interfaces/http/response"
	"threelance.backend/internal/usecases"
)

// ServiceCatalog is the listing and creation surface used by ServiceHandler.
type ServiceCatalog interface {
	ListServices(ctx context.Context, start, end uint64) (*usecases.ServiceListOutput, error)
	GetService(ctx context.Context, id uint64) (*usecases.ServiceCard, error)
	ServiceCount(ctx context.Context) (string, error)
	ListIndexedServices(ctx context.Context) (*usecases.IndexedServiceListOutput, error)
	CreateService(ctx context.Context, input entities.CreateServiceInput) (*usecases.CreateServiceOutput, error)
	PrepareCreateService(ctx context.Context, input entities.CreateServiceInput) (*entities.UnsignedTx, error)
}

// ServiceHandler handles gig listing endpoints
type ServiceHandler struct {
	catalog ServiceCatalog
}

// NewServiceHandler creates a new service handler
func NewServiceHandler(catalog ServiceCatalog) *ServiceHandler {
	return &ServiceHandler{catalog: catalog}
}

func parseUintQuery(c *gin.Context, name string) (uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid "+name))
		return 0, false
	}
	return v, true
}

// ListServices lists service cards read from the contract
// GET /api/v1/services?start=&end=
func (h *ServiceHandler) ListServices(c *gin.Context) {
	start, ok := parseUintQuery(c, "start")
	if !ok {
		return
	}
	end, ok := parseUintQuery(c, "end")
	if !ok {
		return
	}

	out, err := h.catalog.ListServices(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// GetService returns one service card
// GET /api/v1/services/:id
func (h *ServiceHandler) GetService(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Invalid service ID"))
		return
	}

	card, err := h.catalog.GetService(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, card)
}

// GET /api/v1/services/count
func (h *ServiceHandler) CountServices(c *gin.Context) {
	count, err := h.catalog.ServiceCount(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"count": count})
}

// ListIndexedServices mirrors ServiceCreated events from the indexer
// GET /api/v1/indexer/services
func (h *ServiceHandler) ListIndexedServices(c *gin.Context) {
	out, err := h.catalog.ListIndexedServices(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, out)
}

// CreateService signs createService with the operator key
// POST /api/v1/services
func (h *ServiceHandler) CreateService(c *gin.Context) {
	var input entities.CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	out, err := h.catalog.CreateService(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, out)
}

// PrepareCreateService returns unsigned calldata for a browser wallet
// POST /api/v1/services/prepare
func (h *ServiceHandler) PrepareCreateService(c *gin.Context) {
	var input entities.CreateServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	tx, err := h.catalog.PrepareCreateService(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tx)
}
