package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/interfaces/http/response"
	"threelance.backend/pkg/utils"
)

// MaxReceiptWait caps the ?wait= parameter of GetTransaction.
const MaxReceiptWait = 60 * time.Second

type TransactionService interface {
	SubmitSignedTransaction(ctx context.Context, rawTx string) (*entities.ServiceTransaction, error)
	GetTransaction(ctx context.Context, hash string) (*entities.ServiceTransaction, error)
	WaitForReceipt(ctx context.Context, hash string, timeout time.Duration) (*entities.ServiceTransaction, error)
	ListTransactions(ctx context.Context, status *entities.TxStatus, pagination utils.PaginationParams) ([]*entities.ServiceTransaction, utils.PaginationMeta, error)
}

// TransactionHandler handles relay and receipt tracking endpoints
type TransactionHandler struct {
	txs TransactionService
}

func NewTransactionHandler(txs TransactionService) *TransactionHandler {
	return &TransactionHandler{txs: txs}
}

// SubmitTransaction relays a wallet-signed createService transaction
// POST /api/v1/transactions
func (h *TransactionHandler) SubmitTransaction(c *gin.Context) {
	var input struct {
		RawTransaction string `json:"rawTransaction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest("rawTransaction is required"))
		return
	}

	tx, err := h.txs.SubmitSignedTransaction(c.Request.Context(), input.RawTransaction)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, tx)
}

// GetTransaction returns a tracked transaction. With ?wait=<duration> it
// blocks until the receipt arrives or the wait elapses.
// GET /api/v1/transactions/:hash
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	hash := c.Param("hash")

	if raw := c.Query("wait"); raw != "" {
		wait, err := time.ParseDuration(raw)
		if err != nil || wait <= 0 {
			response.Error(c, domainerrors.BadRequest("invalid wait duration"))
			return
		}
		if wait > MaxReceiptWait {
			wait = MaxReceiptWait
		}
		tx, err := h.txs.WaitForReceipt(c.Request.Context(), hash, wait)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, tx)
		return
	}

	tx, err := h.txs.GetTransaction(c.Request.Context(), hash)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, tx)
}

// ListTransactions lists tracked transactions, newest first
// GET /api/v1/transactions?status=&page=&limit=
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var status *entities.TxStatus
	if raw := c.Query("status"); raw != "" {
		s := entities.TxStatus(strings.ToUpper(raw))
		switch s {
		case entities.TxStatusPending, entities.TxStatusConfirmed, entities.TxStatusFailed:
			status = &s
		default:
			response.Error(c, domainerrors.BadRequest("invalid status"))
			return
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	pagination := utils.GetPaginationParams(page, limit)

	items, meta, err := h.txs.ListTransactions(c.Request.Context(), status, pagination)
	if err != nil {
		response.Error(c, err)
		return
	}
	if items == nil {
		items = []*entities.ServiceTransaction{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"items": items,
		"meta":  meta,
	})
}
