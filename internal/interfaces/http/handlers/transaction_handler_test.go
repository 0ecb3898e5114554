package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/pkg/utils"
)

type transactionServiceStub struct {
	submitFn func(ctx context.Context, rawTx string) (*entities.ServiceTransaction, error)
	getFn    func(ctx context.Context, hash string) (*entities.ServiceTransaction, error)
	waitFn   func(ctx context.Context, hash string, timeout time.Duration) (*entities.ServiceTransaction, error)
	listFn   func(ctx context.Context, status *entities.TxStatus, pagination utils.PaginationParams) ([]*entities.ServiceTransaction, utils.PaginationMeta, error)
}

func (s transactionServiceStub) SubmitSignedTransaction(ctx context.Context, rawTx string) (*entities.ServiceTransaction, error) {
	return s.submitFn(ctx, rawTx)
}
func (s transactionServiceStub) GetTransaction(ctx context.Context, hash string) (*entities.ServiceTransaction, error) {
	return s.getFn(ctx, hash)
}
func (s transactionServiceStub) WaitForReceipt(ctx context.Context, hash string, timeout time.Duration) (*entities.ServiceTransaction, error) {
	return s.waitFn(ctx, hash, timeout)
}
func (s transactionServiceStub) ListTransactions(ctx context.Context, status *entities.TxStatus, pagination utils.PaginationParams) ([]*entities.ServiceTransaction, utils.PaginationMeta, error) {
	return s.listFn(ctx, status, pagination)
}

const testTxHash = "0x88df016429689c079f3b2f6ad39fa052532c56795b733da78a91ebe6a713944b"

func newTransactionRouter(h *TransactionHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/transactions", h.SubmitTransaction)
	r.GET("/transactions", h.ListTransactions)
	r.GET("/transactions/:hash", h.GetTransaction)
	return r
}

func TestTransactionHandler_Submit(t *testing.T) {
	h := NewTransactionHandler(transactionServiceStub{
		submitFn: func(_ context.Context, raw string) (*entities.ServiceTransaction, error) {
			if raw == "0xdup" {
				return nil, domainerrors.Conflict("transaction already submitted")
			}
			return &entities.ServiceTransaction{TxHash: testTxHash, Status: entities.TxStatusPending, Method: entities.TxMethodRelay}, nil
		},
	})
	r := newTransactionRouter(h)

	rec := serve(r, http.MethodPost, "/transactions", []byte(`{"rawTransaction":"0xf86b"}`))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), testTxHash)

	require.Equal(t, http.StatusConflict, serve(r, http.MethodPost, "/transactions", []byte(`{"rawTransaction":"0xdup"}`)).Code)

	rec = serve(r, http.MethodPost, "/transactions", []byte(`{}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "rawTransaction is required")
}

func TestTransactionHandler_Get(t *testing.T) {
	var gotWait time.Duration
	h := NewTransactionHandler(transactionServiceStub{
		getFn: func(_ context.Context, hash string) (*entities.ServiceTransaction, error) {
			if hash != testTxHash {
				return nil, domainerrors.NotFound("transaction not found")
			}
			return &entities.ServiceTransaction{TxHash: hash, Status: entities.TxStatusPending}, nil
		},
		waitFn: func(_ context.Context, hash string, timeout time.Duration) (*entities.ServiceTransaction, error) {
			gotWait = timeout
			return &entities.ServiceTransaction{TxHash: hash, Status: entities.TxStatusConfirmed}, nil
		},
	})
	r := newTransactionRouter(h)

	rec := serve(r, http.MethodGet, "/transactions/"+testTxHash, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"PENDING"`)

	require.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/transactions/0x01", nil).Code)

	rec = serve(r, http.MethodGet, "/transactions/"+testTxHash+"?wait=5s", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"CONFIRMED"`)
	require.Equal(t, 5*time.Second, gotWait)

	serve(r, http.MethodGet, "/transactions/"+testTxHash+"?wait=10m", nil)
	require.Equal(t, MaxReceiptWait, gotWait)

	require.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/transactions/"+testTxHash+"?wait=soon", nil).Code)
	require.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/transactions/"+testTxHash+"?wait=-1s", nil).Code)
}

func TestTransactionHandler_List(t *testing.T) {
	var gotStatus *entities.TxStatus
	var gotPage utils.PaginationParams
	h := NewTransactionHandler(transactionServiceStub{
		listFn: func(_ context.Context, status *entities.TxStatus, p utils.PaginationParams) ([]*entities.ServiceTransaction, utils.PaginationMeta, error) {
			gotStatus, gotPage = status, p
			return nil, utils.CalculateMeta(0, p.Page, p.Limit), nil
		},
	})
	r := newTransactionRouter(h)

	rec := serve(r, http.MethodGet, "/transactions?status=pending&page=2&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotStatus)
	require.Equal(t, entities.TxStatusPending, *gotStatus)
	require.Equal(t, utils.PaginationParams{Page: 2, Limit: 5}, gotPage)
	require.Contains(t, rec.Body.String(), `"items":[]`)

	rec = serve(r, http.MethodGet, "/transactions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, gotStatus)
	require.Equal(t, 20, gotPage.Limit)

	require.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/transactions?status=LOST", nil).Code)
}
