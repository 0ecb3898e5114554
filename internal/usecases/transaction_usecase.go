package usecases

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/domain/repositories"
	"threelance.backend/internal/infrastructure/blockchain"
	"threelance.backend/internal/infrastructure/contracts"
	"threelance.backend/pkg/logger"
	"threelance.backend/pkg/utils"
)

// MsgServiceCreated is logged once a createService transaction confirms.
const MsgServiceCreated = "Service created successfully!"

// DefaultPendingTimeout is how long a transaction may stay without a receipt
// before the watcher marks it dropped.
const DefaultPendingTimeout = time.Hour

var txHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// TransactionUsecase relays wallet-signed transactions and settles every
// tracked transaction from its receipt.
type TransactionUsecase struct {
	txRepo          repositories.ServiceTransactionRepository
	contracts       ContractProvider
	chain           ChainGateway
	cache           QueryCache
	receiptInterval time.Duration
	pendingTimeout  time.Duration
}

func NewTransactionUsecase(
	txRepo repositories.ServiceTransactionRepository,
	contracts ContractProvider,
	chain ChainGateway,
	cache QueryCache,
	receiptInterval time.Duration,
) *TransactionUsecase {
	if receiptInterval <= 0 {
		receiptInterval = 2 * time.Second
	}
	return &TransactionUsecase{
		txRepo:          txRepo,
		contracts:       contracts,
		chain:           chain,
		cache:           cache,
		receiptInterval: receiptInterval,
		pendingTimeout:  DefaultPendingTimeout,
	}
}

// WithPendingTimeout sets the receipt-less age after which a pending
// transaction is failed as dropped. Non-positive values keep the default.
func (u *TransactionUsecase) WithPendingTimeout(timeout time.Duration) *TransactionUsecase {
	if timeout > 0 {
		u.pendingTimeout = timeout
	}
	return u
}

// SubmitSignedTransaction broadcasts a wallet-signed createService
// transaction and records it as PENDING.
func (u *TransactionUsecase) SubmitSignedTransaction(ctx context.Context, rawTx string) (*entities.ServiceTransaction, error) {
	chainID := u.chain.ChainID()
	tx, from, err := blockchain.DecodeRawTransaction(rawTx, chainID)
	if err != nil {
		return nil, domainerrors.BadRequest("invalid signed transaction: " + err.Error())
	}

	contract, err := u.contracts.Contract(ctx)
	if err != nil {
		return nil, domainerrors.ServiceUnavailable("contract unavailable", err)
	}
	if tx.To() == nil || *tx.To() != contract.Address() {
		return nil, domainerrors.BadRequest("transaction is not addressed to the ThreeLance contract")
	}
	call, err := contract.UnpackCreateService(tx.Data())
	if err != nil {
		return nil, domainerrors.BadRequest("transaction does not call createService")
	}

	hash := tx.Hash().Hex()
	ctx = logger.WithTxHash(ctx, hash)
	if err := u.chain.SendTransaction(ctx, tx); err != nil {
		logger.Warn(ctx, "relay failed", zap.Error(err))
		return nil, domainerrors.ServiceUnavailable("failed to broadcast transaction", err)
	}

	record := &entities.ServiceTransaction{
		TxHash:          hash,
		ChainID:         entities.CAIP2(chainID),
		ContractAddress: contract.Address().Hex(),
		FromAddress:     from.Hex(),
		Method:          entities.TxMethodRelay,
		ServiceName:     call.Name,
		PriceWei:        bigString(call.PriceWei),
	}
	if err := u.txRepo.Create(ctx, record); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("transaction already submitted")
		}
		return nil, domainerrors.InternalError(err)
	}
	logger.Info(ctx, "relayed createService", zap.String("from", from.Hex()), zap.String("name", call.Name))
	return record, nil
}

func validateHash(hash string) error {
	if !txHashPattern.MatchString(hash) {
		return domainerrors.BadRequest("invalid transaction hash")
	}
	return nil
}

func (u *TransactionUsecase) load(ctx context.Context, hash string) (*entities.ServiceTransaction, error) {
	record, err := u.txRepo.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("transaction not found")
		}
		return nil, domainerrors.InternalError(err)
	}
	return record, nil
}

// GetTransaction returns the stored record. A pending record is checked
// against the chain once and settled if its receipt exists.
func (u *TransactionUsecase) GetTransaction(ctx context.Context, hash string) (*entities.ServiceTransaction, error) {
	if err := validateHash(hash); err != nil {
		return nil, err
	}
	record, err := u.load(ctx, hash)
	if err != nil || record.IsFinal() {
		return record, err
	}

	receipt, err := u.chain.GetTransactionReceipt(ctx, hash)
	if err != nil {
		if !errors.Is(err, ethereum.NotFound) {
			logger.Warn(ctx, "receipt lookup failed", zap.String("tx_hash", hash), zap.Error(err))
		}
		return record, nil
	}
	if err := u.Settle(ctx, record, receipt); err != nil {
		return nil, domainerrors.InternalError(err)
	}
	return u.load(ctx, hash)
}

// WaitForReceipt blocks until the transaction is mined or timeout passes.
// On timeout the still-pending record is returned.
func (u *TransactionUsecase) WaitForReceipt(ctx context.Context, hash string, timeout time.Duration) (*entities.ServiceTransaction, error) {
	if err := validateHash(hash); err != nil {
		return nil, err
	}
	record, err := u.load(ctx, hash)
	if err != nil || record.IsFinal() {
		return record, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	receipt, err := u.chain.WaitForReceipt(waitCtx, hash, u.receiptInterval)
	if err != nil {
		if errors.Is(err, blockchain.ErrReceiptTimeout) {
			return record, nil
		}
		return nil, domainerrors.ServiceUnavailable("receipt lookup failed", err)
	}
	if err := u.Settle(ctx, record, receipt); err != nil {
		return nil, domainerrors.InternalError(err)
	}
	return u.load(ctx, hash)
}

func (u *TransactionUsecase) ListTransactions(ctx context.Context, status *entities.TxStatus, pagination utils.PaginationParams) ([]*entities.ServiceTransaction, utils.PaginationMeta, error) {
	items, total, err := u.txRepo.List(ctx, status, pagination)
	if err != nil {
		return nil, utils.PaginationMeta{}, domainerrors.InternalError(err)
	}
	return items, utils.CalculateMeta(total, pagination.Page, pagination.Limit), nil
}

func receiptResult(receipt *types.Receipt) entities.TxReceiptResult {
	result := entities.TxReceiptResult{
		Success: receipt.Status == types.ReceiptStatusSuccessful,
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		result.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.ContractAddress != (common.Address{}) {
		result.ContractAddress = receipt.ContractAddress.Hex()
	}
	return result
}

// Settle records the receipt outcome of record. Settling an already final
// record is a no-op.
func (u *TransactionUsecase) Settle(ctx context.Context, record *entities.ServiceTransaction, receipt *types.Receipt) error {
	if record.IsFinal() {
		return nil
	}
	ctx = logger.WithTxHash(ctx, record.TxHash)
	result := receiptResult(receipt)

	errMsg := ""
	if !result.Success {
		errMsg = domainerrors.ErrTxReverted.Error()
	} else if record.Method != entities.TxMethodDeploy {
		if ev := contracts.FindServiceCreated(contracts.DefaultABI, receipt); ev != nil {
			result.ServiceID = ev.ID.String()
		}
	}

	if err := u.txRepo.MarkResult(ctx, record.TxHash, result, errMsg); err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil
		}
		return err
	}

	if !result.Success {
		logger.Warn(ctx, "transaction reverted",
			zap.String("method", string(record.Method)),
			zap.Uint64("block", result.BlockNumber),
		)
		return nil
	}
	if record.Method == entities.TxMethodDeploy {
		logger.Info(ctx, "deployment confirmed", zap.String("address", result.ContractAddress))
		return nil
	}

	logger.Info(ctx, MsgServiceCreated,
		zap.String("service_id", result.ServiceID),
		zap.String("name", record.ServiceName),
		zap.Uint64("block", result.BlockNumber),
		zap.Uint64("gas_used", result.GasUsed),
	)
	if u.cache != nil {
		if err := u.cache.Invalidate(ctx, IndexerCacheKey); err != nil {
			logger.Warn(ctx, "indexer cache invalidate failed", zap.Error(err))
		}
	}
	return nil
}

// ReconcilePending settles up to limit pending transactions whose receipts
// are available and returns how many were settled. Transactions older than
// the pending timeout without a receipt are failed as dropped; the rest are
// touched so the next batch reaches newer rows.
func (u *TransactionUsecase) ReconcilePending(ctx context.Context, limit int) (int, error) {
	pending, err := u.txRepo.GetPending(ctx, limit)
	if err != nil {
		return 0, err
	}

	settled := 0
	for _, record := range pending {
		receipt, err := u.chain.GetTransactionReceipt(ctx, record.TxHash)
		if err != nil {
			if !errors.Is(err, ethereum.NotFound) {
				logger.Warn(ctx, "receipt lookup failed", zap.String("tx_hash", record.TxHash), zap.Error(err))
			} else if time.Since(record.CreatedAt) > u.pendingTimeout {
				if u.drop(ctx, record) {
					settled++
				}
				continue
			}
			if err := u.txRepo.TouchPending(ctx, record.TxHash); err != nil {
				logger.Warn(ctx, "pending touch failed", zap.String("tx_hash", record.TxHash), zap.Error(err))
			}
			continue
		}
		if err := u.Settle(ctx, record, receipt); err != nil {
			logger.Error(ctx, "settle failed", zap.String("tx_hash", record.TxHash), zap.Error(err))
			continue
		}
		settled++
	}
	return settled, nil
}

func (u *TransactionUsecase) drop(ctx context.Context, record *entities.ServiceTransaction) bool {
	ctx = logger.WithTxHash(ctx, record.TxHash)
	if err := u.txRepo.MarkDropped(ctx, record.TxHash, domainerrors.ErrTxDropped.Error()); err != nil {
		if !errors.Is(err, domainerrors.ErrNotFound) {
			logger.Error(ctx, "mark dropped failed", zap.Error(err))
		}
		return false
	}
	logger.Warn(ctx, "transaction dropped",
		zap.String("method", string(record.Method)),
		zap.Duration("age", time.Since(record.CreatedAt)),
	)
	return true
}
