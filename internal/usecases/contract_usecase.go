package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/domain/repositories"
	"threelance.backend/internal/infrastructure/blockchain"
	"threelance.backend/internal/infrastructure/contracts"
	"threelance.backend/pkg/logger"
)

var (
	deployContract = contracts.Deploy
	bindThreeLance = func(client *blockchain.EVMClient, address, rawABI string) (ServiceContract, error) {
		parsed, err := contracts.ParseABI(rawABI)
		if err != nil {
			return nil, err
		}
		binding, err := contracts.NewThreeLance(client, address, parsed)
		if err != nil {
			return nil, err
		}
		return binding, nil
	}
)

// ContractUsecase owns the ThreeLance deployment registry and hands out
// bindings to the active deployment.
type ContractUsecase struct {
	contractRepo      repositories.SmartContractRepository
	txRepo            repositories.ServiceTransactionRepository
	uow               repositories.UnitOfWork
	client            *blockchain.EVMClient
	configuredAddress string
	receiptInterval   time.Duration

	mu          sync.Mutex
	binding     ServiceContract
	bindingAddr string
}

func NewContractUsecase(
	contractRepo repositories.SmartContractRepository,
	txRepo repositories.ServiceTransactionRepository,
	uow repositories.UnitOfWork,
	client *blockchain.EVMClient,
	configuredAddress string,
	receiptInterval time.Duration,
) *ContractUsecase {
	return &ContractUsecase{
		contractRepo:      contractRepo,
		txRepo:            txRepo,
		uow:               uow,
		client:            client,
		configuredAddress: strings.TrimSpace(configuredAddress),
		receiptInterval:   receiptInterval,
	}
}

func (u *ContractUsecase) chainID() string {
	return entities.CAIP2(u.client.ChainID())
}

// Contract returns a binding to the configured address, or to the active
// registry entry when no address is configured.
func (u *ContractUsecase) Contract(ctx context.Context) (ServiceContract, error) {
	address := u.configuredAddress
	rawABI := ""
	if address != "" {
		if entry, err := u.contractRepo.GetByAddress(ctx, u.chainID(), address); err == nil {
			rawABI = entry.ABI
		}
	} else {
		entry, err := u.contractRepo.GetActive(ctx, u.chainID(), entities.ContractNameThreeLance)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: no %s on %s", domainerrors.ErrNotDeployed, entities.ContractNameThreeLance, u.chainID())
			}
			return nil, err
		}
		address, rawABI = entry.ContractAddress, entry.ABI
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.binding != nil && strings.EqualFold(u.bindingAddr, address) {
		return u.binding, nil
	}
	binding, err := bindThreeLance(u.client, address, rawABI)
	if err != nil {
		return nil, err
	}
	u.binding, u.bindingAddr = binding, address
	return binding, nil
}

// GetDeployment returns the registry entry of the active deployment. A
// configured address without a registry row is reported as-is.
func (u *ContractUsecase) GetDeployment(ctx context.Context) (*entities.SmartContract, error) {
	if u.configuredAddress != "" {
		entry, err := u.contractRepo.GetByAddress(ctx, u.chainID(), u.configuredAddress)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.InternalError(err)
		}
		return &entities.SmartContract{
			Name:            entities.ContractNameThreeLance,
			ChainID:         u.chainID(),
			ContractAddress: u.configuredAddress,
			Tags:            []string{entities.ContractNameThreeLance},
			IsActive:        true,
		}, nil
	}

	entry, err := u.contractRepo.GetActive(ctx, u.chainID(), entities.ContractNameThreeLance)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound(fmt.Sprintf("%s is not deployed on %s", entities.ContractNameThreeLance, u.chainID()))
		}
		return nil, domainerrors.InternalError(err)
	}
	return entry, nil
}

func (u *ContractUsecase) ListDeployments(ctx context.Context) ([]*entities.SmartContract, error) {
	items, err := u.contractRepo.ListByChain(ctx, u.chainID())
	if err != nil {
		return nil, domainerrors.InternalError(err)
	}
	return items, nil
}

// RecordDeployment makes contract the only active deployment of its name.
func (u *ContractUsecase) RecordDeployment(ctx context.Context, contract *entities.SmartContract) error {
	contract.IsActive = true
	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.contractRepo.DeactivateAll(txCtx, contract.ChainID, contract.Name); err != nil {
			return err
		}
		return u.contractRepo.Create(txCtx, contract)
	})
	if err != nil {
		return err
	}

	u.mu.Lock()
	u.binding, u.bindingAddr = nil, ""
	u.mu.Unlock()
	return nil
}

type DeployInput struct {
	Artifact       *contracts.Artifact
	Signer         *blockchain.Signer
	SkipIfDeployed bool
	Tags           []string
}

type DeployOutput struct {
	Contract *entities.SmartContract `json:"contract"`
	TxHash   string                  `json:"txHash,omitempty"`
	GasUsed  uint64                  `json:"gasUsed,omitempty"`
	Reused   bool                    `json:"reused"`
}

// Deploy sends the creation transaction, waits for it to be mined and
// records the new deployment. With SkipIfDeployed an existing active
// deployment is returned untouched.
func (u *ContractUsecase) Deploy(ctx context.Context, input DeployInput) (*DeployOutput, error) {
	if input.Artifact == nil {
		return nil, domainerrors.BadRequest("artifact is required")
	}
	if input.Signer == nil {
		return nil, domainerrors.ErrSignerMissing
	}
	chainID := u.chainID()

	if input.SkipIfDeployed {
		existing, err := u.contractRepo.GetActive(ctx, chainID, entities.ContractNameThreeLance)
		if err == nil {
			logger.Info(ctx, "reusing deployment",
				zap.String("contract", existing.Name),
				zap.String("address", existing.ContractAddress),
				zap.String("chain_id", chainID),
			)
			return &DeployOutput{Contract: existing, Reused: true}, nil
		}
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, err
		}
	}

	res, err := deployContract(ctx, u.client, input.Signer, input.Artifact)
	if err != nil {
		return nil, err
	}
	hash := res.Tx.Hash().Hex()
	ctx = logger.WithTxHash(ctx, hash)
	logger.Info(ctx, "deploying \""+entities.ContractNameThreeLance+"\"",
		zap.String("from", input.Signer.Address().Hex()),
		zap.String("address", res.Address.Hex()),
	)

	if u.txRepo != nil {
		record := &entities.ServiceTransaction{
			TxHash:          hash,
			ChainID:         chainID,
			ContractAddress: res.Address.Hex(),
			FromAddress:     input.Signer.Address().Hex(),
			Method:          entities.TxMethodDeploy,
		}
		if err := u.txRepo.Create(ctx, record); err != nil {
			logger.Warn(ctx, "failed to record deploy transaction", zap.Error(err))
		}
	}

	receipt, err := u.client.WaitForReceipt(ctx, hash, u.receiptInterval)
	if err != nil {
		return nil, err
	}
	result := receiptResult(receipt)
	if result.ContractAddress == "" {
		result.ContractAddress = res.Address.Hex()
	}
	if u.txRepo != nil {
		errMsg := ""
		if !result.Success {
			errMsg = domainerrors.ErrTxReverted.Error()
		}
		if err := u.txRepo.MarkResult(ctx, hash, result, errMsg); err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
			logger.Warn(ctx, "failed to settle deploy transaction", zap.Error(err))
		}
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: deploy %s", domainerrors.ErrTxReverted, hash)
	}

	tags := input.Tags
	if len(tags) == 0 {
		tags = []string{entities.ContractNameThreeLance}
	}
	contract := &entities.SmartContract{
		Name:            entities.ContractNameThreeLance,
		ChainID:         chainID,
		ContractAddress: common.HexToAddress(result.ContractAddress).Hex(),
		ABI:             string(input.Artifact.ABI),
		DeployerAddress: input.Signer.Address().Hex(),
		DeployTxHash:    null.StringFrom(hash),
		BlockNumber:     null.Uint64From(result.BlockNumber),
		Tags:            tags,
	}
	if err := u.RecordDeployment(ctx, contract); err != nil {
		return nil, fmt.Errorf("record deployment: %w", err)
	}

	logger.Info(ctx, "deployed \""+entities.ContractNameThreeLance+"\"",
		zap.String("address", contract.ContractAddress),
		zap.Uint64("block", result.BlockNumber),
		zap.Uint64("gas_used", result.GasUsed),
	)
	return &DeployOutput{Contract: contract, TxHash: hash, GasUsed: result.GasUsed}, nil
}
