package usecases

import (
	"context"
	"errors"
	"math/big"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/domain/repositories"
	"threelance.backend/internal/infrastructure/blockchain"
	"threelance.backend/pkg/ether"
	"threelance.backend/pkg/logger"
	"threelance.backend/pkg/utils"
)

// IndexerCacheKey is the cache key of the serviceCreateds query.
const IndexerCacheKey = "servicesCreated"

// Messages shown next to the create-gig form fields.
const (
	MsgPriceRequired       = "Price is required"
	MsgTitleRequired       = "Title is required"
	MsgDescriptionRequired = "Description is required"
	MsgImageRequired       = "image url is required"
	MsgPriceInvalid        = "Price must be a positive ETH amount"
	MsgPricePrecision      = "Price has more than 18 decimal places"
	MsgPriceTooLarge       = "Price is too large"
	MsgImageInvalid        = "image url must be an absolute http(s) URL"
)

var createServiceFieldOrder = []string{"price", "name", "description", "image"}

type ServiceUsecase struct {
	contracts   ContractProvider
	indexer     ServiceIndexer
	cache       QueryCache
	txRepo      repositories.ServiceTransactionRepository
	signer      *blockchain.Signer
	nativePrice float64
}

func NewServiceUsecase(
	contracts ContractProvider,
	indexer ServiceIndexer,
	cache QueryCache,
	txRepo repositories.ServiceTransactionRepository,
	signer *blockchain.Signer,
	nativePrice float64,
) *ServiceUsecase {
	return &ServiceUsecase{
		contracts:   contracts,
		indexer:     indexer,
		cache:       cache,
		txRepo:      txRepo,
		signer:      signer,
		nativePrice: nativePrice,
	}
}

// ServiceCard is a service as rendered in the listing.
type ServiceCard struct {
	ID          string   `json:"id"`
	Owner       string   `json:"address"`
	AmountWei   string   `json:"amount"`
	PriceEther  string   `json:"priceEth"`
	PriceUSD    string   `json:"priceUsd"`
	Status      bool     `json:"status"`
	Value       string   `json:"value"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	MediaLinks  []string `json:"mediaLinks"`
	Image       string   `json:"image,omitempty"`
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// NewServiceCard formats s with its ether and USD price.
func NewServiceCard(s *entities.Service, nativePrice float64) ServiceCard {
	card := ServiceCard{
		ID:          bigString(s.ID),
		Owner:       s.Owner.Hex(),
		AmountWei:   bigString(s.Amount),
		PriceEther:  ether.FormatEther(s.Amount),
		PriceUSD:    ether.ToFiat(s.Amount, nativePrice).StringFixed(2),
		Status:      s.Status,
		Value:       bigString(s.Value),
		Title:       s.Title,
		Description: s.Description,
		MediaLinks:  s.MediaLinks,
	}
	if card.MediaLinks == nil {
		card.MediaLinks = []string{}
	}
	if len(card.MediaLinks) > 0 {
		card.Image = card.MediaLinks[0]
	}
	return card
}

type ServiceListOutput struct {
	Items []ServiceCard `json:"items"`
	Range utils.IDRange `json:"range"`
}

// ListServices reads services start..end from the contract. Zero bounds
// fall back to 1..3. Any contract failure is reported as "no data".
func (u *ServiceUsecase) ListServices(ctx context.Context, start, end uint64) (*ServiceListOutput, error) {
	rng, ok := utils.GetIDRange(start, end)
	if !ok {
		return nil, domainerrors.BadRequest("end must be >= start and span at most 500 ids")
	}

	contract, err := u.contracts.Contract(ctx)
	if err != nil {
		logger.Warn(ctx, "contract unavailable", zap.Error(err))
		return nil, domainerrors.ServiceUnavailable("no data", err)
	}
	rows, err := contract.GetAllServices(ctx, new(big.Int).SetUint64(rng.Start), new(big.Int).SetUint64(rng.End))
	if err != nil {
		logger.Warn(ctx, "getAllServices failed",
			zap.Uint64("start", rng.Start), zap.Uint64("end", rng.End), zap.Error(err))
		return nil, domainerrors.ServiceUnavailable("no data", err)
	}

	items := make([]ServiceCard, 0, len(rows))
	for _, s := range rows {
		items = append(items, NewServiceCard(s, u.nativePrice))
	}
	return &ServiceListOutput{Items: items, Range: rng}, nil
}

// GetService reads the single-id window [id, id].
func (u *ServiceUsecase) GetService(ctx context.Context, id uint64) (*ServiceCard, error) {
	if id == 0 {
		return nil, domainerrors.BadRequest("service id must be positive")
	}
	out, err := u.ListServices(ctx, id, id)
	if err != nil {
		return nil, err
	}
	want := new(big.Int).SetUint64(id).String()
	for i := range out.Items {
		if out.Items[i].ID == want {
			return &out.Items[i], nil
		}
	}
	return nil, domainerrors.NotFound("service not found")
}

func (u *ServiceUsecase) ServiceCount(ctx context.Context) (string, error) {
	contract, err := u.contracts.Contract(ctx)
	if err != nil {
		return "", domainerrors.ServiceUnavailable("no data", err)
	}
	count, err := contract.ServiceCount(ctx)
	if err != nil {
		return "", domainerrors.ServiceUnavailable("no data", err)
	}
	return count.String(), nil
}

// IndexedServiceView is an indexer row with its formatted price.
type IndexedServiceView struct {
	entities.IndexedService
	PriceEther string `json:"priceEth"`
	PriceUSD   string `json:"priceUsd"`
}

type IndexedServiceListOutput struct {
	Items  []IndexedServiceView `json:"items"`
	Cached bool                 `json:"cached"`
}

// ListIndexedServices returns the indexer's ServiceCreated mirror, served
// from cache when possible. Cache errors fall through to the indexer.
func (u *ServiceUsecase) ListIndexedServices(ctx context.Context) (*IndexedServiceListOutput, error) {
	var rows []entities.IndexedService
	cached := false
	if u.cache != nil {
		hit, err := u.cache.Load(ctx, IndexerCacheKey, &rows)
		if err != nil {
			logger.Warn(ctx, "indexer cache read failed", zap.Error(err))
		}
		cached = hit && err == nil
	}

	if !cached {
		fresh, err := u.indexer.ServicesCreated(ctx)
		if err != nil {
			logger.Warn(ctx, "indexer query failed", zap.Error(err))
			return nil, domainerrors.ServiceUnavailable("indexer unavailable", err)
		}
		rows = fresh
		if u.cache != nil {
			if err := u.cache.Store(ctx, IndexerCacheKey, rows); err != nil {
				logger.Warn(ctx, "indexer cache write failed", zap.Error(err))
			}
		}
	}

	items := make([]IndexedServiceView, 0, len(rows))
	for _, r := range rows {
		view := IndexedServiceView{IndexedService: r, PriceEther: "0", PriceUSD: "0.00"}
		if wei, ok := new(big.Int).SetString(r.Price, 10); ok {
			view.PriceEther = ether.FormatEther(wei)
			view.PriceUSD = ether.ToFiat(wei, u.nativePrice).StringFixed(2)
		}
		if view.MediaLinks == nil {
			view.MediaLinks = []string{}
		}
		items = append(items, view)
	}
	return &IndexedServiceListOutput{Items: items, Cached: cached}, nil
}

// ValidateCreateService checks the create form and converts the price to
// wei. Every failing field is reported.
func ValidateCreateService(input entities.CreateServiceInput) (entities.CreateServiceCall, error) {
	fields := map[string]string{}

	price := strings.TrimSpace(input.Price)
	var priceWei *big.Int
	if price == "" {
		fields["price"] = MsgPriceRequired
	} else {
		wei, err := ether.ParseEther(price)
		switch {
		case errors.Is(err, ether.ErrTooManyDecimals):
			fields["price"] = MsgPricePrecision
		case errors.Is(err, ether.ErrAmountTooLarge):
			fields["price"] = MsgPriceTooLarge
		case err != nil || wei.Sign() <= 0:
			fields["price"] = MsgPriceInvalid
		default:
			priceWei = wei
		}
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		fields["name"] = MsgTitleRequired
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		fields["description"] = MsgDescriptionRequired
	}

	image := strings.TrimSpace(input.Image)
	if image == "" {
		fields["image"] = MsgImageRequired
	} else if !isHTTPURL(image) {
		fields["image"] = MsgImageInvalid
	}

	if len(fields) > 0 {
		return entities.CreateServiceCall{}, domainerrors.Validation(fields, createServiceFieldOrder...)
	}
	return entities.CreateServiceCall{
		Name:        name,
		Description: description,
		PriceWei:    priceWei,
		MediaLinks:  []string{image},
	}, nil
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

type CreateServiceOutput struct {
	TxHash          string            `json:"txHash"`
	Status          entities.TxStatus `json:"status"`
	ChainID         string            `json:"chainId"`
	ContractAddress string            `json:"contractAddress"`
	PriceWei        string            `json:"priceWei"`
}

// CreateService validates the form and submits createService signed by the
// operator key. The transaction is recorded as PENDING.
func (u *ServiceUsecase) CreateService(ctx context.Context, input entities.CreateServiceInput) (*CreateServiceOutput, error) {
	call, err := ValidateCreateService(input)
	if err != nil {
		return nil, err
	}
	if u.signer == nil {
		return nil, domainerrors.ErrSignerMissing
	}
	contract, err := u.contracts.Contract(ctx)
	if err != nil {
		return nil, domainerrors.ServiceUnavailable("contract unavailable", err)
	}

	tx, err := contract.CreateService(ctx, u.signer, call)
	if err != nil {
		logger.Error(ctx, "createService failed", zap.String("name", call.Name), zap.Error(err))
		if errors.Is(err, domainerrors.ErrTxReverted) {
			return nil, err
		}
		return nil, domainerrors.ServiceUnavailable("failed to submit createService", err)
	}

	hash := tx.Hash().Hex()
	ctx = logger.WithTxHash(ctx, hash)
	record := &entities.ServiceTransaction{
		TxHash:          hash,
		ChainID:         entities.CAIP2(contract.ChainID()),
		ContractAddress: contract.Address().Hex(),
		FromAddress:     u.signer.Address().Hex(),
		Method:          entities.TxMethodCreateService,
		ServiceName:     call.Name,
		PriceWei:        call.PriceWei.String(),
	}
	// already broadcast, so a bookkeeping failure does not fail the call
	if err := u.txRepo.Create(ctx, record); err != nil {
		logger.Error(ctx, "failed to record createService transaction", zap.Error(err))
	}
	logger.Info(ctx, "createService submitted",
		zap.String("name", call.Name),
		zap.String("price_wei", record.PriceWei),
	)

	return &CreateServiceOutput{
		TxHash:          hash,
		Status:          entities.TxStatusPending,
		ChainID:         record.ChainID,
		ContractAddress: record.ContractAddress,
		PriceWei:        record.PriceWei,
	}, nil
}

// PrepareCreateService returns unsigned createService calldata so a user
// wallet can sign and send it.
func (u *ServiceUsecase) PrepareCreateService(ctx context.Context, input entities.CreateServiceInput) (*entities.UnsignedTx, error) {
	call, err := ValidateCreateService(input)
	if err != nil {
		return nil, err
	}
	contract, err := u.contracts.Contract(ctx)
	if err != nil {
		return nil, domainerrors.ServiceUnavailable("contract unavailable", err)
	}
	data, err := contract.PackCreateService(call)
	if err != nil {
		return nil, domainerrors.InternalError(err)
	}
	return &entities.UnsignedTx{
		ChainID: bigString(contract.ChainID()),
		To:      contract.Address().Hex(),
		Data:    hexutil.Encode(data),
		Value:   "0",
	}, nil
}
