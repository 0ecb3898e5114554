package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"threelance.backend/internal/domain/entities"
	domainerrors "threelance.backend/internal/domain/errors"
)

func TestSmartContractRepository_CreateGetDeactivate(t *testing.T) {
	db := newTestDB(t)
	createSmartContractTable(t, db)
	repo := NewSmartContractRepository(db)
	ctx := context.Background()

	_, err := repo.GetActive(ctx, "eip155:31337", entities.ContractNameThreeLance)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	c := &entities.SmartContract{
		Name:            entities.ContractNameThreeLance,
		ChainID:         "eip155:31337",
		ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		ABI:             `[{"type":"function","name":"serviceCount"}]`,
		DeployerAddress: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
		DeployTxHash:    null.StringFrom("0xabc"),
		BlockNumber:     null.Uint64From(1),
		Tags:            []string{"ThreeLance"},
		IsActive:        true,
	}
	require.NoError(t, repo.Create(ctx, c))
	require.NotEqual(t, [16]byte{}, [16]byte(c.ID))

	got, err := repo.GetActive(ctx, "eip155:31337", entities.ContractNameThreeLance)
	require.NoError(t, err)
	require.Equal(t, "0x5fbdb2315678afecb367f032d93f642f64180aa3", got.ContractAddress)
	require.Equal(t, uint64(1), got.BlockNumber.Uint64)
	require.Equal(t, "0xabc", got.DeployTxHash.String)
	require.True(t, got.HasTag("ThreeLance"))

	byAddr, err := repo.GetByAddress(ctx, "eip155:31337", "0x5FBDB2315678AFECB367F032D93F642F64180AA3")
	require.NoError(t, err)
	require.Equal(t, c.ID, byAddr.ID)

	_, err = repo.GetByAddress(ctx, "eip155:1", c.ContractAddress)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	require.NoError(t, repo.DeactivateAll(ctx, "eip155:31337", entities.ContractNameThreeLance))
	_, err = repo.GetActive(ctx, "eip155:31337", entities.ContractNameThreeLance)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	list, err := repo.ListByChain(ctx, "eip155:31337")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.False(t, list[0].IsActive)
}

func TestSmartContractRepository_QueryErrorsWithoutTable(t *testing.T) {
	db := newTestDB(t)
	repo := NewSmartContractRepository(db)
	ctx := context.Background()

	_, err := repo.GetActive(ctx, "eip155:1", "x")
	require.Error(t, err)
	require.NotErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = repo.ListByChain(ctx, "eip155:1")
	require.Error(t, err)
}
