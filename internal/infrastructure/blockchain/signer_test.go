package blockchain

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// hardhat account #0
const (
	hardhatKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestNewSigner(t *testing.T) {
	s, err := NewSigner(hardhatKey)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(hardhatAddress), s.Address())

	_, err = NewSigner("")
	require.ErrorIs(t, err, ErrInvalidPrivateKey)
	_, err = NewSigner("0xnothex")
	require.ErrorIs(t, err, ErrInvalidPrivateKey)
}

func TestSigner_TransactOptsAndRawRoundTrip(t *testing.T) {
	s, err := NewSigner(hardhatKey)
	require.NoError(t, err)

	chainID := big.NewInt(31337)
	_, err = s.TransactOpts(context.Background(), nil)
	require.Error(t, err)

	opts, err := s.TransactOpts(context.Background(), chainID)
	require.NoError(t, err)
	require.Equal(t, s.Address(), opts.From)
	require.NotNil(t, opts.Context)

	to := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	unsigned := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     3,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2_000_000_000),
		Gas:       200_000,
		To:        &to,
		Data:      []byte{0xde, 0xad},
	})
	signed, err := opts.Signer(opts.From, unsigned)
	require.NoError(t, err)

	raw, err := signed.MarshalBinary()
	require.NoError(t, err)

	decoded, from, err := DecodeRawTransaction(hexutil.Encode(raw), chainID)
	require.NoError(t, err)
	require.Equal(t, s.Address(), from)
	require.Equal(t, signed.Hash(), decoded.Hash())

	_, _, err = DecodeRawTransaction(hexutil.Encode(raw), big.NewInt(1))
	require.Error(t, err)

	_, _, err = DecodeRawTransaction("0x", chainID)
	require.Error(t, err)
	_, _, err = DecodeRawTransaction("0x0102", chainID)
	require.Error(t, err)
}
