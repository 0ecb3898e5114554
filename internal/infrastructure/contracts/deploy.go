package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	domainerrors "threelance.backend/internal/domain/errors"
	"threelance.backend/internal/infrastructure/blockchain"
)

var performDeploy = bind.DeployContract

// Artifact is the subset of a hardhat build artifact needed to deploy.
type Artifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact reads a hardhat artifact JSON file.
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return ParseArtifact(raw)
}

func ParseArtifact(raw []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	code := strings.TrimPrefix(strings.TrimSpace(a.Bytecode), "0x")
	if code == "" {
		return nil, errors.New("artifact has no bytecode")
	}
	if len(a.ABI) == 0 {
		return nil, errors.New("artifact has no abi")
	}
	return &a, nil
}

func (a *Artifact) ParsedABI() (abi.ABI, error) {
	return ParseABI(string(a.ABI))
}

// DeployResult is what a deployment submitted.
type DeployResult struct {
	Address common.Address
	Tx      *types.Transaction
}

// Deploy submits the artifact's creation transaction from signer. The
// address is derived from the sender nonce, so it is known before mining.
func Deploy(ctx context.Context, client *blockchain.EVMClient, signer *blockchain.Signer, artifact *Artifact) (*DeployResult, error) {
	if signer == nil {
		return nil, domainerrors.ErrSignerMissing
	}
	backend := client.Backend()
	if backend == nil {
		return nil, fmt.Errorf("%w: no rpc backend", domainerrors.ErrUnavailable)
	}
	parsed, err := artifact.ParsedABI()
	if err != nil {
		return nil, err
	}
	auth, err := signer.TransactOpts(ctx, client.ChainID())
	if err != nil {
		return nil, err
	}

	address, tx, _, err := performDeploy(auth, parsed, common.FromHex(artifact.Bytecode), backend)
	if err != nil {
		return nil, fmt.Errorf("deploy %s: %w", artifact.ContractName, err)
	}
	return &DeployResult{Address: address, Tx: tx}, nil
}
