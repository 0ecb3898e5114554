package main

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"threelance.backend/internal/config"
	"threelance.backend/internal/domain/entities"
	"threelance.backend/internal/infrastructure/blockchain"
	"threelance.backend/internal/infrastructure/contracts"
	"threelance.backend/internal/usecases"
)

const hardhatKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func writeArtifact(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ThreeLance.json")
	raw := `{"contractName":"ThreeLance","abi":` + contracts.ThreeLanceABI + `,"bytecode":"0x6080604052"}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	return path
}

func withDeployHooks(t *testing.T, artifactPath string) *[]usecases.DeployInput {
	t.Helper()
	origDotenv, origCfg, origOpen, origMigrate, origDial, origRun := loadDotenv, loadCfg, openDB, migrateDB, dialEVM, runDeploy
	t.Cleanup(func() {
		loadDotenv, loadCfg, openDB, migrateDB, dialEVM, runDeploy = origDotenv, origCfg, origOpen, origMigrate, origDial, origRun
	})

	loadDotenv = func(...string) error { return nil }
	loadCfg = func() *config.Config {
		cfg := config.Load()
		cfg.Blockchain.DeployerPrivateKey = hardhatKey
		cfg.Blockchain.ArtifactPath = artifactPath
		cfg.Blockchain.ReceiptTimeout = time.Second
		return cfg
	}
	openDB = func(config.DatabaseConfig) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	}
	migrateDB = func(*gorm.DB) error { return nil }
	dialEVM = func(string) (*blockchain.EVMClient, error) {
		return blockchain.NewEVMClientWithCallView(big.NewInt(31337), func(context.Context, string, []byte) ([]byte, error) {
			return nil, nil
		}), nil
	}

	var calls []usecases.DeployInput
	runDeploy = func(_ context.Context, _ *usecases.ContractUsecase, in usecases.DeployInput) (*usecases.DeployOutput, error) {
		calls = append(calls, in)
		contract := &entities.SmartContract{Name: entities.ContractNameThreeLance, ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}
		if in.SkipIfDeployed {
			return &usecases.DeployOutput{Contract: contract, Reused: true}, nil
		}
		return &usecases.DeployOutput{Contract: contract, TxHash: "0xabc", GasUsed: 21000}, nil
	}
	return &calls
}

func TestParseFlags(t *testing.T) {
	cfg := config.Load()
	cfg.Blockchain.ArtifactPath = "default.json"

	opts, err := parseFlags(nil, cfg)
	require.NoError(t, err)
	require.Equal(t, "default.json", opts.artifactPath)
	require.False(t, opts.skipIfDeployed)
	require.Empty(t, opts.tags)

	opts, err = parseFlags([]string{"--skip-if-deployed", "--artifact", "a.json", "--tags", "ThreeLance, staging,"}, cfg)
	require.NoError(t, err)
	require.True(t, opts.skipIfDeployed)
	require.Equal(t, "a.json", opts.artifactPath)
	require.Equal(t, []string{"ThreeLance", "staging"}, opts.tags)

	_, err = parseFlags([]string{"--artifact", " "}, cfg)
	require.Error(t, err)

	_, err = parseFlags([]string{"--unknown"}, cfg)
	require.Error(t, err)
}

func TestRun_DeploysAndReuses(t *testing.T) {
	calls := withDeployHooks(t, writeArtifact(t))

	var out bytes.Buffer
	require.NoError(t, run(nil, &out))
	require.Contains(t, out.String(), `deployed "ThreeLance" (tx: 0xabc)`)
	require.Contains(t, out.String(), "with 21000 gas")

	out.Reset()
	require.NoError(t, run([]string{"--skip-if-deployed"}, &out))
	require.Contains(t, out.String(), `reusing "ThreeLance" at 0x5FbDB2315678afecb367f032d93F642f64180aa3`)

	require.Len(t, *calls, 2)
	require.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", (*calls)[0].Signer.Address().Hex())
	require.Equal(t, "ThreeLance", (*calls)[0].Artifact.ContractName)
}

func TestRun_Failures(t *testing.T) {
	artifact := writeArtifact(t)

	t.Run("missing deployer key", func(t *testing.T) {
		withDeployHooks(t, artifact)
		loadCfg = func() *config.Config {
			cfg := config.Load()
			cfg.Blockchain.DeployerPrivateKey = ""
			return cfg
		}
		require.ErrorContains(t, run(nil, &bytes.Buffer{}), "DEPLOYER_PRIVATE_KEY")
	})

	t.Run("missing artifact", func(t *testing.T) {
		withDeployHooks(t, filepath.Join(t.TempDir(), "nope.json"))
		require.ErrorContains(t, run(nil, &bytes.Buffer{}), "read artifact")
	})

	t.Run("database", func(t *testing.T) {
		withDeployHooks(t, artifact)
		openDB = func(config.DatabaseConfig) (*gorm.DB, error) { return nil, errors.New("down") }
		require.ErrorContains(t, run(nil, &bytes.Buffer{}), "failed to connect to database")
	})

	t.Run("rpc", func(t *testing.T) {
		withDeployHooks(t, artifact)
		dialEVM = func(string) (*blockchain.EVMClient, error) { return nil, errors.New("refused") }
		require.ErrorContains(t, run(nil, &bytes.Buffer{}), "failed to connect to rpc")
	})

	t.Run("deploy", func(t *testing.T) {
		withDeployHooks(t, artifact)
		runDeploy = func(context.Context, *usecases.ContractUsecase, usecases.DeployInput) (*usecases.DeployOutput, error) {
			return nil, errors.New("reverted")
		}
		require.ErrorContains(t, run(nil, &bytes.Buffer{}), "deploy failed")
	})
}
