// Command deploy deploys the ThreeLance contract from the deployer key and
// records it in the deployment registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"threelance.backend/internal/config"
	"threelance.backend/internal/infrastructure/blockchain"
	"threelance.backend/internal/infrastructure/contracts"
	pgsource "threelance.backend/internal/infrastructure/datasources/postgres"
	"threelance.backend/internal/infrastructure/models"
	"threelance.backend/internal/infrastructure/repositories"
	"threelance.backend/internal/usecases"
	"threelance.backend/pkg/logger"
)

var (
	loadDotenv = godotenv.Load
	loadCfg    = config.Load
	openDB     = func(cfg config.DatabaseConfig) (*gorm.DB, error) {
		sqlDB, err := pgsource.NewConnection(cfg)
		if err != nil {
			return nil, err
		}
		return pgsource.OpenGorm(sqlDB)
	}
	migrateDB = func(db *gorm.DB) error { return db.AutoMigrate(models.All()...) }
	dialEVM   = blockchain.NewEVMClient
	runDeploy = func(ctx context.Context, uc *usecases.ContractUsecase, in usecases.DeployInput) (*usecases.DeployOutput, error) {
		return uc.Deploy(ctx, in)
	}
)

type options struct {
	artifactPath   string
	skipIfDeployed bool
	tags           []string
}

func parseFlags(args []string, cfg *config.Config) (options, error) {
	fs := flag.NewFlagSet("deploy", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	artifact := fs.String("artifact", cfg.Blockchain.ArtifactPath, "path to the hardhat artifact JSON")
	skip := fs.Bool("skip-if-deployed", false, "reuse the active deployment on this chain if there is one")
	tags := fs.String("tags", "", "comma separated deployment tags (default ThreeLance)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if strings.TrimSpace(*artifact) == "" {
		return options{}, fmt.Errorf("artifact path is required")
	}

	opts := options{artifactPath: *artifact, skipIfDeployed: *skip}
	for _, t := range strings.Split(*tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			opts.tags = append(opts.tags, t)
		}
	}
	return opts, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	if err := loadDotenv(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg := loadCfg()
	logger.Init(cfg.Server.Env)
	defer logger.Sync()

	opts, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}
	if cfg.Blockchain.DeployerPrivateKey == "" {
		return fmt.Errorf("DEPLOYER_PRIVATE_KEY is not set")
	}
	deployer, err := blockchain.NewSigner(cfg.Blockchain.DeployerPrivateKey)
	if err != nil {
		return fmt.Errorf("invalid deployer key: %w", err)
	}

	artifact, err := contracts.LoadArtifact(opts.artifactPath)
	if err != nil {
		return err
	}

	db, err := openDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := migrateDB(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	client, err := dialEVM(cfg.Blockchain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to rpc %s: %w", cfg.Blockchain.RPCURL, err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Blockchain.ReceiptTimeout)
	defer cancel()

	uc := usecases.NewContractUsecase(
		repositories.NewSmartContractRepository(db),
		repositories.NewServiceTransactionRepository(db),
		repositories.NewUnitOfWork(db),
		client,
		"",
		cfg.Blockchain.ReceiptPoll,
	)

	logger.Info(ctx, "deployer", zap.String("address", deployer.Address().Hex()), zap.String("chain_id", client.ChainID().String()))

	res, err := runDeploy(ctx, uc, usecases.DeployInput{
		Artifact:       artifact,
		Signer:         deployer,
		SkipIfDeployed: opts.skipIfDeployed,
		Tags:           opts.tags,
	})
	if err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	if res.Reused {
		fmt.Fprintf(out, "reusing %q at %s\n", res.Contract.Name, res.Contract.ContractAddress)
		return nil
	}
	fmt.Fprintf(out, "deployed %q (tx: %s) at %s with %d gas\n", res.Contract.Name, res.TxHash, res.Contract.ContractAddress, res.GasUsed)
	return nil
}
