package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createSmartContractTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE smart_contracts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		chain_id TEXT NOT NULL,
		contract_address TEXT NOT NULL,
		abi TEXT NOT NULL,
		deployer_address TEXT,
		deploy_tx_hash TEXT,
		block_number INTEGER,
		tags TEXT,
		is_active BOOLEAN,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
}

func createServiceTransactionTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE service_transactions (
		id TEXT PRIMARY KEY,
		tx_hash TEXT NOT NULL UNIQUE,
		chain_id TEXT NOT NULL,
		contract_address TEXT,
		from_address TEXT,
		method TEXT NOT NULL,
		service_name TEXT,
		service_id TEXT,
		price_wei TEXT,
		status TEXT NOT NULL,
		block_number INTEGER,
		gas_used INTEGER,
		error_message TEXT,
		confirmed_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}
