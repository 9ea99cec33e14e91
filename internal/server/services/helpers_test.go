package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/inkwell/internal/dbx"
	"github.com/dmitrijs2005/inkwell/internal/logging"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
	"github.com/dmitrijs2005/inkwell/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/inkwell/internal/server/repositories/users"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// openTestDB returns a migrated private in-memory SQLite database.
func openTestDB(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	ctx := context.Background()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, dialect, err := dbx.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.New(dialect)
	require.NoError(t, rm.RunMigrations(ctx, db))
	return db, rm
}

func newObservedLogger() (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.NewZapLogger(zap.New(core)), logs
}

// faultyManager wraps a real manager and injects failures into the detail
// insert and the compensating delete.
type faultyManager struct {
	repomanager.RepositoryManager
	detailErr error
	deleteErr error
}

func (m *faultyManager) Users(db dbx.DBTX) users.Repository {
	return &faultyRepo{
		Repository: m.RepositoryManager.Users(db),
		detailErr:  m.detailErr,
		deleteErr:  m.deleteErr,
	}
}

type faultyRepo struct {
	users.Repository
	detailErr error
	deleteErr error
}

func (r *faultyRepo) CreateDetail(ctx context.Context, d *models.Detail) error {
	if r.detailErr != nil {
		return r.detailErr
	}
	return r.Repository.CreateDetail(ctx, d)
}

func (r *faultyRepo) DeleteCredential(ctx context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	return r.Repository.DeleteCredential(ctx, id)
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func strPtr(s string) *string { return &s }
