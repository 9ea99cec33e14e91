package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/inkwell/internal/common"
	"github.com/dmitrijs2005/inkwell/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	qInsertLocal     = `(?s)^INSERT\s+INTO\s+user_creds\s*\(username,\s*password_hash\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id,\s*username,\s*password_hash,\s*provider_id\s*$`
	qInsertFederated = `(?s)^INSERT\s+INTO\s+user_creds\s*\(provider_id\)\s*VALUES\s*\(\$1\)\s*RETURNING\s+id,\s*username,\s*password_hash,\s*provider_id\s*$`
	qInsertDetail    = `(?s)^INSERT\s+INTO\s+user_details\s*\(user_id,\s*name,\s*city,\s*mobile\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*$`
	qDeleteCred      = `^DELETE\s+FROM\s+user_creds\s+WHERE\s+id\s*=\s*\$1$`
	qCredByUsername  = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*provider_id\s+FROM\s+user_creds\s+WHERE\s+username\s*=\s*\$1\s*$`
	qCredByProvider  = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*provider_id\s+FROM\s+user_creds\s+WHERE\s+provider_id\s*=\s*\$1\s*$`
	qFullByID        = `(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*provider_id,\s*name,\s*city,\s*mobile\s+FROM\s+full_user\s+WHERE\s+id\s*=\s*\$1\s*$`
	qFullByUsername  = `(?s)^SELECT\s+id,.*FROM\s+full_user\s+WHERE\s+username\s*=\s*\$1\s*$`
	qFullByProvider  = `(?s)^SELECT\s+id,.*FROM\s+full_user\s+WHERE\s+provider_id\s*=\s*\$1\s*$`
)

var credColumns = []string{"id", "username", "password_hash", "provider_id"}
var fullColumns = []string{"id", "username", "password_hash", "provider_id", "name", "city", "mobile"}

func TestCreateLocal_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsertLocal).
		WithArgs("alice1", "$2a$10$hash").
		WillReturnRows(sqlmock.NewRows(credColumns).AddRow("u-1", "alice1", "$2a$10$hash", nil))

	got, err := repo.CreateLocal(context.Background(), "alice1", "$2a$10$hash")
	if err != nil {
		t.Fatalf("CreateLocal error: %v", err)
	}
	if got.ID != "u-1" || got.Username == nil || *got.Username != "alice1" || got.ProviderID != nil {
		t.Fatalf("unexpected credential: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreateLocal_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsertLocal).
		WithArgs("alice1", "h").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "user_creds_username_key"})

	_, err := repo.CreateLocal(context.Background(), "alice1", "h")
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestCreateLocal_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsertLocal).
		WithArgs("alice1", "h").
		WillReturnError(errors.New("db down"))

	_, err := repo.CreateLocal(context.Background(), "alice1", "h")
	if !errors.Is(err, common.ErrDependency) {
		t.Fatalf("want ErrDependency, got %v", err)
	}
	if errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("plain db error must not look like a conflict: %v", err)
	}
}

func TestCreateFederated_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsertFederated).
		WithArgs("g-001").
		WillReturnRows(sqlmock.NewRows(credColumns).AddRow("u-2", nil, nil, "g-001"))

	got, err := repo.CreateFederated(context.Background(), "g-001")
	if err != nil {
		t.Fatalf("CreateFederated error: %v", err)
	}
	if got.ID != "u-2" || got.ProviderID == nil || *got.ProviderID != "g-001" || got.Username != nil {
		t.Fatalf("unexpected credential: %+v", got)
	}
}

func TestCreateFederated_UniqueViolation(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qInsertFederated).
		WithArgs("g-001").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.CreateFederated(context.Background(), "g-001")
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists, got %v", err)
	}
}

func TestCreateDetail_NullMobile(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInsertDetail).
		WithArgs("u-1", "Alice A", "Metropolis", sql.NullString{}).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateDetail(context.Background(), &models.Detail{UserID: "u-1", Name: "Alice A", City: "Metropolis"})
	if err != nil {
		t.Fatalf("CreateDetail error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestCreateDetail_WithMobile(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mobile := "0123456789"
	mock.ExpectExec(qInsertDetail).
		WithArgs("u-1", "Alice A", "Metropolis", sql.NullString{String: mobile, Valid: true}).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.CreateDetail(context.Background(), &models.Detail{UserID: "u-1", Name: "Alice A", City: "Metropolis", Mobile: &mobile})
	if err != nil {
		t.Fatalf("CreateDetail error: %v", err)
	}
}

func TestCreateDetail_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qInsertDetail).
		WillReturnError(errors.New("fk violation"))

	err := repo.CreateDetail(context.Background(), &models.Detail{UserID: "u-1", Name: "n"})
	if !errors.Is(err, common.ErrDependency) {
		t.Fatalf("want ErrDependency, got %v", err)
	}
}

func TestDeleteCredential(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(qDeleteCred).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.DeleteCredential(context.Background(), "u-1"); err != nil {
		t.Fatalf("DeleteCredential error: %v", err)
	}

	mock.ExpectExec(qDeleteCred).
		WithArgs("u-2").
		WillReturnError(errors.New("conn reset"))

	if err := repo.DeleteCredential(context.Background(), "u-2"); !errors.Is(err, common.ErrDependency) {
		t.Fatalf("want ErrDependency, got %v", err)
	}
}

func TestFindByUsername(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qCredByUsername).
		WithArgs("alice1").
		WillReturnRows(sqlmock.NewRows(credColumns).AddRow("u-1", "alice1", "h", nil))

	got, err := repo.FindByUsername(context.Background(), "alice1")
	if err != nil {
		t.Fatalf("FindByUsername error: %v", err)
	}
	if got.ID != "u-1" {
		t.Fatalf("unexpected credential: %+v", got)
	}

	mock.ExpectQuery(qCredByUsername).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByUsername(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	mock.ExpectQuery(qCredByUsername).
		WithArgs("alice1").
		WillReturnError(errors.New("db err"))

	if _, err := repo.FindByUsername(context.Background(), "alice1"); !errors.Is(err, common.ErrDependency) {
		t.Fatalf("want ErrDependency, got %v", err)
	}
}

func TestFindByProviderID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qCredByProvider).
		WithArgs("g-001").
		WillReturnRows(sqlmock.NewRows(credColumns).AddRow("u-2", nil, nil, "g-001"))

	got, err := repo.FindByProviderID(context.Background(), "g-001")
	if err != nil {
		t.Fatalf("FindByProviderID error: %v", err)
	}
	if got.ProviderID == nil || *got.ProviderID != "g-001" {
		t.Fatalf("unexpected credential: %+v", got)
	}

	mock.ExpectQuery(qCredByProvider).
		WithArgs("g-404").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByProviderID(context.Background(), "g-404"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}
}

func TestFindFullUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(qFullByID).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(fullColumns).AddRow("u-1", "alice1", "h", nil, "Alice A", "Metropolis", nil))
	mock.ExpectQuery(qFullByUsername).
		WithArgs("alice1").
		WillReturnRows(sqlmock.NewRows(fullColumns).AddRow("u-1", "alice1", "h", nil, "Alice A", "Metropolis", "0123456789"))
	mock.ExpectQuery(qFullByProvider).
		WithArgs("g-001").
		WillReturnError(sql.ErrNoRows)

	byID, err := repo.FindFullUserByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("FindFullUserByID error: %v", err)
	}
	if byID.Name != "Alice A" || byID.City != "Metropolis" || byID.Mobile != nil {
		t.Fatalf("unexpected user: %+v", byID)
	}

	byName, err := repo.FindFullUserByUsername(context.Background(), "alice1")
	if err != nil {
		t.Fatalf("FindFullUserByUsername error: %v", err)
	}
	if byName.Mobile == nil || *byName.Mobile != "0123456789" {
		t.Fatalf("unexpected mobile: %+v", byName.Mobile)
	}

	if _, err := repo.FindFullUserByProviderID(context.Background(), "g-001"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}
