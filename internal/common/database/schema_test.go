package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestMigrations(t *testing.T) {
	tables := []string{"restaurants", "influencers", "bookings", "referral_bookings", "invitations", "credit_logs", "accounts"}
	stmts := strings.Join(Migrations(), "\n")
	for _, table := range tables {
		if !strings.Contains(stmts, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Errorf("missing table %s", table)
		}
	}
	for _, stmt := range Migrations() {
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("statement is not idempotent: %s", stmt)
		}
	}
}

func TestMigrate(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "postgres")

	for _, stmt := range Migrations() {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestMigrate_Error(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "postgres")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS restaurants").WillReturnError(errors.New("permission denied"))

	if err := Migrate(context.Background(), db); err == nil {
		t.Error("Migrate() should return the statement error")
	}
}

func TestConfigDSN(t *testing.T) {
	local := Config{Host: "localhost", Port: 5432, UserName: "u", Password: "p", DBName: "d"}
	if !strings.Contains(local.DSN(), "sslmode=disable") {
		t.Errorf("local DSN = %s, want sslmode=disable", local.DSN())
	}
	remote := Config{Host: "db.internal", Port: 5432, UserName: "u", Password: "p", DBName: "d"}
	if !strings.Contains(remote.DSN(), "sslmode=require") {
		t.Errorf("remote DSN = %s, want sslmode=require", remote.DSN())
	}
	explicit := Config{Host: "db.internal", SSLMode: "verify-full"}
	if !strings.Contains(explicit.DSN(), "sslmode=verify-full") {
		t.Errorf("explicit DSN = %s", explicit.DSN())
	}
}
