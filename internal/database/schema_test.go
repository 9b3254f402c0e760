package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate_RunsEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsAtFirstFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS empresas").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS configuracoes").WillReturnError(errors.New("boom"))

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate statement 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchema_ReportKeyIncludesEntryTime(t *testing.T) {
	var ddl string
	for _, stmt := range schema {
		if strings.Contains(stmt, "TABLE IF NOT EXISTS relatorios") {
			ddl = stmt
		}
	}
	require.NotEmpty(t, ddl)
	assert.Contains(t, ddl, "UNIQUE KEY relatorios_empresa_vaga_unique (empresa_id, vaga_id, data_hora_entrada)")
}

func TestDSN(t *testing.T) {
	got := dsn(Options{User: "park", Pass: "s3cret", Host: "db", Port: "3306", Name: "rmtpark"})
	cfg, err := mysql.ParseDSN(got)
	require.NoError(t, err)
	assert.Equal(t, "db:3306", cfg.Addr)
	assert.Equal(t, "rmtpark", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.True(t, cfg.ClientFoundRows)
	assert.Equal(t, time.UTC, cfg.Loc)
}
