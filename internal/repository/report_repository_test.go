package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reportCols = []string{"id", "empresa_id", "vaga_id", "placa", "tipo", "data_hora_entrada", "data_hora_saida",
	"duracao", "duracao_segundos", "valor_pago", "forma_pagamento", "status_pagamento", "created_at"}

func TestGetBySessionTx_LatestReportForReusedID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	entry := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	exit := entry.Add(47 * time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE empresa_id = \? AND vaga_id = \? ORDER BY id DESC LIMIT 1`).WithArgs(uint64(7), uint64(11)).
		WillReturnRows(sqlmock.NewRows(reportCols).AddRow(120, 7, 11, "ABC1D23", "avulso", entry, exit,
			"1:00:00", 3600, "10.00", "Pix", "Pago", exit))
	mock.ExpectQuery(`WHERE empresa_id = \? AND vaga_id = \?`).WithArgs(uint64(7), uint64(12)).
		WillReturnRows(sqlmock.NewRows(reportCols))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)
	repo := NewReportRepo(db)
	rep, err := repo.GetBySessionTx(context.Background(), tx, 7, 11)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), rep.ID)

	_, err = repo.GetBySessionTx(context.Background(), tx, 7, 12)
	assert.ErrorIs(t, err, ErrReportNotFound)
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}
