package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rmtpark-api/internal/queue"
)

var (
	tenantCols  = []string{"id", "nome", "email", "telefone", "cnpj", "senha_hash", "email_confirmado", "plano_titulo", "plano_preco", "pagamento_id", "pagamento_status", "pagamento_link", "data_expiracao", "created_at", "updated_at"}
	sessionCols = []string{"id", "empresa_id", "placa", "tipo", "data_hora", "created_at"}
	tariffCols  = []string{"id", "empresa_id", "valor_hora", "valor_diaria", "valor_mensalista", "arredondamento", "forma_pagamento", "updated_at"}
	reportCols  = []string{"id", "empresa_id", "vaga_id", "placa", "tipo", "data_hora_entrada", "data_hora_saida", "duracao", "duracao_segundos", "valor_pago", "forma_pagamento", "status_pagamento", "created_at"}
	passCols    = []string{"id", "empresa_id", "nome", "placa", "veiculo", "cor", "cpf", "telefone", "validade", "status", "ultimo_pagamento", "created_at", "updated_at"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func tenantRow(id uint64, plan string, confirmed bool, hash string, expires any) *sqlmock.Rows {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(tenantCols).AddRow(id, "Estacionamento Centro", "lot@example.com", "11987654321",
		"11222333000181", hash, confirmed, plan, "R$ 99,90/mês", nil, nil, nil, expires, now, now)
}

func sessionRow(id, tenantID uint64, plate, category string, entry time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(sessionCols).AddRow(id, tenantID, plate, category, entry, entry)
}

func tariffRow(tenantID uint64, hourly, daily, monthly string, unit int) *sqlmock.Rows {
	return sqlmock.NewRows(tariffCols).AddRow(1, tenantID, hourly, daily, monthly, unit, "Pix",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
}

func passRow(id, tenantID uint64, plate string, lastPayment driver.Value) *sqlmock.Rows {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(passCols).AddRow(id, tenantID, "Maria Souza", plate, "Gol", "prata", "12345678900", nil,
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), "ativo", lastPayment, ts, ts)
}

type recordingNotifier struct {
	checkouts chan queue.CheckoutCompletedEvent
	emails    chan queue.EmailMessage
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		checkouts: make(chan queue.CheckoutCompletedEvent, 4),
		emails:    make(chan queue.EmailMessage, 4),
	}
}

func (n *recordingNotifier) CheckoutCompleted(_ context.Context, ev queue.CheckoutCompletedEvent) error {
	n.checkouts <- ev
	return nil
}

func (n *recordingNotifier) SendEmail(_ context.Context, msg queue.EmailMessage) error {
	n.emails <- msg
	return nil
}

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func duplicateErr() error {
	return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'uq'"}
}
