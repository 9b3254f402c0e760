package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	qLockTenant  = `FROM empresas WHERE id = \? FOR UPDATE`
	qCountOpen   = `SELECT COUNT\(\*\) FROM vagas WHERE empresa_id = \?`
	qInsertVaga  = `INSERT INTO vagas`
	qLockSession = `FROM vagas WHERE id = \? AND empresa_id = \? FOR UPDATE`
	qReportByVag = `FROM relatorios WHERE empresa_id = \? AND vaga_id = \?`
	qTariff      = `FROM configuracoes WHERE empresa_id = \?`
	qLockPass    = `FROM mensalistas WHERE empresa_id = \? AND placa = \? FOR UPDATE`
	qStampPass   = `UPDATE mensalistas SET ultimo_pagamento`
	qInsertRep   = `INSERT INTO relatorios`
	qDeleteVaga  = `DELETE FROM vagas WHERE id = \? AND empresa_id = \?`
)

func newParking(t *testing.T, now time.Time) (*ParkingService, sqlmock.Sqlmock, *recordingNotifier) {
	db, mock := newMock(t)
	n := newRecordingNotifier()
	s := NewParkingService(db, DefaultPlanTable(), n, time.UTC)
	s.now = fixedClock(now)
	return s, mock, n
}

func TestOpenSession_UnderCapacity(t *testing.T) {
	now := at("2025-03-10T10:00:00Z")
	s, mock, _ := newParking(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(qLockTenant).WithArgs(uint64(7)).WillReturnRows(tenantRow(7, "Basic", true, "x", nil))
	mock.ExpectQuery(qCountOpen).WithArgs(uint64(7)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(49))
	mock.ExpectExec(qInsertVaga).WithArgs(uint64(7), "ABC1D23", "diarista", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(50, 1))
	mock.ExpectCommit()

	sess, err := s.OpenSession(context.Background(), TenantPrincipal(7), OpenSessionRequest{Plate: " abc1d23 ", Category: "Diarista"})
	require.NoError(t, err)
	assert.Equal(t, uint64(50), sess.ID)
	assert.Equal(t, "ABC1D23", sess.Plate)
	assert.Equal(t, "diarista", sess.Category)
	assert.True(t, sess.EntryTime.Equal(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSession_TruncatesToStoredPrecision(t *testing.T) {
	now := at("2025-03-10T10:00:00Z").Add(700 * time.Millisecond)
	s, mock, _ := newParking(t, now)

	mock.ExpectBegin()
	mock.ExpectQuery(qLockTenant).WillReturnRows(tenantRow(7, "Basic", true, "x", nil))
	mock.ExpectQuery(qCountOpen).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(qInsertVaga).WithArgs(uint64(7), "ABC1D23", "avulso", at("2025-03-10T10:00:00Z")).
		WillReturnResult(sqlmock.NewResult(51, 1))
	mock.ExpectCommit()

	sess, err := s.OpenSession(context.Background(), TenantPrincipal(7), OpenSessionRequest{Plate: "ABC1D23", Category: "avulso"})
	require.NoError(t, err)
	assert.True(t, sess.EntryTime.Equal(at("2025-03-10T10:00:00Z")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSession_AtCapacity(t *testing.T) {
	s, mock, _ := newParking(t, at("2025-03-10T10:00:00Z"))

	mock.ExpectBegin()
	mock.ExpectQuery(qLockTenant).WithArgs(uint64(7)).WillReturnRows(tenantRow(7, "Basic", true, "x", nil))
	mock.ExpectQuery(qCountOpen).WithArgs(uint64(7)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(50))
	mock.ExpectRollback()

	_, err := s.OpenSession(context.Background(), TenantPrincipal(7), OpenSessionRequest{Plate: "ABC1D23", Category: "diarista"})
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindCapacityExceeded, se.Kind)
	assert.Equal(t, 50, se.Limit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSession_DuplicatePlateIsConflict(t *testing.T) {
	s, mock, _ := newParking(t, at("2025-03-10T10:00:00Z"))

	mock.ExpectBegin()
	mock.ExpectQuery(qLockTenant).WillReturnRows(tenantRow(7, "Premium", true, "x", nil))
	mock.ExpectQuery(qCountOpen).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(qInsertVaga).WillReturnError(duplicateErr())
	mock.ExpectRollback()

	_, err := s.OpenSession(context.Background(), TenantPrincipal(7), OpenSessionRequest{Plate: "ABC1D23", Category: "avulso"})
	assert.Equal(t, KindConflict, KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenSession_Validation(t *testing.T) {
	s, mock, _ := newParking(t, time.Now())
	ctx := context.Background()

	_, err := s.OpenSession(ctx, TenantPrincipal(7), OpenSessionRequest{Plate: "", Category: "diarista"})
	assert.Equal(t, KindValidation, KindOf(err))
	_, err = s.OpenSession(ctx, TenantPrincipal(7), OpenSessionRequest{Plate: "ABCDEFGHIJK", Category: "diarista"})
	assert.Equal(t, KindValidation, KindOf(err))
	_, err = s.OpenSession(ctx, TenantPrincipal(7), OpenSessionRequest{Plate: "ABC1234", Category: "  "})
	assert.Equal(t, KindValidation, KindOf(err))
	_, err = s.OpenSession(ctx, AdminPrincipal(), OpenSessionRequest{Plate: "ABC1234", Category: "diarista"})
	assert.Equal(t, KindForbidden, KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_Hourly(t *testing.T) {
	entry := at("2025-03-10T10:00:00Z")
	exit := at("2025-03-10T10:47:00Z")
	s, mock, n := newParking(t, exit)

	mock.ExpectBegin()
	mock.ExpectQuery(qLockSession).WithArgs(uint64(11), uint64(7)).
		WillReturnRows(sessionRow(11, 7, "ABC1D23", "diarista", entry))
	mock.ExpectQuery(qTariff).WithArgs(uint64(7)).WillReturnRows(tariffRow(7, "10.00", "0.00", "0.00", 15))
	mock.ExpectExec(qInsertRep).
		WithArgs(uint64(7), uint64(11), "ABC1D23", "diarista", sqlmock.AnyArg(), sqlmock.AnyArg(),
			"1:00:00", int64(3600), sqlmock.AnyArg(), sqlmock.AnyArg(), StatusPaid).
		WillReturnResult(sqlmock.NewResult(99, 1))
	mock.ExpectExec(qDeleteVaga).WithArgs(uint64(11), uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Checkout(context.Background(), TenantPrincipal(7), CheckoutRequest{SessionID: 11})
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, uint64(99), res.Report.ID)
	assert.Equal(t, "10.00", res.Report.Amount.StringFixed(2))
	require.NotNil(t, res.Report.PaymentMethod)
	assert.Equal(t, "Pix", *res.Report.PaymentMethod)
	require.NoError(t, mock.ExpectationsWereMet())

	select {
	case ev := <-n.checkouts:
		assert.Equal(t, uint64(99), ev.ReportID)
		assert.Equal(t, "10.00", ev.Amount)
	case <-time.After(time.Second):
		t.Fatal("checkout event not published")
	}
}

func TestCheckout_DailyFlatRateWithOverride(t *testing.T) {
	entry := at("2025-03-10T08:00:00Z")
	exit := at("2025-03-10T18:00:00Z")
	s, mock, _ := newParking(t, time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(qLockSession).WillReturnRows(sessionRow(11, 7, "ABC1D23", "diarista", entry))
	mock.ExpectQuery(qTariff).WillReturnRows(tariffRow(7, "10.00", "30.00", "0.00", 15))
	mock.ExpectExec(qInsertRep).WillReturnResult(sqlmock.NewResult(100, 1))
	mock.ExpectExec(qDeleteVaga).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Checkout(context.Background(), TenantPrincipal(7),
		CheckoutRequest{SessionID: 11, ExitTime: &exit, PaymentMethod: "Dinheiro"})
	require.NoError(t, err)
	assert.Equal(t, "30.00", res.Report.Amount.StringFixed(2))
	assert.Equal(t, "Dinheiro", *res.Report.PaymentMethod)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_MonthlyPassChargedOncePerMonth(t *testing.T) {
	ctx := context.Background()
	first := at("2025-03-05T18:00:00Z")

	s, mock, _ := newParking(t, first)
	mock.ExpectBegin()
	mock.ExpectQuery(qLockSession).WillReturnRows(sessionRow(21, 7, "MEN0001", "mensalista", at("2025-03-05T08:00:00Z")))
	mock.ExpectQuery(qTariff).WillReturnRows(tariffRow(7, "10.00", "0.00", "150.00", 15))
	mock.ExpectQuery(qLockPass).WithArgs(uint64(7), "MEN0001").WillReturnRows(passRow(3, 7, "MEN0001", nil))
	mock.ExpectExec(qStampPass).WithArgs(sqlmock.AnyArg(), uint64(3), uint64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(qInsertRep).WillReturnResult(sqlmock.NewResult(200, 1))
	mock.ExpectExec(qDeleteVaga).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Checkout(ctx, TenantPrincipal(7), CheckoutRequest{SessionID: 21})
	require.NoError(t, err)
	assert.Equal(t, "150.00", res.Report.Amount.StringFixed(2))
	assert.Equal(t, StatusMonthly, res.Report.PaymentStatus)
	require.NoError(t, mock.ExpectationsWereMet())

	second := at("2025-03-20T18:00:00Z")
	s2, mock2, _ := newParking(t, second)
	mock2.ExpectBegin()
	mock2.ExpectQuery(qLockSession).WillReturnRows(sessionRow(22, 7, "MEN0001", "mensalista", at("2025-03-20T08:00:00Z")))
	mock2.ExpectQuery(qTariff).WillReturnRows(tariffRow(7, "10.00", "0.00", "150.00", 15))
	mock2.ExpectQuery(qLockPass).WillReturnRows(passRow(3, 7, "MEN0001", first))
	mock2.ExpectExec(qInsertRep).WillReturnResult(sqlmock.NewResult(201, 1))
	mock2.ExpectExec(qDeleteVaga).WillReturnResult(sqlmock.NewResult(0, 1))
	mock2.ExpectCommit()

	res, err = s2.Checkout(ctx, TenantPrincipal(7), CheckoutRequest{SessionID: 22})
	require.NoError(t, err)
	assert.True(t, res.Report.Amount.IsZero())
	require.NoError(t, mock2.ExpectationsWereMet())
}

func TestCheckout_MonthlyWithoutPassChargesMonthlyRate(t *testing.T) {
	s, mock, _ := newParking(t, at("2025-03-05T18:00:00Z"))
	mock.ExpectBegin()
	mock.ExpectQuery(qLockSession).WillReturnRows(sessionRow(21, 7, "MEN0002", "mensalista", at("2025-03-05T08:00:00Z")))
	mock.ExpectQuery(qTariff).WillReturnRows(tariffRow(7, "10.00", "0.00", "150.00", 15))
	mock.ExpectQuery(qLockPass).WillReturnRows(sqlmock.NewRows(passCols))
	mock.ExpectExec(qInsertRep).WillReturnResult(sqlmock.NewResult(202, 1))
	mock.ExpectExec(qDeleteVaga).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Checkout(context.Background(), TenantPrincipal(7), CheckoutRequest{SessionID: 21})
	require.NoError(t, err)
	assert.Equal(t, "150.00", res.Report.Amount.StringFixed(2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_ReplayReturnsExistingReport(t *testing.T) {
	s, mock, n := newParking(t, at("2025-03-10T11:00:00Z"))
	entry := at("2025-03-10T10:00:00Z")
	exit := at("2025-03-10T10:47:00Z")

	mock.ExpectBegin()
	mock.ExpectQuery(qLockSession).WithArgs(uint64(11), uint64(7)).WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectQuery(qReportByVag).WithArgs(uint64(7), uint64(11)).WillReturnRows(
		sqlmock.NewRows(reportCols).AddRow(99, 7, 11, "ABC1D23", "diarista", entry, exit, "1:00:00", 3600,
			"10.00", "Pix", StatusPaid, exit))
	mock.ExpectCommit()

	res, err := s.Checkout(context.Background(), TenantPrincipal(7), CheckoutRequest{SessionID: 11})
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, uint64(99), res.Report.ID)
	assert.Equal(t, "10.00", res.Report.Amount.StringFixed(2))
	require.NoError(t, mock.ExpectationsWereMet())

	select {
	case <-n.checkouts:
		t.Fatal("replayed checkout must not publish an event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCheckout_OtherTenantSessionIsNotFound(t *testing.T) {
	s, mock, _ := newParking(t, time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(qLockSession).WithArgs(uint64(11), uint64(8)).WillReturnRows(sqlmock.NewRows(sessionCols))
	mock.ExpectQuery(qReportByVag).WithArgs(uint64(8), uint64(11)).WillReturnRows(sqlmock.NewRows(reportCols))
	mock.ExpectRollback()

	_, err := s.Checkout(context.Background(), TenantPrincipal(8), CheckoutRequest{SessionID: 11})
	assert.Equal(t, KindNotFound, KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_MissingTariff(t *testing.T) {
	s, mock, _ := newParking(t, at("2025-03-10T11:00:00Z"))

	mock.ExpectBegin()
	mock.ExpectQuery(qLockSession).WillReturnRows(sessionRow(11, 7, "ABC1D23", "diarista", at("2025-03-10T10:00:00Z")))
	mock.ExpectQuery(qTariff).WillReturnRows(sqlmock.NewRows(tariffCols))
	mock.ExpectRollback()

	_, err := s.Checkout(context.Background(), TenantPrincipal(7), CheckoutRequest{SessionID: 11})
	assert.Equal(t, KindConfigMissing, KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_ExitBeforeEntry(t *testing.T) {
	s, mock, _ := newParking(t, time.Now())
	exit := at("2025-03-10T09:00:00Z")

	mock.ExpectBegin()
	mock.ExpectQuery(qLockSession).WillReturnRows(sessionRow(11, 7, "ABC1D23", "diarista", at("2025-03-10T10:00:00Z")))
	mock.ExpectRollback()

	_, err := s.Checkout(context.Background(), TenantPrincipal(7), CheckoutRequest{SessionID: 11, ExitTime: &exit})
	assert.Equal(t, KindValidation, KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckout_SameSecondAsEntry(t *testing.T) {
	entry := at("2025-03-10T10:00:00Z")
	s, mock, _ := newParking(t, entry.Add(300*time.Millisecond))

	mock.ExpectBegin()
	mock.ExpectQuery(qLockSession).WillReturnRows(sessionRow(11, 7, "ABC1D23", "avulso", entry))
	mock.ExpectQuery(qTariff).WillReturnRows(tariffRow(7, "12.00", "0.00", "0.00", 15))
	mock.ExpectExec(qInsertRep).
		WithArgs(uint64(7), uint64(11), "ABC1D23", "avulso", entry, entry,
			"0:15:00", int64(900), sqlmock.AnyArg(), sqlmock.AnyArg(), StatusPaid).
		WillReturnResult(sqlmock.NewResult(101, 1))
	mock.ExpectExec(qDeleteVaga).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res, err := s.Checkout(context.Background(), TenantPrincipal(7), CheckoutRequest{SessionID: 11})
	require.NoError(t, err)
	assert.True(t, res.Report.ExitTime.Equal(entry))
	assert.Equal(t, "3.00", res.Report.Amount.StringFixed(2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListSessions_ScopedToTenant(t *testing.T) {
	s, mock, _ := newParking(t, time.Now())
	mock.ExpectQuery(`FROM vagas WHERE empresa_id = \? ORDER BY data_hora, id`).WithArgs(uint64(7)).
		WillReturnRows(sessionRow(1, 7, "AAA1111", "avulso", at("2025-03-10T10:00:00Z")))

	list, err := s.ListSessions(context.Background(), TenantPrincipal(7))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint64(7), list[0].TenantID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindSession_NotFound(t *testing.T) {
	s, mock, _ := newParking(t, time.Now())
	mock.ExpectQuery(`FROM vagas WHERE id = \? AND empresa_id = \?`).WithArgs(uint64(5), uint64(8)).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err := s.FindSession(context.Background(), TenantPrincipal(8), 5)
	assert.Equal(t, KindNotFound, KindOf(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
