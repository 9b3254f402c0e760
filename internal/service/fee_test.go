package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rmtpark-api/internal/model"
)

func tariff(hourly, daily, monthly string, unit int) model.TariffConfig {
	return model.TariffConfig{
		HourlyRate:    decimal.RequireFromString(hourly),
		DailyRate:     decimal.RequireFromString(daily),
		MonthlyRate:   decimal.RequireFromString(monthly),
		RoundingUnit:  unit,
		PaymentMethod: "Pix",
	}
}

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRoundUp(t *testing.T) {
	unit := 15 * time.Minute
	cases := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"negative clamps to one unit", -5 * time.Minute, unit},
		{"zero rounds to one unit", 0, unit},
		{"one second", time.Second, unit},
		{"exact multiple kept", 45 * time.Minute, 45 * time.Minute},
		{"just above a multiple", 45*time.Minute + time.Second, 60 * time.Minute},
		{"47 minutes", 47 * time.Minute, 60 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RoundUp(tc.in, unit))
		})
	}
}

func TestRoundUp_MonotonicAndIdempotent(t *testing.T) {
	for _, unitMin := range []int{1, 5, 7, 15, 60} {
		unit := time.Duration(unitMin) * time.Minute
		prev := time.Duration(0)
		for d := time.Duration(0); d <= 3*time.Hour; d += 37 * time.Second {
			r := RoundUp(d, unit)
			assert.GreaterOrEqual(t, r, prev, "unit=%v d=%v", unit, d)
			assert.Equal(t, r, RoundUp(r, unit), "unit=%v d=%v", unit, d)
			assert.Zero(t, r%unit)
			assert.GreaterOrEqual(t, r, d)
			prev = r
		}
	}
}

func TestComputeFee_DailyHourlyFallback(t *testing.T) {
	q, err := ComputeFee(FeeInput{
		Session: model.Session{Category: "diarista", EntryTime: at("2025-03-10T10:00:00Z")},
		Exit:    at("2025-03-10T10:47:00Z"),
		Tariff:  tariff("10.00", "0", "0", 15),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), q.RoundedMinutes)
	assert.Equal(t, "10.00", q.Amount.StringFixed(2))
	assert.Equal(t, "1:00:00", q.Duration)
	assert.Equal(t, StatusPaid, q.PaymentStatus)
	assert.Equal(t, "Pix", q.PaymentMethod)
}

func TestComputeFee_DailyFlatRate(t *testing.T) {
	for _, exit := range []string{"2025-03-10T10:47:00Z", "2025-03-10T18:30:00Z"} {
		q, err := ComputeFee(FeeInput{
			Session: model.Session{Category: "Diarista", EntryTime: at("2025-03-10T10:00:00Z")},
			Exit:    at(exit),
			Tariff:  tariff("10.00", "30.00", "0", 15),
		})
		require.NoError(t, err)
		assert.Equal(t, "30.00", q.Amount.StringFixed(2))
	}
}

func TestComputeFee_OtherCategoryIsHourly(t *testing.T) {
	q, err := ComputeFee(FeeInput{
		Session:       model.Session{Category: "avulso", EntryTime: at("2025-03-10T10:00:00Z")},
		Exit:          at("2025-03-10T10:50:00Z"),
		Tariff:        tariff("10.00", "30.00", "0", 10),
		PaymentMethod: "Dinheiro",
	})
	require.NoError(t, err)
	// 50 minutes at 10.00/h = 8.333... -> 8.33
	assert.Equal(t, "8.33", q.Amount.StringFixed(2))
	assert.Equal(t, "Dinheiro", q.PaymentMethod)
	assert.Equal(t, StatusPaid, q.PaymentStatus)
}

func TestComputeFee_HalfCentRoundsUp(t *testing.T) {
	// 1 minute at 0.30/h = 0.005 -> 0.01
	q, err := ComputeFee(FeeInput{
		Session: model.Session{Category: "avulso", EntryTime: at("2025-03-10T10:00:00Z")},
		Exit:    at("2025-03-10T10:00:30Z"),
		Tariff:  tariff("0.30", "0", "0", 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "0.01", q.Amount.StringFixed(2))
}

func TestComputeFee_ExitBeforeEntryChargesOneUnit(t *testing.T) {
	q, err := ComputeFee(FeeInput{
		Session: model.Session{Category: "avulso", EntryTime: at("2025-03-10T10:00:00Z")},
		Exit:    at("2025-03-10T09:00:00Z"),
		Tariff:  tariff("12.00", "0", "0", 15),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15), q.RoundedMinutes)
	assert.Equal(t, "3.00", q.Amount.StringFixed(2))
}

func TestComputeFee_RejectsZeroRoundingUnit(t *testing.T) {
	_, err := ComputeFee(FeeInput{
		Session: model.Session{Category: "avulso", EntryTime: at("2025-03-10T10:00:00Z")},
		Exit:    at("2025-03-10T11:00:00Z"),
		Tariff:  tariff("12.00", "0", "0", 0),
	})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestComputeFee_RejectsOversizedRoundingUnit(t *testing.T) {
	for _, unit := range []int{MaxRoundingUnit + 1, 200_000_000, 1_000_000_000} {
		_, err := ComputeFee(FeeInput{
			Session: model.Session{Category: "avulso", EntryTime: at("2025-03-10T10:00:00Z")},
			Exit:    at("2025-03-10T10:47:00Z"),
			Tariff:  tariff("10.00", "0", "0", unit),
		})
		require.Error(t, err, "unit=%d", unit)
		assert.Equal(t, KindValidation, KindOf(err))
	}

	q, err := ComputeFee(FeeInput{
		Session: model.Session{Category: "avulso", EntryTime: at("2025-03-10T10:00:00Z")},
		Exit:    at("2025-03-10T10:47:00Z"),
		Tariff:  tariff("10.00", "0", "0", MaxRoundingUnit),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(MaxRoundingUnit), q.RoundedMinutes)
}

func TestComputeFee_MonthlyOncePerMonth(t *testing.T) {
	tr := tariff("10.00", "0", "150.00", 15)
	entry := at("2025-03-05T08:00:00Z")
	exit := at("2025-03-05T18:00:00Z")

	t.Run("no record charges without stamping", func(t *testing.T) {
		q, err := ComputeFee(FeeInput{Session: model.Session{Category: "mensalista", EntryTime: entry}, Exit: exit, Tariff: tr})
		require.NoError(t, err)
		assert.Equal(t, "150.00", q.Amount.StringFixed(2))
		assert.False(t, q.StampPass)
		assert.Equal(t, StatusMonthly, q.PaymentStatus)
	})

	t.Run("never paid charges and stamps", func(t *testing.T) {
		pass := &model.MonthlyPass{Plate: "ABC1234"}
		q, err := ComputeFee(FeeInput{Session: model.Session{Category: "mensalista", EntryTime: entry}, Exit: exit, Tariff: tr, Pass: pass})
		require.NoError(t, err)
		assert.Equal(t, "150.00", q.Amount.StringFixed(2))
		assert.True(t, q.StampPass)
	})

	t.Run("paid earlier month charges again", func(t *testing.T) {
		paid := at("2025-02-27T12:00:00Z")
		pass := &model.MonthlyPass{Plate: "ABC1234", LastPayment: &paid}
		q, err := ComputeFee(FeeInput{Session: model.Session{Category: "mensalista", EntryTime: entry}, Exit: exit, Tariff: tr, Pass: pass})
		require.NoError(t, err)
		assert.Equal(t, "150.00", q.Amount.StringFixed(2))
		assert.True(t, q.StampPass)
	})

	t.Run("paid same month is free", func(t *testing.T) {
		paid := at("2025-03-01T09:00:00Z")
		pass := &model.MonthlyPass{Plate: "ABC1234", LastPayment: &paid}
		q, err := ComputeFee(FeeInput{Session: model.Session{Category: "mensalista", EntryTime: entry}, Exit: exit, Tariff: tr, Pass: pass})
		require.NoError(t, err)
		assert.True(t, q.Amount.IsZero())
		assert.False(t, q.StampPass)
	})

	t.Run("month boundary uses configured timezone", func(t *testing.T) {
		sp, err := time.LoadLocation("America/Sao_Paulo")
		require.NoError(t, err)
		// 2025-04-01T02:00Z is still March 31st in Sao Paulo.
		paid := at("2025-03-10T12:00:00Z")
		pass := &model.MonthlyPass{Plate: "ABC1234", LastPayment: &paid}
		q, err := ComputeFee(FeeInput{
			Session:  model.Session{Category: "mensalista", EntryTime: at("2025-03-31T22:00:00Z")},
			Exit:     at("2025-04-01T02:00:00Z"),
			Tariff:   tr,
			Pass:     pass,
			Location: sp,
		})
		require.NoError(t, err)
		assert.True(t, q.Amount.IsZero())
	})
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:15:00", FormatDuration(15*time.Minute))
	assert.Equal(t, "26:30:00", FormatDuration(26*time.Hour+30*time.Minute))
}
