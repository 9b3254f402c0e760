package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rmtpark-api/internal/model"
)

// Category labels with special pricing.  Any other label is billed
// hourly.
const (
	CategoryDaily   = "diarista"
	CategoryMonthly = "mensalista"
)

// Payment status labels written to reports.
const (
	StatusPaid    = "Pago"
	StatusMonthly = "Mensalista"
)

// DefaultPaymentMethod is used when neither the caller nor the tariff
// names one.
const DefaultPaymentMethod = "Pix"

// MaxRoundingUnit is the largest accepted rounding unit, one year in
// minutes.
const MaxRoundingUnit = 525600

var sixty = decimal.NewFromInt(60)

// FeeInput is everything the fee calculation depends on.  Pass is only
// consulted for monthly subscribers and may be nil.  Location decides
// calendar months; nil means UTC.
type FeeInput struct {
	Session       model.Session
	Exit          time.Time
	Tariff        model.TariffConfig
	Pass          *model.MonthlyPass
	PaymentMethod string
	Location      *time.Location
}

// FeeQuote is the outcome of a fee calculation.  StampPass is set when a
// monthly fee was charged against an existing pass whose last payment
// must move to the checkout month.
type FeeQuote struct {
	Amount         decimal.Decimal
	Rounded        time.Duration
	RoundedMinutes int64
	Duration       string
	PaymentMethod  string
	PaymentStatus  string
	StampPass      bool
}

// RoundUp rounds d up to the next multiple of unit.  Non-positive
// durations round to one unit.
func RoundUp(d, unit time.Duration) time.Duration {
	if d <= 0 {
		return unit
	}
	n := (d + unit - 1) / unit
	return n * unit
}

// ComputeFee prices a session closed at in.Exit.
func ComputeFee(in FeeInput) (FeeQuote, error) {
	if in.Tariff.RoundingUnit <= 0 || in.Tariff.RoundingUnit > MaxRoundingUnit {
		return FeeQuote{}, invalid("rounding unit must be between 1 and %d minutes, got %d",
			MaxRoundingUnit, in.Tariff.RoundingUnit)
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	unit := time.Duration(in.Tariff.RoundingUnit) * time.Minute
	rounded := RoundUp(in.Exit.Sub(in.Session.EntryTime), unit)
	minutes := int64(rounded / time.Minute)

	q := FeeQuote{
		Rounded:        rounded,
		RoundedMinutes: minutes,
		Duration:       FormatDuration(rounded),
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  StatusPaid,
	}
	if q.PaymentMethod == "" {
		q.PaymentMethod = in.Tariff.PaymentMethod
	}

	hourly := in.Tariff.HourlyRate.Mul(decimal.NewFromInt(minutes)).Div(sixty).Round(2)

	switch strings.ToLower(strings.TrimSpace(in.Session.Category)) {
	case CategoryDaily:
		if in.Tariff.DailyRate.IsPositive() {
			q.Amount = in.Tariff.DailyRate.Round(2)
		} else {
			q.Amount = hourly
		}
	case CategoryMonthly:
		q.PaymentStatus = StatusMonthly
		switch {
		case in.Pass == nil:
			q.Amount = in.Tariff.MonthlyRate.Round(2)
		case in.Pass.LastPayment == nil || !sameMonth(*in.Pass.LastPayment, in.Exit, loc):
			q.Amount = in.Tariff.MonthlyRate.Round(2)
			q.StampPass = true
		default:
			q.Amount = decimal.Zero
		}
	default:
		q.Amount = hourly
	}
	return q, nil
}

func sameMonth(a, b time.Time, loc *time.Location) bool {
	ay, am, _ := a.In(loc).Date()
	by, bm, _ := b.In(loc).Date()
	return ay == by && am == bm
}

// FormatDuration renders d as H:MM:SS; hours are not wrapped at 24.
func FormatDuration(d time.Duration) string {
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
