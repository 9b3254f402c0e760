package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rmtpark-api/internal/repository"
)

// DefaultTopN is the number of days and hours a dashboard ranks when the
// caller does not choose.
const DefaultTopN = 5

type MonthRevenue struct {
	Month   string          `json:"mes"`
	Revenue decimal.Decimal `json:"receita"`
}

type DayCount struct {
	Day   string `json:"dia"`
	Count int    `json:"total"`
}

type HourCount struct {
	Hour  int `json:"hora"`
	Count int `json:"total"`
}

// Dashboard is the aggregate view over a tenant's reports.
type Dashboard struct {
	TotalReports   int             `json:"total_relatorios"`
	TotalRevenue   decimal.Decimal `json:"receita_total"`
	RevenueByMonth []MonthRevenue  `json:"receita_por_mes"`
	TopDays        []DayCount      `json:"top_dias"`
	TopHours       []HourCount     `json:"top_horas"`
}

// Aggregate folds report rows into a Dashboard.  Revenue is bucketed by
// the month of the exit (when it was charged); days and hours by the
// entry time.  All calendar fields are taken in loc.  Ties in the
// rankings go to the earlier day or hour.
func Aggregate(points []repository.ReportPoint, loc *time.Location, topN int) Dashboard {
	if loc == nil {
		loc = time.UTC
	}
	if topN <= 0 {
		topN = DefaultTopN
	}

	d := Dashboard{
		TotalRevenue:   decimal.Zero,
		RevenueByMonth: []MonthRevenue{},
		TopDays:        []DayCount{},
		TopHours:       []HourCount{},
	}
	months := map[string]decimal.Decimal{}
	days := map[string]int{}
	hours := map[int]int{}

	for _, p := range points {
		d.TotalReports++
		d.TotalRevenue = d.TotalRevenue.Add(p.Amount)
		m := p.ExitTime.In(loc).Format("2006-01")
		months[m] = months[m].Add(p.Amount)
		entry := p.EntryTime.In(loc)
		days[entry.Format("2006-01-02")]++
		hours[entry.Hour()]++
	}

	for m, rev := range months {
		d.RevenueByMonth = append(d.RevenueByMonth, MonthRevenue{Month: m, Revenue: rev})
	}
	sort.Slice(d.RevenueByMonth, func(i, j int) bool { return d.RevenueByMonth[i].Month < d.RevenueByMonth[j].Month })

	for day, n := range days {
		d.TopDays = append(d.TopDays, DayCount{Day: day, Count: n})
	}
	sort.Slice(d.TopDays, func(i, j int) bool {
		a, b := d.TopDays[i], d.TopDays[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Day < b.Day
	})
	if len(d.TopDays) > topN {
		d.TopDays = d.TopDays[:topN]
	}

	for h, n := range hours {
		d.TopHours = append(d.TopHours, HourCount{Hour: h, Count: n})
	}
	sort.Slice(d.TopHours, func(i, j int) bool {
		a, b := d.TopHours[i], d.TopHours[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Hour < b.Hour
	})
	if len(d.TopHours) > topN {
		d.TopHours = d.TopHours[:topN]
	}
	return d
}
