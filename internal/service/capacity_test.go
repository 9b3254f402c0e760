package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTable_LimitFor(t *testing.T) {
	pt := DefaultPlanTable()
	cases := []struct {
		plan      string
		limit     int
		unlimited bool
	}{
		{"Plano Basic", 50, false},
		{"PROFISSIONAL", 150, false},
		{"Professional mensal", 150, false},
		{"Premium", 0, true},
		{"", 50, false},
		{"enterprise", 50, false},
	}
	for _, tc := range cases {
		t.Run(tc.plan, func(t *testing.T) {
			limit, unlimited := pt.LimitFor(tc.plan)
			assert.Equal(t, tc.unlimited, unlimited)
			if !tc.unlimited {
				assert.Equal(t, tc.limit, limit)
			}
		})
	}
}

func TestPlanTable_CanOpen(t *testing.T) {
	pt := DefaultPlanTable()

	assert.NoError(t, pt.CanOpen("Basic", 49))

	err := pt.CanOpen("Basic", 50)
	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindCapacityExceeded, se.Kind)
	assert.Equal(t, 50, se.Limit)
	assert.Equal(t, "Basic", se.Plan)

	assert.NoError(t, pt.CanOpen("Premium", 10_000))
	assert.Equal(t, KindCapacityExceeded, KindOf(pt.CanOpen("mystery", 50)))
}

func TestParsePlanTable(t *testing.T) {
	pt, err := ParsePlanTable([]byte(`
default_limit: 20
plans:
  - match: ouro
    unlimited: true
  - match: prata
    limit: 80
`))
	require.NoError(t, err)
	l, u := pt.LimitFor("Plano Prata")
	assert.False(t, u)
	assert.Equal(t, 80, l)
	_, u = pt.LimitFor("OURO")
	assert.True(t, u)
	l, _ = pt.LimitFor("bronze")
	assert.Equal(t, 20, l)

	_, err = ParsePlanTable([]byte("plans:\n  - match: x\n"))
	assert.Error(t, err)
	_, err = ParsePlanTable([]byte("default_limit: 0\n"))
	assert.Error(t, err)
}
