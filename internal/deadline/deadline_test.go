package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"marriage-compliance/pkg/catalog"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCompute(t *testing.T) {
	notice := catalog.FormRequirement{DocumentType: "notice", LeadTimeDays: 31}

	t.Run("ceremony minus lead time", func(t *testing.T) {
		ceremony := date(2025, time.June, 30)
		got := Compute(&ceremony, notice)
		assert.NotNil(t, got)
		assert.Equal(t, date(2025, time.May, 30), *got)
	})

	t.Run("undetermined without ceremony date", func(t *testing.T) {
		assert.Nil(t, Compute(nil, notice))
	})

	t.Run("time of day ignored", func(t *testing.T) {
		ceremony := time.Date(2025, time.June, 30, 15, 30, 0, 0, time.FixedZone("AEST", 10*3600))
		got := Compute(&ceremony, notice)
		assert.NotNil(t, got)
		assert.Equal(t, date(2025, time.May, 30), *got)
	})

	t.Run("lead time spanning month boundary", func(t *testing.T) {
		ceremony := date(2025, time.March, 10)
		got := Compute(&ceremony, catalog.FormRequirement{DocumentType: "declaration", LeadTimeDays: 14})
		assert.Equal(t, date(2025, time.February, 24), *got)
	})
}

func TestDaysUntil(t *testing.T) {
	deadline := date(2025, time.May, 30)

	tests := []struct {
		name  string
		today time.Time
		want  int
	}{
		{"two weeks out", date(2025, time.May, 16), 14},
		{"deadline day", date(2025, time.May, 30), 0},
		{"overdue", date(2025, time.June, 2), -3},
		{"intraday time irrelevant", time.Date(2025, time.May, 29, 23, 59, 0, 0, time.UTC), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysUntil(deadline, tt.today))
		})
	}
}
