package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestMetric_Trend(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		previous string
		trend    Trend
		change   float64
	}{
		{"growth", "1500", "1000", TrendUp, 50},
		{"decline", "750", "1000", TrendDown, -25},
		{"stable", "1000", "1000", TrendStable, 0},
		{"previous zero", "300", "0", TrendUp, 0},
		{"both zero", "0", "0", TrendStable, 0},
		{"negative previous", "-50", "-100", TrendUp, 50},
		{"repeating fraction", "200", "300", TrendDown, -33.33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMetric(dec(tt.value), dec(tt.previous))
			assert.Equal(t, tt.trend, m.Trend())
			assert.Equal(t, tt.change, m.ChangePercent())
		})
	}
}

func TestMetric_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewMetric(dec("120"), dec("100")))
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "120", out["value"])
	assert.Equal(t, "100", out["previous"])
	assert.Equal(t, "UP", out["trend"])
	assert.Equal(t, float64(20), out["change_percent"])

	var back Metric
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Value.Equal(dec("120")))
	assert.True(t, back.Previous.Equal(dec("100")))
}

func TestAgingBucketIndex(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{-10, -1},
		{0, -1},
		{1, 0},
		{30, 0},
		{31, 1},
		{60, 1},
		{61, 2},
		{90, 2},
		{91, 3},
		{400, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AgingBucketIndex(tt.days), "days=%d", tt.days)
	}
}

func TestDaysPastDue(t *testing.T) {
	now := time.Date(2024, 3, 15, 18, 30, 0, 0, time.UTC)

	assert.Equal(t, 0, DaysPastDue(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 1, DaysPastDue(time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, 15, DaysPastDue(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), now))
	assert.Equal(t, -5, DaysPastDue(time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), now))
}
