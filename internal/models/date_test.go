package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateScan(t *testing.T) {
	tests := []struct {
		name string
		src  interface{}
		want Date
	}{
		{name: "string", src: "2024-01-05", want: NewDate(2024, 1, 5)},
		{name: "bytes", src: []byte("2024-02-29"), want: NewDate(2024, 2, 29)},
		{name: "timestamp text", src: "2024-01-05 00:00:00+00:00", want: NewDate(2024, 1, 5)},
		{name: "time", src: time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC), want: NewDate(2024, 3, 1)},
		{name: "null", src: nil, want: Date{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.src))
			assert.True(t, tt.want.Equal(d.Time), "got %s want %s", d, tt.want)
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("yesterday"))
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		From Date `json:"from"`
		To   Date `json:"to"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"from":"2024-01-01","to":null}`), &payload))
	assert.Equal(t, "2024-01-01", payload.From.String())
	assert.True(t, payload.To.IsZero())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"2024-01-01","to":null}`, string(out))
}

func TestDateArithmetic(t *testing.T) {
	d := NewDate(2024, 1, 1)
	assert.Equal(t, "2024-01-06", d.AddDays(5).String())
	assert.Equal(t, "2023-12-31", d.AddDays(-1).String())
	assert.Equal(t, 4, d.DaysUntil(NewDate(2024, 1, 5)))
	assert.Equal(t, -1, d.DaysUntil(NewDate(2023, 12, 31)))
}
