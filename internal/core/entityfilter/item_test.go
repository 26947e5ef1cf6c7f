package entityfilter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsoTime(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"whole second", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), "2024-03-01T12:00:00+00:00"},
		{"half second keeps zeros", time.Date(2024, 3, 1, 12, 0, 0, 500000000, time.UTC), "2024-03-01T12:00:00.500000+00:00"},
		{"small fraction", time.Date(2024, 3, 1, 12, 0, 0, 21000, time.UTC), "2024-03-01T12:00:00.000021+00:00"},
		{"sub-microsecond dropped", time.Date(2024, 3, 1, 12, 0, 0, 999, time.UTC), "2024-03-01T12:00:00+00:00"},
		{"offset", time.Date(2024, 3, 1, 12, 0, 0, 7000, time.FixedZone("CET", 3600)), "2024-03-01T12:00:00.000007+01:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			got := isoTime(&in)
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.want, *got)
			}
		})
	}

	assert.Nil(t, isoTime(nil))
	assert.Nil(t, isoTime(&time.Time{}))
}
