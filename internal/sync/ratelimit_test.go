package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiterDelay(t *testing.T) {
	cases := []struct {
		name string
		rpm  int
		want time.Duration
	}{
		{"ehealth default quota", 50, 2 * time.Second},
		{"exact division", 60, time.Second},
		{"sub-second rounds up", 120, time.Second},
		{"slow quota", 20, 3 * time.Second},
		{"zero falls back to default", 0, 2 * time.Second},
		{"negative falls back to default", -5, 2 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NewLimiter(tc.rpm).Delay())
		})
	}
}
