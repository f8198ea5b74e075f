package allowlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	c := New([]Entry{
		{Subscription: "Speed Sheriff", Benchmark: "speedometer3", Bot: "mac-m1-pro-perf"},
		{Subscription: "Blink Sheriff", Benchmark: Wildcard},
	})

	assert.True(t, c.Check("Speed Sheriff", "speedometer3", "mac-m1-pro-perf"))
	assert.False(t, c.Check("Speed Sheriff", "speedometer3", "linux-perf"))
	assert.True(t, c.Check("Blink Sheriff", "blink_perf.css", "linux-perf"))
	assert.False(t, c.Check("V8 Sheriff", "speedometer3", "mac-m1-pro-perf"))
}

func TestCheck_Empty(t *testing.T) {
	assert.False(t, New(nil).Check("Speed Sheriff", "speedometer3", "mac-m1-pro-perf"))
}
