package faketime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual_AdvanceAndSet(t *testing.T) {
	c := NewManual(1000)
	assert.Equal(t, int64(1000), c.NowNs())

	after := c.Advance(500 * time.Nanosecond)
	assert.Equal(t, int64(1500), after)
	assert.Equal(t, int64(1500), c.NowNs())

	c.Set(42)
	assert.Equal(t, int64(42), c.NowNs())
}

func TestManual_AdvanceNegativePanics(t *testing.T) {
	c := NewManual(0)
	assert.Panics(t, func() {
		c.Advance(-time.Nanosecond)
	})
}

func TestReal_NowNsIsMonotonicallyNonDecreasing(t *testing.T) {
	var r Real
	first := r.NowNs()
	second := r.NowNs()
	assert.GreaterOrEqual(t, second, first)
}
