// ABOUTME: Tests for the manually advanced clock
// ABOUTME: Verifies ordering, stop, reset, and nested scheduling

package clocktest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAfterFuncOrdering(t *testing.T) {
	c := New(time.Unix(0, 0))
	var fired []string

	c.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	c.AfterFunc(time.Second, func() { fired = append(fired, "a") })
	c.AfterFunc(5*time.Second, func() { fired = append(fired, "c") })

	c.Advance(3 * time.Second)
	assert.Equal(t, []string{"a", "b"}, fired)
	assert.Equal(t, 1, c.Pending())

	c.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, fired)
}

func TestStopAndReset(t *testing.T) {
	c := New(time.Unix(0, 0))
	count := 0
	tm := c.AfterFunc(time.Second, func() { count++ })

	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	c.Advance(2 * time.Second)
	assert.Equal(t, 0, count)

	assert.False(t, tm.Reset(time.Second))
	c.Advance(time.Second)
	assert.Equal(t, 1, count)
}

func TestNestedScheduling(t *testing.T) {
	c := New(time.Unix(0, 0))
	ticks := 0
	var tick func()
	tick = func() {
		ticks++
		if ticks < 3 {
			c.AfterFunc(10*time.Millisecond, tick)
		}
	}
	c.AfterFunc(10*time.Millisecond, tick)

	c.Advance(time.Second)
	assert.Equal(t, 3, ticks)
	assert.Equal(t, time.Unix(1, 0), c.Now())
}

func TestTicker(t *testing.T) {
	c := New(time.Unix(0, 0))
	tc, ch := c.NewTicker(time.Second)
	defer tc.Stop()

	c.Advance(time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("ticker did not fire")
	}
}
