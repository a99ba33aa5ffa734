package sync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer(t *testing.T) {
	tests := []struct {
		name     string
		steps    func(d *Debouncer, c *fakeClock)
		wantRuns int32
	}{
		{
			name: "single trigger fires after quiet period",
			steps: func(d *Debouncer, c *fakeClock) {
				d.Trigger()
				c.Advance(time.Second)
				c.Advance(time.Second)
			},
			wantRuns: 1,
		},
		{
			name: "not before quiet period",
			steps: func(d *Debouncer, c *fakeClock) {
				d.Trigger()
				c.Advance(1999 * time.Millisecond)
			},
			wantRuns: 0,
		},
		{
			name: "burst collapses",
			steps: func(d *Debouncer, c *fakeClock) {
				for i := 0; i < 5; i++ {
					d.Trigger()
					c.Advance(time.Second)
				}
				c.Advance(2 * time.Second)
			},
			wantRuns: 1,
		},
		{
			name: "separate bursts",
			steps: func(d *Debouncer, c *fakeClock) {
				d.Trigger()
				c.Advance(3 * time.Second)
				d.Trigger()
				c.Advance(3 * time.Second)
			},
			wantRuns: 2,
		},
		{
			name: "stop drops pending",
			steps: func(d *Debouncer, c *fakeClock) {
				d.Trigger()
				d.Stop()
				d.Trigger()
				c.Advance(time.Minute)
			},
			wantRuns: 0,
		},
		{
			name: "flush runs now and only once",
			steps: func(d *Debouncer, c *fakeClock) {
				d.Trigger()
				d.Flush()
				c.Advance(time.Minute)
				d.Flush()
			},
			wantRuns: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var runs atomic.Int32
			c := newFakeClock(time.Unix(0, 0))
			d := NewDebouncer(c, 2*time.Second, func() { runs.Add(1) })

			tt.steps(d, c)

			assert.Equal(t, tt.wantRuns, runs.Load())
			assert.LessOrEqual(t, c.Active(), 1)
		})
	}
}

func TestDebouncer_SingleTimer(t *testing.T) {
	c := newFakeClock(time.Unix(0, 0))
	d := NewDebouncer(c, time.Second, func() {})

	for i := 0; i < 10; i++ {
		d.Trigger()
	}
	assert.Equal(t, 1, c.Active())
	assert.True(t, d.Pending())

	c.Advance(time.Second)
	assert.False(t, d.Pending())
}
