package contextmgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve_MonotoneDecreasing(t *testing.T) {
	m := New(15, 60*time.Second)
	start := time.Now()
	m.Start("t1", start)

	m.Observe("t1", 45, start.Add(1*time.Second))
	m.Observe("t1", 20, start.Add(2*time.Second))
	m.Observe("t1", 30, start.Add(3*time.Second)) // higher than previous: ignored
	m.Observe("t1", 10, start.Add(4*time.Second))

	pct, ok := m.LastPercent("t1")
	require.True(t, ok)
	assert.Equal(t, 10, pct)
}

func TestShouldRestart_RequiresThresholdAndMinimumRun(t *testing.T) {
	m := New(15, 60*time.Second)
	start := time.Now().Add(-90 * time.Second)
	m.Start("t1", start)
	m.Observe("t1", 10, time.Now())

	assert.True(t, m.ShouldRestart("t1", time.Now()))
}

func TestShouldRestart_FalseWithinMinimumRun(t *testing.T) {
	m := New(15, 60*time.Second)
	start := time.Now()
	m.Start("t1", start)
	m.Observe("t1", 5, time.Now())

	assert.False(t, m.ShouldRestart("t1", time.Now()), "spurious low reading at startup must not trigger restart")
}

func TestShouldRestart_FalseAboveThreshold(t *testing.T) {
	m := New(15, 60*time.Second)
	start := time.Now().Add(-90 * time.Second)
	m.Start("t1", start)
	m.Observe("t1", 50, time.Now())

	assert.False(t, m.ShouldRestart("t1", time.Now()))
}

func TestStopDiscardsState(t *testing.T) {
	m := New(15, 60*time.Second)
	m.Start("t1", time.Now())
	m.Observe("t1", 10, time.Now())
	m.Stop("t1")

	_, ok := m.LastPercent("t1")
	assert.False(t, ok)
}
