package dfir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatencyMetrics_SmallSampleCountUsesExactPercentiles(t *testing.T) {
	var l LatencyMetrics
	for _, ms := range []int{10, 20, 30} {
		l.Record(time.Duration(ms) * time.Millisecond)
	}

	n := l.Sample()
	require.Equal(t, 3, n)
	require.Equal(t, 30*time.Millisecond, l.Max)
}

func TestQueueMetrics_TracksMaxAndEMA(t *testing.T) {
	var q QueueMetrics
	q.Update(5)
	q.Update(10)
	q.Update(3)

	require.Equal(t, 3, q.Current)
	require.Equal(t, 10, q.Max)
	require.Greater(t, q.Avg, 3.0)
	require.Less(t, q.Avg, 10.0)
}

func TestTPSCounter_CountsIncrementsWithinWindow(t *testing.T) {
	c := NewTPSCounter(time.Second, 100*time.Millisecond)
	for i := 0; i < 5; i++ {
		c.Increment()
	}
	require.Greater(t, c.TPS(), 0.0)
}

func TestSchedulerMetrics_RecordsDroppedEvents(t *testing.T) {
	m := newSchedulerMetrics()
	m.recordDropped(HandoffId(3), 2)
	m.recordDropped(HandoffId(3), 1)
	require.Equal(t, int64(3), m.DroppedEvents(HandoffId(3)))
	require.Equal(t, int64(0), m.DroppedEvents(HandoffId(99)))
}
