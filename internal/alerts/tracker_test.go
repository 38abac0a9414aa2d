package alerts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obsidianstack/hostwatch/internal/resource"
)

func cpuOnly(v float64) resource.Sample {
	return resource.Sample{CPU: v}
}

// quietThresholds keeps memory and disk out of the way so only CPU matters.
func quietThresholds(cpu float64) Thresholds {
	return Thresholds{CPU: cpu, Memory: 100.1, Disk: 100.1}
}

// fireIndexes runs seq through the tracker and returns the indexes that fired.
func fireIndexes(tr Tracker, thr Thresholds, seq []float64) []int {
	var st State
	var out []int
	for i, v := range seq {
		var fires []Fire
		st, fires = tr.Evaluate(cpuOnly(v), thr, st)
		if len(fires) > 0 {
			out = append(out, i)
		}
	}
	return out
}

// The zero Tracker re-arms a metric once it drops below its threshold.
func TestEvaluate_EdgeTriggeredWithRecovery(t *testing.T) {
	var tr Tracker
	got := fireIndexes(tr, quietThresholds(80), []float64{70, 85, 90, 85, 70, 90})
	assert.Equal(t, []int{1, 5}, got)
}

// Without recovery clearing a metric alerts at most once until ResetAll.
func TestEvaluate_NoRecoveryClearFiresOncePerPeriod(t *testing.T) {
	tr := Tracker{KeepUntilReset: true}
	got := fireIndexes(tr, quietThresholds(80), []float64{70, 85, 90, 85, 70, 90})
	assert.Equal(t, []int{1}, got)
}

func TestEvaluate_AtThresholdFires(t *testing.T) {
	tr := Tracker{}
	st, fires := tr.Evaluate(cpuOnly(80), quietThresholds(80), State{})

	require.Len(t, fires, 1)
	assert.Equal(t, Fire{Kind: resource.CPU, Value: 80, Threshold: 80}, fires[0])
	assert.True(t, st.Notified(resource.CPU))
}

func TestEvaluate_MetricsIndependent(t *testing.T) {
	tr := Tracker{}
	thr := Thresholds{CPU: 80, Memory: 70, Disk: 90}

	st, fires := tr.Evaluate(resource.Sample{CPU: 85, Memory: 75, Disk: 10}, thr, State{})
	require.Len(t, fires, 2)
	assert.Equal(t, resource.CPU, fires[0].Kind)
	assert.Equal(t, resource.Memory, fires[1].Kind)

	// CPU recovers, memory stays high, disk crosses.
	st, fires = tr.Evaluate(resource.Sample{CPU: 10, Memory: 99, Disk: 95}, thr, st)
	require.Len(t, fires, 1)
	assert.Equal(t, Fire{Kind: resource.Disk, Value: 95, Threshold: 90}, fires[0])

	assert.False(t, st.Notified(resource.CPU))
	assert.True(t, st.Notified(resource.Memory))
	assert.True(t, st.Notified(resource.Disk))
	assert.Equal(t, []resource.Kind{resource.Memory, resource.Disk}, st.Active())
}

func TestEvaluate_AtMostOncePerExcursion(t *testing.T) {
	tr := Tracker{}
	thr := quietThresholds(50)
	seq := []float64{10, 60, 70, 55, 49.9, 50, 51, 20, 20, 99, 98, 97, 0, 100}

	var st State
	var fires []Fire
	firedSinceBelow := 0
	for i, v := range seq {
		st, fires = tr.Evaluate(cpuOnly(v), thr, st)
		if v < thr.CPU {
			firedSinceBelow = 0
			continue
		}
		firedSinceBelow += len(fires)
		assert.LessOrEqualf(t, firedSinceBelow, 1, "index %d fired twice in one excursion", i)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	tr := Tracker{}
	thr := Thresholds{CPU: 80, Memory: 80, Disk: 90}
	sample := resource.Sample{CPU: 95, Memory: 10, Disk: 91}

	var in State
	in, _ = tr.Evaluate(resource.Sample{Disk: 95}, thr, in) // disk latched

	st1, fires1 := tr.Evaluate(sample, thr, in)
	st2, fires2 := tr.Evaluate(sample, thr, in)

	assert.Equal(t, fires1, fires2)
	assert.Equal(t, st1, st2)
	assert.True(t, in.Notified(resource.Disk))
	assert.False(t, in.Notified(resource.CPU), "Evaluate must not mutate its input")
}

func TestResetAll(t *testing.T) {
	tr := Tracker{}
	thr := Thresholds{}
	st, fires := tr.Evaluate(resource.Sample{CPU: 1, Memory: 1, Disk: 1}, thr, State{})
	require.Len(t, fires, 3)

	reset := tr.ResetAll(st)
	for _, k := range resource.Kinds {
		assert.Falsef(t, reset.Notified(k), "%s still latched", k)
	}
	assert.Empty(t, reset.Active())
	assert.Equal(t, State{}, tr.ResetAll(State{}))
}

func TestResetAll_RearmsAboveThreshold(t *testing.T) {
	tr := Tracker{}
	thr := quietThresholds(80)

	st, fires := tr.Evaluate(cpuOnly(90), thr, State{})
	require.Len(t, fires, 1)

	st = tr.ResetAll(st)
	_, fires = tr.Evaluate(cpuOnly(90), thr, st)
	assert.Len(t, fires, 1, "a metric still above threshold fires again after reset")
}

func TestThresholds_Validate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())
	assert.NoError(t, Thresholds{CPU: 0, Memory: 100, Disk: 50}.Validate())
	assert.Error(t, Thresholds{CPU: 101}.Validate())
	assert.Error(t, Thresholds{Memory: -1}.Validate())
	assert.Error(t, Thresholds{CPU: math.NaN(), Memory: 80, Disk: 90}.Validate())
	assert.Error(t, Thresholds{CPU: 80, Memory: 80, Disk: math.Inf(1)}.Validate())
}

func TestState_NotifiedUnknownKind(t *testing.T) {
	assert.False(t, State{}.Notified(resource.Kind(9)))
}
