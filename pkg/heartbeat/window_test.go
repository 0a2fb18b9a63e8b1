package heartbeat

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct{ dt, acc, e float64 }

func bruteForce(samples []sample, size int) windowStats {
	if len(samples) > size {
		samples = samples[len(samples)-size:]
	}
	var st, sa, se float64
	for _, s := range samples {
		st += s.dt
		sa += s.acc
		se += s.e
	}
	n := float64(len(samples))
	return windowStats{
		Rate:     1e9 / (st / n),
		Accuracy: sa / n,
		Power:    se / (st / 1e9),
	}
}

func relEqual(t *testing.T, want, got float64, msg string, args ...any) {
	t.Helper()
	tol := 1e-9 * math.Max(1, math.Abs(want))
	assert.InDelta(t, want, got, tol, append([]any{msg}, args...)...)
}

func TestWindow_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	for _, size := range []int{1, 2, 3, 5, 16} {
		w := newWindow(size)
		w.seed(0.5)

		var seen []sample
		for n := 1; n <= 4*size+3; n++ {
			s := sample{
				dt:  float64(1_000_000 + rng.IntN(50_000_000)),
				acc: rng.Float64(),
				e:   rng.Float64() * 3,
			}
			seen = append(seen, s)
			got := w.update(s.dt, s.acc, s.e)
			want := bruteForce(seen, size)

			relEqual(t, want.Rate, got.Rate, "size=%d n=%d rate", size, n)
			relEqual(t, want.Accuracy, got.Accuracy, "size=%d n=%d accuracy", size, n)
			relEqual(t, want.Power, got.Power, "size=%d n=%d power", size, n)
			require.GreaterOrEqual(t, w.index, 0)
			require.Less(t, w.index, size)
		}
	}
}

func TestWindow_SteadyTransition(t *testing.T) {
	const size = 4
	w := newWindow(size)
	w.seed(1)
	assert.False(t, w.steady)

	for n := 1; n < size; n++ {
		w.update(1e9, 1, 1)
		assert.False(t, w.steady, "not steady after %d samples", n)
	}
	w.update(1e9, 1, 1)
	assert.True(t, w.steady)
	assert.Equal(t, 0, w.index)

	for n := 0; n < 3*size; n++ {
		w.update(1e9, 1, 1)
		assert.True(t, w.steady, "steady never reverts")
	}
}

func TestWindow_Seed(t *testing.T) {
	w := newWindow(3)
	w.seed(0.7)
	st := w.stats()
	assert.Equal(t, 0.0, st.Rate)
	assert.Equal(t, 0.7, st.Accuracy)
	assert.Equal(t, 0.0, st.Power)
	assert.Equal(t, 0, w.index, "seed does not advance the index")
}

func TestWindow_ZeroInterval(t *testing.T) {
	w := newWindow(2)
	w.seed(0)
	st := w.update(0, 1, 5)
	assert.Equal(t, 0.0, st.Rate)
	assert.Equal(t, 0.0, st.Power)
	assert.False(t, math.IsNaN(st.Rate))
}
