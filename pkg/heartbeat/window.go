package heartbeat

import "github.com/ja7ad/heartbeat/pkg/system/util"

// window keeps the last size inter-beat samples and their running sums.
//
// Until the window has been filled once (warm-up) the sums are recomputed over
// the filled slots and averaged by their count. After that each update
// subtracts the sample being overwritten and adds the new one, averaging by
// size.
type window struct {
	dt     []float64 // ns
	acc    []float64
	energy []float64 // J

	index  int
	steady bool

	sumTime, sumAcc, sumEnergy float64
	avgTime, avgAcc            float64
}

type windowStats struct {
	Rate     float64
	Accuracy float64
	Power    float64
}

func newWindow(size int) *window {
	return &window{
		dt:     make([]float64, size),
		acc:    make([]float64, size),
		energy: make([]float64, size),
	}
}

// seed stores the first beat in slot 0 without advancing the index, so the
// next beat overwrites it.
func (w *window) seed(accuracy float64) {
	w.dt[0], w.acc[0], w.energy[0] = 0, accuracy, 0
	w.sumTime, w.sumAcc, w.sumEnergy = 0, accuracy, 0
	w.avgTime, w.avgAcc = 0, accuracy
}

func (w *window) update(dtNs, accuracy, energyJ float64) windowStats {
	size := len(w.dt)
	i := w.index

	if !w.steady {
		w.dt[i], w.acc[i], w.energy[i] = dtNs, accuracy, energyJ

		w.sumTime, w.sumAcc, w.sumEnergy = 0, 0, 0
		for j := 0; j <= i; j++ {
			w.sumTime += w.dt[j]
			w.sumAcc += w.acc[j]
			w.sumEnergy += w.energy[j]
		}
		n := float64(i + 1)
		w.avgTime = w.sumTime / n
		w.avgAcc = w.sumAcc / n

		w.index++
		if w.index == size {
			w.index = 0
			w.steady = true
		}
	} else {
		w.sumTime += dtNs - w.dt[i]
		w.sumAcc += accuracy - w.acc[i]
		w.sumEnergy += energyJ - w.energy[i]
		w.avgTime = w.sumTime / float64(size)
		w.avgAcc = w.sumAcc / float64(size)

		w.dt[i], w.acc[i], w.energy[i] = dtNs, accuracy, energyJ
		w.index = (i + 1) % size
	}

	return w.stats()
}

func (w *window) stats() windowStats {
	return windowStats{
		Rate:     util.SafeDiv(util.NanosPerSecond, w.avgTime),
		Accuracy: w.avgAcc,
		Power:    util.SafeDiv(w.sumEnergy, w.sumTime/util.NanosPerSecond),
	}
}
