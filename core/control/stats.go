package control

import "gonum.org/v1/gonum/stat"

// VoltageWindow keeps the most recent voltage samples of a device and exposes
// summary statistics for observability. It plays no part in the control
// decision, which always acts on the latest single sample.
type VoltageWindow struct {
	size    int
	samples []float64
	next    int
	full    bool
}

// NewVoltageWindow creates a window holding up to size samples.
func NewVoltageWindow(size int) *VoltageWindow {
	if size <= 0 {
		size = 1
	}
	return &VoltageWindow{size: size, samples: make([]float64, 0, size)}
}

// Add records a sample, evicting the oldest once the window is full.
func (w *VoltageWindow) Add(v float64) {
	if !w.full && len(w.samples) < w.size {
		w.samples = append(w.samples, v)
		if len(w.samples) == w.size {
			w.full = true
		}
		return
	}
	w.samples[w.next] = v
	w.next = (w.next + 1) % w.size
}

// Len returns the number of recorded samples.
func (w *VoltageWindow) Len() int { return len(w.samples) }

// Mean returns the mean of the recorded samples, zero when empty.
func (w *VoltageWindow) Mean() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	return stat.Mean(w.samples, nil)
}

// StdDev returns the sample standard deviation, zero below two samples.
func (w *VoltageWindow) StdDev() float64 {
	if len(w.samples) < 2 {
		return 0
	}
	return stat.StdDev(w.samples, nil)
}
