package fusion

// Accumulator sums raw samples over one accumulation window. The count only
// grows between resets and is the divisor of the window average.
type Accumulator struct {
	sum   float64
	count uint32
}

// Add accumulates one raw sample.
func (a *Accumulator) Add(v float64) {
	a.sum += v
	a.count++
}

// Average returns the arithmetic mean of the window. ok is false when no
// sample arrived, in which case no division takes place.
func (a *Accumulator) Average() (avg float64, ok bool) {
	if a.count == 0 {
		return 0, false
	}
	return a.sum / float64(a.count), true
}

// Count returns the number of samples in the current window.
func (a *Accumulator) Count() uint32 {
	return a.count
}

// Reset starts a new window.
func (a *Accumulator) Reset() {
	a.sum = 0
	a.count = 0
}
