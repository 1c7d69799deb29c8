package derived

// DefaultAlpha is the smoothing factor for smoothed derived sensors.
const DefaultAlpha = 0.2

// EMA is an exponential moving average. The first sample primes it.
type EMA struct {
	alpha  float64
	value  float64
	primed bool
}

// NewEMA creates an average with smoothing factor alpha in (0, 1].
func NewEMA(alpha float64) *EMA {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &EMA{alpha: alpha}
}

// Next folds x into the average and returns the new value.
func (a *EMA) Next(x float64) float64 {
	if !a.primed {
		a.value = x
		a.primed = true
		return x
	}
	a.value += a.alpha * (x - a.value)
	return a.value
}

// Value returns the current average.
func (a *EMA) Value() (float64, bool) {
	return a.value, a.primed
}
