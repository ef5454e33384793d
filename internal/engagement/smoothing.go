package engagement

// Smoother is the pluggable smoothing capability every engagement
// time-series passes through: a flag array of 0/1 engagement readings in,
// a percentage series in [0,100] out. window is minutes and is accepted for
// interface symmetry; not every implementation uses it.
type Smoother interface {
	Smooth(flags []int, window int) []float64
}

// NoSmoothing returns the instant binary value for each flag: 0 or 100.
type NoSmoothing struct{}

func (NoSmoothing) Smooth(flags []int, _ int) []float64 {
	out := make([]float64, len(flags))
	for i, f := range flags {
		out[i] = float64(f) * 100.0
	}
	return out
}

// Kalman is a scalar 1-D Kalman filter tuned for monotone-lag-free
// smoothing of a binary engagement signal: cheap per-sample update, stable
// near the endpoints.
type Kalman struct {
	ProcessVariance     float64
	MeasurementVariance float64
}

// NewKalman builds a Kalman smoother with the default variances
// (q=1e-5, r=1e-2).
func NewKalman() Kalman {
	return Kalman{ProcessVariance: 1e-5, MeasurementVariance: 1e-2}
}

func (k Kalman) Smooth(flags []int, _ int) []float64 {
	if len(flags) == 0 {
		return nil
	}

	estimates := make([]float64, 0, len(flags))
	estimate := float64(flags[0]) * 100.0
	errorEstimate := 1.0

	for _, flag := range flags {
		measurement := float64(flag) * 100.0

		errorEstimate += k.ProcessVariance
		gain := errorEstimate / (errorEstimate + k.MeasurementVariance)
		estimate += gain * (measurement - estimate)
		errorEstimate = (1 - gain) * errorEstimate

		estimates = append(estimates, estimate)
	}

	return estimates
}

// Algorithm names a configured smoothing strategy.
type Algorithm string

const (
	AlgorithmNone   Algorithm = "none"
	AlgorithmKalman Algorithm = "kalman"
)

// NewSmoother builds the Smoother for algorithm, defaulting to Kalman for
// any unrecognized value.
func NewSmoother(algorithm Algorithm) Smoother {
	if algorithm == AlgorithmNone {
		return NoSmoothing{}
	}
	return NewKalman()
}
