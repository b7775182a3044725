package pipeline

import "fmt"

// TokenEstimate is a range-based token-count prediction with confidence.
//
// The asymmetry between the bounds is deliberate: safety-critical consumers
// (batch sizing, cache-eligibility gating) read Max only, because
// under-estimation risks provider-side rejection while over-estimation only
// costs efficiency. Expected is for display purposes.
type TokenEstimate struct {
	// Min is the lower bound.
	Min int

	// Expected is the central estimate. Always within [Min, Max].
	Expected int

	// Max is the upper bound used for all gating decisions.
	Max int

	// Confidence is the estimator's confidence in the range, in [0, 1].
	// Mixed-content estimates carry lower confidence than homogeneous
	// content of equal size.
	Confidence float64

	// Breakdown optionally maps source identifiers to their individual
	// contribution.
	Breakdown map[string]TokenRange
}

// TokenRange is a per-source slice of an estimate.
type TokenRange struct {
	Min      int
	Expected int
	Max      int
}

// NewTokenEstimate constructs a validated estimate. Bounds are reordered if
// necessary and confidence is clamped to [0, 1], so a well-formed value
// always comes out.
func NewTokenEstimate(min, expected, max int, confidence float64) TokenEstimate {
	if min < 0 {
		min = 0
	}
	if expected < min {
		expected = min
	}
	if max < expected {
		max = expected
	}
	return TokenEstimate{
		Min:        min,
		Expected:   expected,
		Max:        max,
		Confidence: clamp01(confidence),
	}
}

// Validate checks the range and confidence invariants.
func (e TokenEstimate) Validate() error {
	if e.Min < 0 {
		return &ValidationError{Field: "min_tokens", Message: fmt.Sprintf("negative bound %d", e.Min)}
	}
	if e.Min > e.Expected || e.Expected > e.Max {
		return &ValidationError{
			Field:   "token_estimate",
			Message: fmt.Sprintf("bounds out of order: min=%d expected=%d max=%d", e.Min, e.Expected, e.Max),
		}
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return &ValidationError{Field: "confidence", Message: fmt.Sprintf("confidence %v outside [0,1]", e.Confidence)}
	}
	return nil
}

// Add combines two estimates. Bounds add; confidence takes the pessimistic
// minimum, so accumulating heterogeneous sources can only lower it.
func (e TokenEstimate) Add(other TokenEstimate) TokenEstimate {
	conf := e.Confidence
	if other.Confidence < conf {
		conf = other.Confidence
	}
	sum := NewTokenEstimate(e.Min+other.Min, e.Expected+other.Expected, e.Max+other.Max, conf)
	if e.Breakdown != nil || other.Breakdown != nil {
		sum.Breakdown = make(map[string]TokenRange, len(e.Breakdown)+len(other.Breakdown))
		for k, v := range e.Breakdown {
			sum.Breakdown[k] = v
		}
		for k, v := range other.Breakdown {
			sum.Breakdown[k] = v
		}
	}
	return sum
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
