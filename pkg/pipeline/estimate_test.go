package pipeline

import "testing"

func TestNewTokenEstimate(t *testing.T) {
	t.Run("well-formed input passes through", func(t *testing.T) {
		est := NewTokenEstimate(10, 20, 30, 0.8)
		if est.Min != 10 || est.Expected != 20 || est.Max != 30 {
			t.Errorf("got %d/%d/%d, want 10/20/30", est.Min, est.Expected, est.Max)
		}
		if est.Confidence != 0.8 {
			t.Errorf("confidence = %v, want 0.8", est.Confidence)
		}
	})

	t.Run("out-of-order bounds are repaired", func(t *testing.T) {
		est := NewTokenEstimate(50, 20, 10, 0.5)
		if err := est.Validate(); err != nil {
			t.Fatalf("repaired estimate failed validation: %v", err)
		}
		if est.Min > est.Expected || est.Expected > est.Max {
			t.Errorf("bounds out of order: %d/%d/%d", est.Min, est.Expected, est.Max)
		}
	})

	t.Run("negative min clamps to zero", func(t *testing.T) {
		est := NewTokenEstimate(-5, 0, 10, 0.5)
		if est.Min != 0 {
			t.Errorf("Min = %d, want 0", est.Min)
		}
	})

	t.Run("confidence clamps to unit interval", func(t *testing.T) {
		if c := NewTokenEstimate(0, 1, 2, 1.5).Confidence; c != 1 {
			t.Errorf("confidence = %v, want 1", c)
		}
		if c := NewTokenEstimate(0, 1, 2, -0.5).Confidence; c != 0 {
			t.Errorf("confidence = %v, want 0", c)
		}
	})
}

func TestTokenEstimateAdd(t *testing.T) {
	t.Run("bounds add", func(t *testing.T) {
		sum := NewTokenEstimate(1, 2, 3, 0.9).Add(NewTokenEstimate(10, 20, 30, 0.9))
		if sum.Min != 11 || sum.Expected != 22 || sum.Max != 33 {
			t.Errorf("got %d/%d/%d, want 11/22/33", sum.Min, sum.Expected, sum.Max)
		}
	})

	t.Run("confidence is pessimistic", func(t *testing.T) {
		sum := NewTokenEstimate(1, 2, 3, 0.9).Add(NewTokenEstimate(1, 2, 3, 0.4))
		if sum.Confidence != 0.4 {
			t.Errorf("confidence = %v, want 0.4", sum.Confidence)
		}
	})

	t.Run("accumulation never decreases bounds", func(t *testing.T) {
		acc := NewTokenEstimate(0, 0, 0, 1)
		for i := 0; i < 20; i++ {
			next := acc.Add(NewTokenEstimate(i, i*2, i*3, 0.7))
			if next.Min < acc.Min || next.Expected < acc.Expected || next.Max < acc.Max {
				t.Fatalf("step %d decreased a bound: %+v -> %+v", i, acc, next)
			}
			acc = next
		}
	})

	t.Run("breakdowns merge", func(t *testing.T) {
		a := NewTokenEstimate(1, 2, 3, 0.9)
		a.Breakdown = map[string]TokenRange{"a": {1, 2, 3}}
		b := NewTokenEstimate(4, 5, 6, 0.8)
		b.Breakdown = map[string]TokenRange{"b": {4, 5, 6}}

		sum := a.Add(b)
		if len(sum.Breakdown) != 2 {
			t.Errorf("breakdown has %d entries, want 2", len(sum.Breakdown))
		}
	})
}

func TestTokenEstimateValidate(t *testing.T) {
	cases := []struct {
		name    string
		est     TokenEstimate
		wantErr bool
	}{
		{"valid", TokenEstimate{Min: 1, Expected: 2, Max: 3, Confidence: 0.5}, false},
		{"zero", TokenEstimate{}, false},
		{"negative min", TokenEstimate{Min: -1}, true},
		{"expected below min", TokenEstimate{Min: 5, Expected: 2, Max: 10}, true},
		{"max below expected", TokenEstimate{Min: 1, Expected: 5, Max: 2}, true},
		{"confidence above one", TokenEstimate{Max: 1, Confidence: 1.1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.est.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
