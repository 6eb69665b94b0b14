package policy

// Option applies a configuration option to a policy.
type Option func(*settings)

// WithValidation selects reject (default) or clamp handling of bad scores.
func WithValidation(mode ValidationMode) Option {
	return func(s *settings) {
		s.validation = mode
	}
}

// WithStepRounding rounds every stored value to one decimal after each
// update instead of only in the reported view.
func WithStepRounding(enabled bool) Option {
	return func(s *settings) {
		s.roundEachStep = enabled
	}
}

// WithAlpha sets the EWMA weight of the newest score. Values outside (0, 1]
// are ignored. Cumulative averaging ignores alpha.
func WithAlpha(alpha float64) Option {
	return func(s *settings) {
		if alpha > 0 && alpha <= 1 {
			s.alpha = alpha
		}
	}
}
