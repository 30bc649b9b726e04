package summary

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithBands sets the minimum mean score ratios of the high and moderate
// tiers. Bands outside [0, 1] or with moderate above high are ignored.
func WithBands(high, moderate float64) Option {
	return func(b *Builder) {
		if high < 0 || high > 1 || moderate < 0 || moderate > high {
			return
		}
		b.high = high
		b.moderate = moderate
	}
}
