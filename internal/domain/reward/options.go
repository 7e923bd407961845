package reward

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithBaseRate sets the share of the stake paid as base reward.
func WithBaseRate(rate float64) Option {
	return func(c *Calculator) {
		if rate > 0 {
			c.baseRate = rate
		}
	}
}

// WithDecimals sets the number of decimals of the fixed-point token amount.
func WithDecimals(decimals int) Option {
	return func(c *Calculator) {
		if decimals >= 0 {
			c.decimals = decimals
		}
	}
}
