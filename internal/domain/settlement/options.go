package settlement

import (
	"time"

	"github.com/okian/prizeboard/pkg/logger"
)

// Option applies a configuration option to the Distributor.
type Option func(*Distributor)

// WithClock overrides the time source used for credit timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Distributor) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets the logger used for dropped tiers and credits.
func WithLogger(l logger.Logger) Option {
	return func(d *Distributor) {
		if l != nil {
			d.log = l
		}
	}
}
