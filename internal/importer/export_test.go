package importer

import "time"

// WithNow sets the clock used to timestamp journal entries.
func WithNow(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}
