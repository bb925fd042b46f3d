package scanner

// WithMaxFileSize overrides the largest setup document read.
func WithMaxFileSize(n int64) Options {
	return func(o *options) {
		o.maxFileSize = n
	}
}
