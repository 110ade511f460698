package lookuptable

import "skipgraph/internal/logger"

// Option configures a LookupTable at construction time.
type Option func(*LookupTable)

// WithLogger sets the logger used for structured diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(t *LookupTable) {
		t.lgr = l
	}
}
