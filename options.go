package tabletio

// DefaultWriteBufferSize is the memtable threshold that triggers a spill
// into the rowset builder.
const DefaultWriteBufferSize int64 = 100 << 20 // 100 MiB

type options struct {
	writeBufferSize int64
	logger          *Logger
}

// Option configures a DeltaWriter at Open time.
type Option func(*options)

// WithWriteBufferSize overrides the memtable spill threshold in bytes.
// Values <= 0 keep the default.
func WithWriteBufferSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.writeBufferSize = n
		}
	}
}

// WithLogger sets the writer's logger. If nil, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

func defaultOptions() options {
	return options{
		writeBufferSize: DefaultWriteBufferSize,
		logger:          NoopLogger(),
	}
}
