package blockdev

import "log/slog"

type options struct {
	logger      *slog.Logger
	sinks       MultiSink
	memoryLimit uint64
}

// Option is a functional option for configuring a Device.
type Option func(*options)

// WithLogger sets the logger used for operation traces and correction events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventSink adds a sink for correction events. It may be given more than
// once; sinks are called in order.
//
// Example:
//
//	var corrected int
//	dev, err := blockdev.New(geom, cfg,
//	    blockdev.WithEventSink(blockdev.EventSinkFunc(func(e blockdev.Event) {
//	        if e.Kind == blockdev.EventCorrected {
//	            corrected++
//	        }
//	    })),
//	)
func WithEventSink(sink EventSink) Option {
	return func(o *options) {
		if sink != nil {
			o.sinks = append(o.sinks, sink)
		}
	}
}

// WithMemoryLimit caps the size of an owned backend. Creating a device that
// would need more fails with ErrOutOfMemory. Zero means no limit.
func WithMemoryLimit(bytes uint64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}
