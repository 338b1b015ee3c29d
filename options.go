package athena

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

const defaultListenBacklog = 16

type config struct {
	logHandler   slog.Handler
	msink        metrics.MetricSink
	metricLabels []metrics.Label
	codec        PacketCodec
	registry     LinkRegistry
	backlog      int
}

// Option to pass to `NewTCP`.
type Option func(*config) error

// WithLog specifies which `slog.Handler` to use.
func WithLog(handler slog.Handler) Option {
	return func(c *config) error {
		c.logHandler = handler
		return nil
	}
}

// WithMetricSink chooses how metrics emitted by the module are
// collected.
func WithMetricSink(ms metrics.MetricSink) Option {
	return func(c *config) error {
		if ms == nil {
			ms = &metrics.BlackholeSink{}
		}
		c.msink = ms
		return nil
	}
}

// WithMetricLabels adds static labels to every metric the module emits.
func WithMetricLabels(labels []metrics.Label) Option {
	return func(c *config) error {
		c.metricLabels = labels
		return nil
	}
}

// WithCodec sets the packet codec used to frame messages on the wire.
// The module cannot operate without one.
func WithCodec(codec PacketCodec) Option {
	return func(c *config) error {
		if codec == nil {
			return ErrInvalidCfg
		}
		c.codec = codec
		return nil
	}
}

// WithRegistry sets the link registry accepted peer links are handed to.
func WithRegistry(reg LinkRegistry) Option {
	return func(c *config) error {
		if reg == nil {
			return ErrInvalidCfg
		}
		c.registry = reg
		return nil
	}
}

// WithListenBacklog overrides the listen(2) backlog for listener links.
func WithListenBacklog(backlog int) Option {
	return func(c *config) error {
		if backlog <= 0 {
			backlog = defaultListenBacklog
		}
		c.backlog = backlog
		return nil
	}
}
