package session

import (
	"time"

	"github.com/opentube/opentube/key"
	"github.com/opentube/opentube/resolver"
	"github.com/opentube/opentube/stream"
	"github.com/spf13/viper"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithQuality sets the initial quality preference. Unparseable labels mean 720p.
func WithQuality(label string) Option {
	return func(o *Orchestrator) {
		o.quality = stream.NormalizeQuality(label)
	}
}

// WithSettleDelay sets the wait between the engine reporting ready and playback starting.
func WithSettleDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.settleDelay = d
		}
	}
}

// WithAdvanceDelay sets the wait before skipping past a failed item.
func WithAdvanceDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.advanceDelay = d
		}
	}
}

// WithMaxFailures bounds consecutive failed items before the session gives up.
func WithMaxFailures(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxFailures = n
		}
	}
}

func WithCacheCapacity(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.cacheCapacity = n
		}
	}
}

func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		o.retryOptions = append(o.retryOptions, resolver.WithMaxRetries(n))
	}
}

func WithRetryDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.retryOptions = append(o.retryOptions, resolver.WithRetryDelay(d))
	}
}

// FromConfig returns the options stored in the configuration.
func FromConfig() []Option {
	return []Option{
		WithQuality(viper.GetString(key.PlayerDefaultQuality)),
		WithSettleDelay(time.Duration(viper.GetInt(key.PlayerSettleDelayMs)) * time.Millisecond),
		WithAdvanceDelay(time.Duration(viper.GetInt(key.PlayerAdvanceDelayMs)) * time.Millisecond),
		WithMaxFailures(viper.GetInt(key.PlayerMaxConsecutiveFailures)),
		WithCacheCapacity(viper.GetInt(key.CacheCapacity)),
		WithMaxRetries(viper.GetInt(key.ResolverMaxRetries)),
		WithRetryDelay(time.Duration(viper.GetInt(key.ResolverRetryDelayMs)) * time.Millisecond),
	}
}
