package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Tuning holds the reconciliation knobs that operators adjust without a
// redeploy. Amounts are minor units.
type Tuning struct {
	AmountEpsilon      float64 `mapstructure:"amountEpsilon"`
	IntentExpiryMin    int     `mapstructure:"intentExpiryMinutes"`
	StatusCacheTTLSec  int     `mapstructure:"statusCacheTTLSeconds"`
	PollLimit          int     `mapstructure:"pollLimit"`
	ProviderTimeoutSec int     `mapstructure:"providerTimeoutSeconds"`
}

func DefaultTuning() Tuning {
	return Tuning{
		AmountEpsilon:      1,
		IntentExpiryMin:    15,
		StatusCacheTTLSec:  300,
		PollLimit:          20,
		ProviderTimeoutSec: 10,
	}
}

func (t Tuning) IntentExpiry() time.Duration    { return time.Duration(t.IntentExpiryMin) * time.Minute }
func (t Tuning) StatusCacheTTL() time.Duration  { return time.Duration(t.StatusCacheTTLSec) * time.Second }
func (t Tuning) ProviderTimeout() time.Duration { return time.Duration(t.ProviderTimeoutSec) * time.Second }

// TuningHolder exposes the current tuning snapshot with hot reload.
type TuningHolder struct {
	current atomic.Value // holds Tuning
}

func NewTuningHolder() (*TuningHolder, error) {
	v := viper.New()

	v.SetConfigName("payments")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/tabpay/config")
	v.AddConfigPath("/etc/tabpay")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TABPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTuning()
	v.SetDefault("payments.amountEpsilon", defaults.AmountEpsilon)
	v.SetDefault("payments.intentExpiryMinutes", defaults.IntentExpiryMin)
	v.SetDefault("payments.statusCacheTTLSeconds", defaults.StatusCacheTTLSec)
	v.SetDefault("payments.pollLimit", defaults.PollLimit)
	v.SetDefault("payments.providerTimeoutSeconds", defaults.ProviderTimeoutSec)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Tuning
	if err := v.UnmarshalKey("payments", &cfg); err != nil {
		return nil, err
	}
	if err := validateTuning(cfg); err != nil {
		return nil, err
	}

	holder := &TuningHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Tuning
		if err := v.UnmarshalKey("payments", &updated); err != nil {
			log.Printf("[payments-config] reload failed: %v", err)
			return
		}
		if err := validateTuning(updated); err != nil {
			log.Printf("[payments-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
	})

	return holder, nil
}

func (h *TuningHolder) Current() Tuning {
	if h == nil {
		return DefaultTuning()
	}
	if cfg, ok := h.current.Load().(Tuning); ok {
		return cfg
	}
	return DefaultTuning()
}

func validateTuning(cfg Tuning) error {
	if cfg.AmountEpsilon < 0 {
		return errors.New("amountEpsilon must not be negative")
	}
	if cfg.IntentExpiryMin <= 0 {
		return errors.New("intentExpiryMinutes must be positive")
	}
	if cfg.StatusCacheTTLSec <= 0 {
		return errors.New("statusCacheTTLSeconds must be positive")
	}
	if cfg.PollLimit <= 0 {
		return errors.New("pollLimit must be positive")
	}
	if cfg.ProviderTimeoutSec <= 0 {
		return errors.New("providerTimeoutSeconds must be positive")
	}
	return nil
}
