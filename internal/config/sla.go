package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SLAConfig is the duration table behind request due dates, in hours.
type SLAConfig struct {
	UnderWarrantyHours int `mapstructure:"underWarrantyHours"`
	OutOfWarrantyHours int `mapstructure:"outOfWarrantyHours"`
	OnSiteBufferHours  int `mapstructure:"onSiteBufferHours"`
	SweepBatchSize     int `mapstructure:"sweepBatchSize"`
}

func DefaultSLAConfig() SLAConfig {
	return SLAConfig{
		UnderWarrantyHours: 48,
		OutOfWarrantyHours: 72,
		OnSiteBufferHours:  24,
		SweepBatchSize:     200,
	}
}

type SLAConfigHolder struct {
	current atomic.Value // holds SLAConfig
}

// NewStaticSLAConfigHolder pins a fixed table, used by tests and one-shot commands.
func NewStaticSLAConfigHolder(cfg SLAConfig) *SLAConfigHolder {
	holder := &SLAConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewSLAConfigHolder(appCfg Config, log *zap.Logger) (*SLAConfigHolder, error) {
	v := viper.New()

	if path := strings.TrimSpace(appCfg.SLAConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sla")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/repairdesk")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("REPAIRDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSLAConfig()
	v.SetDefault("sla.underWarrantyHours", defaults.UnderWarrantyHours)
	v.SetDefault("sla.outOfWarrantyHours", defaults.OutOfWarrantyHours)
	v.SetDefault("sla.onSiteBufferHours", defaults.OnSiteBufferHours)
	v.SetDefault("sla.sweepBatchSize", defaults.SweepBatchSize)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		// no file, defaults apply
		fileLoaded = false
	}

	var cfg SLAConfig
	if err := v.UnmarshalKey("sla", &cfg); err != nil {
		return nil, err
	}
	if err := validateSLAConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticSLAConfigHolder(cfg)
	if !fileLoaded {
		return holder, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SLAConfig
		if err := v.UnmarshalKey("sla", &updated); err != nil {
			log.Warn("sla config reload failed", zap.Error(err))
			return
		}
		if err := validateSLAConfig(updated); err != nil {
			log.Warn("invalid sla config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("sla config reloaded", zap.String("file", e.Name))
	})
	v.WatchConfig()

	return holder, nil
}

func (h *SLAConfigHolder) Get() SLAConfig {
	return h.current.Load().(SLAConfig)
}

func validateSLAConfig(cfg SLAConfig) error {
	if cfg.UnderWarrantyHours <= 0 {
		return errors.New("sla.underWarrantyHours must be positive")
	}
	if cfg.OutOfWarrantyHours <= 0 {
		return errors.New("sla.outOfWarrantyHours must be positive")
	}
	if cfg.OnSiteBufferHours < 0 {
		return errors.New("sla.onSiteBufferHours cannot be negative")
	}
	if cfg.SweepBatchSize <= 0 {
		return errors.New("sla.sweepBatchSize must be positive")
	}
	return nil
}
