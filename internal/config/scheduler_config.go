package config

import (
	"errors"
	"fmt"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"time"
)

type SchedulerConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Timezone           string `mapstructure:"timezone"`
	FeatureSimilarity  string `mapstructure:"feature_similarity"`
	BehaviorSimilarity string `mapstructure:"behavior_similarity"`
	Maintenance        string `mapstructure:"maintenance"`
}

func (config SchedulerConfig) setDefaults() {
	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.timezone", "Local")
	viper.SetDefault("scheduler.feature_similarity", "0 1 * * *")
	viper.SetDefault("scheduler.behavior_similarity", "15 1 * * *")
	viper.SetDefault("scheduler.maintenance", "35 0 * * *")
}

func (config SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(config.Timezone)
}

func (config SchedulerConfig) validate() error {
	var errs []error

	if _, err := config.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}

	specs := map[string]string{
		"feature_similarity":  config.FeatureSimilarity,
		"behavior_similarity": config.BehaviorSimilarity,
		"maintenance":         config.Maintenance,
	}
	for name, spec := range specs {
		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config SchedulerConfig) bindEnvironmentVariables() error {
	if err := viper.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED"); err != nil {
		return err
	}
	return viper.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")
}
