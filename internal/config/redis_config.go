package config

import (
	"fmt"
	"github.com/spf13/viper"
	"strings"
	"time"
)

type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

func (config RedisConfig) setDefaults() {
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.dial_timeout", 5*time.Second)
}

func (config RedisConfig) validate() error {

	var missingFields []string

	if config.Addr == "" {
		missingFields = append(missingFields, "addr")
	}

	if config.DialTimeout <= 0 {
		missingFields = append(missingFields, "dial_timeout")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	return nil
}

func (config RedisConfig) bindEnvironmentVariables() error {
	var errs []error
	if err := viper.BindEnv("redis.addr", "REDIS_ADDR"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("redis.password", "REDIS_PASSWORD"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("redis.db", "REDIS_DB"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
