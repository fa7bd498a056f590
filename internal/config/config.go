package config

import (
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"os"
)

type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger"`
	DB          DBConfig          `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Recommender RecommenderConfig `mapstructure:"recommender"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Ops         OpsConfig         `mapstructure:"ops"`
}

var configFile = "./configs/config.yaml"

func Get() *Config {

	file := configFile
	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		file = value
	} else if value, _ := os.LookupEnv("MODE"); value == "test" {
		file = "../../configs/config.yaml"
	}

	config, err := Load(file)
	if err != nil {
		log.Fatal(err)
	}

	return config
}

// Load reads the file, applies defaults and environment overrides, and validates the result.
func Load(file string) (*Config, error) {

	viper.Reset()
	viper.SetConfigFile(file)
	viper.AutomaticEnv()

	setDefaults()

	err := bindEnvironmentVariables()
	if err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	config := Config{}
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	LoggerConfig{}.setDefaults()
	RedisConfig{}.setDefaults()
	RecommenderConfig{}.setDefaults()
	SchedulerConfig{}.setDefaults()
	OpsConfig{}.setDefaults()
}

func bindEnvironmentVariables() error {
	var errs []error

	db, redis, logger, scheduler := DBConfig{}, RedisConfig{}, LoggerConfig{}, SchedulerConfig{}

	if err := db.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("DBConfig: %w", err))
	}

	if err := redis.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("RedisConfig: %w", err))
	}

	if err := logger.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("LoggerConfig: %w", err))
	}

	if err := scheduler.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("SchedulerConfig: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config Config) validate() error {
	var errs []error

	if err := config.DB.validate(); err != nil {
		errs = append(errs, fmt.Errorf("DBConfig: %w", err))
	}

	if err := config.Redis.validate(); err != nil {
		errs = append(errs, fmt.Errorf("RedisConfig: %w", err))
	}

	if err := config.Logger.validate(); err != nil {
		errs = append(errs, fmt.Errorf("LoggerConfig: %w", err))
	}

	if err := config.Recommender.validate(); err != nil {
		errs = append(errs, fmt.Errorf("RecommenderConfig: %w", err))
	}

	if err := config.Scheduler.validate(); err != nil {
		errs = append(errs, fmt.Errorf("SchedulerConfig: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func createMultiError(errs []error) error {
	return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
}
