package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelDebug   LogLevel = "DEBUG"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
	LevelFatal   LogLevel = "FATAL"
)

type LoggerConfig struct {
	LogLevel     LogLevel `mapstructure:"log_level"`
	AppName      string   `mapstructure:"app_name"`
	LokiURL      string   `mapstructure:"loki_url"`
	LokiUser     string   `mapstructure:"loki_user"`
	LokiPassword string   `mapstructure:"loki_password"`
	OutputFile   string   `mapstructure:"output_file"`
}

func (config LoggerConfig) setDefaults() {
	viper.SetDefault("logger.log_level", string(LevelInfo))
	viper.SetDefault("logger.app_name", "career-recommender")
}

func (level LogLevel) valid() bool {
	switch level {
	case LevelInfo, LevelDebug, LevelWarning, LevelError, LevelFatal:
		return true
	}
	return false
}

func (config LoggerConfig) validate() error {
	var errs []error

	if !config.LogLevel.valid() {
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", config.LogLevel))
	}
	if config.OutputFile == "" {
		errs = append(errs, fmt.Errorf("missing variable: output_file"))
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}

func (config LoggerConfig) bindEnvironmentVariables() error {
	env := [][2]string{
		{"logger.log_level", "LOG_LEVEL"},
		{"logger.output_file", "LOG_OUTPUT_FILE"},
		{"logger.app_name", "APP_NAME"},
		{"logger.loki_url", "LOKI_URL"},
		{"logger.loki_user", "LOKI_USER"},
		{"logger.loki_password", "LOKI_PASSWORD"},
	}

	var errs []error
	for _, binding := range env {
		if err := viper.BindEnv(binding[0], binding[1]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
