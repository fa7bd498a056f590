package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type DBConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	AutoMigrate      bool   `mapstructure:"auto_migrate"`
}

func (config DBConfig) validate() error {
	if config.ConnectionString == "" {
		return fmt.Errorf("missing variable: db connection string")
	}
	return nil
}

func (config DBConfig) bindEnvironmentVariables() error {
	if err := viper.BindEnv("db.auto_migrate", "DB_AUTO_MIGRATE"); err != nil {
		return err
	}
	return viper.BindEnv("db.connection_string", "DB_CONNECTION_STRING")
}
