package config

import "github.com/spf13/viper"

type OpsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

func (config OpsConfig) setDefaults() {
	viper.SetDefault("ops.listen_addr", ":8080")
}
