package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	ServerHost string `validate:"omitempty,hostname|ip"`
	ServerPort int    `validate:"min=1,max=65535"`
	AdminPort  int    `validate:"min=0,max=65535"`

	TrafficHost           string        `validate:"required_with=TrafficPort"`
	TrafficPort           int           `validate:"min=0,max=65535"`
	TrafficReconnectDelay time.Duration `validate:"gt=0"`

	WaysFile  string `validate:"required"`
	NodesFile string `validate:"required"`
	IndexFile string `validate:"required"`

	VerifySorted bool
	WayCacheSize int `validate:"min=1"`

	GracePeriod           time.Duration `validate:"gt=0"`
	MaxRequestDuration    time.Duration `validate:"gtefield=GracePeriod"`
	BroadcastWriteTimeout time.Duration `validate:"gt=0"`

	AcceptRate  float64 `validate:"gt=0"`
	AcceptBurst int     `validate:"min=1"`
}

func setDefaults() {
	viper.SetDefault("SERVER_HOST", "")
	viper.SetDefault("SERVER_PORT", 6060)
	viper.SetDefault("ADMIN_PORT", 6061)

	viper.SetDefault("TRAFFIC_HOST", "")
	viper.SetDefault("TRAFFIC_PORT", 0)
	viper.SetDefault("TRAFFIC_RECONNECT_DELAY", "1s")

	viper.SetDefault("WAYS_FILE", "./data/ways.tsv")
	viper.SetDefault("NODES_FILE", "./data/nodes.tsv")
	viper.SetDefault("INDEX_FILE", "./data/index.tsv")
	viper.SetDefault("VERIFY_SORTED", false)
	viper.SetDefault("WAY_CACHE_SIZE", 1<<16)

	viper.SetDefault("GRACE_PERIOD", "2s")
	viper.SetDefault("MAX_REQUEST_DURATION", "30s")
	viper.SetDefault("BROADCAST_WRITE_TIMEOUT", "1s")

	viper.SetDefault("ACCEPT_RATE", 500.0)
	viper.SetDefault("ACCEPT_BURST", 100)
}

// ReadConfig loads ./data/config (or configDir/config) on top of the defaults; a missing
// config file is not an error, environment variables override both.
func ReadConfig(configDir string) (Config, error) {
	setDefaults()
	viper.SetConfigName("config")
	viper.AddConfigPath(configDir)
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("fatal error config file: %w", err)
		}
	}

	cfg := Config{
		ServerHost: viper.GetString("SERVER_HOST"),
		ServerPort: viper.GetInt("SERVER_PORT"),
		AdminPort:  viper.GetInt("ADMIN_PORT"),

		TrafficHost:           viper.GetString("TRAFFIC_HOST"),
		TrafficPort:           viper.GetInt("TRAFFIC_PORT"),
		TrafficReconnectDelay: viper.GetDuration("TRAFFIC_RECONNECT_DELAY"),

		WaysFile:     viper.GetString("WAYS_FILE"),
		NodesFile:    viper.GetString("NODES_FILE"),
		IndexFile:    viper.GetString("INDEX_FILE"),
		VerifySorted: viper.GetBool("VERIFY_SORTED"),
		WayCacheSize: viper.GetInt("WAY_CACHE_SIZE"),

		GracePeriod:           viper.GetDuration("GRACE_PERIOD"),
		MaxRequestDuration:    viper.GetDuration("MAX_REQUEST_DURATION"),
		BroadcastWriteTimeout: viper.GetDuration("BROADCAST_WRITE_TIMEOUT"),

		AcceptRate:  viper.GetFloat64("ACCEPT_RATE"),
		AcceptBurst: viper.GetInt("ACCEPT_BURST"),
	}

	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func ValidateConfig(cfg Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return WrapErrorf(err, ErrBadParamInput, "invalid configuration: %v", err)
	}
	return nil
}

func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

func (c Config) TrafficAddr() string {
	return fmt.Sprintf("%s:%d", c.TrafficHost, c.TrafficPort)
}

func (c Config) TrafficEnabled() bool {
	return c.TrafficHost != "" && c.TrafficPort > 0
}
