package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Exchange Exchange `mapstructure:"exchange"`
	Trading  Trading  `mapstructure:"trading"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Notify   Notify   `mapstructure:"notify"`
}

// Exchange holds the credentials and connectivity knobs for the
// exchange adapter.
type Exchange struct {
	APIKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the inspection HTTP surface.
type Server struct {
	Port       int      `mapstructure:"port"`
	EnableAPI  bool      `mapstructure:"enable_api"`
	TraderURLs []string `mapstructure:"trader_urls"`
}

// Database holds the configuration for the persistent store.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Notify holds configuration for the multi-channel notification sink.
type Notify struct {
	Name string   `mapstructure:"name"`
	URLs []string `mapstructure:"urls"`
}

// Trading holds the configuration for the ratio-arbitrage strategy.
type Trading struct {
	Bridge                string   `mapstructure:"bridge"`
	SupportedCoinList     []string `mapstructure:"supported_coin_list"`
	CurrentCoinSymbol     string   `mapstructure:"current_coin_symbol"`
	ScoutSleepTime        int      `mapstructure:"scout_sleep_time"`
	ScoutMultiplier       float64  `mapstructure:"scout_multiplier"`
	RatioAdjustWeight     int      `mapstructure:"ratio_adjust_weight"`
	LossAfterHours        float64  `mapstructure:"loss_after_hours"`
	MaxLossPercent        float64  `mapstructure:"max_loss_percent"`
	LogProgressAfterHours float64  `mapstructure:"log_progress_after_hours"`
	Strategy              string   `mapstructure:"strategy"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("exchange.rate_limit", 20)
	viper.SetDefault("exchange.rate_limit_burst", 5)
	viper.SetDefault("trading.scout_sleep_time", 5)
	viper.SetDefault("trading.scout_multiplier", 5)
	viper.SetDefault("trading.ratio_adjust_weight", 10)
	viper.SetDefault("trading.loss_after_hours", 0.0)
	viper.SetDefault("trading.max_loss_percent", 0.0)
	viper.SetDefault("trading.log_progress_after_hours", 1.0)
	viper.SetDefault("trading.strategy", "default")

	if err = viper.ReadInConfig(); err != nil {
		return config, fmt.Errorf("could not read config: %w", err)
	}

	err = viper.Unmarshal(&config)
	return config, err
}
