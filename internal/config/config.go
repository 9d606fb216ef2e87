package config

import "github.com/spf13/viper"

type Config struct {
	DBUrl      string `mapstructure:"DB_URL"`
	RedisAddr  string `mapstructure:"REDIS_ADDR"`
	ServerPort string `mapstructure:"SERVER_PORT"`
	Env        string `mapstructure:"ENV"`
	JWTSecret  string `mapstructure:"JWT_SECRET"`

	// Tariff windows are evaluated in this reference timezone, never
	// the caller's.
	TariffTimezone string `mapstructure:"TARIFF_TIMEZONE"`

	// Process-wide fallback rate when no rule matches a segment.
	DefaultPricePerHour string `mapstructure:"DEFAULT_PRICE_PER_HOUR"`
	Currency            string `mapstructure:"CURRENCY"`

	SnapshotCacheTTLSeconds int `mapstructure:"SNAPSHOT_CACHE_TTL"`
	HolidayRefreshMinutes   int `mapstructure:"HOLIDAY_REFRESH_MINUTES"`
}

func Load() (Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("TARIFF_TIMEZONE", "Asia/Almaty")
	viper.SetDefault("DEFAULT_PRICE_PER_HOUR", "100.00")
	viper.SetDefault("CURRENCY", "KZT")
	viper.SetDefault("SNAPSHOT_CACHE_TTL", 30)
	viper.SetDefault("HOLIDAY_REFRESH_MINUTES", 60)

	if err := viper.ReadInConfig(); err != nil {
	}

	var cfg Config
	err := viper.Unmarshal(&cfg)
	return cfg, err
}
