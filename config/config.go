package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string   `mapstructure:"http_address"`
	RPCAddress     string   `mapstructure:"rpc_address"`
	MetricsAddress string   `mapstructure:"metrics_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// Driver selects the score sink backend: memory, gorm, postgres or mongo.
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// RedisConfig points at the room record store. An empty Addr keeps
// room records in process memory.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig enables finished-game events when URL is set.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	StreamName    string `mapstructure:"stream_name"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type GameConfig struct {
	CountdownFrom     int           `mapstructure:"countdown_from"`
	CountdownInterval time.Duration `mapstructure:"countdown_interval"`
	ResetDelay        time.Duration `mapstructure:"reset_delay"`
	RoomTTL           time.Duration `mapstructure:"room_ttl"`
	CodeAttempts      int           `mapstructure:"code_attempts"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":9090")
	v.SetDefault("server.metrics_address", ":9100")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "typerace")
	v.SetDefault("database.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("database.mongo.database", "typerace")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.stream_name", "TYPERACE_RESULTS")
	v.SetDefault("nats.subject_prefix", "typerace.results")

	v.SetDefault("game.countdown_from", 3)
	v.SetDefault("game.countdown_interval", time.Second)
	v.SetDefault("game.reset_delay", 5*time.Second)
	v.SetDefault("game.room_ttl", 2*time.Hour)
	v.SetDefault("game.code_attempts", 10)
	v.SetDefault("game.sweep_interval", time.Minute)
}

// LoadConfig reads config.yaml from path if present and applies TYPERACE_*
// environment overrides on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("typerace")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
