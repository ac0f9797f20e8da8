package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	FilesystemLocal = "local"
	FilesystemS3    = "s3"
)

const (
	DriverSQLite = "sqlite"
	DriverPG     = "pg"
	DriverLibSQL = "libsql"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "dev"
	EnvTest        = "test"
)

type Config struct {
	Port           int    `mapstructure:"port"`
	Host           string `mapstructure:"host"`
	Environment    string `mapstructure:"environment"`
	PublicURL      string `mapstructure:"public_url"`
	PublicDir      string `mapstructure:"public_dir"`
	DisableAuth    bool   `mapstructure:"disable_auth"`
	AssetsDir      string `mapstructure:"assets_dir"`
	FilesystemType string `mapstructure:"filesystem_type"`

	DB         DBConfig         `mapstructure:"db"`
	S3         S3Config         `mapstructure:"s3"`
	Pulsar     PulsarConfig     `mapstructure:"pulsar"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Fal        ProviderConfig   `mapstructure:"fal"`
	XAI        ProviderConfig   `mapstructure:"xai"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

type S3Config struct {
	Folder      string `mapstructure:"folder"`
	Region      string `mapstructure:"region_name"`
	Bucket      string `mapstructure:"bucket_name"`
	AccessKey   string `mapstructure:"access_key"`
	SecretKey   string `mapstructure:"secret_key"`
	PublicURL   string `mapstructure:"public_url"`
	EndpointURL string `mapstructure:"endpoint_url"`
}

type PulsarConfig struct {
	URL        string `mapstructure:"url"`
	ShotsTopic string `mapstructure:"shots_topic"`
}

type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	SupabaseURL     string `mapstructure:"supabase_url"`
	SupabaseAnonKey string `mapstructure:"supabase_anon_key"`
}

type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type OpenRouterConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

type JobsConfig struct {
	StaleTimeout         time.Duration `mapstructure:"stale_timeout"`
	PollTimeout          time.Duration `mapstructure:"poll_timeout"`
	GenerationTimeout    time.Duration `mapstructure:"generation_timeout"`
	PromptTimeout        time.Duration `mapstructure:"prompt_timeout"`
	ShotsCount           int           `mapstructure:"shots_count"`
	ShotWorkers          int           `mapstructure:"shot_workers"`
	UploadWorkers        int           `mapstructure:"upload_workers"`
	DefaultVideoDuration int           `mapstructure:"default_video_duration"`
	MaxVideoDuration     int           `mapstructure:"max_video_duration"`
}

var config *Config

// LoadEnvAndConfigFiles loads the optional .env file, then the optional config
// file, and unmarshals everything viper knows into the package config.
func LoadEnvAndConfigFiles() error {
	setDefaults()

	envFile := viper.GetString("env_file")
	if envFile == "" {
		envFile = DefaultEnvFile
	}

	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat env file: %w", err)
	}

	if configFile := viper.GetString("config_file"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	config = cfg
	return nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(c.DB.Driver) {
	case DriverSQLite, DriverPG, DriverLibSQL:
	default:
		return fmt.Errorf("invalid database driver: %s", c.DB.Driver)
	}

	switch strings.ToLower(c.FilesystemType) {
	case FilesystemLocal:
	case FilesystemS3:
		if c.S3.Bucket == "" {
			return ErrS3BucketNotSet
		}
	default:
		return fmt.Errorf("invalid filesystem type: %s", c.FilesystemType)
	}

	if c.Jobs.StaleTimeout <= 0 || c.Jobs.PollTimeout <= 0 || c.Jobs.GenerationTimeout <= 0 || c.Jobs.PromptTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Jobs.ShotsCount <= 0 {
		return fmt.Errorf("jobs.shots_count must be positive, got %d", c.Jobs.ShotsCount)
	}

	return nil
}

// WebhookURL is the address providers call back on completion.
func (c *Config) WebhookURL() string {
	return strings.TrimSuffix(c.PublicURL, "/") + "/webhooks/provider"
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction || c.Environment == "prod"
}

func MustGetConfig() *Config {
	if config == nil {
		panic("config not loaded")
	}

	return config
}

