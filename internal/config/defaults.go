package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

const DefaultEnvFile = ".env"

var (
	DefaultShotsTopic = "influencer-studio/shots/run"
)

var (
	ErrS3BucketNotSet = errors.New("s3 bucket name is not set")
	ErrInvalidTimeout = errors.New("job timeouts must be positive")
)

func setDefaults() {
	viper.SetDefault("port", 8881)
	viper.SetDefault("host", "localhost")
	viper.SetDefault("environment", EnvDevelopment)
	viper.SetDefault("public_url", "http://localhost:8881")
	viper.SetDefault("assets_dir", "./data/assets")
	viper.SetDefault("filesystem_type", FilesystemLocal)

	viper.SetDefault("db.driver", DriverSQLite)
	viper.SetDefault("db.dsn", "file:./data/studio.db")

	viper.SetDefault("pulsar.shots_topic", DefaultShotsTopic)

	viper.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	viper.SetDefault("openrouter.model", "google/gemini-2.5-flash")

	viper.SetDefault("jobs.stale_timeout", time.Hour)
	viper.SetDefault("jobs.poll_timeout", 30*time.Second)
	viper.SetDefault("jobs.generation_timeout", 5*time.Minute)
	viper.SetDefault("jobs.prompt_timeout", 60*time.Second)
	viper.SetDefault("jobs.shots_count", 5)
	viper.SetDefault("jobs.shot_workers", 4)
	viper.SetDefault("jobs.upload_workers", 10)
	viper.SetDefault("jobs.default_video_duration", 6)
	viper.SetDefault("jobs.max_video_duration", 15)
}

// Default returns a Config populated with the same defaults viper registers.
func Default() *Config {
	return &Config{
		Port:           8881,
		Host:           "localhost",
		Environment:    EnvDevelopment,
		PublicURL:      "http://localhost:8881",
		AssetsDir:      "./data/assets",
		FilesystemType: FilesystemLocal,
		DB:             DBConfig{Driver: DriverSQLite, DSN: "file:./data/studio.db"},
		Pulsar:         PulsarConfig{ShotsTopic: DefaultShotsTopic},
		OpenRouter: OpenRouterConfig{
			BaseURL: "https://openrouter.ai/api/v1",
			Model:   "google/gemini-2.5-flash",
		},
		Jobs: JobsConfig{
			StaleTimeout:         time.Hour,
			PollTimeout:          30 * time.Second,
			GenerationTimeout:    5 * time.Minute,
			PromptTimeout:        60 * time.Second,
			ShotsCount:           5,
			ShotWorkers:          4,
			UploadWorkers:        10,
			DefaultVideoDuration: 6,
			MaxVideoDuration:     15,
		},
	}
}
