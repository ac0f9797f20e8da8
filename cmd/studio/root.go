package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	db "github.com/cozy-creator/influencer-studio/cmd/studio/db"
	jobs "github.com/cozy-creator/influencer-studio/cmd/studio/jobs"
	run "github.com/cozy-creator/influencer-studio/cmd/studio/run"
	"github.com/cozy-creator/influencer-studio/internal/config"
)

const studioPrefix = "STUDIO"

var Cmd = &cobra.Command{
	Use:   "studio",
	Short: "AI Influencer Studio server",
	Long:  "Runs the influencer studio API: characters, media history and asynchronous image and video generation jobs",

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix(studioPrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(
			`-`, `_`,
			`.`, `_`,
		))
		viper.AutomaticEnv()

		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		return config.LoadEnvAndConfigFiles()
	},
}

func Execute() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()

	pflags.String("config-file", "", "Path to the config file")
	pflags.String("env-file", "", "Path to the env file")

	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))

	bindEnvs()

	Cmd.AddCommand(run.Cmd, db.Cmd, jobs.Cmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}

func bindEnvs() {
	// Core settings use the STUDIO_ prefix, e.g. STUDIO_DB_DSN
	for _, key := range []string{
		"port", "host", "environment", "public_url", "public_dir", "disable_auth",
		"assets_dir", "filesystem_type",
		"db.driver", "db.dsn", "db.debug",
		"pulsar.url", "pulsar.shots_topic",
		"s3.access_key", "s3.secret_key", "s3.region_name", "s3.bucket_name",
		"s3.folder", "s3.public_url", "s3.endpoint_url",
		"webhook.secret",
		"jobs.stale_timeout", "jobs.poll_timeout", "jobs.shots_count", "jobs.shot_workers",
	} {
		viper.BindEnv(key)
	}

	// External services keep their conventional names
	viper.BindEnv("fal.api_key", "FAL_KEY")
	viper.BindEnv("xai.api_key", "XAI_API_KEY")
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	viper.BindEnv("auth.jwt_secret", "SUPABASE_JWT_SECRET")
	viper.BindEnv("auth.supabase_url", "SUPABASE_URL")
	viper.BindEnv("auth.supabase_anon_key", "SUPABASE_ANON_KEY")
}
