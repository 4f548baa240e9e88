package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"referral-engine/internal/config"
)

const envPrefix = "REFERRALS"

// options is shared by every subcommand. Values resolve in this order:
// flag, REFERRALS_* environment (a .env file is loaded first), config file,
// built-in default.
type options struct {
	cfgPath string
	v       *viper.Viper
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{v: viper.New()})
}

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "engine",
		Short: "Extract service referrals from exported chat transcripts",
		Long: `engine scans exported chat transcripts for messages that recommend a
business or contact, and saves them as JSON and CSV files that can be searched
from the command line or over HTTP.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Silently ignore a missing .env file
			_ = godotenv.Load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.cfgPath, "config", "config.yml", "Config file (YAML)")
	pf.String("input-dir", "", "Folder scanned for transcripts")
	pf.String("output-dir", "", "Folder for JSON and CSV referral files")
	pf.String("log-level", "", `Log level: "debug", "info", "warn" or "error"`)
	pf.String("log-format", "", `Log format: "console" or "json"`)
	_ = o.v.BindPFlag("folders.input_dir", pf.Lookup("input-dir"))
	_ = o.v.BindPFlag("folders.output_dir", pf.Lookup("output-dir"))
	_ = o.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = o.v.BindPFlag("log.format", pf.Lookup("log-format"))

	o.v.SetEnvPrefix(envPrefix)
	o.v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))
	o.v.AutomaticEnv()

	root.AddCommand(
		newIngestCmd(o),
		newSearchCmd(o),
		newServeCmd(o),
		newInitCmd(o),
		newVersionCmd(),
	)
	return root
}

// load reads the config file and applies flag and environment overrides.
func (o *options) load() (config.Config, config.Validation, error) {
	cfg, err := config.LoadOrDefault(o.cfgPath)
	if err != nil {
		return cfg, config.Validation{}, fmt.Errorf("load config %s: %w", o.cfgPath, err)
	}
	o.applyOverrides(&cfg)

	cfg, vr := config.NormalizeAndValidate(cfg)
	if !vr.OK() {
		return cfg, vr, errors.New("invalid config:\n- " + strings.Join(vr.Errors, "\n- "))
	}
	return cfg, vr, nil
}

func (o *options) applyOverrides(cfg *config.Config) {
	v := o.v
	if v.IsSet("app.host") {
		cfg.App.Host = v.GetString("app.host")
	}
	if v.IsSet("app.port") {
		cfg.App.Port = v.GetInt("app.port")
	}
	if v.IsSet("folders.input_dir") {
		cfg.Folders.InputDir = v.GetString("folders.input_dir")
	}
	if v.IsSet("folders.output_dir") {
		cfg.Folders.OutputDir = v.GetString("folders.output_dir")
	}
	if v.IsSet("folders.extension") {
		cfg.Folders.Extension = v.GetString("folders.extension")
	}
	if v.IsSet("polling.interval_seconds") {
		cfg.Polling.IntervalSeconds = v.GetInt("polling.interval_seconds")
	}
	if v.IsSet("polling.watch") {
		cfg.Polling.Watch = v.GetBool("polling.watch")
	}
	if v.IsSet("upload.max_bytes") {
		cfg.Upload.MaxBytes = v.GetInt64("upload.max_bytes")
	}
	if v.IsSet("upload.rate_per_sec") {
		cfg.Upload.RatePerSec = v.GetFloat64("upload.rate_per_sec")
	}
	if v.IsSet("upload.burst") {
		cfg.Upload.Burst = v.GetInt("upload.burst")
	}
	if v.IsSet("search.cache_size") {
		cfg.Search.CacheSize = v.GetInt("search.cache_size")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}
}
