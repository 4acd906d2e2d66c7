// Package cli implements the linebroad CLI commands.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rcliao/linebroad/internal/config"
	"github.com/rcliao/linebroad/internal/logging"
	"github.com/rcliao/linebroad/internal/model"
	"github.com/rcliao/linebroad/internal/species"
	"github.com/rcliao/linebroad/internal/store"
)

var (
	dbPath     string
	formatFlag string
	configPath string

	// resolved in PersistentPreRun
	settings *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "linebroad",
	Short: "Pressure-broadening and shift parameters for HITRAN line lists",
	Long: "Appends He-, H2- and CO2-broadening coefficients, temperature-dependence exponents and " +
		"pressure shifts, with uncertainty and reference codes, to HITRAN 160-character .par files.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := setup(cmd); err != nil {
			exitErr("config", err)
		}
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Run ledger path (default: $LINEBROAD_DB or ~/.linebroad/runs.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Output format: text, json or yaml")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $LINEBROAD_CONFIG or ~/.linebroad/config.toml)")
	RootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	RootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON")
}

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	config.KeyDB:              "db",
	config.KeyLogLevel:        "log-level",
	config.KeyLogJSON:         "log-json",
	config.KeyWorkers:         "workers",
	config.KeyOnUnknownBranch: "on-unknown-branch",
	config.KeyModels:          "models",
}

func setup(cmd *cobra.Command) error {
	switch formatFlag {
	case "text", "json", "yaml":
	default:
		return errors.WithHint(errors.Newf("unknown format %q", formatFlag), "use text, json or yaml")
	}

	v, err := config.New(configPath)
	if err != nil {
		return err
	}
	bindFlags(v, cmd.Flags())

	c, err := config.LoadWithViper(v)
	if err != nil {
		return err
	}
	settings = c

	return logging.Initialize(logging.Options{Level: c.Log.Level, JSON: c.Log.JSON})
}

// bindFlags lets explicitly set flags win over file and environment values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	for key, name := range flagKeys {
		if f := flags.Lookup(name); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}
	if f := flags.Lookup("no-record"); f != nil && f.Changed && f.Value.String() == "true" {
		v.Set(config.KeyRecord, false)
	}
}

func getDBPath() string {
	if settings != nil && settings.DB != "" {
		return settings.DB
	}
	if dbPath != "" {
		return dbPath
	}
	return config.DefaultDB()
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(getDBPath())
}

func loadCatalog() (*model.Catalog, error) {
	if settings != nil && settings.Models != "" {
		return species.LoadFile(settings.Models)
	}
	return species.Builtin()
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	for _, h := range errors.GetAllHints(err) {
		fmt.Fprintf(os.Stderr, "hint: %s\n", strings.TrimSpace(h))
	}
	logging.Logger.Sync()
	os.Exit(1)
}
