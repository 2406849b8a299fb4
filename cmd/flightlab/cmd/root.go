package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/san-kum/flightlab/internal/storage"
)

// settings are the CLI's own options, layered flag > env > config file.
type settings struct {
	DataDir  string `mapstructure:"data_dir"`
	LogLevel string `mapstructure:"log_level"`
	NoColor  bool   `mapstructure:"no_color"`
}

var (
	cfgFile string
	opts    settings
	logger  = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "flightlab",
	Short: "multi-agent drone racing simulator",
	Long: `flightlab flies student-written quadrotor pilots through a ring course,
one sandboxed controller per drone, and records every tick.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "cli config file (default is $HOME/.flightlab/config.yaml)")
	flags.String("data", ".flightlab", "data directory for stored runs")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Bool("no-color", false, "disable colored output")

	_ = viper.BindPFlag("data_dir", flags.Lookup("data"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("no_color", flags.Lookup("no-color"))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(exportCSVCmd)
	rootCmd.AddCommand(exportJSONCmd)
	rootCmd.AddCommand(traceCmd)
	rootCmd.AddCommand(pilotsCmd)
	rootCmd.AddCommand(presetsCmd)
	rootCmd.AddCommand(seriesCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME/.flightlab")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("FLIGHTLAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	if err := viper.Unmarshal(&opts); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cli config: %v\n", err)
	}

	color.NoColor = color.NoColor || opts.NoColor
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(opts.LogLevel),
	}))
	slog.SetDefault(logger)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func store() *storage.Store {
	return storage.New(opts.DataDir)
}
