package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var RootCmd = &cobra.Command{
	Use:   "mysql2ch",
	Short: "Migrate MySQL tables into ClickHouse",
	Long: `mysql2ch streams MySQL tables into ClickHouse.

Column renames come from per-table mapping files named
<source_table>-<target_table>.csv; column types are translated
automatically and the target table is created with the first mapped
column as its ordering key.`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./mysql2ch.yaml)")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	RootCmd.PersistentFlags().String("mapping-dir", "", "directory of mapping CSV files")
	RootCmd.PersistentFlags().Int("batch-size", 0, "rows per insert batch")
	viper.BindPFlag("settings.mapping_dir", RootCmd.PersistentFlags().Lookup("mapping-dir"))
	viper.BindPFlag("settings.batch_size", RootCmd.PersistentFlags().Lookup("batch-size"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Executable directory first, then the working directory.
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("mysql2ch")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the logger handed to every component that reports
// diagnostics. Coercion degradations log at warn; per-batch detail at debug.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
