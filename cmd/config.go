package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"mysql2ch/internal/source"
	"mysql2ch/internal/target"
)

// Settings is the run-level configuration block. Table-pair specifics live
// in the mapping files, never here.
type Settings struct {
	BatchSize          int      `mapstructure:"batch_size"`
	AutoRecreateTable  bool     `mapstructure:"auto_recreate_table"`
	SkipExistingTables bool     `mapstructure:"skip_existing_tables"`
	MappingDir         string   `mapstructure:"mapping_dir"`
	IgnoreTables       []string `mapstructure:"ignore_tables"`
}

func setDefaults() {
	viper.SetDefault("settings.batch_size", 1000)
	viper.SetDefault("settings.auto_recreate_table", true)
	viper.SetDefault("settings.skip_existing_tables", false)
	viper.SetDefault("settings.mapping_dir", "./mappings")
	viper.SetDefault("mysql.port", 3306)
	viper.SetDefault("mysql.charset", "utf8mb4")
	viper.SetDefault("clickhouse.port", 9000)
}

func loadSettings() (Settings, error) {
	var s Settings
	if err := viper.UnmarshalKey("settings", &s); err != nil {
		return s, fmt.Errorf("parse settings config: %w", err)
	}
	return s, nil
}

func loadMySQLConfig() (source.Config, error) {
	var c source.Config
	if err := viper.UnmarshalKey("mysql", &c); err != nil {
		return c, fmt.Errorf("parse mysql config: %w", err)
	}
	if c.Host == "" || c.Database == "" {
		return c, fmt.Errorf("mysql.host and mysql.database are required (via config file)")
	}
	return c, nil
}

func loadClickHouseConfig() (target.Config, error) {
	var c target.Config
	if err := viper.UnmarshalKey("clickhouse", &c); err != nil {
		return c, fmt.Errorf("parse clickhouse config: %w", err)
	}
	if c.Host == "" || c.Database == "" {
		return c, fmt.Errorf("clickhouse.host and clickhouse.database are required (via config file)")
	}
	return c, nil
}
