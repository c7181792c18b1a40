package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"mysql2ch/internal/engine"
	"mysql2ch/internal/mapping"
	"mysql2ch/internal/schema"
	"mysql2ch/internal/source"
	"mysql2ch/internal/target"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Migrate every table with a mapping file",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		settings, err := loadSettings()
		if err != nil {
			return err
		}

		files, err := mappingFiles(settings)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No mapping files found in", settings.MappingDir)
			return nil
		}
		fmt.Printf("Found %d mapping files in %s\n", len(files), settings.MappingDir)

		myCfg, err := loadMySQLConfig()
		if err != nil {
			return err
		}
		chCfg, err := loadClickHouseConfig()
		if err != nil {
			return err
		}

		// A connection that cannot be established aborts the run; there is
		// nothing per-table recovery could do about it.
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		src, err := source.Connect(myCfg, log)
		if err != nil {
			return &engine.ConnectionError{System: "mysql", Err: err}
		}
		defer src.Close()

		tgt, err := target.Connect(ctx, chCfg, log)
		if err != nil {
			return &engine.ConnectionError{System: "clickhouse", Err: err}
		}
		defer tgt.Close()

		m := engine.New(src, tgt, log, engine.Options{
			BatchSize:    settings.BatchSize,
			AutoRecreate: settings.AutoRecreateTable,
			SkipExisting: settings.SkipExistingTables,
		})

		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(len(files)).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Migrating: "
		})

		results := m.Run(ctx, files, func(schema.MigrationResult) {
			bar.Incr()
		})

		uiprogress.Stop()

		printSummary(results, time.Since(start))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(runCmd)
}

// mappingFiles lists the run's mapping files, dropping those whose source
// table is on the ignore list.
func mappingFiles(settings Settings) ([]string, error) {
	files, err := mapping.LoadDir(settings.MappingDir)
	if err != nil {
		return nil, err
	}
	if len(settings.IgnoreTables) == 0 {
		return files, nil
	}
	ignored := make(map[string]bool, len(settings.IgnoreTables))
	for _, t := range settings.IgnoreTables {
		ignored[strings.ToLower(strings.TrimSpace(t))] = true
	}
	var kept []string
	for _, f := range files {
		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		srcTable, _, _ := strings.Cut(stem, "-")
		if ignored[strings.ToLower(srcTable)] {
			fmt.Printf("Skipping ignored table: %s\n", srcTable)
			continue
		}
		kept = append(kept, f)
	}
	return kept, nil
}

func printSummary(results []schema.MigrationResult, elapsed time.Duration) {
	fmt.Println("\n📊 Migration Summary:")

	passed := 0
	for i, r := range results {
		icon := "✓"
		status := "PASS"
		if !r.Success {
			icon = "✗"
			status = "FAIL"
		} else {
			passed++
		}
		pair := r.SourceTable
		if r.TargetTable != "" {
			pair = r.SourceTable + " -> " + r.TargetTable
		}
		fmt.Printf("[%s] [%02d/%02d] %-40s : %s (mysql %d rows, clickhouse %d rows, %.2fs)\n",
			icon, i+1, len(results), pair, status,
			r.SourceRows, r.TargetRows, r.Elapsed.Seconds())
		if r.SourceRows != r.TargetRows && r.Success {
			fmt.Printf("    └ Row counts diverge; review before relying on this table.\n")
		}
		if r.ErrorMsg != "" {
			fmt.Printf("    └ Error: %s\n", firstLine(r.ErrorMsg))
		}
	}
	fmt.Println("--------------------------------------------------")
	fmt.Printf("Tables: %d, Passed: %d, Failed: %d\n", len(results), passed, len(results)-passed)
	fmt.Printf("Time Elapsed: %s\n", elapsed.Round(time.Millisecond))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
