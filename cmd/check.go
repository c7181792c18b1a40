package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mysql2ch/internal/engine"
	"mysql2ch/internal/mapping"
	"mysql2ch/internal/source"
	"mysql2ch/internal/target"
	"mysql2ch/internal/typemap"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show the migration plan without writing anything",
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

		myCfg, err := loadMySQLConfig()
		if err != nil {
			return err
		}
		chCfg, err := loadClickHouseConfig()
		if err != nil {
			return err
		}

		ctx := context.Background()

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

		fmt.Printf("🔍 Migration plan (%d mapping files):\n", len(files))
		for i, file := range files {
			tm, err := mapping.LoadFile(file)
			if err != nil {
				fmt.Printf("[%02d] %s: INVALID (%v)\n", i+1, file, err)
				continue
			}

			fmt.Printf("[%02d] %s -> %s\n", i+1, tm.SourceTable, tm.TargetTable)

			rows, err := src.RowCount(ctx, tm.SourceTable)
			if err != nil {
				fmt.Printf("     source: UNREADABLE (%v)\n", err)
				continue
			}
			fmt.Printf("     source: %d rows\n", rows)

			cols, err := src.Columns(ctx, tm.SourceTable)
			if err != nil {
				fmt.Printf("     columns: UNREADABLE (%v)\n", err)
				continue
			}
			mapped := 0
			for _, col := range cols {
				tgtName, ok := tm.Target(col.Name)
				if !ok {
					fmt.Printf("     %-24s %-20s -> [skipped]\n", col.Name, col.RawType)
					continue
				}
				mapped++
				t := typemap.Map(col.RawType)
				fmt.Printf("     %-24s %-20s -> %s %s\n", col.Name, col.RawType, tgtName, t.Name)
			}
			fmt.Printf("     mapped columns: %d of %d\n", mapped, len(cols))

			if tgt.Exists(ctx, tm.TargetTable) {
				tgtRows, _ := tgt.RowCount(ctx, tm.TargetTable)
				action := "recreate"
				if settings.SkipExistingTables {
					action = "skip"
				} else if !settings.AutoRecreateTable {
					action = "create (will fail: table exists)"
				}
				fmt.Printf("     target exists: %d rows, policy: %s\n", tgtRows, action)
				if existing, err := tgt.Describe(ctx, tm.TargetTable); err == nil {
					for _, col := range existing {
						fmt.Printf("       existing: %-24s %s\n", col.Name, col.RawType)
					}
				}
			} else {
				fmt.Printf("     target absent: will create\n")
			}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(checkCmd)
}
