package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mysql2ch/internal/seed"
	"mysql2ch/internal/source"
)

var (
	seedTable string
	seedRows  int
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill a source MySQL table with fake rows for testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()

		if seedTable == "" {
			return fmt.Errorf("--table is required")
		}

		myCfg, err := loadMySQLConfig()
		if err != nil {
			return err
		}
		src, err := source.Connect(myCfg, log)
		if err != nil {
			return err
		}
		defer src.Close()

		ctx := context.Background()
		inserted, err := seed.Fill(ctx, src, seedTable, seedRows, log)
		if err != nil {
			return err
		}
		fmt.Printf("Seeded %d rows into %s\n", inserted, seedTable)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVarP(&seedTable, "table", "t", "", "source table to seed")
	seedCmd.Flags().IntVarP(&seedRows, "rows", "n", 100, "number of fake rows to insert")
}
