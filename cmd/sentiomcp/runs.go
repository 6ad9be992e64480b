package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sentiomcp/internal/db"
	"sentiomcp/internal/history"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "Show recorded example runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.History.Path == "" {
			return errors.New("run history is disabled; set history.path in the config")
		}

		database, err := db.Open(ctx, cfg.History.Path)
		if err != nil {
			return fmt.Errorf("opening history: %w", err)
		}
		defer database.Close()
		store := history.NewStore(database)

		enc := json.NewEncoder(os.Stdout)
		if len(args) == 1 {
			run, err := store.Get(ctx, args[0])
			if err != nil {
				return err
			}
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}

		runs, err := store.List(ctx, runsLimit)
		if err != nil {
			return err
		}
		for _, r := range runs {
			status := "ok"
			if r.Error != "" {
				status = "error: " + r.Error
			}
			fmt.Printf("%s  %s  %-24s %8s  %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.ID, r.Model, r.Duration().Round(time.Millisecond), status)
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "number of runs to list")
}
