package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ShelfScout/internal/export"
	"github.com/IshaanNene/ShelfScout/internal/monitor"
)

var (
	showJSON     bool
	exportOutput string
)

// runsCmd creates the "runs" command group.
func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List, show or delete saved runs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(false, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			infos, err := e.store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Println("No saved runs.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tRECORDS\tCREATED\tURL")
			for _, info := range infos {
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
					info.Name, info.Count, info.CreatedAt.Local().Format(time.DateTime), info.ListingURL)
			}
			return w.Flush()
		},
	}

	show := &cobra.Command{
		Use:   "show [name]",
		Short: "Print the records of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(false, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			run, err := e.store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if showJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(run)
			}
			fmt.Printf("%s  (%d records, %s)\n%s\n\n",
				run.Name, len(run.Records), run.CreatedAt.Local().Format(time.DateTime), run.ListingURL)
			printRecords(run.Records)
			return nil
		},
	}
	show.Flags().BoolVar(&showJSON, "json", false, "print the run as JSON")

	del := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(false, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted run %q\n", args[0])
			return nil
		},
	}

	diff := &cobra.Command{
		Use:   "diff [older] [newer]",
		Short: "Show rank, price and popularity changes between two runs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(false, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			older, err := e.store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			newer, err := e.store.Load(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if older.ListingURL != newer.ListingURL {
				e.logger.Warn("runs come from different listings", "older", older.ListingURL, "newer", newer.ListingURL)
			}

			changes, sum := monitor.DiffRuns(older, newer)
			if showJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{"summary": sum, "changes": changes})
			}
			for _, c := range changes {
				fmt.Println(c)
			}
			fmt.Printf("\n%d new, %d dropped, %d moved, %d repriced, %d unchanged\n",
				sum.Added, sum.Removed, sum.Moved, sum.Repriced, sum.Unchanged)
			return nil
		},
	}
	diff.Flags().BoolVar(&showJSON, "json", false, "print the diff as JSON")

	cmd.AddCommand(list, show, del, diff)
	return cmd
}

// exportCmd creates the "export" subcommand.
func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run]",
		Short: "Render a saved run as an xlsx workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(true, nil)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			run, err := e.store.Load(ctx, args[0])
			if err != nil {
				return err
			}
			data, err := e.scout.Export(ctx, run.Records)
			if err != nil {
				return err
			}

			path := exportOutput
			if path == "" {
				path = export.Filename()
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("write workbook: %w", err)
			}
			fmt.Printf("✅ Wrote %d records to %s\n", len(run.Records), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output path (default: Amazon_Top20_<id>.xlsx)")
	return cmd
}
