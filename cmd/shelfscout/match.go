package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ShelfScout/internal/types"
)

var (
	matchLimit int
	matchRun   string
	matchRank  int
	matchPick  int
)

// matchCmd creates the "match" subcommand.
func matchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match [query]",
		Short: "Search the catalog for a product title or SKU",
		Long: `Search the second retailer's catalog and print ranked candidates.

With --run and --rank the query defaults to that record's title, and --pick N
copies the Nth candidate into the record's catalog fields and saves the run.`,
		RunE: runMatch,
	}

	cmd.Flags().IntVarP(&matchLimit, "limit", "l", 0, "maximum candidates (0 = config default)")
	cmd.Flags().StringVar(&matchRun, "run", "", "saved run to annotate")
	cmd.Flags().IntVar(&matchRank, "rank", 0, "record rank within --run")
	cmd.Flags().IntVar(&matchPick, "pick", 0, "apply candidate N (1-based) to the record")

	return cmd
}

func runMatch(cmd *cobra.Command, args []string) error {
	if (matchRun == "") != (matchRank == 0) {
		return fmt.Errorf("--run and --rank must be used together")
	}
	if matchPick > 0 && matchRun == "" {
		return fmt.Errorf("--pick needs --run and --rank")
	}

	e, err := setup(true, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var run *types.Run
	var rec *types.ProductRecord
	if matchRun != "" {
		if run, err = e.store.Load(ctx, matchRun); err != nil {
			return err
		}
		if rec, err = run.Record(matchRank); err != nil {
			return fmt.Errorf("run %q rank %d: %w", matchRun, matchRank, err)
		}
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" && rec != nil {
		query = rec.Title
	}
	if query == "" {
		return fmt.Errorf("a query or --run/--rank is required")
	}

	limit := matchLimit
	if limit <= 0 {
		limit = e.cfg.Catalog.DefaultLimit
	}

	candidates := e.scout.Match(ctx, query, limit)
	if len(candidates) == 0 {
		fmt.Printf("No catalog matches for %q\n", query)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSKU\tSCORE\tPRICE\tLIST\tTITLE")
	for i, c := range candidates {
		score := fmt.Sprintf("%.2f", c.MatchScore)
		if c.ExactMatch {
			score = "exact"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			i+1, c.CatalogIdentifier, score, orDash(c.CurrentPrice), orDash(c.ListPrice), truncate(c.CatalogTitle, 70))
	}
	w.Flush()

	if matchPick == 0 {
		return nil
	}
	if matchPick > len(candidates) {
		return fmt.Errorf("--pick %d out of range (1-%d)", matchPick, len(candidates))
	}

	rec.ApplyCatalog(candidates[matchPick-1])
	if err := e.store.Save(ctx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	fmt.Printf("\n✅ Rank %d in %q now matched to SKU %s (retail %s)\n",
		rec.Rank, run.Name, rec.CatalogSKU, orDash(rec.CatalogRetail))
	return nil
}
