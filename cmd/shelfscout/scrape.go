package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/types"
	"github.com/IshaanNene/ShelfScout/pkg/shelfscout"
)

var (
	scrapeName     string
	scrapeDelayMin string
	scrapeDelayMax string
	scrapeMaxItems int
	scrapeXLSX     string
	scrapeFormat   string
)

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [url]",
		Short: "Build a ranked run from a best-sellers page",
		Long: `Fetch a best-sellers listing, resolve price, image and popularity for up to
max-items products, and save the result as a named run.`,
		Args: cobra.ExactArgs(1),
		RunE: runScrape,
	}

	cmd.Flags().StringVar(&scrapeName, "name", "", "run name (default: run-<timestamp>)")
	cmd.Flags().StringVar(&scrapeDelayMin, "delay-min", "", "minimum pause between detail pages, e.g. 1s")
	cmd.Flags().StringVar(&scrapeDelayMax, "delay-max", "", "maximum pause between detail pages, e.g. 3s")
	cmd.Flags().IntVarP(&scrapeMaxItems, "max-items", "m", 0, "number of ranked products to keep, 1-20 (0 = config default)")
	cmd.Flags().StringVar(&scrapeXLSX, "xlsx", "", "also write the workbook to this path")
	cmd.Flags().StringVarP(&scrapeFormat, "format", "f", "table", "output format: table, json")

	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	listingURL := args[0]
	if err := config.ValidateURL(listingURL); err != nil {
		return fmt.Errorf("invalid URL %q: %w", listingURL, err)
	}
	if scrapeFormat != "table" && scrapeFormat != "json" {
		return fmt.Errorf("unknown format %q (valid: table, json)", scrapeFormat)
	}

	e, err := setup(true, func(cfg *config.Config) error {
		var err error
		if cfg.Scrape.DelayMin, err = parseDelay(scrapeDelayMin, cfg.Scrape.DelayMin); err != nil {
			return err
		}
		if cfg.Scrape.DelayMax, err = parseDelay(scrapeDelayMax, cfg.Scrape.DelayMax); err != nil {
			return err
		}
		// A lone --delay-min above the configured max widens the range.
		if cfg.Scrape.DelayMax < cfg.Scrape.DelayMin && scrapeDelayMax == "" {
			cfg.Scrape.DelayMax = cfg.Scrape.DelayMin
		}
		if scrapeMaxItems > 0 {
			cfg.Scrape.MaxItems = scrapeMaxItems
		}
		return nil
	})
	if err != nil {
		return err
	}
	defer e.Close()

	name := scrapeName
	if name == "" {
		name = "run-" + time.Now().Format("20060102-150405")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e.logger.Info("starting scrape",
		"url", listingURL,
		"name", name,
		"max_items", e.cfg.Scrape.MaxItems,
		"delay_min", e.cfg.Scrape.DelayMin,
		"delay_max", e.cfg.Scrape.DelayMax,
	)

	start := time.Now()
	records, err := e.scout.Scrape(ctx, listingURL, func(done, total int) {
		fmt.Fprintf(os.Stderr, "\r   Resolving details: %d/%d", done, total)
		if done == total {
			fmt.Fprintln(os.Stderr)
		}
	})
	if err != nil && len(records) == 0 {
		return fmt.Errorf("scrape: %w", err)
	}
	if err != nil {
		// Interrupted: keep what was built so far.
		fmt.Fprintln(os.Stderr)
		e.logger.Warn("scrape interrupted, saving partial run", "records", len(records), "error", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("%s: %w", listingURL, types.ErrNoCandidates)
	}

	run := types.NewRun(name, listingURL, records)
	saveCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := e.store.Save(saveCtx, run); err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	if scrapeXLSX != "" {
		data, err := e.scout.Export(saveCtx, records)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		if err := os.WriteFile(scrapeXLSX, data, 0o644); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
	}

	if scrapeFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	}

	printRecords(records)
	stats := e.scout.Metrics().Snapshot()
	fmt.Printf("\n✅ Scrape complete in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Run:       %s (%s)\n", run.Name, run.ID)
	fmt.Printf("   Records:   %d built, %v dropped\n", len(records), stats["records_dropped"])
	fmt.Printf("   Details:   %v fetched, %v failed\n", stats["detail_fetches"], stats["detail_failures"])
	fmt.Printf("   Storage:   %s\n", e.store.Name())
	if scrapeXLSX != "" {
		fmt.Printf("   Workbook:  %s\n", scrapeXLSX)
	}
	return nil
}

// printRecords writes a ranked table of records to stdout.
func printRecords(records []shelfscout.Record) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tASIN\tPRICE\tPOPULARITY\tTITLE\tMC SKU")
	for _, r := range records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Rank, r.Identifier, orDash(r.Price), orDash(r.Popularity), truncate(r.Title, 60), orDash(r.CatalogSKU))
	}
	w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-1]) + "…"
}
