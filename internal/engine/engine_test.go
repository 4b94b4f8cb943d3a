package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/fetcher"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func testID(i int) string { return fmt.Sprintf("B0TEST%04d", i) }

func block(i int, id string, withPrice bool) string {
	price := ""
	if withPrice {
		price = fmt.Sprintf(`<span class="p13n-sc-price">$%d.99</span>`, i)
	}
	return fmt.Sprintf(`
<div data-asin="%[2]s">
  <a href="/Item-%[1]d/dp/%[2]s/ref=zg_bs_%[1]d"><img src="https://thumbs.example.com/%[2]s.jpg" alt="Item %[1]d"></a>
  <a href="/Item-%[1]d/dp/%[2]s/ref=zg_bs_%[1]d"><span>Item %[1]d Gadget</span></a>
  %[3]s
</div>`, i, id, price)
}

// site serves one listing page at /bestsellers and detail pages at /.../dp/<id>.
type site struct {
	listing     string
	listingCode int
	noPrice     map[string]bool
	missing     map[string]bool
	detailCalls atomic.Int32
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/bestsellers" {
		if s.listingCode != 0 {
			http.Error(w, "unavailable", s.listingCode)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, s.listing)
		return
	}

	idx := strings.Index(r.URL.Path, "/dp/")
	if idx < 0 || len(r.URL.Path) < idx+14 {
		http.NotFound(w, r)
		return
	}
	id := r.URL.Path[idx+4 : idx+14]
	s.detailCalls.Add(1)
	if s.missing[id] {
		http.NotFound(w, r)
		return
	}

	price := `<div id="corePrice_feature_div"><span class="a-offscreen">$29.99</span></div>`
	if s.noPrice[id] {
		price = ""
	}
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<html><head><meta property="og:image" content="https://img.example.com/%[1]s.jpg"></head>
<body>%[2]s<div id="social-proofing">5K+ bought in past month</div></body></html>`, id, price)
}

func newTestEngine(t *testing.T) (*Engine, *int) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Scrape.HostInterval = 0
	cfg.Scrape.BackoffMin = 0
	cfg.Scrape.BackoffMax = 0

	e := New(cfg, testLogger, nil)
	sleeps := 0
	e.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return ctx.Err()
	}
	return e, &sleeps
}

func serve(t *testing.T, s *site) string {
	t.Helper()
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return srv.URL + "/bestsellers"
}

func listingOf(blocks ...string) string {
	return "<html><body>" + strings.Join(blocks, "\n") + "</body></html>"
}

func TestBuildRecordsCapsAtTwenty(t *testing.T) {
	var blocks []string
	for i := 1; i <= 25; i++ {
		blocks = append(blocks, block(i, testID(i), true))
	}
	s := &site{listing: listingOf(blocks...)}
	e, sleeps := newTestEngine(t)

	records, err := e.BuildRecords(context.Background(), RunContext{ListingURL: serve(t, s)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 20 {
		t.Fatalf("expected 20 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.Rank != i+1 {
			t.Errorf("record %d has rank %d", i, rec.Rank)
		}
		if rec.Identifier != testID(i+1) {
			t.Errorf("rank %d: expected %s, got %s", i+1, testID(i+1), rec.Identifier)
		}
		if rec.Price != "$29.99" {
			t.Errorf("rank %d: detail price should win, got %q", i+1, rec.Price)
		}
		if rec.ImageURL != "https://img.example.com/"+rec.Identifier+".jpg" {
			t.Errorf("rank %d: unexpected image %q", i+1, rec.ImageURL)
		}
		if rec.Popularity != "5K+ bought in past month" {
			t.Errorf("rank %d: unexpected popularity %q", i+1, rec.Popularity)
		}
		if rec.CatalogSKU != "" || rec.Notes != "" {
			t.Errorf("rank %d: manual fields must start empty", i+1)
		}
	}
	if got := s.detailCalls.Load(); got != 20 {
		t.Errorf("expected 20 detail fetches, got %d", got)
	}
	if *sleeps != 19 {
		t.Errorf("expected a delay between items only, got %d sleeps", *sleeps)
	}
	if e.Metrics().RecordsBuilt.Load() != 20 {
		t.Errorf("records built counter = %d", e.Metrics().RecordsBuilt.Load())
	}
}

func TestBuildRecordsDeduplicates(t *testing.T) {
	s := &site{listing: listingOf(
		block(1, testID(1), true),
		block(2, testID(2), true),
		block(3, testID(1), true),
		block(4, testID(3), true),
		block(5, testID(4), true),
	)}
	e, _ := newTestEngine(t)

	records, err := e.BuildRecords(context.Background(), RunContext{ListingURL: serve(t, s)})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	want := []string{testID(1), testID(2), testID(3), testID(4)}
	for i, rec := range records {
		if rec.Identifier != want[i] || rec.Rank != i+1 {
			t.Errorf("position %d: got rank %d id %s", i, rec.Rank, rec.Identifier)
		}
	}
}

func TestBuildRecordsMissingPrice(t *testing.T) {
	s := &site{
		listing: listingOf(block(1, testID(1), false)),
		noPrice: map[string]bool{testID(1): true},
	}
	e, _ := newTestEngine(t)

	records, err := e.BuildRecords(context.Background(), RunContext{ListingURL: serve(t, s)})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Price != "" {
		t.Errorf("expected empty price, got %q", records[0].Price)
	}
	if records[0].ImageURL == "" {
		t.Error("image should still resolve")
	}
}

func TestBuildRecordsKeepsFailedDetail(t *testing.T) {
	s := &site{
		listing: listingOf(block(1, testID(1), true), block(2, testID(2), true), block(3, testID(3), true)),
		missing: map[string]bool{testID(2): true},
	}
	e, _ := newTestEngine(t)

	records, err := e.BuildRecords(context.Background(), RunContext{ListingURL: serve(t, s)})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("failed detail page must not drop the record, got %d", len(records))
	}

	rec := records[1]
	if rec.Rank != 2 || rec.Identifier != testID(2) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Price != "$2.99" {
		t.Errorf("listing price hint should fill the gap, got %q", rec.Price)
	}
	if rec.ImageURL != "https://thumbs.example.com/"+testID(2)+".jpg" {
		t.Errorf("listing thumbnail should fill the gap, got %q", rec.ImageURL)
	}
	// 1 + 3 attempts + 1
	if got := s.detailCalls.Load(); got != 5 {
		t.Errorf("expected 5 detail requests, got %d", got)
	}
}

func TestBuildRecordsListingFailure(t *testing.T) {
	s := &site{listingCode: http.StatusServiceUnavailable}
	e, _ := newTestEngine(t)

	records, err := e.BuildRecords(context.Background(), RunContext{ListingURL: serve(t, s)})
	if err == nil {
		t.Fatal("expected listing failure to propagate")
	}
	var fe *types.FetchError
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected FetchError 503, got %v", err)
	}
	if records != nil {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestBuildRecordsEmptyListing(t *testing.T) {
	s := &site{listing: "<html><body><p>nothing here</p></body></html>"}
	e, _ := newTestEngine(t)

	records, err := e.BuildRecords(context.Background(), RunContext{ListingURL: serve(t, s)})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestBuildRecordsCancelled(t *testing.T) {
	var blocks []string
	for i := 1; i <= 5; i++ {
		blocks = append(blocks, block(i, testID(i), true))
	}
	s := &site{listing: listingOf(blocks...)}
	e, _ := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var progress []int
	records, err := e.BuildRecords(ctx, RunContext{
		ListingURL: serve(t, s),
		Progress: func(done, total int) {
			progress = append(progress, done)
			if total != 5 {
				t.Errorf("expected total 5, got %d", total)
			}
			if done == 2 {
				cancel()
			}
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected the 2 finished records, got %d", len(records))
	}
	if len(progress) != 2 || progress[0] != 1 || progress[1] != 2 {
		t.Errorf("unexpected progress %v", progress)
	}
}

type countingFetcher struct {
	fetcher.Fetcher
	fetches atomic.Int32
	closed  atomic.Bool
}

func (c *countingFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	c.fetches.Add(1)
	return c.Fetcher.Fetch(ctx, req)
}

func (c *countingFetcher) Close() error {
	c.closed.Store(true)
	return c.Fetcher.Close()
}

func TestBuildRecordsOwnsSessionWhenNil(t *testing.T) {
	s := &site{listing: listingOf(block(1, testID(1), true), block(2, testID(2), true))}
	e, _ := newTestEngine(t)

	var created []*countingFetcher
	e.SetFetcherFactory(func() (fetcher.Fetcher, error) {
		f, err := fetcher.NewHTTPFetcher(e.cfg, testLogger)
		if err != nil {
			return nil, err
		}
		cf := &countingFetcher{Fetcher: f}
		created = append(created, cf)
		return cf, nil
	})

	if _, err := e.BuildRecords(context.Background(), RunContext{ListingURL: serve(t, s)}); err != nil {
		t.Fatal(err)
	}
	if len(created) != 1 {
		t.Fatalf("expected one session per run, got %d", len(created))
	}
	if got := created[0].fetches.Load(); got != 3 {
		t.Errorf("expected listing + 2 details on one session, got %d", got)
	}
	if !created[0].closed.Load() {
		t.Error("engine-created session should be closed after the run")
	}
}

func TestBuildRecordsCallerSessionNotClosed(t *testing.T) {
	s := &site{listing: listingOf(block(1, testID(1), true))}
	e, _ := newTestEngine(t)

	f, err := fetcher.NewHTTPFetcher(e.cfg, testLogger)
	if err != nil {
		t.Fatal(err)
	}
	cf := &countingFetcher{Fetcher: f}
	defer cf.Close()

	if _, err := e.BuildRecords(context.Background(), RunContext{ListingURL: serve(t, s), Session: cf}); err != nil {
		t.Fatal(err)
	}
	if cf.closed.Load() {
		t.Error("caller-owned session must stay open")
	}
}

func TestBuildRecordsRejectsOverlappingRun(t *testing.T) {
	e, _ := newTestEngine(t)
	e.state.Store(int32(StateRunning))

	_, err := e.BuildRecords(context.Background(), RunContext{ListingURL: "https://example.com/bestsellers"})
	if !errors.Is(err, types.ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}
}

func TestBuildRecordsInvalidURL(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.BuildRecords(context.Background(), RunContext{ListingURL: "not a url"})
	if !errors.Is(err, types.ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
	if e.GetState() != StateIdle {
		t.Errorf("engine should return to idle, got %s", e.GetState())
	}
}
