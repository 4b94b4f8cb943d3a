package listing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/fetcher"
	"github.com/IshaanNene/ShelfScout/internal/parser"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const listingURL = "https://www.amazon.com/gp/bestsellers/electronics"

func productBlock(i int, id string) string {
	return fmt.Sprintf(`
<div class="zg-grid-general-faceout" data-asin="%[2]s">
  <a class="a-link-normal" href="/Product-%[1]d/dp/%[2]s/ref=zg_bs_%[1]d"><img src="https://images.example.com/%[1]d.jpg" alt="Alt %[1]d"></a>
  <a class="a-link-normal" href="/Product-%[1]d/dp/%[2]s/ref=zg_bs_%[1]d"><span>Product %[1]d Widget</span></a>
  <span class="a-icon-alt">4.5 out of 5 stars</span>
  <span class="a-size-small">%[1]dK+ bought in past month</span>
  <a class="a-link-normal" href="/Product-%[1]d/dp/%[2]s"><span class="p13n-sc-price">$%[1]d.99</span></a>
  <span class="note">Typical price was $%[1]d9.99 last week</span>
</div>`, i, id)
}

func listingPage(blocks ...string) string {
	return `<html><body><div id="gridItemRoot">` + strings.Join(blocks, "\n") + `</div></body></html>`
}

func mustPage(t *testing.T, body string) *parser.Page {
	t.Helper()
	p, err := parser.ParseHTML(body, listingURL)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

func testID(i int) string { return fmt.Sprintf("B0TEST%04d", i) }

func TestExtractCapsAtTwenty(t *testing.T) {
	var blocks []string
	for i := 1; i <= 25; i++ {
		blocks = append(blocks, productBlock(i, testID(i)))
	}
	got := Extract(mustPage(t, listingPage(blocks...)), 20)

	if len(got) != 20 {
		t.Fatalf("expected 20 candidates, got %d", len(got))
	}
	for i, c := range got {
		n := i + 1
		if c.Identifier != testID(n) {
			t.Errorf("position %d: identifier %s, want %s", n, c.Identifier, testID(n))
		}
		if c.Title != fmt.Sprintf("Product %d Widget", n) {
			t.Errorf("position %d: title %q", n, c.Title)
		}
		wantURL := fmt.Sprintf("https://www.amazon.com/Product-%d/dp/%s/ref=zg_bs_%d", n, testID(n), n)
		if c.DetailURL != wantURL {
			t.Errorf("position %d: url %q, want %q", n, c.DetailURL, wantURL)
		}
		if c.Price != fmt.Sprintf("$%d.99", n) {
			t.Errorf("position %d: shortest price fragment should win, got %q", n, c.Price)
		}
		if c.Popularity != fmt.Sprintf("%dK+ bought in past month", n) {
			t.Errorf("position %d: popularity %q", n, c.Popularity)
		}
		if c.ThumbnailURL != fmt.Sprintf("https://images.example.com/%d.jpg", n) {
			t.Errorf("position %d: thumbnail %q", n, c.ThumbnailURL)
		}
	}
}

func TestExtractDeduplicatesTrackingLinks(t *testing.T) {
	dup := strings.Replace(productBlock(3, testID(2)), "ref=zg_bs_3", "ref=sspa_dk_detail_3?psc=1&spLa=tracking", -1)
	page := mustPage(t, listingPage(
		productBlock(1, testID(1)),
		productBlock(2, testID(2)),
		dup,
		productBlock(4, testID(4)),
		productBlock(5, testID(5)),
	))

	got := Extract(page, 20)
	if len(got) != 4 {
		t.Fatalf("expected 4 unique candidates, got %d", len(got))
	}

	want := []string{testID(1), testID(2), testID(4), testID(5)}
	seen := map[string]bool{}
	for i, c := range got {
		if seen[c.Identifier] {
			t.Errorf("duplicate identifier %s", c.Identifier)
		}
		seen[c.Identifier] = true
		if c.Identifier != want[i] {
			t.Errorf("position %d: got %s, want %s", i+1, c.Identifier, want[i])
		}
	}
	if got[1].Title != "Product 2 Widget" {
		t.Errorf("first occurrence should win, got title %q", got[1].Title)
	}
}

func TestExtractBlockTitleFallbacks(t *testing.T) {
	page := mustPage(t, listingPage(
		// Only a price link: its text is used as a last resort.
		`<div data-asin="B0PRICE001"><a href="/dp/B0PRICE001">$5.00</a></div>`,
		// Link without text falls back to the image alt.
		`<div data-asin="B0ALTTEXT1"><a href="/dp/B0ALTTEXT1"><img src="/i.jpg" alt="Alt Title"></a></div>`,
		// No link at all: skipped.
		`<div data-asin="B0NOLINK01"><span>Orphan</span></div>`,
		// Malformed identifier: skipped.
		`<div data-asin="short"><a href="/dp/short">Bad</a></div>`,
	))

	got := Extract(page, 20)
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(got), got)
	}
	if got[0].Title != "$5.00" {
		t.Errorf("price-only block title = %q", got[0].Title)
	}
	if got[1].Title != "Alt Title" {
		t.Errorf("alt fallback title = %q", got[1].Title)
	}
	if got[1].ThumbnailURL != "https://www.amazon.com/i.jpg" {
		t.Errorf("relative thumbnail should resolve, got %q", got[1].ThumbnailURL)
	}
}

func TestExtractLinkScanFallback(t *testing.T) {
	page := mustPage(t, `<html><body>
		<a href="/help">Help</a>
		<a href="/Echo-Dot/dp/B09B8V1LZ3/ref=zg_bs_1">Echo Dot</a>
		<a href="/gp/product/B07FZ8S74R?th=1"><img alt="Fire TV Stick"></a>
		<a href="/Echo-Dot/dp/B09B8V1LZ3?psc=1">Echo Dot again</a>
		<a href="https://www.amazon.com/exec/obidos/redirect?tag=x&asin=b0bsht9bmm" title="Kindle">   </a>
		<a href="/product-reviews/B000000000">Reviews</a>
	</body></html>`)

	got := Extract(page, 20)
	want := []struct{ id, title, url string }{
		{"B09B8V1LZ3", "Echo Dot", "https://www.amazon.com/Echo-Dot/dp/B09B8V1LZ3/ref=zg_bs_1"},
		{"B07FZ8S74R", "Fire TV Stick", "https://www.amazon.com/gp/product/B07FZ8S74R?th=1"},
		{"B0BSHT9BMM", "Kindle", "https://www.amazon.com/exec/obidos/redirect?tag=x&asin=b0bsht9bmm"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Identifier != w.id || got[i].Title != w.title || got[i].DetailURL != w.url {
			t.Errorf("position %d: got %+v, want %+v", i+1, got[i], w)
		}
		if got[i].Price != "" || got[i].ThumbnailURL != "" {
			t.Errorf("link scan should not produce listing hints: %+v", got[i])
		}
	}
}

func TestExtractLinkScanStopsAtLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&sb, `<a href="/dp/%s">Item %d</a>`, testID(i), i)
	}
	sb.WriteString("</body></html>")

	got := Extract(mustPage(t, sb.String()), 20)
	if len(got) != 20 {
		t.Fatalf("expected 20, got %d", len(got))
	}
	if got[19].Identifier != testID(20) {
		t.Errorf("last candidate = %s", got[19].Identifier)
	}
}

func TestExtractClampsLimit(t *testing.T) {
	var blocks []string
	for i := 1; i <= 40; i++ {
		blocks = append(blocks, productBlock(i, testID(i)))
	}
	page := mustPage(t, listingPage(blocks...))

	for _, limit := range []int{50, 21, 0, -3} {
		if got := Extract(page, limit); len(got) != DefaultLimit {
			t.Errorf("Extract(limit=%d): expected %d candidates, got %d", limit, DefaultLimit, len(got))
		}
	}
	if got := Extract(page, 5); len(got) != 5 {
		t.Errorf("Extract(limit=5): expected 5 candidates, got %d", len(got))
	}

	cfg := config.DefaultConfig()
	cfg.Scrape.MaxItems = 50
	if e := NewExtractor(cfg, nil, nil, testLogger); e.limit != DefaultLimit {
		t.Errorf("extractor limit = %d, want %d", e.limit, DefaultLimit)
	}
}

func TestIdentifierFromURL(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/dp/B0TEST0001", "B0TEST0001"},
		{"/x/dp/B0TEST0001/ref=abc", "B0TEST0001"},
		{"/gp/product/B0TEST0002?psc=1", "B0TEST0002"},
		{"/offer-listing?ASIN=B0TEST0003&ref=x", "B0TEST0003"},
		{"/dp/B0TEST00034", ""},
		{"/dp/b0test0001", ""},
		{"/gp/help/customer", ""},
	}
	for _, tt := range tests {
		if got := IdentifierFromURL(tt.href); got != tt.want {
			t.Errorf("IdentifierFromURL(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}

func newTestExtractor(t *testing.T) (*Extractor, fetcher.Fetcher) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Scrape.HostInterval = 0
	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	if err != nil {
		t.Fatalf("create fetcher: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return NewExtractor(cfg, fetcher.NewHostThrottle(0), nil, testLogger), f
}

func TestExtractURLResolvesAgainstFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/bestsellers", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/gp/bestsellers/pc", http.StatusFound)
	})
	mux.HandleFunc("/gp/bestsellers/pc", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(listingPage(`<div data-asin="B0TEST0001"><a href="../item/dp/B0TEST0001">Mouse</a></div>`)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	e, f := newTestExtractor(t)
	got, err := e.ExtractURL(context.Background(), f, srv.URL+"/bestsellers")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 1 || got[0].DetailURL != srv.URL+"/gp/item/dp/B0TEST0001" {
		t.Errorf("unexpected candidates %+v", got)
	}
}

func TestExtractURLSurfacesFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e, f := newTestExtractor(t)
	_, err := e.ExtractURL(context.Background(), f, srv.URL)
	if err == nil {
		t.Fatal("expected listing fetch failure to be surfaced")
	}
	var fetchErr *types.FetchError
	if !errors.As(err, &fetchErr) || fetchErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected FetchError with status 503, got %v", err)
	}
	if e.metrics.ListingFailures.Load() != 1 {
		t.Errorf("listing failure not counted")
	}
}
