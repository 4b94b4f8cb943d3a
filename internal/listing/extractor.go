// Package listing turns a best-sellers category page into an ordered,
// de-duplicated set of product candidates.
package listing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/fetcher"
	"github.com/IshaanNene/ShelfScout/internal/observability"
	"github.com/IshaanNene/ShelfScout/internal/parser"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

// DefaultLimit is the number of ranked products kept from a listing page. It
// is also the ceiling; larger limits are clamped.
const DefaultLimit = config.MaxListingItems

// Extractor fetches a listing page and extracts its candidates.
type Extractor struct {
	limit    int
	timeout  time.Duration
	throttle *fetcher.HostThrottle
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewExtractor creates an Extractor. A nil throttle disables host spacing.
func NewExtractor(cfg *config.Config, throttle *fetcher.HostThrottle, metrics *observability.Metrics, logger *slog.Logger) *Extractor {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	limit := clampLimit(cfg.Scrape.MaxItems)
	return &Extractor{
		limit:    limit,
		timeout:  cfg.Scrape.ListingTimeout,
		throttle: throttle,
		metrics:  metrics,
		logger:   logger.With("component", "listing"),
	}
}

// ExtractURL fetches rawURL through session and extracts up to the configured
// number of candidates. Fetch and parse failures are returned to the caller;
// a page with no recognizable products yields an empty slice and no error.
func (e *Extractor) ExtractURL(ctx context.Context, session fetcher.Fetcher, rawURL string) ([]types.ListingCandidate, error) {
	req, err := types.NewTaggedRequest(rawURL, types.TagListing, e.timeout)
	if err != nil {
		return nil, err
	}
	if err := e.throttle.Wait(ctx, req.Domain()); err != nil {
		return nil, err
	}

	e.metrics.ListingFetches.Add(1)
	resp, err := session.Fetch(ctx, req)
	if err != nil {
		e.metrics.ListingFailures.Add(1)
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	e.metrics.BytesDownloaded.Add(int64(len(resp.Body)))

	page, err := parser.NewPage(resp)
	if err != nil {
		e.metrics.ListingFailures.Add(1)
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	candidates := Extract(page, e.limit)
	e.logger.Info("listing extracted", "url", page.URL, "candidates", len(candidates))
	return candidates, nil
}

// Extract returns up to limit candidates from a parsed listing page in
// first-seen order. Limits outside 1..DefaultLimit fall back to DefaultLimit.
// Self-identified product blocks are preferred; when the page has none, every
// link is matched against the known detail-URL shapes.
func Extract(page *parser.Page, limit int) []types.ListingCandidate {
	limit = clampLimit(limit)
	if out := scanBlocks(page, limit); len(out) > 0 {
		return out
	}
	return scanLinks(page, limit)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultLimit {
		return DefaultLimit
	}
	return limit
}

func scanBlocks(page *parser.Page, limit int) []types.ListingCandidate {
	seen := make(map[string]bool)
	var out []types.ListingCandidate

	page.Find("[data-asin]").EachWithBreak(func(_ int, block *goquery.Selection) bool {
		id := strings.ToUpper(strings.TrimSpace(block.AttrOr("data-asin", "")))
		if !ValidIdentifier(id) || seen[id] {
			return true
		}
		c, ok := parseBlock(page, block, id)
		if !ok {
			return true
		}
		seen[id] = true
		out = append(out, c)
		return len(out) < limit
	})

	return out
}

func parseBlock(page *parser.Page, block *goquery.Selection, id string) (types.ListingCandidate, bool) {
	links := block.Find("a[href]")
	if links.Length() == 0 {
		return types.ListingCandidate{}, false
	}

	var link *goquery.Selection
	var title string
	links.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := parser.SelectionVisibleText(a)
		if text != "" && !parser.LooksLikePrice(text) {
			link, title = a, text
			return false
		}
		return true
	})
	if link == nil {
		link = links.First()
		title = parser.SelectionVisibleText(link)
	}
	if title == "" {
		title = strings.TrimSpace(block.Find("img[alt]").First().AttrOr("alt", ""))
	}

	detailURL := page.Resolve(link.AttrOr("href", ""))
	if detailURL == "" {
		return types.ListingCandidate{}, false
	}

	return types.ListingCandidate{
		Identifier:   id,
		Title:        title,
		DetailURL:    detailURL,
		ThumbnailURL: blockThumbnail(page, block),
		Price:        blockPrice(block),
		Popularity:   blockPopularity(block),
	}, true
}

func blockThumbnail(page *parser.Page, block *goquery.Selection) string {
	img := block.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src"} {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			return page.Resolve(v)
		}
	}
	return ""
}

func blockPopularity(block *goquery.Selection) string {
	var out string
	parser.TextNodes(block, func(text string) bool {
		if strings.Contains(strings.ToLower(text), "bought") {
			out = text
			return false
		}
		return true
	})
	return out
}

// blockPrice picks the shortest text fragment carrying a dollar amount; longer
// fragments tend to be sentences that merely mention a price.
func blockPrice(block *goquery.Selection) string {
	var shortest string
	parser.TextNodes(block, func(text string) bool {
		if parser.CurrencyPattern.MatchString(text) && (shortest == "" || len(text) < len(shortest)) {
			shortest = text
		}
		return true
	})
	return parser.FindCurrency(shortest)
}

func scanLinks(page *parser.Page, limit int) []types.ListingCandidate {
	seen := make(map[string]bool)
	var out []types.ListingCandidate

	page.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := a.AttrOr("href", "")
		id := IdentifierFromURL(href)
		if id == "" || seen[id] {
			return true
		}
		detailURL := page.Resolve(href)
		if detailURL == "" {
			return true
		}

		title := parser.SelectionVisibleText(a)
		if title == "" {
			title = strings.TrimSpace(a.Find("img[alt]").First().AttrOr("alt", ""))
		}
		if title == "" {
			title = strings.TrimSpace(a.AttrOr("title", ""))
		}

		seen[id] = true
		out = append(out, types.ListingCandidate{Identifier: id, Title: title, DetailURL: detailURL})
		return len(out) < limit
	})

	return out
}
