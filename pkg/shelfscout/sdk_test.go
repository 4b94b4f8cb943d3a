package shelfscout

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/export"
)

func TestOptions(t *testing.T) {
	scout, err := New(
		WithDelay(0, 50*time.Millisecond),
		WithMaxItems(7),
		WithHostInterval(0),
		WithUserAgent("ShelfScoutTest/1.0"),
		WithCatalog("https://catalog.example.com"),
		WithVerbose(),
	)
	require.NoError(t, err)
	defer scout.Close()

	cfg := scout.Config()
	assert.Equal(t, time.Duration(0), cfg.Scrape.DelayMin)
	assert.Equal(t, 50*time.Millisecond, cfg.Scrape.DelayMax)
	assert.Equal(t, 7, cfg.Scrape.MaxItems)
	assert.Equal(t, []string{"ShelfScoutTest/1.0"}, cfg.Fetcher.UserAgents)
	assert.Equal(t, "https://catalog.example.com", cfg.Catalog.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NotNil(t, scout.Engine())
	assert.NotNil(t, scout.Matcher())
	assert.NotNil(t, scout.Metrics())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(WithMaxItems(0))
	assert.Error(t, err)

	_, err = New(WithMaxItems(21))
	assert.Error(t, err)

	_, err = New(WithDelay(2*time.Second, time.Second))
	assert.Error(t, err)

	bad := config.DefaultConfig()
	bad.Catalog.BaseURL = "not a url"
	_, err = New(WithConfig(bad))
	assert.Error(t, err)
}

// fakeShops serves a two-item best-sellers listing, its detail pages, a
// one-product catalog and product images from a single host.
func fakeShops(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/bestsellers", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>`)
		for i, id := range []string{"B0SDKTEST1", "B0SDKTEST2"} {
			fmt.Fprintf(w, `<div data-asin="%[2]s">
  <a href="/Pi-%[1]d/dp/%[2]s/ref=zg_bs_%[1]d"><img src="/img/%[2]s.jpg" alt="Pi %[1]d"></a>
  <a href="/Pi-%[1]d/dp/%[2]s/ref=zg_bs_%[1]d"><span>Raspberry Pi 5 Kit %[1]d</span></a>
  <span class="p13n-sc-price">$8%[1]d.00</span>
</div>`, i+1, id)
		}
		fmt.Fprint(w, `</body></html>`)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		idx := strings.Index(r.URL.Path, "/dp/")
		if idx < 0 {
			http.NotFound(w, r)
			return
		}
		id, _, _ := strings.Cut(r.URL.Path[idx+4:], "/")
		fmt.Fprintf(w, `<html><head><meta property="og:image" content="%s/img/%s.jpg"></head>
<body><div id="corePrice_feature_div"><span class="a-offscreen">$84.50</span></div>
<div id="social-proofing">2K+ bought in past month</div></body></html>`, srv.URL, id)
	})

	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		img := image.NewRGBA(image.Rect(0, 0, 300, 150))
		for y := 0; y < 150; y++ {
			for x := 0; x < 300; x++ {
				img.Set(x, y, color.RGBA{R: 30, G: 120, B: 200, A: 255})
			}
		}
		w.Header().Set("Content-Type", "image/jpeg")
		jpeg.Encode(w, img, nil)
	})

	mux.HandleFunc("/search/search_results.aspx", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><a href="/product/111111/raspberry-pi-5-8gb">Raspberry Pi 5 8GB</a></body></html>`)
	})

	mux.HandleFunc("/product/111111/raspberry-pi-5-8gb", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
<script type="application/ld+json">
{"@type":"Product","name":"Raspberry Pi 5 8GB","sku":"111111",
 "offers":{"@type":"Offer","price":"79.99","priceCurrency":"USD"}}
</script></head><body><h1>Raspberry Pi 5 8GB</h1></body></html>`)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeMatchExport(t *testing.T) {
	srv := fakeShops(t)
	scout, err := New(
		WithDelay(0, 0),
		WithHostInterval(0),
		WithCatalog(srv.URL),
	)
	require.NoError(t, err)
	defer scout.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var progress []int
	records, err := scout.Scrape(ctx, srv.URL+"/bestsellers", func(done, total int) {
		assert.Equal(t, 2, total)
		progress = append(progress, done)
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []int{1, 2}, progress)

	assert.Equal(t, 1, records[0].Rank)
	assert.Equal(t, "B0SDKTEST1", records[0].Identifier)
	assert.Equal(t, "Raspberry Pi 5 Kit 1", records[0].Title)
	assert.Equal(t, "$84.50", records[0].Price)
	assert.Equal(t, "2K+ bought in past month", records[0].Popularity)
	assert.Equal(t, srv.URL+"/img/B0SDKTEST1.jpg", records[0].ImageURL)

	matches := scout.Match(ctx, records[0].Title, 3)
	require.Len(t, matches, 1)
	assert.Equal(t, "111111", matches[0].CatalogIdentifier)
	assert.Equal(t, "$79.99", matches[0].CurrentPrice)

	records[0].ApplyCatalog(matches[0])
	data, err := scout.Export(ctx, records)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sku, err := f.GetCellValue(export.DataSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "111111", sku)

	pics, err := f.GetPictures(export.TopSheet, "A1")
	require.NoError(t, err)
	assert.Len(t, pics, 1)
	assert.Equal(t, int64(2), scout.Metrics().ImagesResized.Load())
}
