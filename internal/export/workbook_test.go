package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func records(n int) []types.ProductRecord {
	out := make([]types.ProductRecord, n)
	for i := range out {
		out[i] = types.ProductRecord{
			Rank:       i + 1,
			Identifier: fmt.Sprintf("B0TEST%04d", i+1),
			Title:      fmt.Sprintf("Product %d", i+1),
			DetailURL:  fmt.Sprintf("https://www.amazon.com/dp/B0TEST%04d", i+1),
			Price:      fmt.Sprintf("$%d.99", i+1),
			ImageURL:   fmt.Sprintf("https://img.example.com/%d.jpg", i+1),
			Popularity: "1K+ bought in past month",
		}
	}
	return out
}

type fakeImages struct {
	fail map[string]bool
}

func (f fakeImages) Thumbnail(_ context.Context, url string) ([]byte, error) {
	if f.fail[url] {
		return nil, errors.New("not found")
	}
	img := image.NewRGBA(image.Rect(0, 0, 12, 8))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestBuildWorkbookSheets(t *testing.T) {
	data, err := BuildWorkbook(context.Background(), records(3), Options{Logger: testLogger})
	require.NoError(t, err)

	f := open(t, data)
	assert.Equal(t, []string{TopSheet, DataSheet}, f.GetSheetList())
}

func TestBuildWorkbookDataSheet(t *testing.T) {
	recs := records(2)
	recs[1].Popularity = ""
	recs[1].CatalogSKU = "123456"
	recs[1].Notes = "check"

	data, err := BuildWorkbook(context.Background(), recs, Options{Logger: testLogger})
	require.NoError(t, err)
	f := open(t, data)

	rows, err := f.GetRows(DataSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, DataColumns, rows[0])

	second := rows[2]
	assert.Equal(t, "123456", second[0])
	assert.Equal(t, "check", second[6])
	assert.Equal(t, "2", second[7])
	assert.Equal(t, "B0TEST0002", second[8])
	assert.Equal(t, "—", second[11], "empty popularity becomes the placeholder")
	assert.Equal(t, "https://img.example.com/2.jpg", second[13])

	panes, err := f.GetPanes(DataSheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, "A2", panes.TopLeftCell)
}

func TestBuildWorkbookBlocks(t *testing.T) {
	data, err := BuildWorkbook(context.Background(), records(7), Options{Logger: testLogger})
	require.NoError(t, err)
	f := open(t, data)

	formula, err := f.GetCellFormula(TopSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, `"Rank # "&Data!H2`, formula)

	formula, err = f.GetCellFormula(TopSheet, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Data!K2", formula, "row 5 is the price")

	formula, err = f.GetCellFormula(TopSheet, "C12")
	require.NoError(t, err)
	assert.Equal(t, `"Notes: "&Data!G4`, formula)

	// Record 7 opens the second group: column B, block starting at row 14.
	formula, err = f.GetCellFormula(TopSheet, "B15")
	require.NoError(t, err)
	assert.Equal(t, `"Rank # "&Data!H8`, formula)

	height, err := f.GetRowHeight(TopSheet, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(imageRowHeight), height)

	width, err := f.GetColWidth(TopSheet, "E")
	require.NoError(t, err)
	assert.Equal(t, float64(itemColWidth), width)

	ok, link, err := f.GetCellHyperLink(TopSheet, "A1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://www.amazon.com/dp/B0TEST0001", link)
}

func TestBuildWorkbookStyles(t *testing.T) {
	data, err := BuildWorkbook(context.Background(), records(6), Options{Logger: testLogger})
	require.NoError(t, err)
	f := open(t, data)

	fill := func(cell string) string {
		id, err := f.GetCellStyle(TopSheet, cell)
		require.NoError(t, err)
		style, err := f.GetStyle(id)
		require.NoError(t, err)
		if len(style.Fill.Color) == 0 {
			return ""
		}
		return style.Fill.Color[0]
	}

	hasFill := func(cell, rgb string) bool {
		return strings.HasSuffix(strings.ToUpper(fill(cell)), rgb)
	}

	assert.True(t, hasFill("A2", "C45500"), "rank banner")
	assert.True(t, hasFill("A3", "F9F9F9"), "first group is banded")
	assert.False(t, hasFill("A16", "F9F9F9"), "second group is plain")
	assert.True(t, hasFill("C13", "E0E0E0"), "separator after a full row of blocks")
}

func TestBuildWorkbookCapsAtTwenty(t *testing.T) {
	data, err := BuildWorkbook(context.Background(), records(25), Options{Logger: testLogger})
	require.NoError(t, err)
	f := open(t, data)

	rows, err := f.GetRows(DataSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 21)
}

func TestBuildWorkbookImages(t *testing.T) {
	recs := records(2)
	images := fakeImages{fail: map[string]bool{recs[1].ImageURL: true}}

	data, err := BuildWorkbook(context.Background(), recs, Options{Images: images, Logger: testLogger})
	require.NoError(t, err, "a failing thumbnail must not fail the export")
	f := open(t, data)

	pics, err := f.GetPictures(TopSheet, "A1")
	require.NoError(t, err)
	assert.Len(t, pics, 1)

	pics, err = f.GetPictures(TopSheet, "B1")
	require.NoError(t, err)
	assert.Empty(t, pics)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig().Export
	opts := OptionsFromConfig(cfg, fakeImages{}, testLogger)
	assert.Equal(t, 5, opts.ItemsPerRow)
	assert.NotNil(t, opts.Images)

	cfg.EmbedImages = false
	assert.Nil(t, OptionsFromConfig(cfg, fakeImages{}, testLogger).Images)
}

func TestFilename(t *testing.T) {
	assert.Regexp(t, regexp.MustCompile(`^Amazon_Top20_[0-9a-f]{6}\.xlsx$`), Filename())
	assert.NotEqual(t, Filename(), Filename())
}
