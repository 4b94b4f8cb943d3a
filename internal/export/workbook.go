// Package export builds the two-sheet comparison workbook: a "Top 20" sheet
// of product blocks whose cells are formulas over a flat "Data" sheet.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/ShelfScout/internal/config"
	"github.com/IshaanNene/ShelfScout/internal/types"
)

const (
	TopSheet  = "Top 20"
	DataSheet = "Data"

	// blockRows is the number of rows in one product block, not counting the separator.
	blockRows      = 12
	maxRecords     = 20
	itemColWidth   = 26
	imageRowHeight = 90
)

// DataColumns is the header row of the Data sheet.
var DataColumns = []string{
	"MC SKU", "MC Title", "MC Retail", "MC Cost", "1-4 Avg", "Attributes", "Notes",
	"Rank", "ASIN", "Amazon Title", "Amazon Price", "Sell Through", "Amazon URL", "Image URL",
}

var dataWidths = []float64{14, 50, 12, 12, 12, 24, 28, 8, 14, 56, 12, 20, 40, 50}

// Data sheet column letters referenced by the block formulas.
const (
	colSKU        = "A"
	colMCTitle    = "B"
	colRetail     = "C"
	colCost       = "D"
	colAvg        = "E"
	colAttributes = "F"
	colNotes      = "G"
	colRank       = "H"
	colTitle      = "J"
	colPrice      = "K"
	colSell       = "L"
)

// ImageSource returns PNG thumbnail bytes for an image URL.
type ImageSource interface {
	Thumbnail(ctx context.Context, imageURL string) ([]byte, error)
}

// Options controls the workbook layout.
type Options struct {
	ItemsPerRow int
	Placeholder string

	// Images supplies embedded thumbnails. Nil leaves the image cells blank.
	Images ImageSource

	Logger *slog.Logger
}

// OptionsFromConfig maps the export settings onto Options.
func OptionsFromConfig(cfg config.ExportConfig, images ImageSource, logger *slog.Logger) Options {
	opts := Options{
		ItemsPerRow: cfg.ItemsPerRow,
		Placeholder: cfg.Placeholder,
		Logger:      logger,
	}
	if cfg.EmbedImages {
		opts.Images = images
	}
	return opts
}

// Filename returns a fresh "Amazon_Top20_<6 hex>.xlsx" name.
func Filename() string {
	return fmt.Sprintf("Amazon_Top20_%s.xlsx", uuid.NewString()[:6])
}

type styles struct {
	rank, sep                    int
	normal, normalBand           int
	bold, boldBand               int
	image, imageBand, dataHeader int
}

// BuildWorkbook renders up to 20 records and returns the xlsx bytes. Image
// failures leave the image cell blank and never fail the export.
func BuildWorkbook(ctx context.Context, records []types.ProductRecord, opts Options) ([]byte, error) {
	if opts.ItemsPerRow <= 0 {
		opts.ItemsPerRow = 5
	}
	if opts.Placeholder == "" {
		opts.Placeholder = "—"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "export")

	if len(records) > maxRecords {
		records = records[:maxRecords]
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TopSheet); err != nil {
		return nil, &types.ExportError{Sheet: TopSheet, Err: err}
	}
	if _, err := f.NewSheet(DataSheet); err != nil {
		return nil, &types.ExportError{Sheet: DataSheet, Err: err}
	}

	st, err := newStyles(f)
	if err != nil {
		return nil, &types.ExportError{Sheet: TopSheet, Err: fmt.Errorf("styles: %w", err)}
	}

	if err := writeData(f, records, opts.Placeholder, st); err != nil {
		return nil, &types.ExportError{Sheet: DataSheet, Err: err}
	}
	if err := writeBlocks(ctx, f, records, opts, st, logger); err != nil {
		return nil, &types.ExportError{Sheet: TopSheet, Err: err}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &types.ExportError{Sheet: TopSheet, Err: fmt.Errorf("write workbook: %w", err)}
	}
	logger.Info("workbook built", "records", len(records), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func newStyles(f *excelize.File) (styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "CCCCCC", Style: 1},
		{Type: "right", Color: "CCCCCC", Style: 1},
		{Type: "top", Color: "CCCCCC", Style: 1},
		{Type: "bottom", Color: "CCCCCC", Style: 1},
	}
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	left := &excelize.Alignment{Horizontal: "left", Vertical: "center", WrapText: true}
	band := excelize.Fill{Type: "pattern", Color: []string{"F9F9F9"}, Pattern: 1}

	type styleDef struct {
		dst   *int
		style *excelize.Style
	}
	var (
		st   styles
		defs []styleDef
	)
	add := func(dst *int, s *excelize.Style) {
		defs = append(defs, styleDef{dst, s})
	}
	add(&st.rank, &excelize.Style{
		Border: border, Alignment: center,
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C45500"}, Pattern: 1},
	})
	add(&st.sep, &excelize.Style{Fill: excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1}})
	add(&st.normal, &excelize.Style{Border: border, Alignment: left, Font: &excelize.Font{Size: 9}})
	add(&st.normalBand, &excelize.Style{Border: border, Alignment: left, Font: &excelize.Font{Size: 9}, Fill: band})
	add(&st.bold, &excelize.Style{Border: border, Alignment: left, Font: &excelize.Font{Bold: true, Size: 10}})
	add(&st.boldBand, &excelize.Style{Border: border, Alignment: left, Font: &excelize.Font{Bold: true, Size: 10}, Fill: band})
	add(&st.image, &excelize.Style{Border: border, Alignment: center})
	add(&st.imageBand, &excelize.Style{Border: border, Alignment: center, Fill: band})
	add(&st.dataHeader, &excelize.Style{Font: &excelize.Font{Bold: true}})

	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, err
		}
		*d.dst = id
	}
	return st, nil
}

func writeData(f *excelize.File, records []types.ProductRecord, placeholder string, st styles) error {
	for j, name := range DataColumns {
		cell, _ := excelize.CoordinatesToCellName(j+1, 1)
		if err := f.SetCellValue(DataSheet, cell, name); err != nil {
			return err
		}
		col, _ := excelize.ColumnNumberToName(j + 1)
		if err := f.SetColWidth(DataSheet, col, col, dataWidths[j]); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(DataSheet, "A1", "N1", st.dataHeader); err != nil {
		return err
	}

	for i, rec := range records {
		sell := rec.Popularity
		if sell == "" {
			sell = placeholder
		}
		row := []any{
			rec.CatalogSKU, rec.CatalogTitle, rec.CatalogRetail, rec.CatalogCost, rec.AvgOneToFour, rec.Attributes, rec.Notes,
			rec.Rank, rec.Identifier, rec.Title, rec.Price, sell, rec.DetailURL, rec.ImageURL,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(DataSheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SetPanes(DataSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// blockLine is one formula row of a product block.
type blockLine struct {
	label string
	col   string
	bold  bool
}

// blockLines are rows 3-12 of a block; row 1 is the image and row 2 the rank.
var blockLines = []blockLine{
	{"", colSell, false},
	{"", colTitle, false},
	{"", colPrice, true},
	{"MC SKU: ", colSKU, false},
	{"MC Title: ", colMCTitle, false},
	{"MC Retail: ", colRetail, true},
	{"MC Cost: ", colCost, false},
	{"1-4 Avg: ", colAvg, false},
	{"Attributes: ", colAttributes, false},
	{"Notes: ", colNotes, false},
}

func (l blockLine) formula(dataRow int) string {
	ref := fmt.Sprintf("%s!%s%d", DataSheet, l.col, dataRow)
	if l.label == "" {
		return ref
	}
	return fmt.Sprintf(`"%s"&%s`, l.label, ref)
}

func writeBlocks(ctx context.Context, f *excelize.File, records []types.ProductRecord, opts Options, st styles, logger *slog.Logger) error {
	perRow := opts.ItemsPerRow
	lastCol, _ := excelize.ColumnNumberToName(perRow)
	if err := f.SetColWidth(TopSheet, "A", lastCol, itemColWidth); err != nil {
		return err
	}

	for idx, rec := range records {
		group := idx / perRow
		col := idx%perRow + 1
		base := 1 + group*(blockRows+1)
		dataRow := idx + 2
		banded := group%2 == 0

		pick := func(plain, band int) int {
			if banded {
				return band
			}
			return plain
		}

		// Row 1: image, linked to the product page.
		imgCell, _ := excelize.CoordinatesToCellName(col, base)
		if err := f.SetRowHeight(TopSheet, base, imageRowHeight); err != nil {
			return err
		}
		if err := f.SetCellValue(TopSheet, imgCell, " "); err != nil {
			return err
		}
		if err := f.SetCellStyle(TopSheet, imgCell, imgCell, pick(st.image, st.imageBand)); err != nil {
			return err
		}
		if rec.DetailURL != "" {
			if err := f.SetCellHyperLink(TopSheet, imgCell, rec.DetailURL, "External"); err != nil {
				return err
			}
		}
		if opts.Images != nil && rec.ImageURL != "" {
			if err := embedImage(ctx, f, imgCell, rec, opts.Images); err != nil {
				logger.Warn("image skipped", "rank", rec.Rank, "url", rec.ImageURL, "error", err)
			}
		}

		// Row 2: rank banner.
		rankCell, _ := excelize.CoordinatesToCellName(col, base+1)
		if err := f.SetCellFormula(TopSheet, rankCell, fmt.Sprintf(`"Rank # "&%s!%s%d`, DataSheet, colRank, dataRow)); err != nil {
			return err
		}
		if err := f.SetCellStyle(TopSheet, rankCell, rankCell, st.rank); err != nil {
			return err
		}

		for i, line := range blockLines {
			cell, _ := excelize.CoordinatesToCellName(col, base+2+i)
			if err := f.SetCellFormula(TopSheet, cell, line.formula(dataRow)); err != nil {
				return err
			}
			style := pick(st.normal, st.normalBand)
			if line.bold {
				style = pick(st.bold, st.boldBand)
			}
			if err := f.SetCellStyle(TopSheet, cell, cell, style); err != nil {
				return err
			}
		}

		// Separator under each full row of blocks.
		if col == perRow {
			sepStart, _ := excelize.CoordinatesToCellName(1, base+blockRows)
			sepEnd, _ := excelize.CoordinatesToCellName(perRow, base+blockRows)
			if err := f.SetCellStyle(TopSheet, sepStart, sepEnd, st.sep); err != nil {
				return err
			}
		}
	}
	return nil
}

func embedImage(ctx context.Context, f *excelize.File, cell string, rec types.ProductRecord, images ImageSource) error {
	data, err := images.Thumbnail(ctx, rec.ImageURL)
	if err != nil {
		return err
	}
	format := &excelize.GraphicOptions{
		AltText:         rec.Title,
		LockAspectRatio: true,
		OffsetX:         4,
		OffsetY:         4,
	}
	if rec.DetailURL != "" {
		format.Hyperlink = rec.DetailURL
		format.HyperlinkType = "External"
	}
	return f.AddPictureFromBytes(TopSheet, cell, &excelize.Picture{
		Extension: ".png",
		File:      data,
		Format:    format,
	})
}
