package detail

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/ShelfScout/internal/parser"
)

// priceContainers are the product-page regions known to hold the buy-box price.
var priceContainers = []string{
	"#corePrice_feature_div",
	"#corePriceDisplay_desktop_feature_div",
	"#apex_desktop",
	"#priceblock_ourprice",
	"#priceblock_dealprice",
	"#priceblock_saleprice",
	"#price_inside_buybox",
	"#newBuyBoxPrice",
}

var priceChain = []fieldFunc{
	priceFromContainers,
	priceFromOffscreen,
	priceFromMeta,
}

func priceFromContainers(p *parser.Page) string {
	for _, sel := range priceContainers {
		container := p.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		if v := firstCurrencyText(container.Find("span.a-offscreen")); v != "" {
			return v
		}
		if v := splitPrice(container); v != "" {
			return v
		}
		if v := parser.FindCurrency(parser.SelectionVisibleText(container)); v != "" {
			return v
		}
	}
	return ""
}

// splitPrice joins the symbol, whole and fraction spans of the first
// a-price widget in container. The decimal point sits inside the whole span.
func splitPrice(container *goquery.Selection) string {
	whole := container.Find("span.a-price-whole").First()
	if whole.Length() == 0 {
		return ""
	}
	widget := whole.Closest(".a-price")
	if widget.Length() == 0 {
		widget = container
	}
	if symbol := strings.TrimSpace(widget.Find("span.a-price-symbol").First().Text()); symbol != "" && symbol != "$" {
		return ""
	}

	digits := strings.Join(strings.Fields(whole.Text()), "")
	digits = strings.TrimRight(digits, ".")
	text := "$" + digits
	if fraction := strings.TrimSpace(widget.Find("span.a-price-fraction").First().Text()); fraction != "" {
		text += "." + fraction
	}
	if v := parser.CurrencyPattern.FindString(text); v == text {
		return v
	}
	return ""
}

func priceFromOffscreen(p *parser.Page) string {
	return firstCurrencyText(p.Find("span.a-offscreen"))
}

func firstCurrencyText(sel *goquery.Selection) string {
	var out string
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if parser.StartsWithCurrency(text) {
			out = strings.ReplaceAll(text, " ", "")
			return false
		}
		return true
	})
	return out
}

func priceFromMeta(p *parser.Page) string {
	if v := strings.TrimSpace(p.Find(`[itemprop="price"][content]`).First().AttrOr("content", "")); v != "" {
		return parser.NormalizePrice(v)
	}
	for _, key := range []string{"og:price:amount", "product:price:amount"} {
		if v := p.Meta(key); v != "" {
			return parser.NormalizePrice(v)
		}
	}
	return ""
}
