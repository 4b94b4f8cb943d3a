package detail

import (
	"regexp"
	"strings"

	"github.com/IshaanNene/ShelfScout/internal/parser"
)

// dynamicImageKey pulls the first URL key out of the JSON object stored in
// data-a-dynamic-image, e.g. {"https://m.media-amazon.com/x.jpg":[500,500]}.
var dynamicImageKey = regexp.MustCompile(`"(https?:[^"]+)"\s*:`)

var imageChain = []fieldFunc{
	imageFromOpenGraph,
	imageFromLinkRel,
	imageFromLanding,
	imageFromWrapper,
}

func imageFromOpenGraph(p *parser.Page) string {
	return p.Meta("og:image")
}

func imageFromLinkRel(p *parser.Page) string {
	return strings.TrimSpace(p.Find(`link[rel="image_src"]`).First().AttrOr("href", ""))
}

func imageFromLanding(p *parser.Page) string {
	return imageAttrs(p, `//img[@id='landingImage']`)
}

func imageFromWrapper(p *parser.Page) string {
	return imageAttrs(p, `//*[@id='imgTagWrapperId']//img`)
}

// imageAttrs tries the high-resolution, plain and dynamic-image attributes of
// the first element matching expr, in that order.
func imageAttrs(p *parser.Page, expr string) string {
	if v := p.XPathAttr(expr, "data-old-hires"); v != "" {
		return v
	}
	if v := p.XPathAttr(expr, "src"); v != "" {
		return v
	}
	if raw := p.XPathAttr(expr, "data-a-dynamic-image"); raw != "" {
		if m := dynamicImageKey.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	return ""
}
