package importer

import (
	"strings"

	"product-import-service/internal/models"
)

// attributeKeywords lists, per attribute, the header keywords that suggest it,
// most specific synonym first down to the most generic. The exact pass only
// considers the first keyword; the substring pass tries them in list order.
var attributeKeywords = map[models.AttributeKey][]string{
	models.AttrArticleCode:    {"style_number", "codice articolo", "articolo", "article", "style", "code"},
	models.AttrVariantCode:    {"codice variante", "variante", "colore", "color", "variant"},
	models.AttrSize:           {"taglia", "size"},
	models.AttrSizeGroup:      {"gruppo taglie", "size group", "gruppo", "group"},
	models.AttrWholesalePrice: {"prezzo ingrosso", "ingrosso", "wholesale", "costo"},
	models.AttrRetailPrice:    {"prezzo vendita", "vendita", "retail", "prezzo"},
	models.AttrBarcode:        {"codice a barre", "barcode", "ean"},
	models.AttrPhoto:          {"foto", "photo", "immagine", "image", "url"},
	models.AttrBrand:          {"marchio", "brand", "marca"},
}

// InferColumnMapping proposes a best-effort binding of spreadsheet headers to
// product attributes. Pass 1 binds attributes whose primary keyword equals a
// header exactly (case-folded); pass 2 binds each remaining attribute to the
// first header containing any of its keywords. A header may serve several
// attributes when keywords overlap; there is no exclusivity constraint.
//
// The substring pass scans headers in the outer loop and keywords in the inner
// loop, so an ambiguous header goes to whichever attribute reaches it first.
// Suggestions downstream depend on this iteration order; do not reorder.
func InferColumnMapping(headers []string) (map[models.AttributeKey]string, map[models.AttributeKey]bool) {
	mapping := make(map[models.AttributeKey]string)
	suggested := make(map[models.AttributeKey]bool)

	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = strings.ToLower(strings.TrimSpace(h))
	}

	// Pass 1: exact match on the primary keyword.
	for _, attr := range models.AllAttributes() {
		keywords := attributeKeywords[attr]
		if len(keywords) == 0 {
			continue
		}
		for i, h := range folded {
			if h == keywords[0] {
				mapping[attr] = headers[i]
				suggested[attr] = true
				break
			}
		}
	}

	// Pass 2: substring match for attributes still unmapped.
	for _, attr := range models.AllAttributes() {
		if _, bound := mapping[attr]; bound {
			continue
		}
	scan:
		for i, h := range folded {
			for _, keyword := range attributeKeywords[attr] {
				if strings.Contains(h, keyword) {
					mapping[attr] = headers[i]
					suggested[attr] = true
					break scan
				}
			}
		}
	}

	return mapping, suggested
}
