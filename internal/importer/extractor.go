package importer

import (
	"regexp"
	"strings"
)

// hyperlinkFormulaPattern extracts the first quoted argument of a HYPERLINK formula.
var hyperlinkFormulaPattern = regexp.MustCompile(`HYPERLINK\s*\("([^"]+)"`)

// mediaTokenPrefix marks a vendor-encoded media identifier inside a cell value.
const mediaTokenPrefix = "MEDIA_"

// ExtractedPhoto is the resolved photo source of one cell. IsImage is set when
// the source was an embedded picture stored as a local blob.
type ExtractedPhoto struct {
	URL     string
	IsImage bool
}

// PhotoExtractor resolves the effective photo source of a cell. Branches are
// ordered richest-fidelity first: embedded binary, explicit hyperlink, literal
// URL string, HYPERLINK formula, encoded media token. The first matching branch
// wins; there is no fallthrough.
type PhotoExtractor struct {
	mediaBaseURL string
	storeBlob    func(data []byte) string
}

// NewPhotoExtractor builds an extractor. storeBlob receives embedded picture
// bytes and must return a URL the stored blob is reachable at.
func NewPhotoExtractor(mediaBaseURL string, storeBlob func(data []byte) string) *PhotoExtractor {
	return &PhotoExtractor{
		mediaBaseURL: mediaBaseURL,
		storeBlob:    storeBlob,
	}
}

// Extract returns nil when the cell holds no recognizable photo source; the
// caller records the "N/A" absence marker in that case.
func (e *PhotoExtractor) Extract(row Row, header string) *ExtractedPhoto {
	cell, ok := row[header]
	if !ok {
		return nil
	}

	if len(cell.Image) > 0 && e.storeBlob != nil {
		return &ExtractedPhoto{URL: e.storeBlob(cell.Image), IsImage: true}
	}

	if cell.Hyperlink != "" {
		return &ExtractedPhoto{URL: cell.Hyperlink}
	}

	if strings.HasPrefix(cell.Value, "http") {
		return &ExtractedPhoto{URL: cell.Value}
	}

	if strings.HasPrefix(strings.TrimSpace(cell.Formula), "HYPERLINK") {
		if m := hyperlinkFormulaPattern.FindStringSubmatch(cell.Formula); m != nil {
			return &ExtractedPhoto{URL: m[1]}
		}
		return nil
	}

	if idx := strings.Index(cell.Value, mediaTokenPrefix); idx >= 0 {
		token := cell.Value[idx:]
		if slash := strings.Index(token, "/"); slash >= 0 {
			token = token[:slash]
		}
		token = strings.TrimSuffix(token, "/")
		return &ExtractedPhoto{URL: e.mediaBaseURL + token}
	}

	return nil
}
