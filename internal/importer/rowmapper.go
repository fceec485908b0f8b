package importer

import (
	"strconv"
	"strings"
	"sync"

	"product-import-service/internal/models"
)

const (
	// totalMarker flags spreadsheet footer/summary rows, dropped during mapping.
	totalMarker = "Total"
	// absentValue marks a legitimately missing value. It is not an error.
	absentValue = "N/A"
)

// ReferenceData holds the catalog lists the pipeline validates rows against.
type ReferenceData struct {
	Brands     []models.Reference
	Statuses   []models.Reference
	Sizes      []models.Reference
	SizeGroups []models.Reference
}

// RowMapper turns raw spreadsheet rows into typed product-attribute cells using
// a frozen column mapping, the reference lists, and the operator's database-side
// selections for attributes that were not column-mapped.
type RowMapper struct {
	mapping        map[models.AttributeKey]string
	refs           ReferenceData
	selectedBrand  *models.Reference
	selectedStatus *models.Reference
	presets        map[models.AttributeKey]models.Correction
	extractor      *PhotoExtractor
}

// NewRowMapper builds a mapper. presets carries pre-resolved database selections
// for size/size-group when those attributes have no mapped column.
func NewRowMapper(
	mapping map[models.AttributeKey]string,
	refs ReferenceData,
	selectedBrand, selectedStatus *models.Reference,
	presets map[models.AttributeKey]models.Correction,
	extractor *PhotoExtractor,
) *RowMapper {
	if presets == nil {
		presets = make(map[models.AttributeKey]models.Correction)
	}
	return &RowMapper{
		mapping:        mapping,
		refs:           refs,
		selectedBrand:  selectedBrand,
		selectedStatus: selectedStatus,
		presets:        presets,
		extractor:      extractor,
	}
}

// MapRows maps every spreadsheet row concurrently. Rows are independent and
// share no mutable state; results keep spreadsheet order and dropped rows are
// filtered out after the join.
func (m *RowMapper) MapRows(rows []Row) []models.MappedRow {
	out := make([]models.MappedRow, len(rows))
	var wg sync.WaitGroup
	for i, row := range rows {
		wg.Add(1)
		go func(i int, row Row) {
			defer wg.Done()
			out[i] = m.MapRow(row)
		}(i, row)
	}
	wg.Wait()

	mapped := make([]models.MappedRow, 0, len(rows))
	for _, row := range out {
		if row != nil {
			mapped = append(mapped, row)
		}
	}
	return mapped
}

// MapRow maps one spreadsheet row. Rows with an empty or "Total" article code
// are footer/junk rows and map to nil.
func (m *RowMapper) MapRow(row Row) models.MappedRow {
	article := m.rawValue(row, models.AttrArticleCode)
	if article == "" || article == totalMarker {
		return nil
	}

	mapped := make(models.MappedRow)
	for _, attr := range models.AllAttributes() {
		switch attr {
		case models.AttrArticleCode:
			mapped[attr] = &models.CellValue{Value: article}
		case models.AttrBrand:
			mapped[attr] = m.mapBrand(row)
		case models.AttrSize:
			mapped[attr] = m.mapReference(row, attr, m.refs.Sizes, "Taglia non valida: ")
		case models.AttrSizeGroup:
			mapped[attr] = m.mapReference(row, attr, m.refs.SizeGroups, "Gruppo taglie non valido: ")
		case models.AttrWholesalePrice, models.AttrRetailPrice:
			mapped[attr] = &models.CellValue{Value: formatPrice(ParsePrice(m.rawValue(row, attr)))}
		case models.AttrPhoto:
			mapped[attr] = m.mapPhoto(row)
		default:
			mapped[attr] = m.mapVerbatim(row, attr)
		}
	}

	// Status is never column-mapped; the selected status applies to every row.
	if m.selectedStatus != nil {
		mapped[models.AttrStatus] = &models.CellValue{Value: m.selectedStatus.Name, ID: m.selectedStatus.ID}
	} else {
		mapped[models.AttrStatus] = &models.CellValue{Value: absentValue}
	}

	return mapped
}

func (m *RowMapper) rawValue(row Row, attr models.AttributeKey) string {
	header, bound := m.mapping[attr]
	if !bound {
		return ""
	}
	return strings.TrimSpace(row[header].Value)
}

func (m *RowMapper) mapBrand(row Row) *models.CellValue {
	if _, bound := m.mapping[models.AttrBrand]; !bound {
		if m.selectedBrand != nil {
			return &models.CellValue{Value: m.selectedBrand.Name, ID: m.selectedBrand.ID}
		}
		return &models.CellValue{Value: absentValue}
	}

	raw := m.rawValue(row, models.AttrBrand)
	for _, ref := range m.refs.Brands {
		if strings.EqualFold(ref.Name, raw) {
			return &models.CellValue{Value: ref.Name, ID: ref.ID}
		}
	}
	return &models.CellValue{Value: raw, Error: true, ErrorMessage: "Brand non valido: " + raw}
}

func (m *RowMapper) mapReference(row Row, attr models.AttributeKey, refs []models.Reference, errorPrefix string) *models.CellValue {
	if _, bound := m.mapping[attr]; !bound {
		if preset, ok := m.presets[attr]; ok {
			return &models.CellValue{Value: preset.Value, ID: preset.ID}
		}
		return &models.CellValue{Value: absentValue}
	}

	raw := m.rawValue(row, attr)
	for _, ref := range refs {
		if strings.EqualFold(ref.Name, raw) {
			return &models.CellValue{Value: ref.Name, ID: ref.ID}
		}
	}
	return &models.CellValue{Value: raw, Error: true, ErrorMessage: errorPrefix + raw}
}

func (m *RowMapper) mapPhoto(row Row) *models.CellValue {
	header, bound := m.mapping[models.AttrPhoto]
	if bound && m.extractor != nil {
		if photo := m.extractor.Extract(row, header); photo != nil {
			return &models.CellValue{Value: photo.URL, IsImage: photo.IsImage}
		}
	}
	return &models.CellValue{Value: absentValue}
}

// mapVerbatim copies any other mapped attribute as-is. Missing raw values become
// the "N/A" absence marker, explicitly without an error flag.
func (m *RowMapper) mapVerbatim(row Row, attr models.AttributeKey) *models.CellValue {
	raw := m.rawValue(row, attr)
	if raw == "" || raw == absentValue {
		return &models.CellValue{Value: absentValue}
	}
	return &models.CellValue{Value: raw}
}

// ParsePrice normalizes a currency cell: strips euro/dollar symbols and
// whitespace, converts the first comma to a period, then parses the longest
// leading numeric prefix. Only the first comma is converted, so a
// thousands-separated "1.234,56" parses as 1.234. The legacy importer behaved
// this way and the behavior is kept verbatim. Non-numeric input coerces to 0.
func ParsePrice(raw string) float64 {
	s := strings.NewReplacer("€", "", "$", "").Replace(raw)
	s = strings.Join(strings.Fields(s), "")
	s = strings.Replace(s, ",", ".", 1)
	return parseFloatPrefix(s)
}

// parseFloatPrefix reads an optional sign, digits and at most one decimal point,
// ignoring any trailing garbage, the way JavaScript's parseFloat does.
func parseFloatPrefix(s string) float64 {
	end := 0
	seenDot := false
	seenDigit := false
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			seenDigit = true
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	if !seenDigit {
		return 0
	}

	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0
	}
	return v
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
