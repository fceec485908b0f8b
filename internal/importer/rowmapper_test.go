package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"product-import-service/internal/models"
)

func testMapping() map[models.AttributeKey]string {
	return map[models.AttributeKey]string{
		models.AttrArticleCode:    "Codice Articolo",
		models.AttrVariantCode:    "Codice Variante",
		models.AttrSize:           "Taglia",
		models.AttrSizeGroup:      "Gruppo taglie",
		models.AttrWholesalePrice: "Prezzo ingrosso",
		models.AttrBrand:          "Marchio",
	}
}

func testRefs() ReferenceData {
	return ReferenceData{
		Brands:     []models.Reference{{ID: 10, Name: "Acme"}},
		Statuses:   []models.Reference{{ID: 20, Name: "Attivo"}},
		Sizes:      []models.Reference{{ID: 1, Name: "S"}, {ID: 2, Name: "M"}, {ID: 3, Name: "XXL"}},
		SizeGroups: []models.Reference{{ID: 30, Name: "Standard"}},
	}
}

func rowWith(values map[string]string) Row {
	row := make(Row)
	for header, value := range values {
		row[header] = Cell{Value: value}
	}
	return row
}

func TestMapRowDropsFooterRows(t *testing.T) {
	mapper := NewRowMapper(testMapping(), testRefs(), nil, nil, nil, nil)

	assert.Nil(t, mapper.MapRow(rowWith(map[string]string{"Codice Articolo": ""})))
	assert.Nil(t, mapper.MapRow(rowWith(map[string]string{"Codice Articolo": "Total"})))
	assert.NotNil(t, mapper.MapRow(rowWith(map[string]string{"Codice Articolo": "ART1", "Taglia": "M", "Gruppo taglie": "Standard", "Marchio": "Acme"})))
}

func TestMapRowResolvesReferences(t *testing.T) {
	mapper := NewRowMapper(testMapping(), testRefs(), nil, nil, nil, nil)

	mapped := mapper.MapRow(rowWith(map[string]string{
		"Codice Articolo": "ART1",
		"Codice Variante": "BLU",
		"Taglia":          "m",
		"Gruppo taglie":   "standard",
		"Prezzo ingrosso": "29,90",
		"Marchio":         "ACME",
	}))

	assert.Equal(t, "ART1", mapped[models.AttrArticleCode].Value)
	assert.Equal(t, "BLU", mapped[models.AttrVariantCode].Value)

	// Reference matches are case-insensitive and resolve to the canonical name.
	assert.Equal(t, "M", mapped[models.AttrSize].Value)
	assert.Equal(t, int64(2), mapped[models.AttrSize].ID)
	assert.Equal(t, "Standard", mapped[models.AttrSizeGroup].Value)
	assert.Equal(t, int64(30), mapped[models.AttrSizeGroup].ID)
	assert.Equal(t, "Acme", mapped[models.AttrBrand].Value)
	assert.Equal(t, int64(10), mapped[models.AttrBrand].ID)

	assert.Equal(t, "29.9", mapped[models.AttrWholesalePrice].Value)
}

func TestMapRowValidationErrors(t *testing.T) {
	mapper := NewRowMapper(testMapping(), testRefs(), nil, nil, nil, nil)

	mapped := mapper.MapRow(rowWith(map[string]string{
		"Codice Articolo": "ART1",
		"Taglia":          "XXL2",
		"Gruppo taglie":   "Invernale",
		"Marchio":         "Sconosciuto",
	}))

	size := mapped[models.AttrSize]
	assert.True(t, size.Error)
	assert.Equal(t, "Taglia non valida: XXL2", size.ErrorMessage)
	assert.Equal(t, "XXL2", size.Value)

	group := mapped[models.AttrSizeGroup]
	assert.True(t, group.Error)
	assert.Equal(t, "Gruppo taglie non valido: Invernale", group.ErrorMessage)

	brand := mapped[models.AttrBrand]
	assert.True(t, brand.Error)
	assert.Equal(t, "Brand non valido: Sconosciuto", brand.ErrorMessage)
}

func TestMapRowUnboundAttributes(t *testing.T) {
	mapping := map[models.AttributeKey]string{
		models.AttrArticleCode: "Codice Articolo",
	}
	brand := &models.Reference{ID: 10, Name: "Acme"}
	status := &models.Reference{ID: 20, Name: "Attivo"}
	presets := map[models.AttributeKey]models.Correction{
		models.AttrSize: {Value: "UNICA", ID: 4},
	}
	mapper := NewRowMapper(mapping, testRefs(), brand, status, presets, nil)

	mapped := mapper.MapRow(rowWith(map[string]string{"Codice Articolo": "ART1"}))

	// Unbound brand falls back to the database-side selection.
	assert.Equal(t, "Acme", mapped[models.AttrBrand].Value)
	assert.Equal(t, int64(10), mapped[models.AttrBrand].ID)

	// Unbound size resolves through the preset selection.
	assert.Equal(t, "UNICA", mapped[models.AttrSize].Value)
	assert.Equal(t, int64(4), mapped[models.AttrSize].ID)

	// Unbound size group with no preset is simply absent, not an error.
	assert.Equal(t, "N/A", mapped[models.AttrSizeGroup].Value)
	assert.False(t, mapped[models.AttrSizeGroup].Error)

	// The selected status is injected into every row.
	assert.Equal(t, "Attivo", mapped[models.AttrStatus].Value)
	assert.Equal(t, int64(20), mapped[models.AttrStatus].ID)
}

func TestMapRowsKeepsOrderAndDropsFooters(t *testing.T) {
	mapper := NewRowMapper(testMapping(), testRefs(), nil, nil, nil, nil)

	rows := []Row{
		rowWith(map[string]string{"Codice Articolo": "ART1", "Taglia": "M", "Gruppo taglie": "Standard", "Marchio": "Acme"}),
		rowWith(map[string]string{"Codice Articolo": ""}),
		rowWith(map[string]string{"Codice Articolo": "ART2", "Taglia": "S", "Gruppo taglie": "Standard", "Marchio": "Acme"}),
		rowWith(map[string]string{"Codice Articolo": "Total"}),
	}

	mapped := mapper.MapRows(rows)

	if assert.Len(t, mapped, 2) {
		assert.Equal(t, "ART1", mapped[0][models.AttrArticleCode].Value)
		assert.Equal(t, "ART2", mapped[1][models.AttrArticleCode].Value)
	}
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, 29.9, ParsePrice("29,90"))
	assert.Equal(t, 29.9, ParsePrice("€ 29,90"))
	assert.Equal(t, 15.5, ParsePrice("$15.50"))
	assert.Equal(t, 10.0, ParsePrice("10"))
	assert.Equal(t, 0.0, ParsePrice(""))
	assert.Equal(t, 0.0, ParsePrice("n.d."))

	// Only the first comma becomes a decimal point, so thousands-separated
	// values truncate at the separator. Legacy behavior, kept verbatim.
	assert.Equal(t, 1.234, ParsePrice("€ 1.234,56"))
	assert.Equal(t, 1.2, ParsePrice("1,2,3"))
}
