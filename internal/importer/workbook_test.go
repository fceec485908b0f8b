package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func TestReadWorkbookCSV(t *testing.T) {
	content := "Codice Articolo, Taglia ,Prezzo ingrosso\n" +
		"ART1,M,\"29,90\"\n" +
		"ART2,S,10\n"

	wb, err := ReadWorkbook(strings.NewReader(content), "listino.csv")
	assert.NoError(t, err)

	// Headers come back trimmed.
	assert.Equal(t, []string{"Codice Articolo", "Taglia", "Prezzo ingrosso"}, wb.Headers)
	if assert.Len(t, wb.Rows, 2) {
		assert.Equal(t, "ART1", wb.Rows[0]["Codice Articolo"].Value)
		assert.Equal(t, "29,90", wb.Rows[0]["Prezzo ingrosso"].Value)
		assert.Equal(t, "S", wb.Rows[1]["Taglia"].Value)
	}
}

func TestReadWorkbookCSVRaggedRows(t *testing.T) {
	content := "Codice Articolo,Taglia\nART1\n"

	wb, err := ReadWorkbook(strings.NewReader(content), "listino.csv")
	assert.NoError(t, err)
	if assert.Len(t, wb.Rows, 1) {
		assert.Equal(t, "ART1", wb.Rows[0]["Codice Articolo"].Value)
		_, present := wb.Rows[0]["Taglia"]
		assert.False(t, present)
	}
}

func TestReadWorkbookXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]
	assert.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Codice Articolo", "Taglia", "Foto"}))
	assert.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"ART1", "M", "https://example.com/p.jpg"}))
	assert.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"ART2", "S"}))
	assert.NoError(t, f.SetCellHyperLink(sheet, "C3", "https://example.com/link.jpg", "External"))
	assert.NoError(t, f.SetCellValue(sheet, "C3", "foto"))

	buf, err := f.WriteToBuffer()
	assert.NoError(t, err)

	wb, err := ReadWorkbook(buf, "listino.xlsx")
	assert.NoError(t, err)

	assert.Equal(t, []string{"Codice Articolo", "Taglia", "Foto"}, wb.Headers)
	if assert.Len(t, wb.Rows, 2) {
		assert.Equal(t, "https://example.com/p.jpg", wb.Rows[0]["Foto"].Value)
		assert.Equal(t, "https://example.com/link.jpg", wb.Rows[1]["Foto"].Hyperlink)
	}
}

func TestReadWorkbookXLSXFormulaFacet(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]
	assert.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Codice Articolo", "Foto"}))
	assert.NoError(t, f.SetCellValue(sheet, "A2", "ART1"))
	assert.NoError(t, f.SetCellFormula(sheet, "B2", `HYPERLINK("https://example.com/f.jpg","foto")`))

	buf, err := f.WriteToBuffer()
	assert.NoError(t, err)

	wb, err := ReadWorkbook(buf, "listino.xlsx")
	assert.NoError(t, err)

	if assert.Len(t, wb.Rows, 1) {
		assert.Contains(t, wb.Rows[0]["Foto"].Formula, "HYPERLINK")
	}
}

func TestReadWorkbookXLSXNeedsDataRows(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetList()[0]
	assert.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Codice Articolo"}))

	buf, err := f.WriteToBuffer()
	assert.NoError(t, err)

	_, err = ReadWorkbook(buf, "listino.xlsx")
	assert.Error(t, err)
}

func TestReadWorkbookRejectsGarbage(t *testing.T) {
	_, err := ReadWorkbook(strings.NewReader("not a zip archive"), "listino.xlsx")
	assert.Error(t, err)
}
