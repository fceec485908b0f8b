package importer

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"

	"product-import-service/internal/models"
)

func TestWriteReport(t *testing.T) {
	results := []models.UploadResult{
		{Status: models.UploadStatusCreated, Product: &models.ProductRecord{ArticleCode: "ART1", VariantCode: "BLU", SizeID: 2}},
		{Status: models.UploadStatusDuplicate, Product: &models.ProductRecord{ArticleCode: "ART2", VariantCode: "ROS", SizeID: 3}},
		{Status: models.UploadStatusCreated, Product: &models.ProductRecord{ArticleCode: "ART3", VariantCode: "VER", SizeID: 999}},
	}
	sizes := []models.Reference{{ID: 2, Name: "M"}, {ID: 3, Name: "XXL"}}

	var buf bytes.Buffer
	assert.NoError(t, WriteReport(&buf, results, sizes))

	records, err := csv.NewReader(&buf).ReadAll()
	assert.NoError(t, err)
	if assert.Len(t, records, 4) {
		assert.Equal(t, []string{"Codice Articolo", "Codice Variante", "Taglia", "Stato"}, records[0])
		assert.Equal(t, []string{"ART1", "BLU", "M", "Creato"}, records[1])
		assert.Equal(t, []string{"ART2", "ROS", "XXL", "Duplicato"}, records[2])
		// Unresolved size ids leave the column empty.
		assert.Equal(t, []string{"ART3", "VER", "", "Creato"}, records[3])
	}
}

func TestWriteReportNoResults(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, WriteReport(&buf, nil, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	assert.NoError(t, err)
	assert.Len(t, records, 1)
}
