package importer

import (
	"encoding/csv"
	"io"

	"product-import-service/internal/models"
)

// ReportFileName is the download name of the upload outcome report.
const ReportFileName = "report_upload_prodotti.csv"

// reportHeader is the fixed header row of the outcome report.
var reportHeader = []string{"Codice Articolo", "Codice Variante", "Taglia", "Stato"}

// WriteReport renders the per-row upload outcomes as a CSV table, one data line
// per result. Size names are resolved from the product's size id; an unresolved
// id leaves the column empty.
func WriteReport(w io.Writer, results []models.UploadResult, sizes []models.Reference) error {
	sizeNames := make(map[int64]string, len(sizes))
	for _, ref := range sizes {
		sizeNames[ref.ID] = ref.Name
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(reportHeader); err != nil {
		return err
	}
	for _, result := range results {
		var articleCode, variantCode, sizeName string
		if result.Product != nil {
			articleCode = result.Product.ArticleCode
			variantCode = result.Product.VariantCode
			sizeName = sizeNames[result.Product.SizeID]
		}
		if err := writer.Write([]string{articleCode, variantCode, sizeName, string(result.Status)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
