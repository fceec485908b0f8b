package importer

import (
	"product-import-service/internal/models"
)

// CollectErrorGroups scans the mapped rows and groups identical (field,
// errorMessage) failures so the operator corrects each distinct failure once.
// Groups keep first-occurrence order; cells already corrected are skipped. The
// second return value is the number of rows carrying at least one outstanding
// error; a row with several erroring fields counts once.
func CollectErrorGroups(rows []models.MappedRow) ([]models.ErrorGroup, int) {
	groups := make([]models.ErrorGroup, 0)
	index := make(map[string]int)
	errorRowCount := 0

	for rowIdx, row := range rows {
		rowHasError := false
		for _, attr := range models.AllAttributes() {
			cell := row[attr]
			if cell == nil || !cell.Error || cell.Corrected {
				continue
			}
			rowHasError = true

			key := string(attr) + "-" + cell.ErrorMessage
			if gi, ok := index[key]; ok {
				groups[gi].Rows = append(groups[gi].Rows, rowIdx)
				continue
			}
			index[key] = len(groups)
			groups = append(groups, models.ErrorGroup{
				Field:        attr,
				ErrorMessage: cell.ErrorMessage,
				Value:        cell.Value,
				Rows:         []int{rowIdx},
			})
		}
		if rowHasError {
			errorRowCount++
		}
	}

	return groups, errorRowCount
}
