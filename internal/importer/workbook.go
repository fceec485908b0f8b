package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Cell carries every facet of a spreadsheet cell the pipeline can read. Vendor
// exports hide the interesting content in different facets depending on how the
// file was produced, so all of them are captured up front.
type Cell struct {
	Value     string
	Hyperlink string
	Formula   string
	Image     []byte
}

// Row maps a trimmed header string to the cell under it.
type Row map[string]Cell

// Workbook is the parsed source spreadsheet: the header row plus the data rows
// of the first sheet. It is read-only and discarded once row mapping completes.
type Workbook struct {
	Headers []string
	Rows    []Row
}

// ReadWorkbook parses an uploaded spreadsheet. CSV files go through encoding/csv,
// .xlsx/.xls through excelize. Only the first sheet is read; row 1 is the header
// and data starts at row 2.
func ReadWorkbook(file io.Reader, filename string) (*Workbook, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return readCSV(file)
	}
	return readXLSX(file)
}

// readCSV parses a CSV file into rows. CSV cells only ever carry a plain value.
func readCSV(file io.Reader) (*Workbook, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []Row
	lineNum := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading line %d: %w", lineNum+1, err)
		}

		row := make(Row)
		for i, value := range record {
			if i < len(headers) {
				row[headers[i]] = Cell{Value: strings.TrimSpace(value)}
			}
		}
		rows = append(rows, row)
		lineNum++
	}

	return &Workbook{Headers: headers, Rows: rows}, nil
}

// readXLSX parses an Excel file into rows, capturing hyperlink targets, formulas
// and embedded pictures alongside the displayed values.
func readXLSX(file io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}
	sheetName := sheets[0]

	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, fmt.Errorf("file must have a header row and at least one data row")
	}

	headers := excelRows[0]
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	rows := make([]Row, 0, len(excelRows)-1)
	for rowIdx, excelRow := range excelRows[1:] {
		row := make(Row)
		for col := range headers {
			var value string
			if col < len(excelRow) {
				value = strings.TrimSpace(excelRow[col])
			}
			cell := Cell{Value: value}

			coord, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err == nil {
				if ok, target, err := f.GetCellHyperLink(sheetName, coord); err == nil && ok {
					cell.Hyperlink = target
				}
				if formula, err := f.GetCellFormula(sheetName, coord); err == nil && formula != "" {
					cell.Formula = formula
				}
				if pics, err := f.GetPictures(sheetName, coord); err == nil && len(pics) > 0 {
					cell.Image = pics[0].File
				}
			}

			row[headers[col]] = cell
		}
		rows = append(rows, row)
	}

	return &Workbook{Headers: headers, Rows: rows}, nil
}
