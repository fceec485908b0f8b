package models

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"` // string, number, url
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity  string                 `json:"entity"`
	Version string                 `json:"version"`
	Columns []ImportTemplateColumn `json:"columns"`
}

// ProductImportColumns returns the column definitions for product import
func ProductImportColumns() []ImportTemplateColumn {
	return []ImportTemplateColumn{
		{Name: string(AttrArticleCode), Description: "Article/style code", Required: true, Type: "string", Example: "ART-0001"},
		{Name: string(AttrVariantCode), Description: "Variant/color code", Required: true, Type: "string", Example: "BLU"},
		{Name: string(AttrSize), Description: "Size name, must match the size list", Required: true, Type: "string", Example: "M"},
		{Name: string(AttrSizeGroup), Description: "Size group name, must match the size-group list", Required: true, Type: "string", Example: "Standard"},
		{Name: string(AttrWholesalePrice), Description: "Wholesale price", Required: true, Type: "number", Example: "29.90"},
		{Name: string(AttrRetailPrice), Description: "Retail price", Required: false, Type: "number", Example: "59.90"},
		{Name: string(AttrBarcode), Description: "EAN/barcode", Required: false, Type: "string", Example: "8001234567890"},
		{Name: string(AttrPhoto), Description: "Photo URL, hyperlink or embedded image", Required: false, Type: "url", Example: "https://example.com/photo.jpg"},
		{Name: string(AttrBrand), Description: "Brand name, must match the brand list (or select one before preview)", Required: false, Type: "string", Example: "Acme"},
	}
}

// ProductImportTemplate returns the template definition for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "1.0",
		Columns: ProductImportColumns(),
	}
}
