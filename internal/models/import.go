package models

import (
	"time"

	"github.com/google/uuid"
)

// AttributeKey identifies one product attribute a spreadsheet column can map to.
type AttributeKey string

const (
	AttrArticleCode    AttributeKey = "article_code"
	AttrVariantCode    AttributeKey = "variant_code"
	AttrSize           AttributeKey = "size"
	AttrSizeGroup      AttributeKey = "size_group"
	AttrWholesalePrice AttributeKey = "wholesale_price"
	AttrRetailPrice    AttributeKey = "retail_price"
	AttrBarcode        AttributeKey = "barcode"
	AttrPhoto          AttributeKey = "photo_value"
	AttrBrand          AttributeKey = "brand"
)

// AttrStatus is never column-mapped; the externally selected status is injected
// into every mapped row.
const AttrStatus AttributeKey = "status"

// AllAttributes returns every mappable attribute in canonical order. Iteration
// over mapped rows and the column inferencer both follow this order.
func AllAttributes() []AttributeKey {
	return []AttributeKey{
		AttrArticleCode,
		AttrVariantCode,
		AttrSize,
		AttrSizeGroup,
		AttrWholesalePrice,
		AttrRetailPrice,
		AttrBarcode,
		AttrPhoto,
		AttrBrand,
	}
}

// RequiredAttributes lists the attributes that must resolve to a mapped column or
// a database-side selection before preview is allowed.
func RequiredAttributes() []AttributeKey {
	return []AttributeKey{
		AttrArticleCode,
		AttrVariantCode,
		AttrSize,
		AttrSizeGroup,
		AttrWholesalePrice,
	}
}

// IsValidAttribute reports whether key names a mappable attribute.
func IsValidAttribute(key AttributeKey) bool {
	for _, attr := range AllAttributes() {
		if attr == key {
			return true
		}
	}
	return false
}

// CellValue is one attribute of one mapped row after resolution against
// reference data. Error=true always carries an ErrorMessage; Corrected=true
// implies Error=false.
type CellValue struct {
	Value        string `json:"value"`
	Error        bool   `json:"error,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ID           int64  `json:"id,omitempty"`
	Corrected    bool   `json:"corrected,omitempty"`
	IsImage      bool   `json:"isImage,omitempty"`
}

// MappedRow is one surviving spreadsheet row translated into typed cells.
type MappedRow map[AttributeKey]*CellValue

// ErrorGroup aggregates identical (field, errorMessage) failures across rows so
// the operator can correct each distinct failure once.
type ErrorGroup struct {
	Field        AttributeKey `json:"field"`
	ErrorMessage string       `json:"errorMessage"`
	Value        string       `json:"value"`
	Rows         []int        `json:"rows"`
}

// Correction is the replacement value (and reference id) chosen for one
// (field, errorMessage) group.
type Correction struct {
	Value string `json:"value"`
	ID    int64  `json:"id"`
}

// FreeTextCorrectionID marks a correction typed by the operator instead of
// picked from a reference list.
const FreeTextCorrectionID int64 = -1

// UploadStatus is the per-row outcome of the upload phase. The labels feed the
// operator-facing report unchanged.
type UploadStatus string

const (
	UploadStatusCreated   UploadStatus = "Creato"
	UploadStatusDuplicate UploadStatus = "Duplicato"
)

// UploadResult is one row's outcome, consumed by the report generator.
type UploadResult struct {
	Status  UploadStatus   `json:"status"`
	Product *ProductRecord `json:"product,omitempty"`
}

// ProductRecord is the creation payload sent to the products service and the
// record echoed back for created products.
type ProductRecord struct {
	ID             int64   `json:"id,omitempty"`
	ArticleCode    string  `json:"article_code"`
	VariantCode    string  `json:"variant_code"`
	SizeID         int64   `json:"size_id"`
	SizeGroupID    int64   `json:"size_group_id,omitempty"`
	BrandID        int64   `json:"brand_id,omitempty"`
	StatusID       int64   `json:"status_id,omitempty"`
	WholesalePrice float64 `json:"wholesale_price,omitempty"`
	RetailPrice    float64 `json:"retail_price,omitempty"`
	Barcode        string  `json:"barcode,omitempty"`
	PhotoURL       string  `json:"photo_url,omitempty"`
}

// Reference is one row of a catalog reference list (brands, statuses, sizes,
// size groups).
type Reference struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DuplicateCheck is the payload for the products-service duplicate probe.
type DuplicateCheck struct {
	ArticleCode string `json:"article_code"`
	VariantCode string `json:"variant_code"`
	SizeID      int64  `json:"size_id"`
}

// PhotoAssociation links an already-uploaded photo URL to a product row.
// IsPublicURL distinguishes plain web URLs from blobs extracted out of the
// spreadsheet itself.
type PhotoAssociation struct {
	ArticleCode string `json:"article_code"`
	VariantCode string `json:"variant_code"`
	URL         string `json:"url"`
	IsPublicURL bool   `json:"isPublicUrl"`
}

// SessionState tracks an import session through its phases.
type SessionState string

const (
	SessionStateMapping    SessionState = "MAPPING"
	SessionStatePreview    SessionState = "PREVIEW"
	SessionStateCorrecting SessionState = "CORRECTING"
	SessionStateUploading  SessionState = "UPLOADING"
	SessionStateDone       SessionState = "DONE"
	SessionStateFailed     SessionState = "FAILED"
)

// UploadProgress is the row-level progress of a running upload.
type UploadProgress struct {
	Processed       int    `json:"processed"`
	Total           int    `json:"total"`
	PercentComplete int    `json:"percentComplete"`
	Status          string `json:"status"` // "processing", "completed", "failed"
}

// ImportRun is the persisted audit record of one completed (or failed) upload run.
type ImportRun struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	TenantID       string     `json:"tenantId" gorm:"not null;index"`
	FileName       string     `json:"fileName"`
	TotalRows      int        `json:"totalRows"`
	CreatedCount   int        `json:"createdCount"`
	DuplicateCount int        `json:"duplicateCount"`
	Status         string     `json:"status"`
	ErrorMessage   *string    `json:"errorMessage,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// TableName returns the table name for the ImportRun model
func (ImportRun) TableName() string {
	return "import_runs"
}
