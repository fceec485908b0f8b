package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"product-import-service/internal/clients"
	"product-import-service/internal/importer"
	"product-import-service/internal/middleware"
	"product-import-service/internal/models"
	"product-import-service/internal/repository"
)

type ImportHandler struct {
	store          *importer.SessionStore
	catalogClient  *clients.CatalogClient
	productsClient *clients.ProductsClient
	runsRepo       *repository.ImportRunsRepository
	mediaBaseURL   string
	maxUploadBytes int64
	logger         *logrus.Logger
}

func NewImportHandler(store *importer.SessionStore, catalogClient *clients.CatalogClient, productsClient *clients.ProductsClient, runsRepo *repository.ImportRunsRepository, mediaBaseURL string, maxUploadSizeMB int, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		store:          store,
		catalogClient:  catalogClient,
		productsClient: productsClient,
		runsRepo:       runsRepo,
		mediaBaseURL:   mediaBaseURL,
		maxUploadBytes: int64(maxUploadSizeMB) * 1024 * 1024,
		logger:         logger,
	}
}

// CreateImport opens a new import session from an uploaded CSV or XLSX file.
// The file is parsed once, reference lists are fetched, and column mappings are
// inferred from the header row.
// POST /api/v1/imports
func (h *ImportHandler) CreateImport(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "FILE_REQUIRED", "Please upload a CSV or Excel file")
		return
	}
	defer file.Close()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		h.respondError(c, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
			fmt.Sprintf("File exceeds the %d MB upload limit", h.maxUploadBytes/(1024*1024)))
		return
	}

	filename := strings.ToLower(header.Filename)
	if !strings.HasSuffix(filename, ".csv") && !strings.HasSuffix(filename, ".xlsx") && !strings.HasSuffix(filename, ".xls") {
		h.respondError(c, http.StatusBadRequest, "INVALID_FORMAT", "Only CSV and Excel files are supported")
		return
	}

	workbook, err := importer.ReadWorkbook(file, header.Filename)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, "PARSE_ERROR", err.Error())
		return
	}

	refs, err := h.fetchReferences(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to fetch reference data")
		h.respondError(c, http.StatusBadGateway, "REFERENCE_FETCH_FAILED", "Failed to load reference data from the catalog service")
		return
	}

	session := importer.NewSession(tenantID, header.Filename, workbook, refs, h.mediaBaseURL)
	h.store.Put(session)

	h.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"tenant_id":  tenantID,
		"file_name":  header.Filename,
		"columns":    len(workbook.Headers),
		"rows":       len(workbook.Rows),
	}).Info("Import session created")

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Success: true,
		Data:    h.sessionSummary(session),
	})
}

// fetchReferences loads the four catalog reference lists concurrently.
func (h *ImportHandler) fetchReferences(ctx context.Context, tenantID string) (importer.ReferenceData, error) {
	var refs importer.ReferenceData
	var wg sync.WaitGroup
	errs := make([]error, 4)

	wg.Add(4)
	go func() {
		defer wg.Done()
		refs.Brands, errs[0] = h.catalogClient.GetBrands(ctx, tenantID)
	}()
	go func() {
		defer wg.Done()
		refs.Statuses, errs[1] = h.catalogClient.GetStatuses(ctx, tenantID)
	}()
	go func() {
		defer wg.Done()
		refs.Sizes, errs[2] = h.catalogClient.GetSizes(ctx, tenantID)
	}()
	go func() {
		defer wg.Done()
		refs.SizeGroups, errs[3] = h.catalogClient.GetSizeGroups(ctx, tenantID)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return refs, err
		}
	}
	return refs, nil
}

// GetImport returns the session summary: state, headers, mapping and missing
// required attributes.
// GET /api/v1/imports/:id
func (h *ImportHandler) GetImport(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    h.sessionSummary(session),
	})
}

type updateMappingRequest struct {
	Mapping map[string]string `json:"mapping"`
	Brand   *models.Reference `json:"brand"`
	Status  *models.Reference `json:"status"`
}

// UpdateMapping records manual column-mapping edits and the database-side brand
// and status selections. An empty header value unbinds the attribute.
// PUT /api/v1/imports/:id/mapping
func (h *ImportHandler) UpdateMapping(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req updateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	for key, headerName := range req.Mapping {
		attr := models.AttributeKey(key)
		if !models.IsValidAttribute(attr) {
			h.respondError(c, http.StatusBadRequest, "INVALID_ATTRIBUTE", fmt.Sprintf("Unknown attribute '%s'", key))
			return
		}
		if err := session.SetMapping(attr, headerName); err != nil {
			h.respondError(c, http.StatusConflict, "MAPPING_FROZEN", err.Error())
			return
		}
	}

	if req.Brand != nil {
		session.SelectBrand(req.Brand)
	}
	if req.Status != nil {
		session.SelectStatus(req.Status)
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    h.sessionSummary(session),
	})
}

// Preview freezes the mapping, maps every spreadsheet row and returns the rows
// together with the aggregated validation errors.
// POST /api/v1/imports/:id/preview
func (h *ImportHandler) Preview(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	rows, groups, errorRowCount, err := session.Preview()
	if err != nil {
		if incomplete, ok := err.(*importer.MappingIncompleteError); ok {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MAPPING_INCOMPLETE",
					"message": "Required attributes are not mapped",
					"missing": incomplete.Missing,
				},
			})
			return
		}
		h.respondError(c, http.StatusConflict, "PREVIEW_UNAVAILABLE", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"rows":          rows,
		"errors":        groups,
		"errorRowCount": errorRowCount,
		"rowCount":      len(rows),
	})
}

// GetErrors returns the current aggregated validation failures.
// GET /api/v1/imports/:id/errors
func (h *ImportHandler) GetErrors(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	groups, errorRowCount := session.ErrorGroups()
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"errors":        groups,
		"errorRowCount": errorRowCount,
	})
}

// GetSuggestion proposes the closest reference value for an invalid cell value.
// GET /api/v1/imports/:id/suggestion?field=size&value=XL2
func (h *ImportHandler) GetSuggestion(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	field := models.AttributeKey(c.Query("field"))
	value := c.Query("value")
	if !models.IsValidAttribute(field) {
		h.respondError(c, http.StatusBadRequest, "INVALID_ATTRIBUTE", fmt.Sprintf("Unknown attribute '%s'", field))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"suggestion": session.Suggest(field, value),
	})
}

type correctionRequest struct {
	Field        string `json:"field" binding:"required"`
	ErrorMessage string `json:"errorMessage"`
	Value        string `json:"value" binding:"required"`
	ID           *int64 `json:"id"`
}

type stageCorrectionsRequest struct {
	Corrections []correctionRequest `json:"corrections" binding:"required"`
}

// StageCorrections stores corrections for (field, errorMessage) groups without
// touching the rows. A missing id marks a free-text correction.
// PUT /api/v1/imports/:id/corrections
func (h *ImportHandler) StageCorrections(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req stageCorrectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body: "+err.Error())
		return
	}

	for _, corr := range req.Corrections {
		field := models.AttributeKey(corr.Field)
		if !models.IsValidAttribute(field) {
			h.respondError(c, http.StatusBadRequest, "INVALID_ATTRIBUTE", fmt.Sprintf("Unknown attribute '%s'", corr.Field))
			return
		}
		id := models.FreeTextCorrectionID
		if corr.ID != nil {
			id = *corr.ID
		}
		if err := session.StageCorrection(field, corr.ErrorMessage, corr.Value, id); err != nil {
			h.respondError(c, http.StatusConflict, "CORRECTIONS_FROZEN", err.Error())
			return
		}
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// ApplyCorrections propagates every staged correction into the mapped rows and
// returns the remaining validation errors. Reapplying is a no-op.
// POST /api/v1/imports/:id/corrections/apply
func (h *ImportHandler) ApplyCorrections(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	groups, errorRowCount, err := session.ApplyCorrections()
	if err != nil {
		h.respondError(c, http.StatusConflict, "CORRECTIONS_FROZEN", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"rows":          session.Rows(),
		"errors":        groups,
		"errorRowCount": errorRowCount,
	})
}

// Upload runs the two-phase upload over the corrected rows: per-row duplicate
// check and creation, then best-effort bulk photo association. The run is
// synchronous; progress is observable through GetProgress from another request.
// POST /api/v1/imports/:id/upload
func (h *ImportHandler) Upload(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	tenantID := middleware.GetTenantID(c)

	rows, err := session.BeginUpload()
	if err != nil {
		h.respondError(c, http.StatusConflict, "UPLOAD_BLOCKED", err.Error())
		return
	}

	startedAt := time.Now()
	tenantClient := h.productsClient.WithTenant(tenantID)
	orchestrator := importer.NewOrchestrator(tenantClient, tenantClient, tenantClient, h.logger)

	outcome, runErr := orchestrator.Run(c.Request.Context(), rows, session.SetProgress)
	session.FinishUpload(outcome.Results, runErr)
	h.recordRun(session, outcome.Results, startedAt, runErr)

	if runErr != nil {
		h.logger.WithError(runErr).WithField("session_id", session.ID).Error("Upload run aborted")
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": runErr.Error(),
			},
			"results": outcome.Results,
		})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"session_id": session.ID,
		"rows":       len(outcome.Results),
		"duration":   time.Since(startedAt).String(),
	}).Info("Upload run completed")

	response := gin.H{
		"success": true,
		"results": outcome.Results,
	}
	if outcome.PhotoWarning != "" {
		response["photoWarning"] = outcome.PhotoWarning
	}
	c.JSON(http.StatusOK, response)
}

// recordRun persists the audit record of one finished run. Persistence is best
// effort: a storage failure never fails the upload that already happened.
func (h *ImportHandler) recordRun(session *importer.Session, results []models.UploadResult, startedAt time.Time, runErr error) {
	if h.runsRepo == nil {
		return
	}

	created, duplicates := 0, 0
	for _, result := range results {
		switch result.Status {
		case models.UploadStatusCreated:
			created++
		case models.UploadStatusDuplicate:
			duplicates++
		}
	}

	completedAt := time.Now()
	run := &models.ImportRun{
		ID:             uuid.New(),
		TenantID:       session.TenantID,
		FileName:       session.FileName,
		TotalRows:      session.RowCount(),
		CreatedCount:   created,
		DuplicateCount: duplicates,
		Status:         "completed",
		StartedAt:      startedAt,
		CompletedAt:    &completedAt,
	}
	if runErr != nil {
		run.Status = "failed"
		msg := runErr.Error()
		run.ErrorMessage = &msg
	}

	if err := h.runsRepo.Create(run); err != nil {
		h.logger.WithError(err).Warn("Failed to persist import run record")
	}
}

// GetProgress returns the row-level progress of a running upload.
// GET /api/v1/imports/:id/progress
func (h *ImportHandler) GetProgress(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"state":    session.State(),
		"progress": session.Progress(),
	})
}

// GetReport streams the per-row outcome report as a CSV download.
// GET /api/v1/imports/:id/report
func (h *ImportHandler) GetReport(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	results := session.Results()
	if len(results) == 0 {
		h.respondError(c, http.StatusConflict, "REPORT_UNAVAILABLE", "No upload has been completed for this import")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", importer.ReportFileName))
	if err := importer.WriteReport(c.Writer, results, session.References().Sizes); err != nil {
		h.logger.WithError(err).Error("Failed to write upload report")
	}
}

// GetMedia serves an embedded-picture blob extracted from the workbook.
// GET /api/v1/imports/:id/media/:mediaId
func (h *ImportHandler) GetMedia(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	data, found := session.Media(c.Param("mediaId"))
	if !found {
		h.respondError(c, http.StatusNotFound, "MEDIA_NOT_FOUND", "Media not found")
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(data), data)
}

// DeleteImport discards an in-flight session and its extracted media.
// DELETE /api/v1/imports/:id
func (h *ImportHandler) DeleteImport(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	h.store.Delete(session.ID)
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true})
}

// ListRuns returns the tenant's persisted import run history, newest first.
// GET /api/v1/imports/runs
func (h *ImportHandler) ListRuns(c *gin.Context) {
	if h.runsRepo == nil {
		h.respondError(c, http.StatusServiceUnavailable, "RUNS_UNAVAILABLE", "Import run history is not available")
		return
	}

	tenantID := middleware.GetTenantID(c)
	runs, err := h.runsRepo.List(tenantID, 50)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list import runs")
		h.respondError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load import run history")
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    runs,
	})
}

// GetImportTemplate returns the import template definition or file
// GET /api/v1/imports/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := models.ProductImportTemplate()

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	// Write header row only (no sample data)
	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	// Add Instructions sheet
	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Product Import Instructions")

	f.SetCellValue("Instructions", "A3", "COLUMN MAPPING:")
	f.SetCellValue("Instructions", "A4", "Column headers do not have to match these names exactly. The import wizard")
	f.SetCellValue("Instructions", "A5", "recognizes common header variants (including Italian) and lets you adjust the")
	f.SetCellValue("Instructions", "A6", "mapping before any data is imported.")

	f.SetCellValue("Instructions", "A8", "PHOTOS:")
	f.SetCellValue("Instructions", "A9", "The photo column accepts a plain URL, an Excel hyperlink, a HYPERLINK formula,")
	f.SetCellValue("Instructions", "A10", "an embedded image or a MEDIA_ vendor token.")

	f.SetCellValue("Instructions", "A12", "Column Definitions:")
	f.SetCellValue("Instructions", "A13", "Column")
	f.SetCellValue("Instructions", "B13", "Description")
	f.SetCellValue("Instructions", "C13", "Required")
	f.SetCellValue("Instructions", "D13", "Type")
	f.SetCellValue("Instructions", "E13", "Example")

	for i, col := range template.Columns {
		row := i + 14
		f.SetCellValue("Instructions", fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue("Instructions", fmt.Sprintf("B%d", row), col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", fmt.Sprintf("C%d", row), required)
		f.SetCellValue("Instructions", fmt.Sprintf("D%d", row), col.Type)
		f.SetCellValue("Instructions", fmt.Sprintf("E%d", row), col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=products_import_template.xlsx")

	f.Write(c.Writer)
}

// session resolves the :id parameter to a session owned by the request tenant.
// Cross-tenant lookups report not found rather than forbidden.
func (h *ImportHandler) session(c *gin.Context) (*importer.Session, bool) {
	session, found := h.store.Get(c.Param("id"))
	if !found || session.TenantID != middleware.GetTenantID(c) {
		h.respondError(c, http.StatusNotFound, "IMPORT_NOT_FOUND", "Import session not found")
		return nil, false
	}
	return session, true
}

// sessionSummary is the session view returned by create, get and mapping edits.
func (h *ImportHandler) sessionSummary(session *importer.Session) gin.H {
	refs := session.References()
	return gin.H{
		"id":              session.ID,
		"fileName":        session.FileName,
		"state":           session.State(),
		"createdAt":       session.CreatedAt,
		"headers":         session.Headers(),
		"mapping":         session.Mapping(),
		"suggested":       session.Suggested(),
		"missingRequired": session.MissingRequired(),
		"rowCount":        session.RowCount(),
		"references": gin.H{
			"brands":     refs.Brands,
			"statuses":   refs.Statuses,
			"sizes":      refs.Sizes,
			"sizeGroups": refs.SizeGroups,
		},
	}
}

func (h *ImportHandler) respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}
