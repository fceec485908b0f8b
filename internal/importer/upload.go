package importer

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"product-import-service/internal/models"
)

// DuplicateChecker probes the products service for an existing row with the
// same article/variant/size combination.
type DuplicateChecker interface {
	CheckDuplicate(ctx context.Context, check models.DuplicateCheck) (bool, error)
}

// ProductCreator creates a batch of products and returns the created records.
// The pipeline only ever sends one-element batches.
type ProductCreator interface {
	CreateProducts(ctx context.Context, products []models.ProductRecord) ([]models.ProductRecord, error)
}

// PhotoAssociator bulk-associates already-uploaded photo URLs to products.
type PhotoAssociator interface {
	AssociatePhotos(ctx context.Context, photos []models.PhotoAssociation) error
}

// ProgressFunc receives the running row count and rounded percentage after each
// processed row.
type ProgressFunc func(processed, total, percent int)

// RunOutcome is the result of one upload run. PhotoWarning carries a phase 2
// failure, which never aborts the run: the product records already exist
// regardless of the photo outcome.
type RunOutcome struct {
	Results      []models.UploadResult
	PhotoWarning string
}

// Orchestrator drives the upload phases over injected collaborators. Phase 1 is
// strictly sequential: a row's duplicate check must observe products created by
// earlier rows. Phase 2 is one best-effort bulk photo-association call.
type Orchestrator struct {
	checker    DuplicateChecker
	creator    ProductCreator
	associator PhotoAssociator
	logger     *logrus.Logger
}

// NewOrchestrator wires the collaborators.
func NewOrchestrator(checker DuplicateChecker, creator ProductCreator, associator PhotoAssociator, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		checker:    checker,
		creator:    creator,
		associator: associator,
		logger:     logger,
	}
}

// Run processes the corrected rows one at a time and returns one result per
// processed row. A collaborator failure aborts the run and surfaces the error;
// results collected up to that point are returned alongside it. There is no
// retry and no cancellation once the loop starts.
func (o *Orchestrator) Run(ctx context.Context, rows []models.MappedRow, progress ProgressFunc) (*RunOutcome, error) {
	outcome := &RunOutcome{Results: make([]models.UploadResult, 0, len(rows))}
	total := len(rows)

	for i, row := range rows {
		payload := buildPayload(row)

		exists, err := o.checker.CheckDuplicate(ctx, models.DuplicateCheck{
			ArticleCode: payload.ArticleCode,
			VariantCode: payload.VariantCode,
			SizeID:      payload.SizeID,
		})
		if err != nil {
			return outcome, fmt.Errorf("duplicate check failed for %s/%s: %w", payload.ArticleCode, payload.VariantCode, err)
		}

		if exists {
			record := payload
			outcome.Results = append(outcome.Results, models.UploadResult{
				Status:  models.UploadStatusDuplicate,
				Product: &record,
			})
		} else {
			created, err := o.creator.CreateProducts(ctx, []models.ProductRecord{payload})
			if err != nil {
				return outcome, fmt.Errorf("product creation failed for %s/%s: %w", payload.ArticleCode, payload.VariantCode, err)
			}
			record := payload
			if len(created) > 0 {
				record = created[0]
			}
			outcome.Results = append(outcome.Results, models.UploadResult{
				Status:  models.UploadStatusCreated,
				Product: &record,
			})
		}

		if progress != nil {
			progress(i+1, total, int(math.Round(float64(i+1)/float64(total)*100)))
		}
	}

	// Phase 2: bulk photo association, best effort.
	photos := collectPhotos(rows)
	if len(photos) > 0 {
		if err := o.associator.AssociatePhotos(ctx, photos); err != nil {
			outcome.PhotoWarning = fmt.Sprintf("photo association failed for %d photos: %v", len(photos), err)
			if o.logger != nil {
				o.logger.WithError(err).Warn("Photo association failed, product records are unaffected")
			}
		}
	}

	return outcome, nil
}

// buildPayload assembles the creation payload from a row's resolved cells.
func buildPayload(row models.MappedRow) models.ProductRecord {
	return models.ProductRecord{
		ArticleCode:    cellString(row, models.AttrArticleCode),
		VariantCode:    cellString(row, models.AttrVariantCode),
		SizeID:         cellID(row, models.AttrSize),
		SizeGroupID:    cellID(row, models.AttrSizeGroup),
		BrandID:        cellID(row, models.AttrBrand),
		StatusID:       cellID(row, models.AttrStatus),
		WholesalePrice: cellFloat(row, models.AttrWholesalePrice),
		RetailPrice:    cellFloat(row, models.AttrRetailPrice),
		Barcode:        cellString(row, models.AttrBarcode),
		PhotoURL:       cellString(row, models.AttrPhoto),
	}
}

// collectPhotos gathers the rows carrying a usable photo value. Plain web URLs
// are flagged as public; blobs extracted from the workbook are not.
func collectPhotos(rows []models.MappedRow) []models.PhotoAssociation {
	var photos []models.PhotoAssociation
	for _, row := range rows {
		cell := row[models.AttrPhoto]
		if cell == nil || cell.Value == "" || cell.Value == absentValue {
			continue
		}
		photos = append(photos, models.PhotoAssociation{
			ArticleCode: cellString(row, models.AttrArticleCode),
			VariantCode: cellString(row, models.AttrVariantCode),
			URL:         cell.Value,
			IsPublicURL: !cell.IsImage,
		})
	}
	return photos
}

func cellString(row models.MappedRow, attr models.AttributeKey) string {
	cell := row[attr]
	if cell == nil || cell.Value == absentValue {
		return ""
	}
	return cell.Value
}

func cellID(row models.MappedRow, attr models.AttributeKey) int64 {
	cell := row[attr]
	if cell == nil {
		return 0
	}
	return cell.ID
}

func cellFloat(row models.MappedRow, attr models.AttributeKey) float64 {
	cell := row[attr]
	if cell == nil {
		return 0
	}
	return parseFloatPrefix(cell.Value)
}
