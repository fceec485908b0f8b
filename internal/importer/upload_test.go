package importer

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"product-import-service/internal/models"
)

// MockProductsService mocks the three upload collaborators.
type MockProductsService struct {
	mock.Mock
}

var _ DuplicateChecker = (*MockProductsService)(nil)
var _ ProductCreator = (*MockProductsService)(nil)
var _ PhotoAssociator = (*MockProductsService)(nil)

func (m *MockProductsService) CheckDuplicate(ctx context.Context, check models.DuplicateCheck) (bool, error) {
	args := m.Called(ctx, check)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductsService) CreateProducts(ctx context.Context, products []models.ProductRecord) ([]models.ProductRecord, error) {
	args := m.Called(ctx, products)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ProductRecord), args.Error(1)
}

func (m *MockProductsService) AssociatePhotos(ctx context.Context, photos []models.PhotoAssociation) error {
	args := m.Called(ctx, photos)
	return args.Error(0)
}

func uploadRow(article, variant string, sizeID int64) models.MappedRow {
	return models.MappedRow{
		models.AttrArticleCode:    &models.CellValue{Value: article},
		models.AttrVariantCode:    &models.CellValue{Value: variant},
		models.AttrSize:           &models.CellValue{Value: "M", ID: sizeID},
		models.AttrSizeGroup:      &models.CellValue{Value: "Standard", ID: 30},
		models.AttrWholesalePrice: &models.CellValue{Value: "10"},
		models.AttrRetailPrice:    &models.CellValue{Value: "N/A"},
		models.AttrBarcode:        &models.CellValue{Value: "N/A"},
		models.AttrPhoto:          &models.CellValue{Value: "N/A"},
		models.AttrBrand:          &models.CellValue{Value: "Acme", ID: 10},
		models.AttrStatus:         &models.CellValue{Value: "Attivo", ID: 20},
	}
}

func newTestOrchestrator(svc *MockProductsService) *Orchestrator {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewOrchestrator(svc, svc, svc, logger)
}

func TestRunCreatesAndSkipsDuplicates(t *testing.T) {
	svc := new(MockProductsService)
	rows := []models.MappedRow{
		uploadRow("ART1", "BLU", 2),
		uploadRow("ART2", "ROS", 2),
		uploadRow("ART3", "VER", 2),
	}

	svc.On("CheckDuplicate", mock.Anything, models.DuplicateCheck{ArticleCode: "ART1", VariantCode: "BLU", SizeID: 2}).Return(false, nil)
	svc.On("CheckDuplicate", mock.Anything, models.DuplicateCheck{ArticleCode: "ART2", VariantCode: "ROS", SizeID: 2}).Return(true, nil)
	svc.On("CheckDuplicate", mock.Anything, models.DuplicateCheck{ArticleCode: "ART3", VariantCode: "VER", SizeID: 2}).Return(false, nil)
	svc.On("CreateProducts", mock.Anything, mock.Anything).Return([]models.ProductRecord{}, nil)

	var percents []int
	outcome, err := newTestOrchestrator(svc).Run(context.Background(), rows, func(processed, total, percent int) {
		percents = append(percents, percent)
	})

	assert.NoError(t, err)
	if assert.Len(t, outcome.Results, 3) {
		assert.Equal(t, models.UploadStatusCreated, outcome.Results[0].Status)
		assert.Equal(t, models.UploadStatusDuplicate, outcome.Results[1].Status)
		assert.Equal(t, models.UploadStatusCreated, outcome.Results[2].Status)
	}
	assert.Equal(t, []int{33, 67, 100}, percents)

	// No usable photo values, so phase 2 never runs.
	svc.AssertNotCalled(t, "AssociatePhotos", mock.Anything, mock.Anything)
	svc.AssertNumberOfCalls(t, "CreateProducts", 2)
}

func TestRunPrefersServiceEchoedRecord(t *testing.T) {
	svc := new(MockProductsService)
	rows := []models.MappedRow{uploadRow("ART1", "BLU", 2)}

	created := models.ProductRecord{ID: 99, ArticleCode: "ART1", VariantCode: "BLU", SizeID: 2}
	svc.On("CheckDuplicate", mock.Anything, mock.Anything).Return(false, nil)
	svc.On("CreateProducts", mock.Anything, mock.Anything).Return([]models.ProductRecord{created}, nil)

	outcome, err := newTestOrchestrator(svc).Run(context.Background(), rows, nil)

	assert.NoError(t, err)
	if assert.Len(t, outcome.Results, 1) {
		assert.Equal(t, int64(99), outcome.Results[0].Product.ID)
	}
}

func TestRunAbortsOnCollaboratorFailure(t *testing.T) {
	svc := new(MockProductsService)
	rows := []models.MappedRow{
		uploadRow("ART1", "BLU", 2),
		uploadRow("ART2", "ROS", 2),
		uploadRow("ART3", "VER", 2),
	}

	svc.On("CheckDuplicate", mock.Anything, models.DuplicateCheck{ArticleCode: "ART1", VariantCode: "BLU", SizeID: 2}).Return(false, nil)
	svc.On("CheckDuplicate", mock.Anything, models.DuplicateCheck{ArticleCode: "ART2", VariantCode: "ROS", SizeID: 2}).Return(false, assert.AnError)
	svc.On("CreateProducts", mock.Anything, mock.Anything).Return([]models.ProductRecord{}, nil)

	outcome, err := newTestOrchestrator(svc).Run(context.Background(), rows, nil)

	assert.Error(t, err)
	// Partial results for the rows processed before the failure are kept.
	assert.Len(t, outcome.Results, 1)
	svc.AssertNotCalled(t, "CheckDuplicate", mock.Anything, models.DuplicateCheck{ArticleCode: "ART3", VariantCode: "VER", SizeID: 2})
}

func TestRunAssociatesPhotosBestEffort(t *testing.T) {
	svc := new(MockProductsService)

	withPhoto := uploadRow("ART1", "BLU", 2)
	withPhoto[models.AttrPhoto] = &models.CellValue{Value: "https://example.com/p.jpg"}
	embedded := uploadRow("ART2", "ROS", 2)
	embedded[models.AttrPhoto] = &models.CellValue{Value: "/api/v1/imports/x/media/y", IsImage: true}
	rows := []models.MappedRow{withPhoto, embedded, uploadRow("ART3", "VER", 2)}

	svc.On("CheckDuplicate", mock.Anything, mock.Anything).Return(false, nil)
	svc.On("CreateProducts", mock.Anything, mock.Anything).Return([]models.ProductRecord{}, nil)
	svc.On("AssociatePhotos", mock.Anything, []models.PhotoAssociation{
		{ArticleCode: "ART1", VariantCode: "BLU", URL: "https://example.com/p.jpg", IsPublicURL: true},
		{ArticleCode: "ART2", VariantCode: "ROS", URL: "/api/v1/imports/x/media/y", IsPublicURL: false},
	}).Return(assert.AnError)

	outcome, err := newTestOrchestrator(svc).Run(context.Background(), rows, nil)

	// A photo association failure never fails the run.
	assert.NoError(t, err)
	assert.Len(t, outcome.Results, 3)
	assert.NotEmpty(t, outcome.PhotoWarning)
	svc.AssertExpectations(t)
}

func TestBuildPayloadResolvesCells(t *testing.T) {
	row := uploadRow("ART1", "BLU", 2)
	row[models.AttrWholesalePrice] = &models.CellValue{Value: "29.9"}
	row[models.AttrRetailPrice] = &models.CellValue{Value: "59.9"}
	row[models.AttrBarcode] = &models.CellValue{Value: "8001234567890"}
	row[models.AttrPhoto] = &models.CellValue{Value: "https://example.com/p.jpg"}

	payload := buildPayload(row)

	assert.Equal(t, "ART1", payload.ArticleCode)
	assert.Equal(t, "BLU", payload.VariantCode)
	assert.Equal(t, int64(2), payload.SizeID)
	assert.Equal(t, int64(30), payload.SizeGroupID)
	assert.Equal(t, int64(10), payload.BrandID)
	assert.Equal(t, int64(20), payload.StatusID)
	assert.Equal(t, 29.9, payload.WholesalePrice)
	assert.Equal(t, 59.9, payload.RetailPrice)
	assert.Equal(t, "8001234567890", payload.Barcode)
	assert.Equal(t, "https://example.com/p.jpg", payload.PhotoURL)
}

func TestBuildPayloadTreatsAbsenceAsEmpty(t *testing.T) {
	payload := buildPayload(uploadRow("ART1", "BLU", 2))

	assert.Empty(t, payload.Barcode)
	assert.Empty(t, payload.PhotoURL)
	assert.Equal(t, 0.0, payload.RetailPrice)
}
