package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"product-import-service/internal/models"
)

// ProductsClient handles communication with the products service: duplicate
// checks, batch creation and bulk photo association.
type ProductsClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewProductsClient creates a new products client.
func NewProductsClient() *ProductsClient {
	baseURL := os.Getenv("PRODUCTS_SERVICE_URL")
	if baseURL == "" {
		baseURL = "http://products-service:8080"
	}

	return &ProductsClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type duplicateCheckResponse struct {
	Exists bool `json:"exists"`
}

// CheckDuplicate reports whether a product with the same article code, variant
// code and size already exists.
func (c *ProductsClient) CheckDuplicate(ctx context.Context, tenantID string, check models.DuplicateCheck) (bool, error) {
	var result duplicateCheckResponse
	if err := c.postJSON(ctx, tenantID, "/api/v1/products/check", check, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}

type bulkCreateRequest struct {
	Products []models.ProductRecord `json:"products"`
}

type bulkCreateResponse struct {
	Created []models.ProductRecord `json:"created"`
}

// CreateProducts creates a batch of products and returns the created records.
func (c *ProductsClient) CreateProducts(ctx context.Context, tenantID string, products []models.ProductRecord) ([]models.ProductRecord, error) {
	var result bulkCreateResponse
	if err := c.postJSON(ctx, tenantID, "/api/v1/products/bulk", bulkCreateRequest{Products: products}, &result); err != nil {
		return nil, err
	}
	return result.Created, nil
}

type bulkPhotosRequest struct {
	Photos       []models.PhotoAssociation `json:"photos"`
	UsePublicURL bool                      `json:"usePublicUrl"`
}

// AssociatePhotos bulk-associates photo URLs with existing products.
func (c *ProductsClient) AssociatePhotos(ctx context.Context, tenantID string, photos []models.PhotoAssociation) error {
	return c.postJSON(ctx, tenantID, "/api/v1/products/bulk-photos", bulkPhotosRequest{Photos: photos, UsePublicURL: true}, nil)
}

// postJSON performs a POST with the tenant header set and decodes the response
// into out when out is non-nil.
func (c *ProductsClient) postJSON(ctx context.Context, tenantID, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("X-Tenant-ID", tenantID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("products service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("products service returned %d for %s", resp.StatusCode, path)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode products response: %w", err)
	}
	return nil
}

// TenantProductsClient binds a ProductsClient to one tenant so it satisfies the
// upload collaborator interfaces, which carry no tenant parameter.
type TenantProductsClient struct {
	client   *ProductsClient
	tenantID string
}

// WithTenant returns a tenant-bound view of the client.
func (c *ProductsClient) WithTenant(tenantID string) *TenantProductsClient {
	return &TenantProductsClient{client: c, tenantID: tenantID}
}

// CheckDuplicate implements the duplicate-check collaborator.
func (t *TenantProductsClient) CheckDuplicate(ctx context.Context, check models.DuplicateCheck) (bool, error) {
	return t.client.CheckDuplicate(ctx, t.tenantID, check)
}

// CreateProducts implements the product-creation collaborator.
func (t *TenantProductsClient) CreateProducts(ctx context.Context, products []models.ProductRecord) ([]models.ProductRecord, error) {
	return t.client.CreateProducts(ctx, t.tenantID, products)
}

// AssociatePhotos implements the photo-association collaborator.
func (t *TenantProductsClient) AssociatePhotos(ctx context.Context, photos []models.PhotoAssociation) error {
	return t.client.AssociatePhotos(ctx, t.tenantID, photos)
}
