package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"product-import-service/internal/models"
)

// referenceCacheTTL bounds how long reference lists are reused from Redis.
// Brands, sizes and size groups change rarely.
const referenceCacheTTL = 30 * time.Minute

// statusesField selects the status list that applies to products.
const statusesField = "Products"

// referenceListResponse is the envelope the catalog service wraps lists in.
type referenceListResponse struct {
	Success bool               `json:"success"`
	Data    []models.Reference `json:"data"`
}

// CatalogClient handles communication with the catalog reference-data service
// (brands, statuses, sizes, size groups). Lists are cached in Redis; a cold or
// unreachable cache falls through to HTTP.
type CatalogClient struct {
	baseURL    string
	httpClient *http.Client
	redis      *redis.Client
}

// NewCatalogClient creates a new catalog client. The Redis client may be nil,
// in which case caching is disabled.
func NewCatalogClient(redisClient *redis.Client) *CatalogClient {
	baseURL := os.Getenv("CATALOG_SERVICE_URL")
	if baseURL == "" {
		baseURL = "http://catalog-service:8080"
	}

	return &CatalogClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		redis: redisClient,
	}
}

// GetBrands fetches the brand reference list.
func (c *CatalogClient) GetBrands(ctx context.Context, tenantID string) ([]models.Reference, error) {
	return c.getList(ctx, tenantID, "/api/v1/brands", "brands")
}

// GetStatuses fetches the product status reference list.
func (c *CatalogClient) GetStatuses(ctx context.Context, tenantID string) ([]models.Reference, error) {
	return c.getList(ctx, tenantID, "/api/v1/statuses?field="+statusesField, "statuses:"+statusesField)
}

// GetSizes fetches the size reference list.
func (c *CatalogClient) GetSizes(ctx context.Context, tenantID string) ([]models.Reference, error) {
	return c.getList(ctx, tenantID, "/api/v1/sizes", "sizes")
}

// GetSizeGroups fetches the size-group reference list.
func (c *CatalogClient) GetSizeGroups(ctx context.Context, tenantID string) ([]models.Reference, error) {
	return c.getList(ctx, tenantID, "/api/v1/size-groups", "size-groups")
}

// getList resolves one reference list, Redis first, HTTP on a miss.
func (c *CatalogClient) getList(ctx context.Context, tenantID, path, cacheKey string) ([]models.Reference, error) {
	key := fmt.Sprintf("import:refs:%s:%s", tenantID, cacheKey)

	if c.redis != nil {
		if val, err := c.redis.Get(ctx, key).Result(); err == nil {
			var refs []models.Reference
			if err := json.Unmarshal([]byte(val), &refs); err == nil {
				return refs, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Tenant-ID", tenantID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned %d for %s", resp.StatusCode, path)
	}

	var result referenceListResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	if c.redis != nil {
		if data, err := json.Marshal(result.Data); err == nil {
			c.redis.Set(ctx, key, data, referenceCacheTTL)
		}
	}

	return result.Data, nil
}
