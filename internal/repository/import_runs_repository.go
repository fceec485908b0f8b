package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"product-import-service/internal/models"
)

// ImportRunListCacheTTL keeps listings fresh enough for the back office while
// sparing the database on repeated polls.
const ImportRunListCacheTTL = 2 * time.Minute

// ImportRunsRepository persists the audit trail of completed import runs.
type ImportRunsRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewImportRunsRepository(db *gorm.DB, redisClient *redis.Client) *ImportRunsRepository {
	return &ImportRunsRepository{db: db, redis: redisClient}
}

func listCacheKey(tenantID string) string {
	return fmt.Sprintf("import:runs:%s", tenantID)
}

// Create records one finished (or failed) run and invalidates the tenant's
// listing cache.
func (r *ImportRunsRepository) Create(run *models.ImportRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if err := r.db.Create(run).Error; err != nil {
		return err
	}
	if r.redis != nil {
		r.redis.Del(context.Background(), listCacheKey(run.TenantID))
	}
	return nil
}

// List returns the tenant's most recent runs, newest first, with caching.
func (r *ImportRunsRepository) List(tenantID string, limit int) ([]models.ImportRun, error) {
	ctx := context.Background()
	key := listCacheKey(tenantID)

	if r.redis != nil {
		if val, err := r.redis.Get(ctx, key).Result(); err == nil {
			var runs []models.ImportRun
			if err := json.Unmarshal([]byte(val), &runs); err == nil {
				return runs, nil
			}
		}
	}

	var runs []models.ImportRun
	err := r.db.Where("tenant_id = ?", tenantID).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(runs); err == nil {
			r.redis.Set(ctx, key, data, ImportRunListCacheTTL)
		}
	}

	return runs, nil
}
