package product

import (
	"context"
	"errors"

	"github.com/Pulkitg-senkusha/Products-Cart/pkg/common/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate creates the products table. Runs once at startup; the
// mark-viewed path never touches the schema.
func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&Product{})
}

// UpsertBatch inserts or updates each record keyed on product_id, overwriting
// name, price and rating but never the viewed flag. A record the storage
// layer rejects is logged and skipped; the rest of the batch still commits.
// The returned rows reflect stored state, including the surviving viewed flag.
func (r *Repository) UpsertBatch(ctx context.Context, recs []Product) ([]Product, error) {
	stored := make([]Product, 0, len(recs))
	for i := range recs {
		rec := recs[i]
		err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"product_name", "product_price", "product_star_rating"}),
		}).Create(&rec).Error
		if err != nil {
			logger.Log.WithError(err).WithField("product_id", rec.ProductID).Warn("Skipping product due to storage error")
			continue
		}

		var row Product
		if err := r.db.WithContext(ctx).First(&row, "product_id = ?", rec.ProductID).Error; err != nil {
			logger.Log.WithError(err).WithField("product_id", rec.ProductID).Warn("Failed to read back upserted product")
			continue
		}
		stored = append(stored, row)
	}

	logger.Log.WithField("count", len(stored)).Info("Stored products")
	return stored, nil
}

// List returns every row; no pagination, storage order.
func (r *Repository) List(ctx context.Context) ([]Product, error) {
	products := make([]Product, 0)
	if err := r.db.WithContext(ctx).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Delete removes the row and returns it, or ErrNotFound when the id does not
// exist.
func (r *Repository) Delete(ctx context.Context, id string) (*Product, error) {
	var rec Product
	err := r.db.WithContext(ctx).First(&rec, "product_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Delete(&Product{}, "product_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkViewed sets viewed = true and returns the updated row, or ErrNotFound
// without mutating anything when the id does not exist.
func (r *Repository) MarkViewed(ctx context.Context, id string) (*Product, error) {
	result := r.db.WithContext(ctx).Model(&Product{}).
		Where("product_id = ?", id).
		Update("viewed", true)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	var rec Product
	if err := r.db.WithContext(ctx).First(&rec, "product_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}
