package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ERPlora/module-customers/internal/domain"
)

// SaleSource reads the sales module's table directly. It is only wired
// when that table exists; callers hold nil otherwise.
type SaleSource struct{ db *gorm.DB }

func NewSaleSource(db *gorm.DB) *SaleSource { return &SaleSource{db: db} }

// HasSalesTable reports whether the sales module left its table behind.
func HasSalesTable(db *gorm.DB) bool {
	return db.Migrator().HasTable(&domain.Sale{})
}

func (s *SaleSource) StatsByCustomerName(ctx context.Context, name string) (domain.SaleStats, error) {
	var agg struct {
		VisitCount int64
		TotalSpent float64
	}
	err := s.db.WithContext(ctx).Model(&domain.Sale{}).
		Select("COUNT(*) AS visit_count, COALESCE(SUM(total), 0) AS total_spent").
		Where("customer_name = ? AND status = ?", name, domain.SaleStatusCompleted).
		Scan(&agg).Error
	if err != nil {
		return domain.SaleStats{}, err
	}

	stats := domain.SaleStats{
		VisitCount: int(agg.VisitCount),
		TotalSpent: agg.TotalSpent,
	}
	if stats.VisitCount == 0 {
		return stats, nil
	}

	// Separate typed fetch for the newest sale, as the sales module's
	// own reports do; MAX() would lose the column type on some drivers.
	var last domain.Sale
	err = s.db.WithContext(ctx).
		Where("customer_name = ? AND status = ?", name, domain.SaleStatusCompleted).
		Order("created_at DESC").First(&last).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return stats, nil
		}
		return domain.SaleStats{}, err
	}
	t := last.CreatedAt
	stats.LastPurchaseAt = &t
	return stats, nil
}

func (s *SaleSource) RecentByCustomerName(ctx context.Context, name string, limit int) ([]domain.Sale, error) {
	q := s.db.WithContext(ctx).
		Where("customer_name = ? AND status = ?", name, domain.SaleStatusCompleted).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []domain.Sale
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
