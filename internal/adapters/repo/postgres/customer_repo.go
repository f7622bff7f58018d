package postgres

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/ERPlora/module-customers/internal/domain"
)

// likeEscaper neutraliza los comodines de LIKE en el texto de búsqueda
// para que se comparen como texto literal.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type CustomerRepo struct{ db *gorm.DB }

func NewCustomerRepo(db *gorm.DB) *CustomerRepo { return &CustomerRepo{db: db} }

func (r *CustomerRepo) Insert(ctx context.Context, c *domain.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CustomerRepo) FindByID(ctx context.Context, id uint) (*domain.Customer, error) {
	var c domain.Customer
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepo) Save(ctx context.Context, c *domain.Customer) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *CustomerRepo) List(ctx context.Context, f domain.ListFilter) ([]domain.Customer, error) {
	q := r.db.WithContext(ctx).Model(&domain.Customer{})
	switch f.Status {
	case domain.StatusActive:
		q = q.Where("is_active = ?", true)
	case domain.StatusInactive:
		q = q.Where("is_active = ?", false)
	}
	if f.Search != "" {
		like := "%" + likeEscaper.Replace(f.Search) + "%"
		q = q.Where(
			`LOWER(name) LIKE LOWER(?) ESCAPE '\' OR LOWER(phone) LIKE LOWER(?) ESCAPE '\' OR LOWER(email) LIKE LOWER(?) ESCAPE '\' OR LOWER(tax_id) LIKE LOWER(?) ESCAPE '\'`,
			like, like, like, like,
		)
	}
	q = q.Order("created_at DESC, id DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var list []domain.Customer
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *CustomerRepo) CountByActive(ctx context.Context, active bool) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&domain.Customer{}).
		Where("is_active = ?", active).Count(&total).Error
	return total, err
}

func (r *CustomerRepo) ActiveOrderedByName(ctx context.Context) ([]domain.Customer, error) {
	var list []domain.Customer
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
