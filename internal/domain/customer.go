package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("registro no encontrado")
	// ErrNameRequired carries the user-facing validation message verbatim.
	ErrNameRequired = errors.New("El nombre es obligatorio")
)

// Status filter values accepted by List.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusAll      = "all"
)

type Customer struct {
	ID             uint    `gorm:"primaryKey"`
	Name           string  `gorm:"size:255;not null;index"`
	Email          string  `gorm:"size:254;index"`
	Phone          string  `gorm:"size:20;index"`
	Address        string  `gorm:"type:text"`
	TaxID          string  `gorm:"size:50"` // DNI/NIF/CIF/VAT
	Notes          string  `gorm:"type:text"`
	TotalSpent     float64 `gorm:"type:decimal(10,2);default:0"`
	VisitCount     int     `gorm:"default:0"`
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastPurchaseAt *time.Time
}

// AveragePurchase never divides by zero: customers without completed
// visits report 0.00.
func (c *Customer) AveragePurchase() float64 {
	if c.VisitCount > 0 {
		return c.TotalSpent / float64(c.VisitCount)
	}
	return 0
}

// ListFilter narrows a customer listing. Status takes one of the Status*
// values; anything other than active/inactive applies no restriction.
// Limit <= 0 means no cap at the store level.
type ListFilter struct {
	Search string
	Status string
	Limit  int
}

type CustomerRepo interface {
	Insert(ctx context.Context, c *Customer) error
	FindByID(ctx context.Context, id uint) (*Customer, error)
	Save(ctx context.Context, c *Customer) error
	List(ctx context.Context, f ListFilter) ([]Customer, error)
	CountByActive(ctx context.Context, active bool) (int64, error)
	ActiveOrderedByName(ctx context.Context) ([]Customer, error)
}
