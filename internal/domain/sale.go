package domain

import (
	"context"
	"time"
)

// Sale mirrors the rows the sales module records. This module only ever
// reads them; attribution is by the name the sale captured at checkout,
// not by a foreign key, so renaming a customer detaches their history.
type Sale struct {
	ID           uint    `gorm:"primaryKey"`
	CustomerName string  `gorm:"size:255;index"`
	Status       string  `gorm:"size:20;index"`
	Total        float64 `gorm:"type:decimal(10,2)"`
	CreatedAt    time.Time
}

const SaleStatusCompleted = "completed"

// SaleStats aggregates a customer's completed sales. LastPurchaseAt is
// nil when no completed sale exists.
type SaleStats struct {
	VisitCount     int
	TotalSpent     float64
	LastPurchaseAt *time.Time
}

// SaleSource is the optional handle onto the sales module. Holders keep
// it nil when that module is not installed and skip the call entirely.
type SaleSource interface {
	StatsByCustomerName(ctx context.Context, name string) (SaleStats, error)
	RecentByCustomerName(ctx context.Context, name string, limit int) ([]Sale, error)
}
