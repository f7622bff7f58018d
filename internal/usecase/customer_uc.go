package usecase

import (
	"context"
	"strings"

	"github.com/ERPlora/module-customers/internal/domain"
)

// listCap bounds the listing API; there is no pagination beyond it.
const listCap = 100

const defaultRecent = 10

// CustomerInput carries the editable fields of a customer form.
type CustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
	TaxID   string
	Notes   string
}

func (in *CustomerInput) trim() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.TaxID = strings.TrimSpace(in.TaxID)
	in.Notes = strings.TrimSpace(in.Notes)
}

// CustomerUC implements every operation of the customers module. Sales
// stays nil when the sales module is not installed; stats operations
// then degrade to no-ops instead of failing.
type CustomerUC struct {
	Customers domain.CustomerRepo
	Sales     domain.SaleSource
}

func (uc *CustomerUC) Create(ctx context.Context, in CustomerInput) (*domain.Customer, error) {
	in.trim()
	if in.Name == "" {
		return nil, domain.ErrNameRequired
	}
	c := domain.Customer{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Address:  in.Address,
		TaxID:    in.TaxID,
		Notes:    in.Notes,
		IsActive: true,
	}
	if err := uc.Customers.Insert(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (uc *CustomerUC) Get(ctx context.Context, id uint) (*domain.Customer, error) {
	return uc.Customers.FindByID(ctx, id)
}

func (uc *CustomerUC) List(ctx context.Context, f domain.ListFilter) ([]domain.Customer, error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.Status == "" {
		f.Status = domain.StatusActive
	}
	if f.Limit <= 0 || f.Limit > listCap {
		f.Limit = listCap
	}
	return uc.Customers.List(ctx, f)
}

func (uc *CustomerUC) Counts(ctx context.Context) (active, inactive int64, err error) {
	if active, err = uc.Customers.CountByActive(ctx, true); err != nil {
		return 0, 0, err
	}
	if inactive, err = uc.Customers.CountByActive(ctx, false); err != nil {
		return 0, 0, err
	}
	return active, inactive, nil
}

// Update replaces the full editable field set. Validation runs before
// anything is persisted, so a rejected edit leaves the stored row as it
// was.
func (uc *CustomerUC) Update(ctx context.Context, id uint, in CustomerInput, isActive bool) (*domain.Customer, error) {
	c, err := uc.Customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in.trim()
	if in.Name == "" {
		return nil, domain.ErrNameRequired
	}
	c.Name = in.Name
	c.Email = in.Email
	c.Phone = in.Phone
	c.Address = in.Address
	c.TaxID = in.TaxID
	c.Notes = in.Notes
	c.IsActive = isActive
	if err := uc.Customers.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SoftDelete flips is_active off. Rows are never removed.
func (uc *CustomerUC) SoftDelete(ctx context.Context, id uint) (*domain.Customer, error) {
	c, err := uc.Customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.IsActive = false
	if err := uc.Customers.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateStats recomputes total_spent, visit_count and last_purchase_at
// from the sales module. Without a sales source it leaves the stored
// values untouched and reports success. Sales are matched by the
// customer's current name, so a rename detaches earlier purchases.
func (uc *CustomerUC) UpdateStats(ctx context.Context, id uint) (*domain.Customer, error) {
	c, err := uc.Customers.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if uc.Sales == nil {
		return c, nil
	}
	stats, err := uc.Sales.StatsByCustomerName(ctx, c.Name)
	if err != nil {
		return nil, err
	}
	c.VisitCount = stats.VisitCount
	c.TotalSpent = stats.TotalSpent
	if stats.LastPurchaseAt != nil {
		c.LastPurchaseAt = stats.LastPurchaseAt
	}
	if err := uc.Customers.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *CustomerUC) RecentPurchases(ctx context.Context, c *domain.Customer, limit int) ([]domain.Sale, error) {
	if uc.Sales == nil {
		return []domain.Sale{}, nil
	}
	if limit <= 0 {
		limit = defaultRecent
	}
	return uc.Sales.RecentByCustomerName(ctx, c.Name, limit)
}

func (uc *CustomerUC) ExportActive(ctx context.Context) ([]domain.Customer, error) {
	return uc.Customers.ActiveOrderedByName(ctx)
}
