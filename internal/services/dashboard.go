package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

// Dashboard summarises an owner's activity.
type Dashboard struct {
	Clients          int64                          `json:"clients"`
	Projects         int64                          `json:"projects"`
	Invoices         int64                          `json:"invoices"`
	Quotes           int64                          `json:"quotes"`
	Receipts         int64                          `json:"receipts"`
	InvoicesByStatus map[models.InvoiceStatus]int64 `json:"invoices_by_status"`
	QuotesByStatus   map[models.QuoteStatus]int64   `json:"quotes_by_status"`
	PaidRevenue      decimal.Decimal                `json:"paid_revenue"`
	Outstanding      decimal.Decimal                `json:"outstanding"`
}

type DashboardService struct {
	*deps
}

func newDashboardService(d *deps) *DashboardService { return &DashboardService{deps: d} }

type statusCount struct {
	Status string
	N      int64
}

func (s *DashboardService) Get(ctx context.Context, ownerID uint) (*Dashboard, error) {
	db := s.db.WithContext(ctx)
	d := &Dashboard{
		InvoicesByStatus: map[models.InvoiceStatus]int64{},
		QuotesByStatus:   map[models.QuoteStatus]int64{},
	}
	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.Client{}, &d.Clients},
		{&models.Project{}, &d.Projects},
		{&models.Invoice{}, &d.Invoices},
		{&models.Quote{}, &d.Quotes},
		{&models.Receipt{}, &d.Receipts},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Where("user_id = ?", ownerID).Count(c.dst).Error; err != nil {
			return nil, translate(err, "dashboard")
		}
	}

	var rows []statusCount
	if err := db.Model(&models.Invoice{}).Select("status, COUNT(*) AS n").
		Where("user_id = ?", ownerID).Group("status").Scan(&rows).Error; err != nil {
		return nil, translate(err, "dashboard")
	}
	for _, r := range rows {
		d.InvoicesByStatus[models.InvoiceStatus(r.Status)] = r.N
	}
	rows = nil
	if err := db.Model(&models.Quote{}).Select("status, COUNT(*) AS n").
		Where("user_id = ?", ownerID).Group("status").Scan(&rows).Error; err != nil {
		return nil, translate(err, "dashboard")
	}
	for _, r := range rows {
		d.QuotesByStatus[models.QuoteStatus(r.Status)] = r.N
	}

	var err error
	if d.PaidRevenue, err = s.sumTotals(ctx, ownerID, models.InvoiceStatusPaid); err != nil {
		return nil, err
	}
	d.Outstanding, err = s.sumTotals(ctx, ownerID,
		models.InvoiceStatusSent, models.InvoiceStatusViewed, models.InvoiceStatusOverdue)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DashboardService) sumTotals(ctx context.Context, ownerID uint, statuses ...models.InvoiceStatus) (decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := s.db.WithContext(ctx).Model(&models.Invoice{}).
		Where("user_id = ? AND status IN ?", ownerID, statuses).
		Pluck("total_amount", &amounts).Error
	if err != nil {
		return decimal.Zero, translate(err, "dashboard")
	}
	return decimal.Sum(decimal.Zero, amounts...), nil
}

// PlatformStats counts rows across all owners, for back-office accounts only.
type PlatformStats struct {
	Users    int64           `json:"users"`
	Clients  int64           `json:"clients"`
	Invoices int64           `json:"invoices"`
	Quotes   int64           `json:"quotes"`
	Receipts int64           `json:"receipts"`
	Revenue  decimal.Decimal `json:"revenue"`
}

func (s *DashboardService) Platform(ctx context.Context) (*PlatformStats, error) {
	db := s.db.WithContext(ctx)
	p := &PlatformStats{}
	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.User{}, &p.Users},
		{&models.Client{}, &p.Clients},
		{&models.Invoice{}, &p.Invoices},
		{&models.Quote{}, &p.Quotes},
		{&models.Receipt{}, &p.Receipts},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, translate(err, "stats")
		}
	}
	var amounts []decimal.Decimal
	if err := db.Model(&models.Invoice{}).Where("status = ?", models.InvoiceStatusPaid).
		Pluck("total_amount", &amounts).Error; err != nil {
		return nil, translate(err, "stats")
	}
	p.Revenue = decimal.Sum(decimal.Zero, amounts...)
	return p, nil
}
