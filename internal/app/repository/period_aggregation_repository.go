package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"github.com/ikkim/taxfiling-backend/pkg/money"
	"gorm.io/gorm"
)

// PeriodAggregationRepository sums finalized documents over a half-open
// [start, end) period.
type PeriodAggregationRepository interface {
	SalesTotals(ctx context.Context, workspaceID uint, start, end time.Time, method model.AccountingMethod) (model.SalesTotals, error)
	PurchaseTotals(ctx context.Context, workspaceID uint, start, end time.Time) (model.PurchaseTotals, error)
	IntraEUSupplies(ctx context.Context, workspaceID uint, start, end time.Time) ([]model.IntraEUSupply, error)
}

type periodAggregationRepository struct {
	db *gorm.DB
}

func NewPeriodAggregationRepository(db *gorm.DB) PeriodAggregationRepository {
	return &periodAggregationRepository{db: db}
}

type salesSumRow struct {
	NetCents        int64
	TaxCents        int64
	IntraEUNetCents int64
	DocumentCount   int
}

type paymentRow struct {
	InvoiceID      uint
	NetCents       int64
	TaxCents       int64
	IntraCommunity bool
	AmountCents    int64
}

func (r *periodAggregationRepository) SalesTotals(ctx context.Context, workspaceID uint, start, end time.Time, method model.AccountingMethod) (model.SalesTotals, error) {
	start, end = start.UTC(), end.UTC()
	fields := map[string]interface{}{
		"workspace_id": workspaceID,
		"period_start": start,
		"period_end":   end,
		"method":       method,
	}
	logger.Debug("Aggregating sales for period", fields)

	var (
		totals model.SalesTotals
		err    error
	)
	switch method {
	case model.AccountingAccrual:
		totals, err = r.accrualSales(ctx, workspaceID, start, end)
	case model.AccountingCash:
		totals, err = r.cashSales(ctx, workspaceID, start, end)
	default:
		err = fmt.Errorf("unsupported accounting method %q", method)
	}
	if err != nil {
		logger.Error("Failed to aggregate sales for period", err, fields)
		return model.SalesTotals{}, err
	}

	logger.Debug("Sales aggregated for period", map[string]interface{}{
		"workspace_id":   workspaceID,
		"net_cents":      totals.NetCents,
		"tax_cents":      totals.TaxCents,
		"document_count": totals.DocumentCount,
	})
	return totals, nil
}

// accrualSales counts every finalized invoice issued inside the period in full.
func (r *periodAggregationRepository) accrualSales(ctx context.Context, workspaceID uint, start, end time.Time) (model.SalesTotals, error) {
	var row salesSumRow
	err := getDB(ctx, r.db).Model(&model.Invoice{}).
		Select(`COALESCE(SUM(net_cents), 0) AS net_cents,
			COALESCE(SUM(tax_cents), 0) AS tax_cents,
			COALESCE(SUM(CASE WHEN intra_community THEN net_cents ELSE 0 END), 0) AS intra_eu_net_cents,
			COUNT(*) AS document_count`).
		Where("workspace_id = ? AND status = ?", workspaceID, model.DocumentStatusFinalized).
		Where("issue_date >= ? AND issue_date < ?", start, end).
		Scan(&row).Error
	if err != nil {
		return model.SalesTotals{}, err
	}
	return model.SalesTotals{
		NetCents:        row.NetCents,
		TaxCents:        row.TaxCents,
		IntraEUNetCents: row.IntraEUNetCents,
		DocumentCount:   row.DocumentCount,
	}, nil
}

// cashSales counts payments received inside the period. Each payment carries
// payment/gross of its invoice's net and tax, each rounded half-up on its own.
func (r *periodAggregationRepository) cashSales(ctx context.Context, workspaceID uint, start, end time.Time) (model.SalesTotals, error) {
	var rows []paymentRow
	err := getDB(ctx, r.db).Table("invoice_payments").
		Select("invoices.id AS invoice_id, invoices.net_cents, invoices.tax_cents, invoices.intra_community, invoice_payments.amount_cents").
		Joins("JOIN invoices ON invoices.id = invoice_payments.invoice_id").
		Where("invoices.workspace_id = ? AND invoices.status = ?", workspaceID, model.DocumentStatusFinalized).
		Where("invoice_payments.paid_at >= ? AND invoice_payments.paid_at < ?", start, end).
		Order("invoice_payments.paid_at ASC, invoice_payments.id ASC").
		Scan(&rows).Error
	if err != nil {
		return model.SalesTotals{}, err
	}

	var totals model.SalesTotals
	seen := make(map[uint]struct{})
	for _, row := range rows {
		gross := row.NetCents + row.TaxCents
		net := money.Prorate(row.NetCents, row.AmountCents, gross)
		totals.NetCents += net
		totals.TaxCents += money.Prorate(row.TaxCents, row.AmountCents, gross)
		if row.IntraCommunity {
			totals.IntraEUNetCents += net
		}
		seen[row.InvoiceID] = struct{}{}
	}
	totals.DocumentCount = len(seen)
	return totals, nil
}

// PurchaseTotals attributes expenses by their own transaction date for both methods.
func (r *periodAggregationRepository) PurchaseTotals(ctx context.Context, workspaceID uint, start, end time.Time) (model.PurchaseTotals, error) {
	start, end = start.UTC(), end.UTC()

	var row struct {
		NetCents int64
		TaxCents int64
		Count    int
	}
	err := getDB(ctx, r.db).Model(&model.Expense{}).
		Select("COALESCE(SUM(net_cents), 0) AS net_cents, COALESCE(SUM(tax_cents), 0) AS tax_cents, COUNT(*) AS count").
		Where("workspace_id = ? AND status = ?", workspaceID, model.DocumentStatusFinalized).
		Where("transaction_date >= ? AND transaction_date < ?", start, end).
		Scan(&row).Error
	if err != nil {
		logger.Error("Failed to aggregate purchases for period", err, map[string]interface{}{
			"workspace_id": workspaceID,
			"period_start": start,
			"period_end":   end,
		})
		return model.PurchaseTotals{}, err
	}
	return model.PurchaseTotals{NetCents: row.NetCents, TaxCents: row.TaxCents, Count: row.Count}, nil
}

// IntraEUSupplies groups intra-community invoices issued inside the period by
// customer country. Supplies are reported by issue date for both methods.
func (r *periodAggregationRepository) IntraEUSupplies(ctx context.Context, workspaceID uint, start, end time.Time) ([]model.IntraEUSupply, error) {
	start, end = start.UTC(), end.UTC()

	var supplies []model.IntraEUSupply
	err := getDB(ctx, r.db).Model(&model.Invoice{}).
		Select("customer_country AS country_code, COALESCE(SUM(net_cents), 0) AS net_cents, COUNT(*) AS document_count").
		Where("workspace_id = ? AND status = ? AND intra_community = ?", workspaceID, model.DocumentStatusFinalized, true).
		Where("issue_date >= ? AND issue_date < ?", start, end).
		Group("customer_country").
		Order("customer_country ASC").
		Scan(&supplies).Error
	if err != nil {
		logger.Error("Failed to aggregate intra-EU supplies", err, map[string]interface{}{
			"workspace_id": workspaceID,
			"period_start": start,
			"period_end":   end,
		})
		return nil, err
	}
	return supplies, nil
}
