package service

import (
	"context"
	"fmt"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	"github.com/ikkim/taxfiling-backend/pkg/money"
)

// vatForm names the boxes of one jurisdiction's VAT return.
type vatForm struct {
	salesCode   string
	intraEUCode string
	inputCode   string
	payableCode string
}

type vatTotals struct {
	sales     model.SalesTotals
	purchases model.PurchaseTotals
	method    model.AccountingMethod
}

// payable is output VAT minus input VAT. Negative results are refunds and are kept as-is.
func (t vatTotals) payable() int64 {
	return t.sales.TaxCents - t.purchases.TaxCents
}

func loadVATTotals(ctx context.Context, aggregates repository.PeriodAggregationRepository, sc StrategyContext) (vatTotals, error) {
	method := sc.Profile.AccountingMethod
	sales, err := aggregates.SalesTotals(ctx, sc.WorkspaceID, sc.PeriodStart, sc.PeriodEnd, method)
	if err != nil {
		return vatTotals{}, fmt.Errorf("sales totals: %w", err)
	}
	purchases, err := aggregates.PurchaseTotals(ctx, sc.WorkspaceID, sc.PeriodStart, sc.PeriodEnd)
	if err != nil {
		return vatTotals{}, fmt.Errorf("purchase totals: %w", err)
	}
	return vatTotals{sales: sales, purchases: purchases, method: method}, nil
}

func (t vatTotals) computationMeta(sc StrategyContext) *model.ComputationMeta {
	return &model.ComputationMeta{
		AccountingMethod:   t.method,
		SalesNetCents:      t.sales.NetCents,
		SalesTaxCents:      t.sales.TaxCents,
		PurchaseNetCents:   t.purchases.NetCents,
		PurchaseTaxCents:   t.purchases.TaxCents,
		IntraEUNetCents:    t.sales.IntraEUNetCents,
		SalesDocumentCount: t.sales.DocumentCount,
		PurchaseCount:      t.purchases.Count,
		ComputedAt:         sc.Now,
	}
}

// buildVATReport turns period totals into a VAT return using form's box codes.
func buildVATReport(t vatTotals, sc StrategyContext, form vatForm) *GeneratedReport {
	amount := t.payable()

	lines := []model.TaxReportLine{
		{Section: "output", Code: form.salesCode, Label: "Taxable sales", NetCents: t.sales.NetCents - t.sales.IntraEUNetCents, TaxCents: t.sales.TaxCents},
	}
	if t.sales.IntraEUNetCents != 0 {
		lines = append(lines, model.TaxReportLine{
			Section: "output", Code: form.intraEUCode, Label: "Tax-free intra-community supplies", NetCents: t.sales.IntraEUNetCents,
		})
	}
	lines = append(lines,
		model.TaxReportLine{Section: "input", Code: form.inputCode, Label: "Deductible input tax", NetCents: t.purchases.NetCents, TaxCents: t.purchases.TaxCents},
		model.TaxReportLine{Section: "result", Code: form.payableCode, Label: "VAT payable", TaxCents: amount},
	)
	numberLines(lines)

	meta := model.ReportMeta{Computation: t.computationMeta(sc)}
	if amount < 0 {
		meta = meta.WithIssue(model.MetaIssue{
			Code:    model.IssueRefundExpected,
			Message: fmt.Sprintf("Input tax exceeds output tax, a refund of %s is expected", money.Format(-amount)),
		})
	}
	if t.sales.DocumentCount == 0 && t.purchases.Count == 0 {
		meta = meta.WithIssue(model.MetaIssue{
			Code:    model.IssueNoActivity,
			Message: "No finalized sales or purchases in this period, a nil return may be filed",
		})
	}

	return &GeneratedReport{AmountDueCents: amount, Meta: meta, Lines: lines}
}

func numberLines(lines []model.TaxReportLine) {
	for i := range lines {
		lines[i].Position = i + 1
	}
}
