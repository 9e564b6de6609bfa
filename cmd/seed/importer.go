package main

import (
	"context"
	"fmt"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	"github.com/ikkim/taxfiling-backend/internal/app/service"
)

type importer struct {
	workspaces repository.WorkspaceRepository
	documents  repository.DocumentRepository
	profiles   service.TaxProfileService
}

type importStats struct {
	Workspaces int
	Profiles   int
	Invoices   int
	Payments   int
	Expenses   int
}

// run writes the workbook in sheet order. Rows refer to workspaces by their ref
// and to invoices by workspace ref plus invoice number.
func (im *importer) run(ctx context.Context, wb *workbook) (*importStats, error) {
	stats := &importStats{}
	workspaceIDs := make(map[string]uint, len(wb.Workspaces))
	invoiceIDs := make(map[string]uint, len(wb.Invoices))

	lookup := func(ref string) (uint, error) {
		id, ok := workspaceIDs[ref]
		if !ok {
			return 0, fmt.Errorf("unknown workspace ref %q", ref)
		}
		return id, nil
	}

	for _, w := range wb.Workspaces {
		if _, dup := workspaceIDs[w.Ref]; dup {
			return stats, fmt.Errorf("duplicate workspace ref %q", w.Ref)
		}
		kind := model.LegalEntityKind(w.Kind)
		if kind != model.LegalEntityCompany {
			kind = model.LegalEntityPersonal
		}
		workspace := &model.Workspace{Name: w.Name, LegalEntityKind: kind}
		if err := im.workspaces.Create(ctx, workspace); err != nil {
			return stats, fmt.Errorf("workspace %q: %w", w.Ref, err)
		}
		workspaceIDs[w.Ref] = workspace.ID
		stats.Workspaces++
	}

	for _, p := range wb.Profiles {
		workspaceID, err := lookup(p.WorkspaceRef)
		if err != nil {
			return stats, err
		}
		from := p.EffectiveFrom
		if _, err := im.profiles.Upsert(ctx, workspaceID, service.UpsertProfileInput{
			CountryCode:         p.CountryCode,
			Regime:              model.TaxRegime(p.Regime),
			VATEnabled:          p.VATEnabled,
			AccountingMethod:    model.AccountingMethod(p.AccountingMethod),
			FilingFrequency:     model.FilingFrequency(p.FilingFrequency),
			Currency:            p.Currency,
			HasCrossBorderSales: p.CrossBorderSales,
			UsesTaxAdvisor:      p.UsesTaxAdvisor,
			EffectiveFrom:       &from,
		}); err != nil {
			return stats, fmt.Errorf("profile for %q from %s: %w", p.WorkspaceRef, from.Format(dateLayout), err)
		}
		stats.Profiles++
	}

	for _, inv := range wb.Invoices {
		workspaceID, err := lookup(inv.WorkspaceRef)
		if err != nil {
			return stats, err
		}
		invoice := &model.Invoice{
			WorkspaceID:     workspaceID,
			Number:          inv.Number,
			Status:          model.DocumentStatus(inv.Status),
			IssueDate:       inv.IssueDate,
			NetCents:        inv.NetCents,
			TaxCents:        inv.TaxCents,
			Currency:        currencyOr(inv.Currency),
			CustomerCountry: inv.CustomerCountry,
			IntraCommunity:  inv.IntraCommunity,
		}
		if err := im.documents.CreateInvoice(ctx, invoice); err != nil {
			return stats, fmt.Errorf("invoice %q: %w", inv.Number, err)
		}
		invoiceIDs[inv.WorkspaceRef+"/"+inv.Number] = invoice.ID
		stats.Invoices++
	}

	for _, pay := range wb.Payments {
		invoiceID, ok := invoiceIDs[pay.WorkspaceRef+"/"+pay.InvoiceNumber]
		if !ok {
			return stats, fmt.Errorf("payment references unknown invoice %q of %q", pay.InvoiceNumber, pay.WorkspaceRef)
		}
		if err := im.documents.AddPayment(ctx, &model.InvoicePayment{
			InvoiceID:   invoiceID,
			PaidAt:      pay.PaidAt,
			AmountCents: pay.AmountCents,
		}); err != nil {
			return stats, fmt.Errorf("payment for %q: %w", pay.InvoiceNumber, err)
		}
		stats.Payments++
	}

	for _, exp := range wb.Expenses {
		workspaceID, err := lookup(exp.WorkspaceRef)
		if err != nil {
			return stats, err
		}
		if err := im.documents.CreateExpense(ctx, &model.Expense{
			WorkspaceID:     workspaceID,
			Status:          model.DocumentStatusFinalized,
			TransactionDate: exp.TransactionDate,
			Category:        exp.Category,
			Description:     exp.Description,
			NetCents:        exp.NetCents,
			TaxCents:        exp.TaxCents,
			Currency:        currencyOr(exp.Currency),
		}); err != nil {
			return stats, fmt.Errorf("expense on %s: %w", exp.TransactionDate.Format(dateLayout), err)
		}
		stats.Expenses++
	}

	return stats, nil
}

func currencyOr(code string) string {
	if code == "" {
		return "EUR"
	}
	return code
}
