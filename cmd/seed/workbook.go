package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/taxfiling-backend/pkg/money"
	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

type seedWorkspace struct {
	Ref  string
	Name string
	Kind string
}

type seedProfile struct {
	WorkspaceRef     string
	CountryCode      string
	Regime           string
	VATEnabled       bool
	AccountingMethod string
	FilingFrequency  string
	Currency         string
	EffectiveFrom    time.Time
	CrossBorderSales bool
	UsesTaxAdvisor   bool
}

type seedInvoice struct {
	WorkspaceRef    string
	Number          string
	Status          string
	IssueDate       time.Time
	NetCents        int64
	TaxCents        int64
	Currency        string
	CustomerCountry string
	IntraCommunity  bool
}

type seedPayment struct {
	WorkspaceRef  string
	InvoiceNumber string
	PaidAt        time.Time
	AmountCents   int64
}

type seedExpense struct {
	WorkspaceRef    string
	TransactionDate time.Time
	Category        string
	Description     string
	NetCents        int64
	TaxCents        int64
	Currency        string
}

type workbook struct {
	Workspaces []seedWorkspace
	Profiles   []seedProfile
	Invoices   []seedInvoice
	Payments   []seedPayment
	Expenses   []seedExpense
}

// sheetRow reads cells by header name. Missing trailing cells read as "".
type sheetRow struct {
	sheet  string
	line   int
	header map[string]int
	cells  []string
	err    error
}

func (r *sheetRow) str(column string) string {
	idx, ok := r.header[column]
	if !ok || idx >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[idx])
}

func (r *sheetRow) required(column string) string {
	v := r.str(column)
	if v == "" && r.err == nil {
		r.err = fmt.Errorf("%s row %d: %s is required", r.sheet, r.line, column)
	}
	return v
}

func (r *sheetRow) date(column string) time.Time {
	raw := r.required(column)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s row %d: %s must be YYYY-MM-DD: %w", r.sheet, r.line, column, err)
	}
	return t
}

func (r *sheetRow) cents(column string) int64 {
	raw := r.str(column)
	if raw == "" {
		return 0
	}
	v, err := money.Parse(raw)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%s row %d: %s: %w", r.sheet, r.line, column, err)
	}
	return v
}

func (r *sheetRow) flag(column string) bool {
	switch strings.ToLower(r.str(column)) {
	case "1", "true", "yes", "y", "x":
		return true
	}
	return false
}

// eachRow calls fn for every data row of sheet. A missing sheet yields no rows.
func eachRow(f *excelize.File, sheet string, fn func(r *sheetRow) error) error {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for i, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		row := &sheetRow{sheet: sheet, line: i + 2, header: header, cells: cells}
		if err := fn(row); err != nil {
			return err
		}
		if row.err != nil {
			return row.err
		}
	}
	return nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func readWorkbook(path string) (*workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()
	return parseWorkbook(f)
}

func parseWorkbook(f *excelize.File) (*workbook, error) {
	wb := &workbook{}

	err := eachRow(f, "workspaces", func(r *sheetRow) error {
		wb.Workspaces = append(wb.Workspaces, seedWorkspace{
			Ref:  r.required("ref"),
			Name: r.required("name"),
			Kind: strings.ToUpper(r.str("kind")),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(wb.Workspaces) == 0 {
		return nil, fmt.Errorf("no workspaces found in XLSX file")
	}

	err = eachRow(f, "profiles", func(r *sheetRow) error {
		wb.Profiles = append(wb.Profiles, seedProfile{
			WorkspaceRef:     r.required("workspace"),
			CountryCode:      r.required("country"),
			Regime:           strings.ToUpper(r.str("regime")),
			VATEnabled:       r.flag("vat_enabled"),
			AccountingMethod: strings.ToUpper(r.str("accounting_method")),
			FilingFrequency:  strings.ToUpper(r.str("filing_frequency")),
			Currency:         strings.ToUpper(r.str("currency")),
			EffectiveFrom:    r.date("effective_from"),
			CrossBorderSales: r.flag("cross_border_sales"),
			UsesTaxAdvisor:   r.flag("tax_advisor"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(f, "invoices", func(r *sheetRow) error {
		status := strings.ToUpper(r.str("status"))
		if status == "" {
			status = "FINALIZED"
		}
		wb.Invoices = append(wb.Invoices, seedInvoice{
			WorkspaceRef:    r.required("workspace"),
			Number:          r.required("number"),
			Status:          status,
			IssueDate:       r.date("issue_date"),
			NetCents:        r.cents("net"),
			TaxCents:        r.cents("tax"),
			Currency:        strings.ToUpper(r.str("currency")),
			CustomerCountry: strings.ToUpper(r.str("customer_country")),
			IntraCommunity:  r.flag("intra_community"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(f, "payments", func(r *sheetRow) error {
		wb.Payments = append(wb.Payments, seedPayment{
			WorkspaceRef:  r.required("workspace"),
			InvoiceNumber: r.required("invoice"),
			PaidAt:        r.date("paid_at"),
			AmountCents:   r.cents("amount"),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachRow(f, "expenses", func(r *sheetRow) error {
		wb.Expenses = append(wb.Expenses, seedExpense{
			WorkspaceRef:    r.required("workspace"),
			TransactionDate: r.date("date"),
			Category:        r.str("category"),
			Description:     r.str("description"),
			NetCents:        r.cents("net"),
			TaxCents:        r.cents("tax"),
			Currency:        strings.ToUpper(r.str("currency")),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return wb, nil
}
