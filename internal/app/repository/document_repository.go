package repository

import (
	"context"

	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/ikkim/taxfiling-backend/pkg/logger"
	"gorm.io/gorm"
)

// DocumentRepository reads and writes the source documents the engine aggregates.
// In production the rows are owned by the invoicing service; writes here serve
// seeding and tests.
type DocumentRepository interface {
	CreateInvoice(ctx context.Context, invoice *model.Invoice) error
	AddPayment(ctx context.Context, payment *model.InvoicePayment) error
	CreateExpense(ctx context.Context, expense *model.Expense) error
	FindInvoice(ctx context.Context, workspaceID, id uint) (*model.Invoice, error)
	FindExpense(ctx context.Context, workspaceID, id uint) (*model.Expense, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) CreateInvoice(ctx context.Context, invoice *model.Invoice) error {
	if err := getDB(ctx, r.db).Create(invoice).Error; err != nil {
		logger.Error("Failed to create invoice in database", err, map[string]interface{}{
			"workspace_id": invoice.WorkspaceID,
			"number":       invoice.Number,
		})
		return err
	}
	return nil
}

func (r *documentRepository) AddPayment(ctx context.Context, payment *model.InvoicePayment) error {
	if err := getDB(ctx, r.db).Create(payment).Error; err != nil {
		logger.Error("Failed to record invoice payment", err, map[string]interface{}{
			"invoice_id": payment.InvoiceID,
		})
		return err
	}
	return nil
}

func (r *documentRepository) CreateExpense(ctx context.Context, expense *model.Expense) error {
	if err := getDB(ctx, r.db).Create(expense).Error; err != nil {
		logger.Error("Failed to create expense in database", err, map[string]interface{}{
			"workspace_id": expense.WorkspaceID,
		})
		return err
	}
	return nil
}

func (r *documentRepository) FindInvoice(ctx context.Context, workspaceID, id uint) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := getDB(ctx, r.db).
		Preload("Payments").
		Where("workspace_id = ?", workspaceID).
		First(&invoice, id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *documentRepository) FindExpense(ctx context.Context, workspaceID, id uint) (*model.Expense, error) {
	var expense model.Expense
	if err := getDB(ctx, r.db).
		Where("workspace_id = ?", workspaceID).
		First(&expense, id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}
