package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/miklbjorn/email-summerhouse/internal/domain"
	"github.com/miklbjorn/email-summerhouse/internal/port"
	"github.com/miklbjorn/email-summerhouse/internal/provenance"
)

// fieldColumns maps the closed editable-field set to its columns. Update
// statements are built from this map only, never from caller strings.
var fieldColumns = map[domain.Field]string{
	domain.FieldSupplier:        "supplier",
	domain.FieldAmount:          "amount",
	domain.FieldCurrency:        "currency",
	domain.FieldAccountBalance:  "account_balance",
	domain.FieldInvoiceNumber:   "invoice_id",
	domain.FieldAccountIBAN:     "account_to_pay_iban",
	domain.FieldAccountBIC:      "account_to_pay_bic",
	domain.FieldAccountREG:      "account_to_pay_reg",
	domain.FieldAccountNumber:   "account_to_pay_account_number",
	domain.FieldLastPaymentDate: "last_payment_date",
	domain.FieldStatus:          "status",
}

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Insert(ctx context.Context, inv *domain.Invoice, files []domain.SourceFile) (*domain.Invoice, error) {
	now := time.Now().UTC()
	inv.CreatedAt = now
	if inv.Status == "" {
		inv.Status = domain.StatusUnpaid
	}

	query := `INSERT INTO invoices (
		message_id, supplier, amount, currency, account_balance,
		invoice_id, account_to_pay_iban, account_to_pay_bic,
		account_to_pay_reg, account_to_pay_account_number,
		last_payment_date, items_json, status, created_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8,
		$9, $10,
		$11, $12, $13, $14
	) RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		inv.MessageID, inv.Supplier, inv.Amount, inv.Currency, inv.AccountBalance,
		inv.InvoiceNumber, inv.AccountIBAN, inv.AccountBIC,
		inv.AccountREG, inv.AccountNumber,
		inv.LastPaymentDate, inv.ItemsJSON, inv.Status, inv.CreatedAt,
	).Scan(&inv.ID)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") && strings.Contains(err.Error(), "message_id") {
			return nil, domain.ErrDuplicateMessage
		}
		return nil, fmt.Errorf("invoiceRepo.Insert: %w", err)
	}

	if len(files) > 0 {
		for i := range files {
			files[i].MessageID = inv.MessageID
			files[i].CreatedAt = now
		}
		_, err = r.db.NamedExecContext(ctx,
			`INSERT INTO source_files (message_id, filename, blob_uri, created_at)
			 VALUES (:message_id, :filename, :blob_uri, :created_at)`,
			files)
		if err != nil {
			return nil, fmt.Errorf("invoiceRepo.Insert source files: %w", err)
		}
	}

	return r.GetByID(ctx, inv.ID)
}

func (r *invoiceRepo) List(ctx context.Context, filter port.ListFilter) ([]domain.Invoice, error) {
	query := "SELECT * FROM invoices"
	var args []interface{}
	if filter.UnpaidOnly {
		args = append(args, domain.StatusUnpaid)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit != nil {
		args = append(args, *filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset != nil {
		args = append(args, *filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var invoices []domain.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, fmt.Errorf("invoiceRepo.List: %w", err)
	}
	for i := range invoices {
		hydrate(&invoices[i])
	}
	return invoices, nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := r.db.GetContext(ctx, &inv, "SELECT * FROM invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}

	var files []domain.SourceFile
	err = r.db.SelectContext(ctx, &files,
		"SELECT * FROM source_files WHERE message_id = $1 ORDER BY id ASC", inv.MessageID)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.GetByID source files: %w", err)
	}
	inv.SourceFiles = files
	hydrate(&inv)
	return &inv, nil
}

func (r *invoiceRepo) Update(ctx context.Context, id int64, update port.InvoiceUpdate) (*domain.Invoice, error) {
	var sets []string
	var args []interface{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	for _, f := range update.Patch.Fields() {
		column, ok := fieldColumns[f]
		if !ok {
			return nil, fmt.Errorf("invoiceRepo.Update: %w: %q", domain.ErrUnknownField, f)
		}
		value, _ := update.Patch.Get(f)
		if status, isStatus := value.(domain.InvoiceStatus); isStatus {
			value = string(status)
		}
		add(column, value)
	}

	// The provenance set is re-serialized on every update, even when no
	// editable field is present in the patch.
	add("manually_edited_fields", update.EditedFieldsJSON)

	if update.ApplyPaidAt {
		add("paid_at", update.PaidAt)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE invoices SET %s WHERE id = $%d",
		strings.Join(sets, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("invoiceRepo.Update: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, domain.ErrInvoiceNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *invoiceRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("invoiceRepo.Delete begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var messageID string
	err = tx.GetContext(ctx, &messageID, "SELECT message_id FROM invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("invoiceRepo.Delete lookup: %w", err)
	}

	// Children before parent to satisfy the foreign key.
	if _, err := tx.ExecContext(ctx, "DELETE FROM source_files WHERE message_id = $1", messageID); err != nil {
		return false, fmt.Errorf("invoiceRepo.Delete source files: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM invoices WHERE id = $1", id); err != nil {
		return false, fmt.Errorf("invoiceRepo.Delete invoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("invoiceRepo.Delete commit: %w", err)
	}
	return true, nil
}

func (r *invoiceRepo) GetSourceFile(ctx context.Context, invoiceID, fileID int64) (*domain.SourceFile, error) {
	var file domain.SourceFile
	err := r.db.GetContext(ctx, &file,
		`SELECT sf.* FROM source_files sf
		 JOIN invoices i ON i.message_id = sf.message_id
		 WHERE i.id = $1 AND sf.id = $2`, invoiceID, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSourceFileNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetSourceFile: %w", err)
	}
	return &file, nil
}

// hydrate unpacks the serialized JSON columns into their slice fields.
func hydrate(inv *domain.Invoice) {
	inv.Items = []string{}
	if inv.ItemsJSON != nil {
		var items []string
		if err := json.Unmarshal([]byte(*inv.ItemsJSON), &items); err == nil && items != nil {
			inv.Items = items
		}
	}
	inv.EditedFields = provenance.Decode(inv.ManuallyEditedFields)
}
