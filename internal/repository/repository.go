package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ayo6706/swift-remit/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id, customer_id, customer_email, customer_name, customer_country,
	amount::text, currency, recipient_name, recipient_account, recipient_swift, reference,
	status, created_at, verified_by_email, verified_by_name, verifier_department, verified_at,
	verifier_notes, swift_reference, submitted_to_swift_at, completed_at, failure_reason`

// Repository is the Postgres-backed transaction record store.
type Repository struct {
	db    *pgxpool.Pool
	store *Store
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, store: NewStore(db)}
}

// Create inserts a new transaction and its creation audit entry.
func (r *Repository) Create(ctx context.Context, t *models.Transaction, entry models.AuditEntry) error {
	return r.store.RunInTx(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO transactions (
				id, customer_id, customer_email, customer_name, customer_country,
				amount, currency, recipient_name, recipient_account, recipient_swift,
				reference, status, created_at
			) VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8, $9, $10, $11, $12, $13)
		`
		_, err := tx.Exec(ctx, query,
			t.ID, t.CustomerID, t.CustomerEmail, t.CustomerName, t.CustomerCountry,
			t.Amount.StringFixed(2), t.Currency, t.RecipientName, t.RecipientAccount, t.RecipientSwift,
			t.Reference, t.Status, t.CreatedAt,
		)
		if err != nil {
			return storeError("insert transaction", err)
		}
		return insertAudit(ctx, tx, entry)
	})
}

// Get loads a single transaction by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, storeError("get transaction", err)
	}
	return t, nil
}

// PutIfStatus writes the lifecycle columns of t only while the stored status still
// equals expectedStatus. Verifier columns are first-write-wins; amount and currency are
// never part of the update.
func (r *Repository) PutIfStatus(ctx context.Context, expectedStatus string, t *models.Transaction, entry models.AuditEntry) error {
	return r.store.RunInTx(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE transactions SET
				status = $3,
				verified_by_email = COALESCE(verified_by_email, $4),
				verified_by_name = COALESCE(verified_by_name, $5),
				verifier_department = COALESCE(verifier_department, $6),
				verified_at = COALESCE(verified_at, $7),
				verifier_notes = CASE WHEN verified_at IS NULL THEN $8 ELSE verifier_notes END,
				swift_reference = COALESCE(swift_reference, $9),
				submitted_to_swift_at = COALESCE(submitted_to_swift_at, $10),
				completed_at = COALESCE(completed_at, $11),
				failure_reason = COALESCE(failure_reason, $12),
				version = version + 1
			WHERE id = $1 AND status = $2
		`
		tag, err := tx.Exec(ctx, query,
			t.ID, expectedStatus, t.Status,
			t.VerifiedByEmail, t.VerifiedByName, t.VerifierDepartment, t.VerifiedAt, t.VerifierNotes,
			t.SwiftReference, t.SubmittedToSwiftAt, t.CompletedAt, t.FailureReason,
		)
		if err != nil {
			return storeError("update transaction", err)
		}
		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, t.ID).Scan(&exists); err != nil {
				return storeError("check transaction exists", err)
			}
			if !exists {
				return models.ErrNotFound
			}
			return fmt.Errorf("transaction %s left status %s: %w", t.ID, expectedStatus, models.ErrConflictingTransition)
		}
		return insertAudit(ctx, tx, entry)
	})
}

// Query lists transactions matching the filter.
func (r *Repository) Query(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Statuses) > 0 {
		args = append(args, filter.Statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.VerifiedByEmail != nil {
		args = append(args, *filter.VerifiedByEmail)
		where = append(where, fmt.Sprintf("lower(verified_by_email) = lower($%d)", len(args)))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + transactionColumns + ` FROM transactions`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	if filter.OldestFirst {
		sb.WriteString(" ORDER BY created_at ASC, id ASC")
	} else {
		sb.WriteString(" ORDER BY created_at DESC, id DESC")
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		sb.WriteString(fmt.Sprintf(" OFFSET $%d", len(args)))
	}

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, storeError("query transactions", err)
	}
	defer rows.Close()

	out := make([]models.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storeError("scan transaction", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate transactions", err)
	}
	return out, nil
}

// AuditTrail returns the audit entries of one transaction, oldest first.
func (r *Repository) AuditTrail(ctx context.Context, id uuid.UUID) ([]models.AuditEntry, error) {
	query := `
		SELECT id, transaction_id, action, COALESCE(prev_status, ''), next_status, actor_email, actor_role, metadata, created_at
		FROM audit_log
		WHERE transaction_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, storeError("query audit log", err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.Action, &e.PrevStatus, &e.NextStatus, &e.ActorEmail, &e.ActorRole, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, storeError("scan audit entry", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate audit log", err)
	}
	return entries, nil
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return storeError("ping", err)
	}
	return nil
}

func insertAudit(ctx context.Context, tx pgx.Tx, e models.AuditEntry) error {
	query := `
		INSERT INTO audit_log (transaction_id, action, prev_status, next_status, actor_email, actor_role, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.Exec(ctx, query, e.TransactionID, e.Action, textParam(e.PrevStatus), e.NextStatus, e.ActorEmail, e.ActorRole, e.Metadata, e.CreatedAt)
	if err != nil {
		return storeError("insert audit log", err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		t      models.Transaction
		amount string
	)
	err := row.Scan(
		&t.ID, &t.CustomerID, &t.CustomerEmail, &t.CustomerName, &t.CustomerCountry,
		&amount, &t.Currency, &t.RecipientName, &t.RecipientAccount, &t.RecipientSwift, &t.Reference,
		&t.Status, &t.CreatedAt, &t.VerifiedByEmail, &t.VerifiedByName, &t.VerifierDepartment, &t.VerifiedAt,
		&t.VerifierNotes, &t.SwiftReference, &t.SubmittedToSwiftAt, &t.CompletedAt, &t.FailureReason,
	)
	if err != nil {
		return nil, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &t, nil
}

// storeError classifies driver errors. Server-side errors other than connection and
// shutdown failures are returned as-is; anything else means the store is unavailable.
func storeError(op string, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr):
		if pgerrcode.IsConnectionException(pgErr.Code) || pgerrcode.IsOperatorIntervention(pgErr.Code) {
			return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, models.ErrStoreUnavailable, err)
	}
}

func textParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
