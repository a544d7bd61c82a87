package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"scadenze/internal/core"

	_ "modernc.org/sqlite"
)

// initializedKey marks one-time engine setup in engine_meta.
const initializedKey = "initialized_at"

// SQLiteRepository persists commitments and ledger entries. It satisfies
// every port in the services package. Dates are stored as YYYY-MM-DD text so
// lexicographic comparison in SQL is calendar comparison.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable. Used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const commitmentColumns = `id, owner_id, description, category, kind, amount_cents,
	next_due_date, last_executed_date, pattern, recurrence_interval, end_date, is_active`

// Create inserts a new commitment and returns its id.
func (r *SQLiteRepository) Create(ctx context.Context, c core.Commitment) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO commitments
			(owner_id, description, category, kind, amount_cents,
			 next_due_date, pattern, recurrence_interval, end_date, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		c.OwnerID, c.Description, c.Category, string(c.Kind), c.Amount.Cents,
		dateArg(c.NextDueDate), string(c.Pattern), c.Interval, dateArg(c.EndDate))
	if err != nil {
		return 0, fmt.Errorf("insert commitment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Commitment saved",
		"commitment_id", id,
		"owner_id", c.OwnerID,
		"next_due", c.NextDueDate.String())
	return id, nil
}

// GetByID returns a single commitment scoped to its owner. Returns
// core.ErrCommitmentNotFound when no row matches.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64, ownerID string) (core.Commitment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+commitmentColumns+`
		FROM commitments
		WHERE id = ? AND owner_id = ?`, id, ownerID)
	c, err := scanCommitment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Commitment{}, core.ErrCommitmentNotFound
	}
	if err != nil {
		return core.Commitment{}, fmt.Errorf("get commitment: %w", err)
	}
	return c, nil
}

// GetAllActive returns an owner's active commitments ordered by due date.
func (r *SQLiteRepository) GetAllActive(ctx context.Context, ownerID string) ([]core.Commitment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+commitmentColumns+`
		FROM commitments
		WHERE owner_id = ? AND is_active = 1
		ORDER BY next_due_date ASC, id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query active commitments: %w", err)
	}
	defer rows.Close()
	return collectCommitments(rows)
}

// GetAllDue returns every active commitment, across all owners, whose next
// due date is on or before asOf. The order is deterministic (due date
// ascending, then id) so an interrupted sweep always resumes with the oldest
// occurrences first.
func (r *SQLiteRepository) GetAllDue(ctx context.Context, asOf core.Date) ([]core.Commitment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+commitmentColumns+`
		FROM commitments
		WHERE is_active = 1
		  AND next_due_date IS NOT NULL
		  AND next_due_date <= ?
		ORDER BY next_due_date ASC, id ASC`, asOf.String())
	if err != nil {
		return nil, fmt.Errorf("query due commitments: %w", err)
	}
	defer rows.Close()
	return collectCommitments(rows)
}

// GetByDateRange returns an owner's active commitments whose next due date
// falls inside [start, end].
func (r *SQLiteRepository) GetByDateRange(ctx context.Context, ownerID string, start, end core.Date) ([]core.Commitment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+commitmentColumns+`
		FROM commitments
		WHERE owner_id = ?
		  AND is_active = 1
		  AND next_due_date IS NOT NULL
		  AND next_due_date BETWEEN ? AND ?
		ORDER BY next_due_date ASC, id ASC`, ownerID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("query commitments in range: %w", err)
	}
	defer rows.Close()
	return collectCommitments(rows)
}

// Update replaces the owner-editable fields of an active commitment.
func (r *SQLiteRepository) Update(ctx context.Context, c core.Commitment) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE commitments
		SET description = ?, category = ?, kind = ?, amount_cents = ?,
		    next_due_date = ?, pattern = ?, recurrence_interval = ?, end_date = ?,
		    updated_at = datetime('now')
		WHERE id = ? AND owner_id = ? AND is_active = 1`,
		c.Description, c.Category, string(c.Kind), c.Amount.Cents,
		dateArg(c.NextDueDate), string(c.Pattern), c.Interval, dateArg(c.EndDate),
		c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("update commitment: %w", err)
	}
	return requireRow(res)
}

// Advance records one execution: the executed occurrence becomes
// LastExecutedDate and the schedule moves to next.
func (r *SQLiteRepository) Advance(ctx context.Context, id int64, ownerID string, executed, next core.Date) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE commitments
		SET last_executed_date = ?, next_due_date = ?, updated_at = datetime('now')
		WHERE id = ? AND owner_id = ? AND is_active = 1`,
		executed.String(), next.String(), id, ownerID)
	if err != nil {
		return fmt.Errorf("advance commitment: %w", err)
	}
	return requireRow(res)
}

// Deactivate retires a commitment. The next due date is cleared so a
// terminal commitment can never satisfy the due query again.
func (r *SQLiteRepository) Deactivate(ctx context.Context, id int64, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE commitments
		SET is_active = 0, next_due_date = NULL, updated_at = datetime('now')
		WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deactivate commitment: %w", err)
	}
	return requireRow(res)
}

// Delete removes a commitment. Materialized ledger entries keep their
// commitment_id as a dangling reference; the ledger is immutable history.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64, ownerID string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM commitments WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	return requireRow(res)
}

// CreateEntry inserts a manual ledger entry and returns its id.
func (r *SQLiteRepository) CreateEntry(ctx context.Context, e core.LedgerEntry) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO ledger_entries
			(owner_id, description, category, kind, amount_cents, entry_date, commitment_id)
		VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		e.OwnerID, e.Description, e.Category, string(e.Kind), e.Amount.Cents, e.Date.String())
	if err != nil {
		return 0, fmt.Errorf("insert ledger entry: %w", err)
	}
	return res.LastInsertId()
}

// CreateFromCommitment inserts a materialized ledger entry. The unique index
// on (commitment_id, entry_date) makes the insert idempotent: when the
// occurrence was already materialized by an earlier interrupted run, created
// is false and the existing entry's id is returned.
func (r *SQLiteRepository) CreateFromCommitment(ctx context.Context, e core.LedgerEntry) (int64, bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledger_entries
			(owner_id, description, category, kind, amount_cents, entry_date, commitment_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.OwnerID, e.Description, e.Category, string(e.Kind), e.Amount.Cents,
		e.Date.String(), e.CommitmentID)
	if err != nil {
		return 0, false, fmt.Errorf("insert ledger entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("last insert id: %w", err)
		}
		return id, true, nil
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		SELECT id FROM ledger_entries
		WHERE commitment_id = ? AND entry_date = ?`,
		e.CommitmentID, e.Date.String()).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("lookup existing entry: %w", err)
	}
	return id, false, nil
}

// SumByOwnerUpTo sums an owner's ledger entries dated on or before upTo,
// signed by kind: income adds, expense subtracts.
func (r *SQLiteRepository) SumByOwnerUpTo(ctx context.Context, ownerID string, upTo core.Date) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE -amount_cents END), 0)
		FROM ledger_entries
		WHERE owner_id = ? AND entry_date <= ?`, ownerID, upTo.String()).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return sum, nil
}

// ListEntries returns an owner's ledger entries inside [start, end], newest
// first.
func (r *SQLiteRepository) ListEntries(ctx context.Context, ownerID string, start, end core.Date) ([]core.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, description, category, kind, amount_cents, entry_date,
		       COALESCE(commitment_id, 0)
		FROM ledger_entries
		WHERE owner_id = ? AND entry_date BETWEEN ? AND ?
		ORDER BY entry_date DESC, id DESC`, ownerID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []core.LedgerEntry
	for rows.Next() {
		var (
			e       core.LedgerEntry
			kind    string
			dateStr string
		)
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Description, &e.Category, &kind,
			&e.Amount.Cents, &dateStr, &e.CommitmentID); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Kind = core.EntryKind(kind)
		if e.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("parse entry date %q: %w", dateStr, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// EnsureInitialized writes the one-time setup marker. Repeat calls are
// no-ops; created reports whether this call wrote it.
func (r *SQLiteRepository) EnsureInitialized(ctx context.Context) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO engine_meta (key, value) VALUES (?, ?)`,
		initializedKey, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("write init marker: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCommitment(row rowScanner) (core.Commitment, error) {
	var (
		c            core.Commitment
		kind         string
		pattern      string
		nextDue      sql.NullString
		lastExecuted sql.NullString
		endDate      sql.NullString
		active       int64
	)
	err := row.Scan(&c.ID, &c.OwnerID, &c.Description, &c.Category, &kind, &c.Amount.Cents,
		&nextDue, &lastExecuted, &pattern, &c.Interval, &endDate, &active)
	if err != nil {
		return core.Commitment{}, err
	}
	c.Kind = core.EntryKind(kind)
	c.Pattern = core.RecurrencePattern(pattern)
	c.IsActive = active != 0
	if c.NextDueDate, err = nullDate(nextDue); err != nil {
		return core.Commitment{}, err
	}
	if c.LastExecutedDate, err = nullDate(lastExecuted); err != nil {
		return core.Commitment{}, err
	}
	if c.EndDate, err = nullDate(endDate); err != nil {
		return core.Commitment{}, err
	}
	return c, nil
}

func collectCommitments(rows *sql.Rows) ([]core.Commitment, error) {
	var list []core.Commitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commitment: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// dateArg converts a Date to its SQL representation, NULL when unset.
func dateArg(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

func nullDate(s sql.NullString) (core.Date, error) {
	if !s.Valid || s.String == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s.String)
}

func requireRow(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return core.ErrCommitmentNotFound
	}
	return nil
}
