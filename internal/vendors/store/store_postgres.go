package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/blastheart1/signed-contract-parser-sub003/internal/platform/database"
	"github.com/blastheart1/signed-contract-parser-sub003/internal/vendors/models"
	id "github.com/blastheart1/signed-contract-parser-sub003/pkg/domain"
	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/sentinel"
	txcontext "github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/tx"
)

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists vendors. Name uniqueness is enforced by the
// vendors_name_lower_idx index.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const vendorColumns = `id, name, email, phone, category, specialties, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (*models.Vendor, error) {
	var v models.Vendor
	var specialties pq.StringArray
	if err := row.Scan(&v.ID, &v.Name, &v.Email, &v.Phone, &v.Category, &specialties,
		&v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	v.Specialties = []string(specialties)
	if v.Specialties == nil {
		v.Specialties = []string{}
	}
	return &v, nil
}

func (s *PostgresStore) Create(ctx context.Context, v *models.Vendor) error {
	_, err := s.execer(ctx).ExecContext(ctx,
		`INSERT INTO vendors (`+vendorColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.ID, v.Name, v.Email, v.Phone, v.Category, pq.Array(specialtiesOrEmpty(v.Specialties)),
		v.Status, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("insert vendor: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, v *models.Vendor) error {
	res, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE vendors SET name = $2, email = $3, phone = $4, category = $5, specialties = $6,
			status = $7, updated_at = $8
		WHERE id = $1`,
		v.ID, v.Name, v.Email, v.Phone, v.Category, pq.Array(specialtiesOrEmpty(v.Specialties)),
		v.Status, v.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("update vendor: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("update vendor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update vendor: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, vendorID id.VendorID) (*models.Vendor, error) {
	v, err := scanVendor(s.execer(ctx).QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = $1`, vendorID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find vendor: %w", err)
	}
	return v, nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]*models.Vendor, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(q))+"%")
		where = append(where, fmt.Sprintf(
			"(LOWER(name) LIKE $%[1]d OR LOWER(category) LIKE $%[1]d OR EXISTS (SELECT 1 FROM unnest(specialties) sp WHERE LOWER(sp) LIKE $%[1]d))",
			len(args)))
	}
	query := `SELECT ` + vendorColumns + ` FROM vendors`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY LOWER(name)"

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Vendor, 0)
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vendors: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func specialtiesOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
