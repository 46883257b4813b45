//go:build sqlite

// Package sqlite implements storage.Store on a CGO-less SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // CGO-less SQLite driver

	"iprange/internal/domain"
	"iprange/internal/storage"
)

type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000; PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Status reports the applied schema version for the given DSN without
// running migrations.
func Status(dsn string) (string, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return "", err
	}
	defer db.Close()
	var latest, count int
	_ = db.QueryRow(`SELECT COALESCE(MAX(version),0) FROM schema_migrations`).Scan(&latest)
	_ = db.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&count)
	var schemaVersion int
	var appVersion, appliedAt string
	_ = db.QueryRow(`SELECT schema_version, app_version, applied_at FROM schema_info WHERE id=1`).Scan(&schemaVersion, &appVersion, &appliedAt)
	return fmt.Sprintf("schema_version=%d applied=%d latest=%d app_version=%s applied_at=%s", schemaVersion, count, latest, appVersion, appliedAt), nil
}

const conversionColumns = `id, family, name, range_text, start_addr, end_addr, subnets, subnet_count, source, created_at`

func (s *Store) CreateConversion(ctx context.Context, in domain.CreateConversion) (domain.Conversion, error) {
	if !in.Family.Valid() {
		return domain.Conversion{}, fmt.Errorf("unknown family %q: %w", in.Family, storage.ErrValidation)
	}
	if in.RangeText == "" || in.StartAddr == "" || in.EndAddr == "" || len(in.Subnets) == 0 {
		return domain.Conversion{}, fmt.Errorf("range, addresses and subnets required: %w", storage.ErrValidation)
	}
	source := in.Source
	if source == "" {
		source = domain.SourceManual
	}
	subnetsJSON, err := json.Marshal(in.Subnets)
	if err != nil {
		return domain.Conversion{}, err
	}
	conv := domain.Conversion{
		ID:          uuid.NewString(),
		Family:      in.Family,
		Name:        in.Name,
		RangeText:   in.RangeText,
		StartAddr:   in.StartAddr,
		EndAddr:     in.EndAddr,
		Subnets:     append([]string(nil), in.Subnets...),
		SubnetCount: len(in.Subnets),
		Source:      source,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversions(`+conversionColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?)`,
		conv.ID, string(conv.Family), conv.Name, conv.RangeText, conv.StartAddr, conv.EndAddr,
		string(subnetsJSON), conv.SubnetCount, conv.Source, conv.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return domain.Conversion{}, storage.WrapIfConflict(err)
	}
	return conv, nil
}

func scanConversion(sc interface{ Scan(...any) error }) (domain.Conversion, error) {
	var c domain.Conversion
	var family, subnets, ts string
	if err := sc.Scan(&c.ID, &family, &c.Name, &c.RangeText, &c.StartAddr, &c.EndAddr, &subnets, &c.SubnetCount, &c.Source, &ts); err != nil {
		return domain.Conversion{}, err
	}
	c.Family = domain.Family(family)
	if err := json.Unmarshal([]byte(subnets), &c.Subnets); err != nil {
		return domain.Conversion{}, fmt.Errorf("decode subnets for %s: %w", c.ID, err)
	}
	if t, e := time.Parse(time.RFC3339, ts); e == nil {
		c.CreatedAt = t
	}
	return c, nil
}

func (s *Store) GetConversion(ctx context.Context, id string) (domain.Conversion, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+conversionColumns+` FROM conversions WHERE id = ?`, id)
	c, err := scanConversion(row)
	if err == sql.ErrNoRows {
		return domain.Conversion{}, false, nil
	}
	if err != nil {
		return domain.Conversion{}, false, err
	}
	return c, true, nil
}

func (s *Store) ListConversions(ctx context.Context, opts storage.ListOptions) ([]domain.Conversion, error) {
	q := `SELECT ` + conversionColumns + ` FROM conversions`
	var where []string
	var args []any
	if opts.Family != "" {
		where = append(where, `family = ?`)
		args = append(args, string(opts.Family))
	}
	if opts.SourcePrefix != "" {
		where = append(where, `source LIKE ? ESCAPE '\'`)
		args = append(args, escapeLike(opts.SourcePrefix)+"%")
	}
	for i, w := range where {
		if i == 0 {
			q += ` WHERE ` + w
		} else {
			q += ` AND ` + w
		}
	}
	q += ` ORDER BY created_at DESC, id ASC`
	if opts.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			q += ` LIMIT -1`
		}
		q += ` OFFSET ?`
		args = append(args, opts.Offset)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Conversion{}
	for rows.Next() {
		c, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	var b []byte
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			b = append(b, '\\')
		}
		b = append(b, s[i])
	}
	return string(b)
}

func (s *Store) DeleteConversion(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversions WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) GetConversionBySource(ctx context.Context, source string) (*domain.Conversion, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+conversionColumns+` FROM conversions WHERE source = ?`, source)
	c, err := scanConversion(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Close() error { return s.db.Close() }
