package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *SQLiteStore) CreateUser(ctx context.Context, email, name, passwordHash, role string) (*User, error) {
	id := uuid.NewString()
	now := time.Now().Unix()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, email, name, passwordHash, role, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return &User{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Unix(now, 0),
		UpdatedAt:    time.Unix(now, 0),
	}, nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	var createdAt, updatedAt int64

	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	u.CreatedAt = time.Unix(createdAt, 0)
	u.UpdatedAt = time.Unix(updatedAt, 0)
	return &u, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at FROM users WHERE id = ?`, id)
	return s.scanUser(row)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at FROM users WHERE email = ?`, email)
	return s.scanUser(row)
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, password_hash, role, created_at, updated_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		var createdAt, updatedAt int64
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.CreatedAt = time.Unix(createdAt, 0)
		u.UpdatedAt = time.Unix(updatedAt, 0)
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkAffected(result)
}

func (s *SQLiteStore) CreateLandingPage(ctx context.Context, userID, name, slug string) (*LandingPage, error) {
	id := uuid.NewString()
	now := time.Now().Unix()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO landing_pages (id, user_id, name, slug, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'draft', ?, ?)`,
		id, userID, name, slug, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert landing page: %w", err)
	}

	return &LandingPage{
		ID:        id,
		UserID:    userID,
		Name:      name,
		Slug:      slug,
		Status:    StatusDraft,
		CreatedAt: time.Unix(now, 0),
		UpdatedAt: time.Unix(now, 0),
	}, nil
}

func scanLandingPage(scan func(dest ...any) error) (*LandingPage, error) {
	var lp LandingPage
	var meta sql.NullString
	var createdAt, updatedAt int64

	err := scan(&lp.ID, &lp.UserID, &lp.Name, &lp.Slug, &lp.Status, &meta, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan landing page: %w", err)
	}

	if meta.Valid {
		lp.Meta = json.RawMessage(meta.String)
	}
	lp.CreatedAt = time.Unix(createdAt, 0)
	lp.UpdatedAt = time.Unix(updatedAt, 0)
	return &lp, nil
}

func (s *SQLiteStore) GetLandingPage(ctx context.Context, id string) (*LandingPage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, slug, status, meta, created_at, updated_at
		 FROM landing_pages WHERE id = ?`, id)
	return scanLandingPage(row.Scan)
}

// ListLandingPages returns the pages owned by userID, or every page when
// userID is empty.
func (s *SQLiteStore) ListLandingPages(ctx context.Context, userID string) ([]*LandingPage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, slug, status, meta, created_at, updated_at
		 FROM landing_pages WHERE (? = '' OR user_id = ?) ORDER BY created_at DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list landing pages: %w", err)
	}
	defer rows.Close()

	var pages []*LandingPage
	for rows.Next() {
		lp, err := scanLandingPage(rows.Scan)
		if err != nil {
			return nil, err
		}
		pages = append(pages, lp)
	}
	return pages, rows.Err()
}

func (s *SQLiteStore) UpdateLandingPage(ctx context.Context, id string, name string, status LPStatus, meta []byte) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE landing_pages SET name = ?, status = ?, meta = ?, updated_at = ? WHERE id = ?`,
		name, string(status), nullableBytes(meta), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update landing page: %w", err)
	}
	return checkAffected(result)
}

func (s *SQLiteStore) DeleteLandingPage(ctx context.Context, id string) error {
	// Children first: variants -> components -> page. Events and sessions
	// are retained for analysis.
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM variants WHERE component_id IN (SELECT id FROM components WHERE lp_id = ?)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete variants: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM components WHERE lp_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete components: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM landing_pages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete landing page: %w", err)
	}
	return checkAffected(result)
}

func (s *SQLiteStore) CreateComponent(ctx context.Context, lpID, componentType string, position int, genParams []byte) (*Component, error) {
	id := uuid.NewString()
	now := time.Now().Unix()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO components (id, lp_id, type, position, gen_params, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, lpID, componentType, position, nullableBytes(genParams), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert component: %w", err)
	}

	return &Component{
		ID:        id,
		LPID:      lpID,
		Type:      componentType,
		Position:  position,
		GenParams: genParams,
		CreatedAt: time.Unix(now, 0),
		UpdatedAt: time.Unix(now, 0),
	}, nil
}

func scanComponent(scan func(dest ...any) error) (*Component, error) {
	var c Component
	var genParams sql.NullString
	var createdAt, updatedAt int64

	err := scan(&c.ID, &c.LPID, &c.Type, &c.Position, &genParams, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan component: %w", err)
	}

	if genParams.Valid {
		c.GenParams = json.RawMessage(genParams.String)
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	c.UpdatedAt = time.Unix(updatedAt, 0)
	return &c, nil
}

func (s *SQLiteStore) GetComponent(ctx context.Context, id string) (*Component, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, lp_id, type, position, gen_params, created_at, updated_at
		 FROM components WHERE id = ?`, id)
	return scanComponent(row.Scan)
}

func (s *SQLiteStore) ListComponents(ctx context.Context, lpID string) ([]*Component, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lp_id, type, position, gen_params, created_at, updated_at
		 FROM components WHERE lp_id = ? ORDER BY position`, lpID)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	defer rows.Close()

	var components []*Component
	for rows.Next() {
		c, err := scanComponent(rows.Scan)
		if err != nil {
			return nil, err
		}
		components = append(components, c)
	}
	return components, rows.Err()
}

func (s *SQLiteStore) CreateVariant(ctx context.Context, componentID, letter, html, css, js string) (*Variant, error) {
	if letter != VariantA && letter != VariantB {
		return nil, fmt.Errorf("invalid variant letter: %q", letter)
	}

	id := uuid.NewString()
	now := time.Now().Unix()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO variants (id, component_id, letter, html, css, js, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, componentID, letter, html, css, js, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert variant: %w", err)
	}

	return &Variant{
		ID:          id,
		ComponentID: componentID,
		Letter:      letter,
		HTML:        html,
		CSS:         css,
		JS:          js,
		CreatedAt:   time.Unix(now, 0),
		UpdatedAt:   time.Unix(now, 0),
	}, nil
}

func scanVariant(scan func(dest ...any) error) (*Variant, error) {
	var v Variant
	var meta sql.NullString
	var createdAt, updatedAt int64

	err := scan(&v.ID, &v.ComponentID, &v.Letter, &v.HTML, &v.CSS, &v.JS, &meta, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan variant: %w", err)
	}

	if meta.Valid {
		v.Meta = json.RawMessage(meta.String)
	}
	v.CreatedAt = time.Unix(createdAt, 0)
	v.UpdatedAt = time.Unix(updatedAt, 0)
	return &v, nil
}

func (s *SQLiteStore) GetVariant(ctx context.Context, id string) (*Variant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, component_id, letter, html, css, js, meta, created_at, updated_at
		 FROM variants WHERE id = ?`, id)
	return scanVariant(row.Scan)
}

func (s *SQLiteStore) GetVariantByLetter(ctx context.Context, componentID, letter string) (*Variant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, component_id, letter, html, css, js, meta, created_at, updated_at
		 FROM variants WHERE component_id = ? AND letter = ?`, componentID, letter)
	return scanVariant(row.Scan)
}

func (s *SQLiteStore) ListVariants(ctx context.Context, componentID string) ([]*Variant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, component_id, letter, html, css, js, meta, created_at, updated_at
		 FROM variants WHERE component_id = ? ORDER BY letter`, componentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list variants: %w", err)
	}
	defer rows.Close()

	var variants []*Variant
	for rows.Next() {
		v, err := scanVariant(rows.Scan)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (s *SQLiteStore) UpdateVariantContent(ctx context.Context, id, html, css, js string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE variants SET html = ?, css = ?, js = ?, updated_at = ? WHERE id = ?`,
		html, css, js, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update variant: %w", err)
	}
	return checkAffected(result)
}

func checkAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
