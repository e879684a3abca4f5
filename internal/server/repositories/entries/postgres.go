package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/dbx"
	"github.com/dmitrijs2005/passvault/internal/server/models"
)

// PostgresRepository implements entry storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.Entry) error {
	query := `
		INSERT INTO entries (id, user_id, title, url, username, password, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.ID, e.UserID, e.Title, e.URL, e.Username, e.Password, e.Notes).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.Entry) error {
	query := `
		UPDATE entries
		SET title = $3, url = $4, username = $5, password = $6, notes = $7, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.ID, e.UserID, e.Title, e.URL, e.Username, e.Password, e.Notes).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, id string) (*models.Entry, error) {
	query := `
		SELECT id, user_id, title, url, username, password, notes, created_at, updated_at
		FROM entries WHERE id = $1 AND user_id = $2
	`
	e := &models.Entry{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&e.ID, &e.UserID, &e.Title, &e.URL, &e.Username, &e.Password, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]*models.Entry, error) {
	query := `
		SELECT id, user_id, title, url, username, password, notes, created_at, updated_at
		FROM entries WHERE user_id = $1 ORDER BY title, id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Entry
	for rows.Next() {
		e := &models.Entry{}
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Title, &e.URL, &e.Username, &e.Password, &e.Notes, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
