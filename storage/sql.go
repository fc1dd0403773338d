package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQL keeps blobs in the client_state table created by database.Migrate.
type SQL struct {
	db *sqlx.DB
}

func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db}
}

type row struct {
	Key       string    `db:"state_key"`
	Data      []byte    `db:"data"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `
	SELECT
		data
	FROM
		client_state
	WHERE
		state_key = $1`

	var data []byte
	if err := s.db.GetContext(ctx, &data, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *SQL) Put(ctx context.Context, key string, data []byte) error {
	const q = `
	INSERT INTO client_state
		(state_key, data, updated_at)
	VALUES
		(:state_key, :data, :updated_at)
	ON CONFLICT (state_key) DO UPDATE SET
		data = EXCLUDED.data,
		updated_at = EXCLUDED.updated_at,
		version = client_state.version + 1`

	r := row{
		Key:       key,
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.db.NamedExecContext(ctx, q, r)
	return err
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	const q = `
	DELETE FROM
		client_state
	WHERE
		state_key = $1`

	_, err := s.db.ExecContext(ctx, q, key)
	return err
}
