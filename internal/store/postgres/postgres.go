// Package postgres is the SQL credential store backend: pgx through
// database/sql, uniqueness enforced by constraints, schema managed by
// embedded goose migrations. Suitable when the core runs behind a
// service instead of embedded in a client.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vcompra/cartsync/internal/common"
	"github.com/vcompra/cartsync/internal/dbx"
	"github.com/vcompra/cartsync/internal/models"
	"github.com/vcompra/cartsync/internal/store/postgres/migrations"
)

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB

	// owns is set when the repository opened the connection itself
	// (Open); repositories bound to a caller-owned handle leave the
	// caller to close it.
	owns bool
}

// NewRepository binds a repository to an existing connection handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// gooseUpContext is a seam for testing RunMigrations.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// Open connects to the given DSN, runs migrations and returns a
// repository that owns the connection.
func Open(ctx context.Context, dsn string) (*Repository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Repository{db: db, owns: true}, nil
}

func (r *Repository) Close() error {
	if r.owns {
		return r.db.Close()
	}
	return nil
}

// internalErr folds unexpected driver failures into a single sentinel
// so callers never have to match driver error types.
func internalErr(err error) error {
	return fmt.Errorf("%w: %v", common.ErrInternal, err)
}

func (r *Repository) Create(ctx context.Context, user *models.UserAccount) (*models.UserAccount, error) {
	query := `INSERT INTO users (id, username, email, password_hash, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrDuplicateIdentity
		}
		return nil, internalErr(err)
	}
	return user, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.UserAccount, error) {
	query := `SELECT id, username, email, password_hash, created_at, last_sync, encrypted_payload, blob_key
	          FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.UserAccount, error) {
	query := `SELECT id, username, email, password_hash, created_at, last_sync, encrypted_payload, blob_key
	          FROM users WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// UpdatePayload replaces the payload columns inside one transaction.
// The row lock makes racing payload writes for the same account wait
// instead of interleaving between the existence check and the update.
func (r *Repository) UpdatePayload(ctx context.Context, id string, payload []byte, blobKey string, syncedAt time.Time) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var locked string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrNotFound
			}
			return internalErr(err)
		}

		query := `UPDATE users
		          SET encrypted_payload = $2, blob_key = $3, last_sync = $4
		          WHERE id = $1`
		if _, err := tx.ExecContext(ctx, query, id, payload, blobKey, syncedAt); err != nil {
			return internalErr(err)
		}
		return nil
	})
}

func (r *Repository) scanOne(row *sql.Row) (*models.UserAccount, error) {
	user := &models.UserAccount{}
	var lastSync sql.NullTime

	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.CreatedAt, &lastSync, &user.EncryptedPayload, &user.BlobKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, internalErr(err)
	}

	if lastSync.Valid {
		t := lastSync.Time
		user.LastSync = &t
	}
	return user, nil
}
