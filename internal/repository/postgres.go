package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devmatch/backend/internal/config"
	"github.com/devmatch/backend/internal/domain"
)

//go:embed schema.sql
var schema string

const userColumns = `id, email, password_hash, first_name, last_name, age, gender, about, skills,
	photo_url, is_premium, membership_type, device_tokens, created_at, updated_at`

const requestColumns = `id, from_user_id, to_user_id, status, created_at, updated_at`

// PostgresRepository implements Store using PostgreSQL
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository opens a connection pool to cfg.URL
func NewPostgresRepository(ctx context.Context, cfg config.DatabaseConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute
	poolConfig.ConnConfig.ConnectTimeout = cfg.Timeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: unable to ping database: %v", domain.ErrStoreUnavailable, err)
	}

	return &PostgresRepository{db: pool}, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return pgErr(r.db.Ping(ctx))
}

func (r *PostgresRepository) Close(context.Context) error {
	r.db.Close()
	return nil
}

// Migrate applies the embedded schema
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, schema, pgx.QueryExecModeSimpleProtocol); err != nil {
		return fmt.Errorf("apply schema: %w", pgErr(err))
	}
	return nil
}

// CreateUser creates a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.User, error) {
	query := `
		INSERT INTO users (id, email, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, query,
		uuid.New(),
		strings.ToLower(params.Email),
		params.PasswordHash,
		params.FirstName,
		params.LastName,
	)
	return scanUser(row)
}

// GetUserByID retrieves a user by ID
func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetUserByEmail retrieves a user, including the password hash, by email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, strings.ToLower(email)))
}

func (r *PostgresRepository) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	if len(ids) == 0 {
		return []*domain.User{}, nil
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	return r.queryUsers(ctx, query, ids)
}

// UpdateUserProfile applies the non-nil fields of params
func (r *PostgresRepository) UpdateUserProfile(ctx context.Context, id uuid.UUID, params domain.UpdateProfileParams) (*domain.User, error) {
	query := `
		UPDATE users SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			age        = COALESCE($4, age),
			gender     = COALESCE($5, gender),
			about      = COALESCE($6, about),
			skills     = COALESCE($7, skills),
			photo_url  = COALESCE($8, photo_url),
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var gender *string
	if params.Gender != nil {
		g := string(*params.Gender)
		gender = &g
	}

	row := r.db.QueryRow(ctx, query,
		id,
		params.FirstName,
		params.LastName,
		params.Age,
		gender,
		params.About,
		params.Skills,
		params.PhotoURL,
	)
	return scanUser(row)
}

func (r *PostgresRepository) AddDeviceToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `
		UPDATE users
		SET device_tokens = CASE WHEN $2 = ANY(device_tokens) THEN device_tokens ELSE array_append(device_tokens, $2) END
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, token)
	if err != nil {
		return pgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) ListFeedCandidates(ctx context.Context, exclude []uuid.UUID, offset, limit int) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE NOT (id = ANY($1))
		ORDER BY created_at, id
		OFFSET $2 LIMIT $3
	`
	if exclude == nil {
		exclude = []uuid.UUID{}
	}
	return r.queryUsers(ctx, query, exclude, offset, limit)
}

func (r *PostgresRepository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = ""
		user.DeviceTokens = nil
		users = append(users, user)
	}
	return users, pgErr(rows.Err())
}

// CreateConnectionRequest relies on connection_requests_pair_key to reject
// a second request for the same pair.
func (r *PostgresRepository) CreateConnectionRequest(ctx context.Context, req *domain.ConnectionRequest) error {
	query := `
		INSERT INTO connection_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.FromUserID,
		req.ToUserID,
		string(req.Status),
		req.CreatedAt,
		req.UpdatedAt,
	)
	return pgErr(err)
}

func (r *PostgresRepository) GetConnectionRequest(ctx context.Context, id uuid.UUID) (*domain.ConnectionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM connection_requests WHERE id = $1`
	return scanRequest(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) TransitionConnectionRequest(ctx context.Context, id, reviewer uuid.UUID, from, to domain.RequestStatus) (*domain.ConnectionRequest, error) {
	query := `
		UPDATE connection_requests
		SET status = $4, updated_at = NOW()
		WHERE id = $1 AND to_user_id = $2 AND status = $3
		RETURNING ` + requestColumns

	req, err := scanRequest(r.db.QueryRow(ctx, query, id, reviewer, string(from), string(to)))
	if errors.Is(err, domain.ErrRequestNotFound) {
		if _, getErr := r.GetConnectionRequest(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, domain.ErrInvalidState
	}
	return req, err
}

func (r *PostgresRepository) ListReceivedRequests(ctx context.Context, userID uuid.UUID, status domain.RequestStatus) ([]*domain.ConnectionRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM connection_requests
		WHERE to_user_id = $1 AND status = $2
		ORDER BY created_at DESC, id
	`
	return r.queryRequests(ctx, query, userID, string(status))
}

func (r *PostgresRepository) ListConnectionsByStatus(ctx context.Context, userID uuid.UUID, status domain.RequestStatus) ([]*domain.ConnectionRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM connection_requests
		WHERE (from_user_id = $1 OR to_user_id = $1) AND status = $2
		ORDER BY created_at DESC, id
	`
	return r.queryRequests(ctx, query, userID, string(status))
}

func (r *PostgresRepository) RelatedUserIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT CASE WHEN from_user_id = $1 THEN to_user_id ELSE from_user_id END
		FROM connection_requests
		WHERE from_user_id = $1 OR to_user_id = $1
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, pgErr(err)
		}
		ids = append(ids, id)
	}
	return ids, pgErr(rows.Err())
}

func (r *PostgresRepository) queryRequests(ctx context.Context, query string, args ...interface{}) ([]*domain.ConnectionRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, pgErr(err)
	}
	defer rows.Close()

	reqs := make([]*domain.ConnectionRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, pgErr(rows.Err())
}

// Helper functions for scanning rows

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var gender string
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Age,
		&gender,
		&user.About,
		&user.Skills,
		&user.PhotoURL,
		&user.IsPremium,
		&user.MembershipType,
		&user.DeviceTokens,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, pgErr(err)
	}
	user.Gender = domain.Gender(gender)
	if user.Skills == nil {
		user.Skills = []string{}
	}
	return &user, nil
}

func scanRequest(row pgx.Row) (*domain.ConnectionRequest, error) {
	var req domain.ConnectionRequest
	var status string
	err := row.Scan(
		&req.ID,
		&req.FromUserID,
		&req.ToUserID,
		&status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, pgErr(err)
	}
	req.Status = domain.RequestStatus(status)
	return &req, nil
}

// pgErr maps driver errors onto domain error kinds
func pgErr(err error) error {
	if err == nil {
		return nil
	}

	var pgError *pgconn.PgError
	if errors.As(err, &pgError) {
		switch pgError.Code {
		case "23505": // unique_violation
			switch pgError.ConstraintName {
			case "users_email_key":
				return domain.ErrUserAlreadyExists
			case "connection_requests_pair_key":
				return domain.ErrDuplicateRequest
			}
		case "23503": // foreign_key_violation
			return domain.ErrUserNotFound
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pgError.Message)
		}
		return err
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return err
}
