package repository

import (
	"authgate/internal/common"
	"authgate/internal/domain/model"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// UserRepository is the user directory. Implementations must be safe for
// concurrent use.
type UserRepository interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// FindByUsername returns common.ErrNotFound when no user matches.
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// Save inserts user, assigning an ID when it has none. A taken
	// username yields common.ErrDuplicateUser.
	Save(ctx context.Context, user *model.User) (*model.User, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("pgUserRepository.ExistsByUsername: %w", err)
	}
	return exists, nil
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT id, username, hashed_password, roles, created_at
	          FROM users WHERE username = $1`
	user := &model.User{}
	var roles string
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.HashedPassword, &roles, &user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindByUsername: %w", err)
	}
	user.Roles = splitRoles(roles)
	return user, nil
}

func (r *pgUserRepository) Save(ctx context.Context, user *model.User) (*model.User, error) {
	if err := validateRoles(user.Roles); err != nil {
		return nil, err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query := `INSERT INTO users (id, username, hashed_password, roles)
	          VALUES ($1, $2, $3, $4)
	          RETURNING created_at`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.Username, user.HashedPassword, joinRoles(user.Roles)).
		Scan(&user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == common.PgUniqueViolation {
			return nil, common.ErrDuplicateUser
		}
		return nil, fmt.Errorf("pgUserRepository.Save: %w", err)
	}
	return user, nil
}

// Roles are stored as one comma separated column.
func joinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

func splitRoles(s string) []string {
	var roles []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

func validateRoles(roles []string) error {
	for _, r := range roles {
		if r == "" || strings.Contains(r, ",") {
			return fmt.Errorf("invalid role %q: %w", r, common.ErrBadRequest)
		}
	}
	return nil
}
