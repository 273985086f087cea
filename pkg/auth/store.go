package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/tartalacrm/pkg/apperr"
	"github.com/platinummonkey/tartalacrm/pkg/rbac"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
	"github.com/platinummonkey/tartalacrm/pkg/validation"
)

const userColumns = `id, name, email, username, password_hash, department, created_at, updated_at`

// dummyPassword is hashed once and compared against when a username is
// unknown, so failed logins cost the same either way.
const dummyPassword = "tartalacrm-unknown-user"

// UserStore handles user persistence and credential checks
type UserStore struct {
	db     *sql.DB
	hasher PasswordHasher
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewUserStore creates a new user store
func NewUserStore(db *sql.DB, hasher PasswordHasher) *UserStore {
	return &UserStore{
		db:     db,
		hasher: hasher,
		now:    time.Now,
	}
}

// CreateUser validates in, hashes the password, stores the user and assigns
// the grants of its department, all in one transaction.
func (s *UserStore) CreateUser(ctx context.Context, in NewUser) (*User, error) {
	if err := validateNewUser(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &User{
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.TrimSpace(in.Email),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: hash,
		Department:   in.Department,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		taken, err := usernameTaken(ctx, tx, user.Username, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.Validation(fmt.Errorf("%w: %q", ErrDuplicateUsername, user.Username))
		}

		query := `
			INSERT INTO users (name, email, username, password_hash, department, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		err = tx.QueryRowContext(ctx, query,
			user.Name,
			user.Email,
			user.Username,
			user.PasswordHash,
			user.Department,
			user.CreatedAt,
			user.UpdatedAt,
		).Scan(&user.ID)
		if err != nil {
			if storage.IsUniqueViolation(err) {
				return apperr.Validation(fmt.Errorf("%w: %q", ErrDuplicateUsername, user.Username))
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		if err := rbac.AssignGrantsTx(ctx, tx, user.ID, user.Department); err != nil {
			return err
		}

		user.Grants, err = rbac.UserGrants(ctx, tx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate returns the user when username exists and password matches
// its hash. Any other outcome returns (nil, nil).
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if user == nil {
		s.hasher.Verify(password, s.dummy())
		return nil, nil
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, nil
	}

	return user, nil
}

// GetUser returns the user with id, or nil if there is none.
func (s *UserStore) GetUser(ctx context.Context, id int64) (*User, error) {
	return getUser(ctx, s.db, `id = $1`, id)
}

// GetUserByUsername returns the user with username, or nil if there is none.
func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return getUser(ctx, s.db, `username = $1`, username)
}

// GetUserByIDAndUsername returns the user matching both id and username, or
// nil. Token verification uses it to reject tokens of deleted or renamed
// users.
func (s *UserStore) GetUserByIDAndUsername(ctx context.Context, id int64, username string) (*User, error) {
	return getUser(ctx, s.db, `id = $1 AND username = $2`, id, username)
}

// ListUsers returns every user ordered by id.
func (s *UserStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	rows.Close()

	for _, u := range users {
		if u.Grants, err = rbac.UserGrants(ctx, s.db, u.ID); err != nil {
			return nil, err
		}
	}

	return users, nil
}

// UpdateUser applies patch to the user with id. A department change
// reassigns grants in the same transaction. Returns a not-found error when
// id does not exist.
func (s *UserStore) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	var newHash string
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, apperr.Validationf("password: is required")
		}
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, err
		}
		newHash = hash
	}

	var user *User
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := getUser(ctx, tx, `id = $1`, id)
		if err != nil {
			return err
		}
		if current == nil {
			return apperr.NotFound(fmt.Errorf("%w: %d", ErrUserNotFound, id))
		}

		updated := *current
		applyUserPatch(&updated, patch)
		if newHash != "" {
			updated.PasswordHash = newHash
		}
		if err := validateUser(&updated); err != nil {
			return err
		}

		if updated.Username != current.Username {
			taken, err := usernameTaken(ctx, tx, updated.Username, id)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Validation(fmt.Errorf("%w: %q", ErrDuplicateUsername, updated.Username))
			}
		}

		updated.UpdatedAt = s.now().UTC()
		query := `
			UPDATE users
			SET name = $1, email = $2, username = $3, password_hash = $4, department = $5, updated_at = $6
			WHERE id = $7
		`
		_, err = tx.ExecContext(ctx, query,
			updated.Name,
			updated.Email,
			updated.Username,
			updated.PasswordHash,
			updated.Department,
			updated.UpdatedAt,
			id,
		)
		if err != nil {
			if storage.IsUniqueViolation(err) {
				return apperr.Validation(fmt.Errorf("%w: %q", ErrDuplicateUsername, updated.Username))
			}
			return fmt.Errorf("failed to update user: %w", err)
		}

		if updated.Department != current.Department {
			if err := rbac.AssignGrantsTx(ctx, tx, id, updated.Department); err != nil {
				return err
			}
		}

		updated.Grants, err = rbac.UserGrants(ctx, tx, id)
		if err != nil {
			return err
		}
		user = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

// DeleteUser removes the user with id and its grants. It reports whether a
// user existed. A user who still owns clients, contracts or events cannot be
// deleted.
func (s *UserStore) DeleteUser(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM users_permissions WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete grants of user %d: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			if storage.IsForeignKeyViolation(err) {
				return apperr.Conflict(fmt.Errorf("user %d still owns clients, contracts or events", id))
			}
			return fmt.Errorf("failed to delete user: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted = rows > 0
		return nil
	})
	return deleted, err
}

func (s *UserStore) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash(dummyPassword)
	})
	return s.dummyHash
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Department,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func getUser(ctx context.Context, q storage.Querier, where string, args ...interface{}) (*User, error) {
	row := q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, args...)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if u.Grants, err = rbac.UserGrants(ctx, q, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func usernameTaken(ctx context.Context, q storage.Querier, username string, exceptID int64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = $1 AND id <> $2`,
		username, exceptID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

func applyUserPatch(u *User, p UserPatch) {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Email != nil {
		u.Email = strings.TrimSpace(*p.Email)
	}
	if p.Username != nil {
		u.Username = strings.TrimSpace(*p.Username)
	}
	if p.Department != nil {
		u.Department = *p.Department
	}
}

func validateNewUser(in NewUser) error {
	var r validation.Result
	r.Required("name", in.Name)
	r.Email("email", strings.TrimSpace(in.Email))
	r.Required("username", in.Username)
	r.Required("password", in.Password)
	r.Check(in.Department.Valid(), "department", "%v: %q", rbac.ErrUnknownDepartment, in.Department)
	return r.Err()
}

func validateUser(u *User) error {
	var r validation.Result
	r.Required("name", u.Name)
	r.Email("email", u.Email)
	r.Required("username", u.Username)
	r.Check(u.Department.Valid(), "department", "%v: %q", rbac.ErrUnknownDepartment, u.Department)
	return r.Err()
}
