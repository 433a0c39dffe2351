package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Role         string `json:"role"`
	PasswordHash string `json:"-"`
	CreatedAt    int64  `json:"created_at"`
}

type UserStore struct {
	db  *sql.DB
	Now func() time.Time
}

func NewUserStore(db *sql.DB) *UserStore { return &UserStore{db: db, Now: time.Now} }

// Create hashes password and inserts a user with a fresh uuid.
func (s *UserStore) Create(ctx context.Context, username, password, role string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}
	return s.insert(ctx, username, string(hash), role)
}

func (s *UserStore) insert(ctx context.Context, username, hash, role string) (User, error) {
	u := User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(username),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    s.Now().UnixMilli(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
		u.ID, u.Username, u.PasswordHash, u.Role, u.CreatedAt)
	if isUniqueViolation(err) {
		return User{}, ErrUsernameTaken
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// EnsureAdmin creates the bootstrap admin from an existing bcrypt hash unless
// a user with that name already exists.
func (s *UserStore) EnsureAdmin(ctx context.Context, username, passHash string) (created bool, err error) {
	if _, err := s.GetByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return false, err
	}
	if _, err := bcrypt.Cost([]byte(passHash)); err != nil {
		return false, fmt.Errorf("admin password hash: %w", err)
	}
	if _, err := s.insert(ctx, username, passHash, rbac.RoleAdmin); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Authenticate checks a username/password pair.
func (s *UserStore) Authenticate(ctx context.Context, username, password string) (User, error) {
	u, err := s.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

const userCols = `id, username, password_hash, role, created_at`

func (s *UserStore) GetByID(ctx context.Context, id string) (User, error) {
	return s.one(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.one(ctx, `SELECT `+userCols+` FROM users WHERE username=$1`, strings.TrimSpace(username))
}

func (s *UserStore) one(ctx context.Context, query string, arg any) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return u, err
}

func (s *UserStore) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userCols+` FROM users ORDER BY username LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key value") // postgres
}

// UserInput is one row of a bulk import. Password may be empty only for
// users that already exist.
type UserInput struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

// BulkUpsert inserts or updates users by username in one transaction.
func (s *UserStore) BulkUpsert(ctx context.Context, in []UserInput) (inserted, updated int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	now := s.Now().UnixMilli()
	for _, u := range in {
		u.Username = strings.TrimSpace(u.Username)
		u.Role = strings.ToLower(strings.TrimSpace(u.Role))
		if u.Role == "" {
			u.Role = rbac.RoleStudent
		}
		if u.Username == "" {
			return inserted, updated, errors.New("username required")
		}
		if !rbac.ValidRole(u.Role) {
			return inserted, updated, fmt.Errorf("invalid role %q for %s", u.Role, u.Username)
		}
		var hash string
		if u.Password != "" {
			b, e := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if e != nil {
				return inserted, updated, e
			}
			hash = string(b)
		}

		var id string
		err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username=$1`, u.Username).Scan(&id)
		switch {
		case err == nil:
			if hash != "" {
				_, err = tx.ExecContext(ctx, `UPDATE users SET role=$1, password_hash=$2 WHERE id=$3`, u.Role, hash, id)
			} else {
				_, err = tx.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, u.Role, id)
			}
			if err != nil {
				return inserted, updated, err
			}
			updated++
		case errors.Is(err, sql.ErrNoRows):
			if hash == "" {
				return inserted, updated, fmt.Errorf("password required for new user %s", u.Username)
			}
			if u.ID == "" {
				u.ID = uuid.NewString()
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
				u.ID, u.Username, hash, u.Role, now); err != nil {
				return inserted, updated, err
			}
			inserted++
		default:
			return inserted, updated, err
		}
	}
	return inserted, updated, nil
}

var ErrLastAdmin = errors.New("cannot demote the last admin")

// SetRole changes a user's role, refusing to demote the last admin.
func (s *UserStore) SetRole(ctx context.Context, id, role string) (User, error) {
	if !rbac.ValidRole(role) {
		return User{}, fmt.Errorf("invalid role %q", role)
	}
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if u.Role == rbac.RoleAdmin && role != rbac.RoleAdmin {
		var admins int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM users WHERE role=$1`, rbac.RoleAdmin).Scan(&admins); err != nil {
			return User{}, err
		}
		if admins <= 1 {
			return User{}, ErrLastAdmin
		}
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET role=$1 WHERE id=$2`, role, id); err != nil {
		return User{}, err
	}
	u.Role = role
	return u, nil
}

// ChangePassword replaces the password after checking the old one.
func (s *UserStore) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), id)
	return err
}
