package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"go-contact-api/internal/database"
	"go-contact-api/internal/model"
)

const uniqueViolation = "23505"

const userColumns = `id, uuid, name, email, password_hash, role, created_at, updated_at, deleted_at`

type UserRepository struct {
	db database.Querier
}

func NewUserRepository(db database.Querier) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) conn(ctx context.Context) database.Querier {
	return database.Executor(ctx, r.db)
}

// Create inserts u and fills in the generated id and timestamps.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO users (uuid, name, email, password_hash, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING id, created_at, updated_at`,
		u.UUID, u.Name, normalizeEmail(u.Email), u.PasswordHash, string(u.Role), time.Now().UTC()).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err, "users_email_key") {
		return model.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	u.Email = normalizeEmail(u.Email)
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted_at IS NULL`, id)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by id: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByUUID(ctx context.Context, uuid string) (model.User, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE uuid = $1 AND deleted_at IS NULL`, uuid)

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by uuid: %w", err)
	}
	return u, nil
}

// FindByEmail only sees active users.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted_at IS NULL`, normalizeEmail(email))

	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

// EmailExists checks every row, soft-deleted ones included, mirroring the
// unique index. excludeUUID lets an update keep its own address.
func (r *UserRepository) EmailExists(ctx context.Context, email string, excludeUUID string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND ($2 = '' OR uuid::text <> $2))`,
		normalizeEmail(email), excludeUUID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check email exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	err := r.conn(ctx).QueryRow(ctx,
		`UPDATE users SET name = $2, email = $3, password_hash = $4, role = $5, updated_at = $6
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING updated_at`,
		u.ID, u.Name, normalizeEmail(u.Email), u.PasswordHash, string(u.Role), time.Now().UTC()).
		Scan(&u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrUserNotFound
	}
	if isUniqueViolation(err, "users_email_key") {
		return model.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	u.Email = normalizeEmail(u.Email)
	return nil
}

func (r *UserRepository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, q model.UserQuery) ([]model.User, int, error) {
	where := []string{"deleted_at IS NULL"}
	args := []any{}

	if search := strings.TrimSpace(q.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if role := strings.TrimSpace(q.Role); role != "" {
		args = append(args, role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	args = append(args, q.PerPage, (q.Page-1)*q.PerPage)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT `+userColumns+` FROM users WHERE %s ORDER BY id LIMIT $%d OFFSET $%d`,
			clause, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, q.PerPage)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func scanUser(row pgx.Row) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := row.Scan(&u.ID, &u.UUID, &u.Name, &u.Email, &u.PasswordHash, &role,
		&u.CreatedAt, &u.UpdatedAt, &u.DeletedAt)
	u.Role = model.Role(role)
	return u, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
