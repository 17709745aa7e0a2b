package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ratiba/core/user"
)

type userRow struct {
	ID                 string         `db:"id"`
	Name               null.String    `db:"name"`
	Email              string         `db:"email"`
	IsActive           bool           `db:"is_active"`
	Roles              pq.StringArray `db:"roles"`
	PasswordHash       null.Bytes     `db:"password_hash"`
	LoginCodeHash      null.String    `db:"login_code_hash"`
	LoginCodeExpiresAt null.Time      `db:"login_code_expires_at"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
	LastLogin          null.Time      `db:"last_login"`
}

func (r userRow) validate() error {
	if r.ID == "" || r.Email == "" {
		return errors.Errorf("malformed user row: id=%q email=%q", r.ID, r.Email)
	}
	return nil
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:                 r.ID,
		Name:               r.Name.String,
		Email:              r.Email,
		IsActive:           r.IsActive,
		Roles:              r.Roles,
		PasswordHash:       r.PasswordHash.Bytes,
		LoginCodeHash:      r.LoginCodeHash.String,
		LoginCodeExpiresAt: r.LoginCodeExpiresAt.Time,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		LastLogin:          r.LastLogin.Time,
	}
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:                 usr.ID,
		Name:               null.NewString(usr.Name, usr.Name != ""),
		Email:              usr.Email,
		IsActive:           usr.IsActive,
		Roles:              usr.Roles,
		PasswordHash:       null.NewBytes(usr.PasswordHash, usr.PasswordHash != nil),
		LoginCodeHash:      null.NewString(usr.LoginCodeHash, usr.LoginCodeHash != ""),
		LoginCodeExpiresAt: null.NewTime(usr.LoginCodeExpiresAt.UTC(), !usr.LoginCodeExpiresAt.IsZero()),
		CreatedAt:          usr.CreatedAt.UTC(),
		UpdatedAt:          usr.UpdatedAt.UTC(),
		LastLogin:          null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

type UserRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*UserRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo UserRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo UserRepository) get(ctx context.Context, query string, args ...interface{}) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	if err := row.validate(); err != nil {
		return user.User{}, err
	}
	return row.toUser(), nil
}

func (repo UserRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...user.User) error {
	query := `SELECT EXISTS (SELECT 1 FROM "user" WHERE email = $1`
	args := []interface{}{email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += ` AND NOT (id = ANY($2))`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if exists {
		return user.ErrEmailExists
	}
	return nil
}

func (repo UserRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := toUserRow(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, name, email, is_active, roles, password_hash, login_code_hash, login_code_expires_at, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :is_active, :roles, :password_hash, :login_code_hash, :login_code_expires_at, :created_at, :updated_at, :last_login)`, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.toUser(), nil
}

func (repo UserRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" ORDER BY created_at`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return repo.toUsers(rows)
}

func (repo UserRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	if id == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, `SELECT * FROM "user" WHERE id = $1`, id)
}

func (repo UserRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if email == "" {
		return user.User{}, user.ErrNotFound
	}
	return repo.get(ctx, `SELECT * FROM "user" WHERE email = $1`, email)
}

func (repo UserRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	query := `SELECT * FROM "user"`
	clauses := make([]string, 0, 5)
	args := make([]interface{}, 0, 5)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE %s OR email ILIKE %s)", p, p))
	}
	if filter.Roles != nil {
		clauses = append(clauses, fmt.Sprintf("roles && %s", arg(pq.Array(filter.Roles))))
	}
	if filter.IsActive != nil {
		clauses = append(clauses, fmt.Sprintf("is_active = %s", arg(*filter.IsActive)))
	}
	if !filter.CreatedFrom.IsZero() {
		clauses = append(clauses, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
	}
	if !filter.CreatedTo.IsZero() {
		clauses = append(clauses, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at"

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return repo.toUsers(rows)
}

func (repo UserRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	orig, err := repo.GetUserByID(ctx, usr.ID)
	if err != nil {
		return user.User{}, err
	}

	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = usr.UpdatedAt

	row := toUserRow(orig)
	_, err = repo.db.NamedExecContext(ctx, `
		UPDATE "user"
		SET name = :name, email = :email, is_active = :is_active, roles = :roles,
		    password_hash = :password_hash, updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return orig, nil
}

func (repo UserRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		now := time.Now().UTC()
		usr.CreatedAt = now
		usr.UpdatedAt = now
		return repo.CreateUser(ctx, usr)
	}
	usr.UpdatedAt = time.Now().UTC()
	active := usr.IsActive
	return repo.UpdateUser(ctx, usr, &active)
}

func (repo UserRepository) SetUserLoginCode(ctx context.Context, id, hash string, expiresAt time.Time) error {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE "user" SET login_code_hash = $2, login_code_expires_at = $3 WHERE id = $1`,
		id, null.NewString(hash, hash != ""), null.NewTime(expiresAt.UTC(), !expiresAt.IsZero()))
	return errors.Wrap(err, "setting login code")
}

func (repo UserRepository) SetUserLastLogin(ctx context.Context, id string, lastLogin time.Time) error {
	_, err := repo.db.ExecContext(ctx, `UPDATE "user" SET last_login = $2 WHERE id = $1`, id, lastLogin.UTC())
	return errors.Wrap(err, "setting last login")
}

func (repo UserRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(ids))
	return errors.Wrap(err, "deleting users")
}

func (repo UserRepository) toUsers(rows []userRow) ([]user.User, error) {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		if err := row.validate(); err != nil {
			return nil, err
		}
		users = append(users, row.toUser())
	}
	return users, nil
}
