package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/lectern/core"
	"github.com/trezcool/lectern/core/user"
)

type userRow struct {
	Username        string      `db:"username"`
	Role            string      `db:"role"`
	Course          string      `db:"course"`
	Year            null.String `db:"year"`
	AdmissionNumber null.String `db:"admission_number"`
	Email           null.String `db:"email"`
	PasswordHash    []byte      `db:"password_hash"`
	CreatedAt       time.Time   `db:"created_at"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		Username:        usr.Username,
		Role:            usr.Role.String(),
		Course:          usr.Course,
		Year:            null.StringFromPtr(usr.Year),
		AdmissionNumber: null.StringFromPtr(usr.AdmissionNumber),
		Email:           null.NewString(usr.Email, usr.Email != ""),
		PasswordHash:    usr.PasswordHash,
		CreatedAt:       usr.CreatedAt.UTC(),
	}
}

func (row userRow) user() user.User {
	return user.User{
		Username:        row.Username,
		Role:            user.Role(row.Role),
		Course:          row.Course,
		Year:            row.Year.Ptr(),
		AdmissionNumber: row.AdmissionNumber.Ptr(),
		Email:           row.Email.String,
		PasswordHash:    row.PasswordHash,
		CreatedAt:       row.CreatedAt.UTC(),
	}
}

const userColumns = "username, role, course, year, admission_number, email, password_hash, created_at"

type userRepository struct {
	repo
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repo{exec: exec}}
}

func (r userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	ex := r.getExec(exec)
	row := toUserRow(usr)
	q := ex.Rebind(`INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err := ex.ExecContext(ctx, q,
		row.Username, row.Role, row.Course, row.Year, row.AdmissionNumber, row.Email, row.PasswordHash, row.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUserExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.user(), nil
}

func (r userRepository) GetUser(ctx context.Context, username string, exec ...core.DBExecutor) (user.User, error) {
	ex := r.getExec(exec)
	var row userRow
	q := ex.Rebind(`SELECT ` + userColumns + ` FROM users WHERE username = ?`)
	if err := ex.GetContext(ctx, &row, q, username); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound)
	}
	return row.user(), nil
}

func (r userRepository) QueryUsers(
	ctx context.Context,
	filter user.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]user.User, error) {
	ex := r.getExec(exec)
	q := `SELECT ` + userColumns + ` FROM users WHERE 1 = 1`
	args := make([]interface{}, 0, 2)
	if filter.Role != "" {
		q += ` AND role = ?`
		args = append(args, filter.Role.String())
	}
	if filter.Course != "" {
		q += ` AND course = ?`
		args = append(args, filter.Course)
	}
	q += orderBy(ordering)

	var rows []userRow
	if err := ex.SelectContext(ctx, &rows, ex.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (r userRepository) CountUsers(ctx context.Context, exec ...core.DBExecutor) (int, error) {
	ex := r.getExec(exec)
	var n int
	if err := ex.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}

func (r userRepository) SetPassword(ctx context.Context, username string, hash []byte, exec ...core.DBExecutor) error {
	ex := r.getExec(exec)
	res, err := ex.ExecContext(ctx, ex.Rebind(`UPDATE users SET password_hash = ? WHERE username = ?`), hash, username)
	if err != nil {
		return errors.Wrap(err, "updating password")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrNotFound
	}
	return nil
}
