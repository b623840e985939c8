package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/irsalhamdi/e-commerce-shop/database"
	"github.com/jmoiron/sqlx"
)

const selectUser = `
	SELECT user_id, username, email, password_hash, role, created_at, updated_at
	FROM users`

var sortColumns = map[string]string{
	"id":       "user_id",
	"username": "username",
	"email":    "email",
	"role":     "role",
}

func Create(ctx context.Context, db sqlx.ExtContext, u User) error {
	const q = `
	INSERT INTO users
		(user_id, username, email, password_hash, role, created_at, updated_at)
	VALUES
		(:user_id, :username, :email, :password_hash, :role, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, u); err != nil {
		return fmt.Errorf("inserting user: %w", database.Error(err))
	}
	return nil
}

func Update(ctx context.Context, db sqlx.ExtContext, u User) error {
	const q = `
	UPDATE users SET
		username = :username,
		email = :email,
		password_hash = :password_hash,
		role = :role,
		updated_at = :updated_at
	WHERE user_id = :user_id`

	res, err := sqlx.NamedExecContext(ctx, db, q, u)
	if err != nil {
		return fmt.Errorf("updating user[%s]: %w", u.ID, database.Error(err))
	}
	if err := database.ExpectOne(res); err != nil {
		return fmt.Errorf("updating user[%s]: %w", u.ID, err)
	}
	return nil
}

func Delete(ctx context.Context, db sqlx.ExtContext, id string) error {
	const q = `DELETE FROM users WHERE user_id = $1`

	res, err := db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("deleting user[%s]: %w", id, database.Error(err))
	}
	if err := database.ExpectOne(res); err != nil {
		return fmt.Errorf("deleting user[%s]: %w", id, err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	q := selectUser + ` WHERE user_id = $1`

	var u User
	if err := sqlx.GetContext(ctx, db, &u, q, id); err != nil {
		return User{}, fmt.Errorf("selecting user[%s]: %w", id, database.Error(err))
	}
	return u, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	q := selectUser + ` WHERE email = $1`

	var u User
	if err := sqlx.GetContext(ctx, db, &u, q, email); err != nil {
		return User{}, fmt.Errorf("selecting user by email: %w", database.Error(err))
	}
	return u, nil
}

func List(ctx context.Context, db sqlx.ExtContext, f Filter) ([]User, error) {
	q := selectUser
	var args []any

	if f.Name != "" {
		args = append(args, "%"+strings.ToLower(f.Name)+"%")
		q += ` WHERE LOWER(username) LIKE $1`
	}

	col, ok := sortColumns[f.SortBy]
	if !ok {
		col = "user_id"
	}
	dir := "ASC"
	if f.Order == "desc" {
		dir = "DESC"
	}

	args = append(args, f.Offset, f.Limit)
	q += fmt.Sprintf(" ORDER BY %s %s OFFSET $%d LIMIT $%d", col, dir, len(args)-1, len(args))

	users := []User{}
	if err := sqlx.SelectContext(ctx, db, &users, q, args...); err != nil {
		return nil, fmt.Errorf("selecting users: %w", database.Error(err))
	}
	return users, nil
}
