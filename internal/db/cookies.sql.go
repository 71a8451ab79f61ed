// source: cookies.sql

package db

import (
	"context"
)

const insertCookie = `-- name: InsertCookie :exec
INSERT INTO cookies (domain, flag, path, secure, expiration, name, value)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

type InsertCookieParams struct {
	Domain     string `json:"domain"`
	Flag       string `json:"flag"`
	Path       string `json:"path"`
	Secure     string `json:"secure"`
	Expiration int64  `json:"expiration"`
	Name       string `json:"name"`
	Value      string `json:"value"`
}

func (q *Queries) InsertCookie(ctx context.Context, arg *InsertCookieParams) error {
	_, err := q.db.Exec(ctx, insertCookie,
		arg.Domain,
		arg.Flag,
		arg.Path,
		arg.Secure,
		arg.Expiration,
		arg.Name,
		arg.Value,
	)
	return err
}

const listCookies = `-- name: ListCookies :many
SELECT id, domain, flag, path, secure, expiration, name, value FROM cookies ORDER BY id`

func (q *Queries) ListCookies(ctx context.Context) ([]*Cookie, error) {
	rows, err := q.db.Query(ctx, listCookies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Cookie{}
	for rows.Next() {
		var i Cookie
		if err := rows.Scan(
			&i.ID,
			&i.Domain,
			&i.Flag,
			&i.Path,
			&i.Secure,
			&i.Expiration,
			&i.Name,
			&i.Value,
		); err != nil {
			return nil, err
		}
		items = append(items, &i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteCookies = `-- name: DeleteCookies :exec
DELETE FROM cookies`

func (q *Queries) DeleteCookies(ctx context.Context) error {
	_, err := q.db.Exec(ctx, deleteCookies)
	return err
}
