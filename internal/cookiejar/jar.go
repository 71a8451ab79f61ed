package cookiejar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"thirdcoast.systems/gifmoments/internal/db"
	"thirdcoast.systems/gifmoments/pkg/encryption"
)

// ErrNoValidCookies is returned by Replace when the upload has no usable line.
var ErrNoValidCookies = errors.New("no valid cookie lines")

type store interface {
	Replace(ctx context.Context, rows []*db.InsertCookieParams) error
	List(ctx context.Context) ([]*db.Cookie, error)
	Clear(ctx context.Context) error
}

// Jar keeps cookie values encrypted at rest and hands out decrypted Netscape
// text to the downloaders.
type Jar struct {
	store store
	enc   *encryption.Manager
}

func New(dbc *db.DatabaseConnection, enc *encryption.Manager) *Jar {
	return &Jar{store: pgStore{dbc: dbc}, enc: enc}
}

// Replace swaps the stored cookies for the ones parsed from content.
func (j *Jar) Replace(ctx context.Context, content string) (ParseResult, error) {
	res := Parse(content)
	if len(res.Cookies) == 0 {
		return res, ErrNoValidCookies
	}

	rows := make([]*db.InsertCookieParams, 0, len(res.Cookies))
	for _, c := range res.Cookies {
		sealed, err := j.enc.EncryptString(c.Value)
		if err != nil {
			return res, fmt.Errorf("encrypt cookie %s: %w", c.Name, err)
		}
		rows = append(rows, &db.InsertCookieParams{
			Domain:     c.Domain,
			Flag:       c.Flag,
			Path:       c.Path,
			Secure:     c.Secure,
			Expiration: c.Expiration,
			Name:       c.Name,
			Value:      sealed,
		})
	}
	if err := j.store.Replace(ctx, rows); err != nil {
		return res, fmt.Errorf("store cookies: %w", err)
	}
	slog.InfoContext(ctx, "cookies saved", "valid_cookies", len(res.Cookies), "invalid_lines", res.Invalid)
	return res, nil
}

func (j *Jar) Clear(ctx context.Context) error {
	return j.store.Clear(ctx)
}

// Cookies returns the jar as Netscape text, or "" when it is empty.
// Rows that fail to decrypt are skipped.
func (j *Jar) Cookies(ctx context.Context) (string, error) {
	rows, err := j.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list cookies: %w", err)
	}

	cookies := make([]Cookie, 0, len(rows))
	skipped, youtube := 0, 0
	for _, r := range rows {
		value, err := j.enc.DecryptString(r.Value)
		if err != nil {
			slog.ErrorContext(ctx, "failed to decrypt cookie value", "error", err, "domain", r.Domain, "name", r.Name)
			skipped++
			continue
		}
		if strings.Contains(r.Domain, "youtube") {
			youtube++
		}
		cookies = append(cookies, Cookie{
			Domain:     r.Domain,
			Flag:       r.Flag,
			Path:       r.Path,
			Secure:     r.Secure,
			Expiration: r.Expiration,
			Name:       r.Name,
			Value:      value,
		})
	}
	slog.DebugContext(ctx, "cookie jar loaded", "total", len(rows), "youtube_cookies", youtube, "skipped", skipped)
	return Format(cookies), nil
}

type pgStore struct {
	dbc *db.DatabaseConnection
}

func (s pgStore) Replace(ctx context.Context, rows []*db.InsertCookieParams) error {
	q, tx, err := s.dbc.NewWithTX(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := q.DeleteCookies(ctx); err != nil {
		return err
	}
	for _, r := range rows {
		if err := q.InsertCookie(ctx, r); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s pgStore) List(ctx context.Context) ([]*db.Cookie, error) {
	return s.dbc.Queries(ctx).ListCookies(ctx)
}

func (s pgStore) Clear(ctx context.Context) error {
	return s.dbc.Queries(ctx).DeleteCookies(ctx)
}
