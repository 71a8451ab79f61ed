package cookiejar

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/gifmoments/internal/db"
	"thirdcoast.systems/gifmoments/pkg/encryption"
)

type memStore struct {
	rows []*db.Cookie
}

func (m *memStore) Replace(ctx context.Context, rows []*db.InsertCookieParams) error {
	m.rows = nil
	for i, r := range rows {
		m.rows = append(m.rows, &db.Cookie{
			ID: int64(i + 1), Domain: r.Domain, Flag: r.Flag, Path: r.Path,
			Secure: r.Secure, Expiration: r.Expiration, Name: r.Name, Value: r.Value,
		})
	}
	return nil
}

func (m *memStore) List(ctx context.Context) ([]*db.Cookie, error) { return m.rows, nil }

func (m *memStore) Clear(ctx context.Context) error {
	m.rows = nil
	return nil
}

func newTestJar(t *testing.T) (*Jar, *memStore) {
	t.Helper()
	key := make([]byte, encryption.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	enc, err := encryption.NewManagerFromKey(encryption.CipherChaCha20Poly1305, key)
	require.NoError(t, err)
	s := &memStore{}
	return &Jar{store: s, enc: enc}, s
}

const sample = "# Netscape HTTP Cookie File\r\n" +
	".youtube.com\tTRUE\t/\tTRUE\t1767225600\tSID\tabc123\r\n" +
	"#HttpOnly_.youtube.com\tTRUE\t/\tTRUE\t1767225600\tHSID\txyz\r\n" +
	".youtube.com TRUE / TRUE 0 SPACES bad\r\n" +
	"\r\n"

func TestParse(t *testing.T) {
	res := Parse(sample)
	require.Len(t, res.Cookies, 2)
	assert.Equal(t, "SID", res.Cookies[0].Name)
	assert.Equal(t, int64(1767225600), res.Cookies[0].Expiration)
	assert.Equal(t, ".youtube.com", res.Cookies[1].Domain)
	assert.Equal(t, 1, res.Invalid)
	assert.Contains(t, res.FirstInvalid, "SPACES")
}

func TestFormat_Empty(t *testing.T) {
	assert.Equal(t, "", Format(nil))
}

func TestJar_RoundTripEncryptsAtRest(t *testing.T) {
	jar, s := newTestJar(t)
	ctx := context.Background()

	res, err := jar.Replace(ctx, sample)
	require.NoError(t, err)
	require.Len(t, res.Cookies, 2)
	for _, r := range s.rows {
		assert.NotEqual(t, "abc123", r.Value)
		assert.NotEqual(t, "xyz", r.Value)
	}

	text, err := jar.Cookies(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "# Netscape HTTP Cookie File")
	assert.Contains(t, text, ".youtube.com\tTRUE\t/\tTRUE\t1767225600\tSID\tabc123\n")
	assert.Contains(t, text, "\tHSID\txyz\n")
}

func TestJar_ReplaceRejectsGarbage(t *testing.T) {
	jar, _ := newTestJar(t)
	_, err := jar.Replace(context.Background(), "not a cookie file")
	require.ErrorIs(t, err, ErrNoValidCookies)
}

func TestJar_SkipsUndecryptableRows(t *testing.T) {
	jar, s := newTestJar(t)
	s.rows = []*db.Cookie{{Domain: ".x.com", Name: "a", Value: "not-base64!"}}
	text, err := jar.Cookies(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestJar_Clear(t *testing.T) {
	jar, s := newTestJar(t)
	_, err := jar.Replace(context.Background(), sample)
	require.NoError(t, err)
	require.NoError(t, jar.Clear(context.Background()))
	assert.Empty(t, s.rows)
}
