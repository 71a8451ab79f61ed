// Package language wraps x/text/language for caption track selection and storage.
package language

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/text/language"
)

type Tag language.Tag

// Parse accepts BCP 47 tags and the common yt-dlp variants ("en-orig", "en_US").
func Parse(s string) (Tag, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	s = strings.TrimSuffix(s, "-orig")
	t, err := language.Parse(s)
	if err != nil {
		return Tag(language.Und), fmt.Errorf("language: parse %q: %w", s, err)
	}
	return Tag(t), nil
}

func (t Tag) String() string {
	return language.Tag(t).String()
}

// ScanText implements the pgtype.TextScanner interface for pgx v5.
func (t *Tag) ScanText(v pgtype.Text) error {
	if !v.Valid || v.String == "" {
		*t = Tag(language.Und)
		return nil
	}
	parsed, err := Parse(v.String)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TextValue implements the pgtype.TextValuer interface for pgx v5.
func (t Tag) TextValue() (pgtype.Text, error) {
	if t == Tag(language.Und) {
		return pgtype.Text{Valid: false}, nil
	}
	return pgtype.Text{String: t.String(), Valid: true}, nil
}

// BestMatch picks the index in available that best serves preferred.
// Unparseable entries never match. It returns -1 when nothing is acceptable.
func BestMatch(preferred Tag, available []string) int {
	if len(available) == 0 {
		return -1
	}
	tags := make([]language.Tag, 0, len(available))
	idx := make([]int, 0, len(available))
	for i, a := range available {
		t, err := Parse(a)
		if err != nil {
			continue
		}
		tags = append(tags, language.Tag(t))
		idx = append(idx, i)
	}
	if len(tags) == 0 {
		return -1
	}

	_, i, conf := language.NewMatcher(tags).Match(language.Tag(preferred))
	if conf == language.No {
		return -1
	}
	return idx[i]
}
