package selector

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoJSONArray is returned when a reply holds no decodable array of objects.
var ErrNoJSONArray = errors.New("no JSON array of objects in reply")

// Candidate is one unvalidated moment proposed by the reasoning service. Start
// and End are nil when the reply did not carry a usable number.
type Candidate struct {
	Start   *float64
	End     *float64
	Caption string
	Reason  string
}

var (
	startKeys   = []string{"startTime", "start", "start_time"}
	endKeys     = []string{"endTime", "end", "end_time"}
	captionKeys = []string{"caption", "text", "title"}
)

func (c *Candidate) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	c.Start = numberField(fields, startKeys)
	c.End = numberField(fields, endKeys)
	c.Caption = stringField(fields, captionKeys)
	c.Reason = stringField(fields, []string{"reason"})
	return nil
}

func numberField(fields map[string]json.RawMessage, keys []string) *float64 {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		if string(raw) == "null" {
			return nil
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			return finite(n)
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			s = strings.TrimSuffix(strings.TrimSpace(s), "s")
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				return finite(v)
			}
		}
		return nil
	}
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func stringField(fields map[string]json.RawMessage, keys []string) string {
	for _, k := range keys {
		var s string
		if raw, ok := fields[k]; ok && json.Unmarshal(raw, &s) == nil {
			return s
		}
	}
	return ""
}

// ParseMoments extracts the first balanced JSON array of objects from a model
// reply, tolerating code fences and prose around it.
func ParseMoments(text string) ([]Candidate, error) {
	t := stripFences(text)
	if t == "" {
		return nil, errors.New("empty reply")
	}

	for i := 0; i < len(t); i++ {
		if t[i] != '[' {
			continue
		}
		end := matchBracket(t, i)
		if end < 0 {
			break
		}
		var out []Candidate
		if err := json.Unmarshal([]byte(t[i:end+1]), &out); err == nil {
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoJSONArray, truncate(t, 200))
}

func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.Contains(t, "```") {
		return t
	}
	if i := strings.Index(t, "```"); i >= 0 {
		rest := t[i+3:]
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		t = rest
	}
	return strings.TrimSpace(t)
}

// matchBracket returns the index of the ']' closing the '[' at open, skipping
// brackets inside JSON strings, or -1.
func matchBracket(s string, open int) int {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
