// Package cookiejar stores Netscape-format cookies for authenticated downloads.
package cookiejar

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	netscapeHeader = "# Netscape HTTP Cookie File\n# This is a generated file! Do not edit.\n"
	httpOnlyPrefix = "#HttpOnly_"
)

// Cookie is one line of a Netscape cookie file.
type Cookie struct {
	Domain     string
	Flag       string
	Path       string
	Secure     string
	Expiration int64
	Name       string
	Value      string
}

// ParseResult summarises a Parse call.
type ParseResult struct {
	Cookies      []Cookie
	Invalid      int
	FirstInvalid string
}

// Parse reads domain\tflag\tpath\tsecure\texpiration\tname\tvalue lines.
// Comments and blank lines are skipped; "#HttpOnly_" domains are kept.
func Parse(content string) ParseResult {
	var res ParseResult

	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	for _, line := range strings.Split(normalized, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, httpOnlyPrefix) {
			trimmed = strings.TrimPrefix(trimmed, httpOnlyPrefix)
		} else if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		parts := strings.Split(trimmed, "\t")
		if len(parts) < 7 {
			res.invalid(trimmed)
			continue
		}
		expiration, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil {
			res.invalid(trimmed)
			continue
		}
		res.Cookies = append(res.Cookies, Cookie{
			Domain:     parts[0],
			Flag:       parts[1],
			Path:       parts[2],
			Secure:     parts[3],
			Expiration: expiration,
			Name:       parts[5],
			Value:      strings.Join(parts[6:], "\t"),
		})
	}
	return res
}

func (r *ParseResult) invalid(line string) {
	r.Invalid++
	if r.FirstInvalid == "" {
		r.FirstInvalid = line
	}
}

// Format renders cookies as a Netscape cookie file. No cookies yields "".
func Format(cookies []Cookie) string {
	if len(cookies) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(netscapeHeader)
	for _, c := range cookies {
		fmt.Fprintf(&b, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.Domain, c.Flag, c.Path, c.Secure, c.Expiration, c.Name, c.Value)
	}
	return b.String()
}
