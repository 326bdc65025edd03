package httpclient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrURITemplate reports a template whose variables do not match the given values.
var ErrURITemplate = errors.New("httpclient: invalid uri template")

// Expand replaces each {name} variable of tmpl with the next value of vars,
// path-escaped. The number of variables and values must match.
//
//	Expand("https://bank/accounts/{id}/transfers/{ref}", "acc 1", 42)
//	// https://bank/accounts/acc%201/transfers/42
func Expand(tmpl string, vars ...any) (string, error) {
	var b strings.Builder
	rest := tmpl
	n := 0
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("%w: unterminated variable in %q", ErrURITemplate, tmpl)
		}
		end += open
		name := rest[open+1 : end]
		if name == "" {
			return "", fmt.Errorf("%w: empty variable in %q", ErrURITemplate, tmpl)
		}
		if n >= len(vars) {
			return "", fmt.Errorf("%w: no value for {%s} in %q", ErrURITemplate, name, tmpl)
		}
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(fmt.Sprint(vars[n])))
		n++
		rest = rest[end+1:]
	}
	if n < len(vars) {
		return "", fmt.Errorf("%w: %d values for %d variables in %q", ErrURITemplate, len(vars), n, tmpl)
	}
	return b.String(), nil
}
