package pattern

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"regexp/syntax"
	"strings"
	"unicode"
	"unicode/utf8"
)

const defaultParamPattern = `[^/]+?`

var errInvalidUTF8 = errors.New("escaped bytes are not valid UTF-8")

// Error is returned by Compile for patterns that cannot be turned into a matcher.
type Error struct {
	Pattern string
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid path pattern %q: %s", e.Pattern, e.Reason)
}

// DecodeError reports a captured parameter value with a malformed percent-escape
// or one that does not decode to valid UTF-8.
// It is a client error and maps to http.StatusBadRequest.
type DecodeError struct {
	Param string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode param '%s'", e.Value)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type Param struct {
	Name  string
	Value string
}

// Params keeps captured values in the order their names first appear in the pattern.
type Params []Param

func (p Params) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}

	return "", false
}

func (p Params) Map() map[string]string {
	result := make(map[string]string, len(p))
	for _, param := range p {
		result[param.Name] = param.Value
	}

	return result
}

func (p Params) set(name string, value string) Params {
	for i := range p {
		if p[i].Name == name {
			p[i].Value = value
			return p
		}
	}

	return append(p, Param{Name: name, Value: value})
}

type Pattern struct {
	raw  string
	re   *regexp.Regexp
	keys []string
}

// Compile turns a path such as "/users/:id/posts/:post(\d+)?" into a Pattern.
func Compile(path string) (*Pattern, error) {
	if path == "" {
		return nil, &Error{Pattern: path, Reason: "empty path"}
	}

	if !strings.HasPrefix(path, "/") {
		return nil, &Error{Pattern: path, Reason: "path must start with '/'"}
	}

	if strings.IndexFunc(path, unicode.IsSpace) >= 0 {
		return nil, &Error{Pattern: path, Reason: "path must not contain whitespace"}
	}

	var builder strings.Builder
	var keys []string

	builder.WriteString("^")

	i := 0
	for i < len(path) {
		// A parameter owns the slash in front of it so that an optional one can drop it.
		prefix := ""
		start := i
		if path[i] == '/' && i+1 < len(path) && path[i+1] == ':' {
			prefix = "/"
			i++
		}

		if path[i] != ':' {
			builder.WriteString(regexp.QuoteMeta(path[start : i+1]))
			i++
			continue
		}

		name, custom, optional, next, err := readParam(path, i)
		if err != nil {
			return nil, err
		}

		keys = append(keys, name)
		group := fmt.Sprintf("%s(%s)", regexp.QuoteMeta(prefix), custom)
		if optional {
			group = fmt.Sprintf("(?:%s)?", group)
		}

		builder.WriteString(group)
		i = next
	}

	if !strings.HasSuffix(path, "/") {
		builder.WriteString("/?")
	}
	builder.WriteString("$")

	re, err := regexp.Compile(builder.String())
	if err != nil {
		return nil, &Error{Pattern: path, Reason: err.Error()}
	}

	return &Pattern{raw: path, re: re, keys: keys}, nil
}

// readParam parses ":name", ":name(regex)" and the optional "?" modifier starting at path[at].
func readParam(path string, at int) (name string, custom string, optional bool, next int, err error) {
	i := at + 1
	for i < len(path) && isNameChar(path[i]) {
		i++
	}

	name = path[at+1 : i]
	if name == "" {
		return "", "", false, 0, &Error{Pattern: path, Reason: fmt.Sprintf("missing parameter name at %d", at)}
	}

	custom = defaultParamPattern
	if i < len(path) && path[i] == '(' {
		end, reason := closingParen(path, i)
		if reason != "" {
			return "", "", false, 0, &Error{Pattern: path, Reason: reason}
		}

		custom = path[i+1 : end]
		if custom == "" {
			return "", "", false, 0, &Error{Pattern: path, Reason: fmt.Sprintf("empty pattern for parameter %q", name)}
		}

		if err := checkNoCapture(custom); err != nil {
			return "", "", false, 0, &Error{Pattern: path, Reason: fmt.Sprintf("parameter %q: %s", name, err)}
		}

		i = end + 1
	}

	if i < len(path) && path[i] == '?' {
		optional = true
		i++
	}

	return name, custom, optional, i, nil
}

func closingParen(path string, open int) (int, string) {
	depth := 0
	for i := open; i < len(path); i++ {
		switch path[i] {
		case '\\':
			i++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, ""
			}
		}
	}

	return 0, fmt.Sprintf("unbalanced pattern at %d", open)
}

func checkNoCapture(expression string) error {
	parsed, err := syntax.Parse(expression, syntax.Perl)
	if err != nil {
		return err
	}

	if parsed.MaxCap() > 0 {
		return fmt.Errorf("capturing groups are not allowed, use (?:...)")
	}

	return nil
}

func isNameChar(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func (p *Pattern) String() string {
	return p.raw
}

// Keys returns the parameter names in declaration order, duplicates included.
func (p *Pattern) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Match tests an escaped request path. Captured values are percent-decoded.
// For repeated names a later capture wins unless it did not participate in the match.
func (p *Pattern) Match(escapedPath string) (Params, bool, error) {
	indexes := p.re.FindStringSubmatchIndex(escapedPath)
	if indexes == nil {
		return nil, false, nil
	}

	params := make(Params, 0, len(p.keys))
	for i, key := range p.keys {
		from, to := indexes[2*i+2], indexes[2*i+3]

		if from < 0 {
			if _, found := params.Get(key); !found {
				params = params.set(key, "")
			}
			continue
		}

		value, err := decode(key, escapedPath[from:to])
		if err != nil {
			return nil, false, err
		}

		params = params.set(key, value)
	}

	return params, true, nil
}

func decode(name string, value string) (string, error) {
	if value == "" {
		return value, nil
	}

	decoded, err := url.PathUnescape(value)
	if err != nil {
		return "", &DecodeError{Param: name, Value: value, Err: err}
	}

	if !utf8.ValidString(decoded) {
		return "", &DecodeError{Param: name, Value: value, Err: errInvalidUTF8}
	}

	return decoded, nil
}
