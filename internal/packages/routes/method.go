package routes

import (
	"strings"
	"unicode"
)

type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodPatch   Method = "PATCH"
	MethodDelete  Method = "DELETE"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
	MethodAll     Method = "ALL"
)

var knownMethods = [...]Method{
	MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions, MethodAll,
}

func ParseMethod(token string) (Method, bool) {
	for _, method := range knownMethods {
		if strings.EqualFold(token, string(method)) {
			return method, true
		}
	}

	return "", false
}

// Matches reports whether a request method is served by m. Comparison ignores case.
func (m Method) Matches(requestMethod string) bool {
	return m == MethodAll || strings.EqualFold(string(m), requestMethod)
}

// HasBody lists the methods whose body is parsed before a handler runs.
func (m Method) HasBody() bool {
	switch m {
	case MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}

	return false
}

// ParseKey splits "METHOD /path" at the first whitespace. Without a known method
// keyword the whole key is the path and the method is GET.
func ParseKey(key string) (Method, string) {
	trimmed := strings.TrimSpace(key)

	at := strings.IndexFunc(trimmed, unicode.IsSpace)
	if at < 0 {
		return MethodGet, trimmed
	}

	method, found := ParseMethod(trimmed[:at])
	if !found {
		return MethodGet, trimmed
	}

	return method, strings.TrimSpace(trimmed[at:])
}
