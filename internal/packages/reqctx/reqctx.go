package reqctx

import (
	"context"
	"net/http"

	"github.com/djordjev/mock-simulator/internal/packages/pattern"
)

type paramsKey struct{}

type bodyKey struct{}

// WithParams binds route parameters to the request, both as path values and as
// an ordered list available through Params.
func WithParams(r *http.Request, params pattern.Params) *http.Request {
	for _, param := range params {
		r.SetPathValue(param.Name, param.Value)
	}

	return r.WithContext(context.WithValue(r.Context(), paramsKey{}, params))
}

func Params(r *http.Request) pattern.Params {
	params, _ := r.Context().Value(paramsKey{}).(pattern.Params)
	return params
}

// WithBody stores the decoded request body.
func WithBody(r *http.Request, body any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), bodyKey{}, body))
}

// Body returns the decoded request body, nil when nothing was parsed.
func Body(r *http.Request) any {
	return r.Context().Value(bodyKey{})
}
