package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/djordjev/mock-simulator/internal/packages/logging"
	"github.com/djordjev/mock-simulator/internal/packages/pattern"
	"github.com/djordjev/mock-simulator/internal/packages/reqctx"
	"github.com/djordjev/mock-simulator/internal/packages/routes"
)

// Middleware serves matched mock routes and hands everything else to next.
// Paths are relative to the mount path, the mount path itself shows the route
// index.
func (m *Mock) Middleware(next http.Handler) http.Handler {
	if next == nil {
		next = http.NotFoundHandler()
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		table := m.store.Load()

		if r.URL.Path == "/" || r.URL.Path == "" {
			m.serveIndex(w, table)
			return
		}

		m.dispatch(table, w, r, next)
	})
}

func (m *Mock) dispatch(table *routes.Table, w http.ResponseWriter, r *http.Request, next http.Handler) {
	route, params, err := table.Match(r.Method, r.URL.EscapedPath())
	if err != nil {
		var decodeErr *pattern.DecodeError
		if errors.As(err, &decodeErr) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	m.metrics.Dispatched(r.Method, route != nil)

	if route == nil {
		next.ServeHTTP(w, r)
		return
	}

	m.logger.Debug("mock matched",
		logging.String("method", string(route.Method)),
		logging.String("path", route.Path),
	)

	r = reqctx.WithParams(r, params)

	defer func() {
		if recovered := recover(); recovered != nil {
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			m.logger.Error("mock handler panicked",
				logging.String("route", route.Key),
				logging.String("panic", fmt.Sprint(recovered)),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}()

	switch route.Action.Kind() {
	case routes.ActionStatic:
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(route.Action.Payload())

	case routes.ActionHandler:
		if hasBody(route.Method, r.Method) {
			parsed, status, err := parseBody(w, r)
			if err != nil {
				http.Error(w, err.Error(), status)
				return
			}
			r = parsed
		}

		route.Action.Handler().ServeMock(w, r, next)
	}
}

// hasBody decides whether the body is parsed before a handler runs. ALL routes
// follow the method of the request.
func hasBody(routeMethod routes.Method, requestMethod string) bool {
	if routeMethod != routes.MethodAll {
		return routeMethod.HasBody()
	}

	method, _ := routes.ParseMethod(requestMethod)
	return method.HasBody()
}
