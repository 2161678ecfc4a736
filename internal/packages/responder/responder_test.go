package responder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/djordjev/mock-simulator/internal/packages/pattern"
	"github.com/djordjev/mock-simulator/internal/packages/reqctx"
	"github.com/stretchr/testify/require"
)

func newRequest(method string, target string, params pattern.Params, body any) *http.Request {
	request := httptest.NewRequest(method, target, nil)
	request = reqctx.WithParams(request, params)

	if body != nil {
		request = reqctx.WithBody(request, body)
	}

	return request
}

func TestResponder(t *testing.T) {
	requestBody := map[string]any{
		"user": map[string]any{
			"name": map[string]any{"firstName": "Jon", "lastName": "Doe"},
		},
		"order": 1,
	}

	testCases := []struct {
		name                 string
		spec                 Spec
		request              *http.Request
		expectedStatusCode   int
		expectedResponseBody string
		expectedHeaders      map[string]string
	}{
		{
			name:                 "responds with parameter",
			spec:                 Spec{Body: map[string]any{"id": "${{ params.id }}"}},
			request:              newRequest(http.MethodGet, "/users/42", pattern.Params{{Name: "id", Value: "42"}}, nil),
			expectedStatusCode:   http.StatusOK,
			expectedResponseBody: `{"id":"42"}`,
			expectedHeaders:      map[string]string{"Content-Type": "application/json; charset=utf-8"},
		},
		{
			name: "responds with custom status and headers",
			spec: Spec{
				Status:  http.StatusCreated,
				Headers: map[string]string{"Location": "/users/${{ body.user.name.firstName }}"},
				Body:    map[string]any{"created": true},
			},
			request:              newRequest(http.MethodPost, "/users", nil, requestBody),
			expectedStatusCode:   http.StatusCreated,
			expectedResponseBody: `{"created":true}`,
			expectedHeaders:      map[string]string{"Location": "/users/Jon"},
		},
		{
			name: "merges request body when included",
			spec: Spec{
				IncludeRequest: true,
				Body: map[string]any{
					"user":  map[string]any{"name": map[string]any{"middle": "unknown"}, "age": 35},
					"hello": "${{ body.user.name.firstName }}",
				},
			},
			request:            newRequest(http.MethodPost, "/users", nil, requestBody),
			expectedStatusCode: http.StatusOK,
			expectedResponseBody: `{
				"user": {"name": {"firstName": "Jon", "lastName": "Doe", "middle": "unknown"}, "age": 35},
				"order": 1,
				"hello": "Jon"
			}`,
		},
		{
			name:                 "echoes request body when included without template",
			spec:                 Spec{IncludeRequest: true},
			request:              newRequest(http.MethodPost, "/users", nil, requestBody),
			expectedStatusCode:   http.StatusOK,
			expectedResponseBody: `{"user":{"name":{"firstName":"Jon","lastName":"Doe"}},"order":1}`,
		},
		{
			name:               "responds without body",
			spec:               Spec{Status: http.StatusNoContent},
			request:            newRequest(http.MethodDelete, "/users/1", nil, nil),
			expectedStatusCode: http.StatusNoContent,
		},
		{
			name: "writes text when content type is not json",
			spec: Spec{
				Headers: map[string]string{"Content-Type": "text/plain"},
				Body:    "hello ${{ query.name }}",
			},
			request:            newRequest(http.MethodGet, "/hello?name=world", nil, nil),
			expectedStatusCode: http.StatusOK,
			expectedHeaders:    map[string]string{"Content-Type": "text/plain"},
		},
		{
			name:               "fails on runtime template error",
			spec:               Spec{Body: map[string]any{"name": "${{ body.user.name.first.second }}"}},
			request:            newRequest(http.MethodPost, "/users", nil, map[string]any{"user": "flat"}),
			expectedStatusCode: http.StatusInternalServerError,
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			responder, err := New(test.spec)
			require.NoError(t, err)

			recorder := httptest.NewRecorder()
			responder.ServeMock(recorder, test.request, nil)

			require.Equal(t, test.expectedStatusCode, recorder.Code)

			if test.expectedResponseBody != "" {
				require.JSONEq(t, test.expectedResponseBody, recorder.Body.String())
			}

			for k, v := range test.expectedHeaders {
				require.Equal(t, v, recorder.Header().Get(k))
			}
		})
	}
}

func TestResponderText(t *testing.T) {
	responder, err := New(Spec{
		Headers: map[string]string{"Content-Type": "text/plain"},
		Body:    "hello ${{ query.name }}",
	})
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	responder.ServeMock(recorder, newRequest(http.MethodGet, "/hello?name=world", nil, nil), nil)

	require.Equal(t, "hello world", recorder.Body.String())
}

func TestResponderDelay(t *testing.T) {
	responder, err := New(Spec{Delay: 20, Body: map[string]any{"ok": true}})
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	started := time.Now()
	responder.ServeMock(recorder, newRequest(http.MethodGet, "/slow", nil, nil), nil)

	require.GreaterOrEqual(t, time.Since(started), 20*time.Millisecond)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestResponderDelayCanceled(t *testing.T) {
	responder, err := New(Spec{Delay: 10_000, Body: map[string]any{"ok": true}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	recorder := httptest.NewRecorder()
	request := newRequest(http.MethodGet, "/slow", nil, nil).WithContext(ctx)
	responder.ServeMock(recorder, request, nil)

	require.Empty(t, recorder.Body.String())
}

func TestNewInvalid(t *testing.T) {
	testCases := []struct {
		name string
		spec Spec
	}{
		{name: "status out of range", spec: Spec{Status: 42}},
		{name: "negative delay", spec: Spec{Delay: -1}},
		{name: "broken header template", spec: Spec{Headers: map[string]string{"X": "${{ nope }}"}}},
		{name: "broken body template", spec: Spec{Body: map[string]any{"a": "${{ ( }}"}}},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			_, err := New(test.spec)
			require.Error(t, err)
		})
	}
}
