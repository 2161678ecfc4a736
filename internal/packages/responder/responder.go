package responder

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/djordjev/mock-simulator/internal/packages/reqctx"
	"github.com/djordjev/mock-simulator/internal/packages/responder/replacer"
)

// Spec is the file representation of a dynamic mock, written under a !handler tag.
type Spec struct {
	Status         int               `yaml:"status" json:"status"`
	Delay          int               `yaml:"delay" json:"delay"`
	IncludeRequest bool              `yaml:"includeRequest" json:"includeRequest"`
	Headers        map[string]string `yaml:"headers" json:"headers"`
	Body           any               `yaml:"body" json:"body"`
}

// Responder renders a Spec for every matched request.
type Responder struct {
	status         int
	delay          time.Duration
	includeRequest bool
	headers        map[string]*replacer.Template
	body           replacer.Value
}

// New compiles every placeholder of spec so broken templates are reported when
// the mock file is loaded rather than when a request arrives.
func New(spec Spec) (*Responder, error) {
	if spec.Status != 0 && (spec.Status < 100 || spec.Status > 999) {
		return nil, fmt.Errorf("invalid status code %d", spec.Status)
	}

	if spec.Delay < 0 {
		return nil, fmt.Errorf("invalid delay %d", spec.Delay)
	}

	r := &Responder{
		status:         spec.Status,
		delay:          time.Duration(spec.Delay) * time.Millisecond,
		includeRequest: spec.IncludeRequest,
		headers:        make(map[string]*replacer.Template, len(spec.Headers)),
	}

	if r.status == 0 {
		r.status = http.StatusOK
	}

	for k, v := range spec.Headers {
		t, err := replacer.Compile(v)
		if err != nil {
			return nil, fmt.Errorf("header %s: %w", k, err)
		}
		r.headers[k] = t
	}

	if spec.Body != nil {
		body, err := replacer.CompileValue(spec.Body)
		if err != nil {
			return nil, fmt.Errorf("body: %w", err)
		}
		r.body = body
	}

	return r, nil
}

func (r *Responder) ServeMock(w http.ResponseWriter, request *http.Request, _ http.Handler) {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-request.Context().Done():
			return
		}
	}

	env := newEnv(request)

	for k, t := range r.headers {
		value, err := t.Eval(env)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set(k, fmt.Sprint(value))
	}

	payload, err := r.constructPayload(env)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if payload == nil {
		w.WriteHeader(r.status)
		return
	}

	contentType := w.Header().Get("Content-Type")
	if text, ok := payload.(string); ok && contentType != "" && !strings.Contains(contentType, "json") {
		w.WriteHeader(r.status)
		_, _ = w.Write([]byte(text))
		return
	}

	marshalled, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("unable to marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	if contentType == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}

	w.WriteHeader(r.status)
	_, _ = w.Write(marshalled)
}

// constructPayload evaluates the body; with includeRequest an object request
// body is laid underneath it.
func (r *Responder) constructPayload(env replacer.Env) (any, error) {
	var body any
	if r.body != nil {
		evaluated, err := r.body.Eval(env)
		if err != nil {
			return nil, err
		}
		body = evaluated
	}

	if !r.includeRequest {
		return body, nil
	}

	requestBody, isObject := env.Body.(map[string]any)
	if !isObject {
		if body == nil {
			return env.Body, nil
		}
		return body, nil
	}

	response := maps.Clone(requestBody)
	if templated, ok := body.(map[string]any); ok {
		mergeInto(response, templated)
		return response, nil
	}

	if body != nil {
		return body, nil
	}

	return response, nil
}

func mergeInto(dst map[string]any, source map[string]any) {
	for k, v := range source {
		sourceMap, sourceIsMap := v.(map[string]any)
		dstMap, dstIsMap := dst[k].(map[string]any)

		if sourceIsMap && dstIsMap {
			merged := maps.Clone(dstMap)
			mergeInto(merged, sourceMap)
			dst[k] = merged
			continue
		}

		dst[k] = v
	}
}

func newEnv(request *http.Request) replacer.Env {
	query := make(map[string]string)
	for k, v := range request.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}

	headers := make(map[string]string)
	for k, v := range request.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	return replacer.Env{
		Params:  reqctx.Params(request).Map(),
		Query:   query,
		Headers: headers,
		Body:    reqctx.Body(request),
		Method:  request.Method,
		Path:    request.URL.Path,
	}
}
