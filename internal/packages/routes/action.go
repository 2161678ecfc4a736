package routes

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
)

// Handler is a dynamic mock. next continues the embedding server's chain.
type Handler interface {
	ServeMock(w http.ResponseWriter, r *http.Request, next http.Handler)
}

type HandlerFunc func(w http.ResponseWriter, r *http.Request, next http.Handler)

func (f HandlerFunc) ServeMock(w http.ResponseWriter, r *http.Request, next http.Handler) {
	f(w, r, next)
}

type ActionKind int

const (
	ActionStatic ActionKind = iota
	ActionHandler
)

func (k ActionKind) String() string {
	if k == ActionHandler {
		return "handler"
	}

	return "static"
}

// Action is decided once at compile time: either a Handler or a JSON payload
// encoded ahead of any request.
type Action struct {
	kind    ActionKind
	handler Handler
	payload []byte
}

func (a Action) Kind() ActionKind {
	return a.kind
}

func (a Action) Handler() Handler {
	return a.handler
}

func (a Action) Payload() []byte {
	return a.payload
}

func newAction(value any) (Action, error) {
	switch v := value.(type) {
	case nil:
		return Action{}, fmt.Errorf("should be function or object, but got null")
	case Handler:
		return Action{kind: ActionHandler, handler: v}, nil
	case func(http.ResponseWriter, *http.Request, http.Handler):
		return Action{kind: ActionHandler, handler: HandlerFunc(v)}, nil
	case http.Handler:
		return Action{kind: ActionHandler, handler: plainHandler(v.ServeHTTP)}, nil
	case func(http.ResponseWriter, *http.Request):
		return Action{kind: ActionHandler, handler: plainHandler(v)}, nil
	}

	kind, err := payloadKind(reflect.ValueOf(value))
	if err != nil {
		return Action{}, err
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return Action{}, fmt.Errorf("%s value is not JSON serializable: %w", kind, err)
	}

	return Action{kind: ActionStatic, payload: payload}, nil
}

func payloadKind(value reflect.Value) (reflect.Kind, error) {
	switch value.Kind() {
	case reflect.Pointer, reflect.Interface:
		if value.IsNil() {
			return 0, fmt.Errorf("should be function or object, but got null")
		}
		return payloadKind(value.Elem())
	case reflect.Map, reflect.Slice:
		if value.IsNil() {
			return 0, fmt.Errorf("should be function or object, but got null")
		}
		return value.Kind(), nil
	case reflect.Array, reflect.Struct:
		return value.Kind(), nil
	}

	return 0, fmt.Errorf("should be function or object, but got %s", value.Kind())
}

type plainHandler func(w http.ResponseWriter, r *http.Request)

func (h plainHandler) ServeMock(w http.ResponseWriter, r *http.Request, _ http.Handler) {
	h(w, r)
}
