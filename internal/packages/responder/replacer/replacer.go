package replacer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"
)

var placeholder = regexp.MustCompile(`\$\{\{(.*?)\}\}`)

var newUUID = uuid.New

// Env is what a placeholder expression can see.
type Env struct {
	Params  map[string]string `expr:"params"`
	Query   map[string]string `expr:"query"`
	Headers map[string]string `expr:"headers"`
	Body    any               `expr:"body"`
	Method  string            `expr:"method"`
	Path    string            `expr:"path"`
}

// Value is a compiled template tree ready to be evaluated per request.
type Value interface {
	Eval(env Env) (any, error)
}

type literal struct {
	value any
}

func (l literal) Eval(Env) (any, error) {
	return l.value, nil
}

type part struct {
	text    string
	source  string
	program *vm.Program
}

// Template is a string with ${{ expression }} placeholders.
type Template struct {
	raw   string
	parts []part
	whole bool
}

// Compile parses every placeholder of str. A string that is exactly one
// placeholder evaluates to the raw expression result, otherwise results are
// interpolated as text.
func Compile(str string) (*Template, error) {
	t := &Template{raw: str}

	position := 0
	for _, match := range placeholder.FindAllStringSubmatchIndex(str, -1) {
		if match[0] > position {
			t.parts = append(t.parts, part{text: str[position:match[0]]})
		}

		source := strings.TrimSpace(str[match[2]:match[3]])
		if source == "" {
			return nil, fmt.Errorf("empty placeholder in %q", str)
		}

		program, err := expr.Compile(source, options()...)
		if err != nil {
			return nil, fmt.Errorf("invalid placeholder %q: %w", source, err)
		}

		t.parts = append(t.parts, part{source: source, program: program})
		position = match[1]
	}

	if position < len(str) {
		t.parts = append(t.parts, part{text: str[position:]})
	}

	t.whole = len(t.parts) == 1 && t.parts[0].program != nil

	return t, nil
}

func options() []expr.Option {
	return []expr.Option{
		expr.Env(Env{}),
		expr.Function("uuid", func(params ...any) (any, error) {
			return newUUID().String(), nil
		}, new(func() string)),
	}
}

func (t *Template) IsStatic() bool {
	for _, p := range t.parts {
		if p.program != nil {
			return false
		}
	}

	return true
}

func (t *Template) String() string {
	return t.raw
}

func (t *Template) Eval(env Env) (any, error) {
	if t.whole {
		return t.run(t.parts[0], env)
	}

	var builder strings.Builder
	for _, p := range t.parts {
		if p.program == nil {
			builder.WriteString(p.text)
			continue
		}

		result, err := t.run(p, env)
		if err != nil {
			return "", err
		}

		if result != nil {
			builder.WriteString(fmt.Sprint(result))
		}
	}

	return builder.String(), nil
}

func (t *Template) run(p part, env Env) (any, error) {
	result, err := expr.Run(p.program, env)
	if err != nil {
		return nil, fmt.Errorf("unable to evaluate %q: %w", p.source, err)
	}

	return result, nil
}

type object struct {
	keys   []string
	fields map[string]Value
}

func (o object) Eval(env Env) (any, error) {
	result := make(map[string]any, len(o.keys))
	for _, key := range o.keys {
		value, err := o.fields[key].Eval(env)
		if err != nil {
			return nil, err
		}

		result[key] = value
	}

	return result, nil
}

type list []Value

func (l list) Eval(env Env) (any, error) {
	result := make([]any, 0, len(l))
	for _, item := range l {
		value, err := item.Eval(env)
		if err != nil {
			return nil, err
		}

		result = append(result, value)
	}

	return result, nil
}

// CompileValue walks decoded data and compiles every string it finds.
func CompileValue(value any) (Value, error) {
	switch v := value.(type) {
	case string:
		t, err := Compile(v)
		if err != nil {
			return nil, err
		}

		if t.IsStatic() {
			return literal{value: v}, nil
		}

		return t, nil

	case map[string]any:
		o := object{fields: make(map[string]Value, len(v))}
		for key, field := range v {
			compiled, err := CompileValue(field)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}

			o.keys = append(o.keys, key)
			o.fields[key] = compiled
		}

		return o, nil

	case []any:
		l := make(list, 0, len(v))
		for i, item := range v {
			compiled, err := CompileValue(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}

			l = append(l, compiled)
		}

		return l, nil

	default:
		return literal{value: v}, nil
	}
}
