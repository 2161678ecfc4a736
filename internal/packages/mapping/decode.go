package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/djordjev/mock-simulator/internal/packages/responder"
	"gopkg.in/yaml.v3"
)

const (
	HandlerTag = "!handler"
	HandlerKey = "$handler"
	DefaultKey = "default"
)

// decode turns one mock file into a Definition, keeping the key order of the file.
func decode(path string, data []byte) (*Definition, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return decodeJSON(path, data)
	}

	return decodeYAML(path, data)
}

func decodeYAML(path string, data []byte) (*Definition, error) {
	definition := NewDefinition()

	var document yaml.Node
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, err
	}

	if len(document.Content) == 0 {
		return definition, nil
	}

	root := resolveAlias(document.Content[0])
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return definition, nil
	}

	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping of routes, got %s", describeKind(root))
	}

	if len(root.Content) == 2 && root.Content[0].Value == DefaultKey {
		if exported := resolveAlias(root.Content[1]); exported.Kind == yaml.MappingNode {
			root = exported
		}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], resolveAlias(root.Content[i+1])

		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: route key must be a string", keyNode.Line)
		}

		value, err := decodeYAMLValue(valueNode)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", valueNode.Line, keyNode.Value, err)
		}

		definition.set(Entry{Key: keyNode.Value, Value: value, Source: path})
	}

	return definition, nil
}

func decodeYAMLValue(node *yaml.Node) (any, error) {
	if node.Tag == HandlerTag {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%s must be a mapping", HandlerTag)
		}

		plain := *node
		plain.Tag = ""

		return newResponder(plain.Decode)
	}

	if node.Kind == yaml.MappingNode && len(node.Content) == 2 && node.Content[0].Value == HandlerKey {
		return newResponder(node.Content[1].Decode)
	}

	return yamlValue(node)
}

// yamlValue decodes static data, mappings become ordered Objects.
func yamlValue(node *yaml.Node) (any, error) {
	node = resolveAlias(node)

	switch node.Kind {
	case yaml.MappingNode:
		object := NewObject()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode := resolveAlias(node.Content[i])
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: object key must be a scalar", keyNode.Line)
			}

			value, err := yamlValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			object.Set(keyNode.Value, value)
		}

		return object, nil

	case yaml.SequenceNode:
		list := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := yamlValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}

		return list, nil
	}

	if node.ShortTag() == "!!null" {
		return nil, nil
	}

	var value any
	if err := node.Decode(&value); err != nil {
		return nil, err
	}

	return value, nil
}

func decodeJSON(path string, data []byte) (*Definition, error) {
	definition := NewDefinition()

	if len(bytes.TrimSpace(data)) == 0 {
		return definition, nil
	}

	var document map[string]json.RawMessage
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, err
	}

	keys, err := objectKeys(data)
	if err != nil {
		return nil, err
	}

	if len(keys) == 1 && keys[0] == DefaultKey {
		exported := document[DefaultKey]
		if exportedKeys, err := objectKeys(exported); err == nil {
			document = make(map[string]json.RawMessage, len(exportedKeys))
			if err := json.Unmarshal(exported, &document); err != nil {
				return nil, err
			}
			keys = exportedKeys
		}
	}

	for _, key := range keys {
		value, err := decodeJSONValue(document[key])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}

		definition.set(Entry{Key: key, Value: value, Source: path})
	}

	return definition, nil
}

func decodeJSONValue(raw json.RawMessage) (any, error) {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err == nil && len(wrapper) == 1 {
		if spec, found := wrapper[HandlerKey]; found {
			return newResponder(func(v any) error { return json.Unmarshal(spec, v) })
		}
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))

	value, err := jsonValue(decoder)
	if err != nil {
		return nil, err
	}

	return value, nil
}

// jsonValue reads one value from the token stream, objects become ordered
// Objects.
func jsonValue(decoder *json.Decoder) (any, error) {
	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}

	delim, isDelim := token.(json.Delim)
	if !isDelim {
		return token, nil
	}

	switch delim {
	case '{':
		object := NewObject()
		for decoder.More() {
			keyToken, err := decoder.Token()
			if err != nil {
				return nil, err
			}

			value, err := jsonValue(decoder)
			if err != nil {
				return nil, err
			}
			object.Set(keyToken.(string), value)
		}

		if _, err := decoder.Token(); err != nil {
			return nil, err
		}

		return object, nil

	case '[':
		list := []any{}
		for decoder.More() {
			value, err := jsonValue(decoder)
			if err != nil {
				return nil, err
			}
			list = append(list, value)
		}

		if _, err := decoder.Token(); err != nil {
			return nil, err
		}

		return list, nil
	}

	return nil, fmt.Errorf("unexpected %v", delim)
}

// objectKeys lists the top level keys of a JSON object in document order,
// later duplicates are reported once at their first position.
func objectKeys(data []byte) ([]string, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))

	token, err := decoder.Token()
	if err != nil {
		return nil, err
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected an object of routes")
	}

	var keys []string
	seen := make(map[string]bool)

	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		key := token.(string)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}

		var skip json.RawMessage
		if err := decoder.Decode(&skip); err != nil {
			return nil, err
		}
	}

	if _, err := decoder.Token(); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return keys, nil
}

func newResponder(decodeSpec func(v any) error) (any, error) {
	var spec responder.Spec
	if err := decodeSpec(&spec); err != nil {
		return nil, fmt.Errorf("invalid handler: %w", err)
	}

	handler, err := responder.New(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid handler: %w", err)
	}

	return handler, nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}

	return node
}

func describeKind(node *yaml.Node) string {
	switch node.Kind {
	case yaml.SequenceNode:
		return "a sequence"
	case yaml.ScalarNode:
		return node.ShortTag()
	}

	return "an unsupported node"
}
