package mapping

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/djordjev/mock-simulator/internal/packages/logging"
	"github.com/djordjev/mock-simulator/internal/packages/responder"
	"github.com/stretchr/testify/require"
)

type dataPair struct {
	content string
	entries map[string]any
}

var firstPair = dataPair{
	content: `
"GET /users":
  - id: 1
    name: Jon
  - id: 2
    name: Jane
/status:
  ok: true
`,
	entries: map[string]any{
		"GET /users": []any{
			map[string]any{"id": 1, "name": "Jon"},
			map[string]any{"id": 2, "name": "Jane"},
		},
		"/status": map[string]any{"ok": true},
	},
}

var secondPair = dataPair{
	content: `{
	"POST /users": {"created": true},
	"/status": {"ok": false}
}`,
	entries: map[string]any{
		"POST /users": map[string]any{"created": true},
		"/status":     map[string]any{"ok": false},
	},
}

func jsonOf(t *testing.T, value any) string {
	t.Helper()

	encoded, err := json.Marshal(value)
	require.NoError(t, err)

	return string(encoded)
}

func keysOf(definition *Definition) []string {
	var keys []string
	for _, entry := range definition.Entries() {
		keys = append(keys, entry.Key)
	}

	return keys
}

func TestLoad(t *testing.T) {
	testCases := []struct {
		name    string
		fs      fs.FS
		ignore  []string
		keys    []string
		values  map[string]any
		errPath []string
	}{
		{
			name: "empty directory",
			fs:   fstest.MapFS{},
		},
		{
			name: "directory with one file",
			fs: fstest.MapFS{
				"users.yaml": {Data: []byte(firstPair.content)},
			},
			keys:   []string{"GET /users", "/status"},
			values: firstPair.entries,
		},
		{
			name: "does not read files that are not mock files",
			fs: fstest.MapFS{
				"users.yaml":  {Data: []byte(firstPair.content)},
				"readme.md":   {Data: []byte(secondPair.content)},
				"users.js":    {Data: []byte(secondPair.content)},
				"notes.txt":   {Data: []byte("{")},
				"nested/.env": {Data: []byte("{")},
			},
			keys:   []string{"GET /users", "/status"},
			values: firstPair.entries,
		},
		{
			name: "later files override earlier keys in place",
			fs: fstest.MapFS{
				"a.yaml": {Data: []byte(firstPair.content)},
				"b.json": {Data: []byte(secondPair.content)},
			},
			keys: []string{"GET /users", "/status", "POST /users"},
			values: map[string]any{
				"GET /users":  firstPair.entries["GET /users"],
				"/status":     map[string]any{"ok": false},
				"POST /users": map[string]any{"created": true},
			},
		},
		{
			name: "reads nested directories",
			fs: fstest.MapFS{
				"api/v1/users.yml": {Data: []byte(firstPair.content)},
			},
			keys:   []string{"GET /users", "/status"},
			values: firstPair.entries,
		},
		{
			name: "skips hidden files and directories",
			fs: fstest.MapFS{
				".hidden.yaml":     {Data: []byte(firstPair.content)},
				".drafts/new.json": {Data: []byte(secondPair.content)},
			},
		},
		{
			name: "applies ignore globs",
			fs: fstest.MapFS{
				"users.yaml":         {Data: []byte(firstPair.content)},
				"users.sample.json":  {Data: []byte(secondPair.content)},
				"drafts/other.json":  {Data: []byte(secondPair.content)},
				"drafts/deep/x.yaml": {Data: []byte(secondPair.content)},
			},
			ignore: []string{"*.sample.json", "./drafts/**"},
			keys:   []string{"GET /users", "/status"},
			values: firstPair.entries,
		},
		{
			name: "broken file does not block the others",
			fs: fstest.MapFS{
				"a.yaml": {Data: []byte(firstPair.content)},
				"b.json": {Data: []byte("{ wrong: json")},
				"c.yaml": {Data: []byte("- not\n- a mapping\n")},
			},
			keys:    []string{"GET /users", "/status"},
			values:  firstPair.entries,
			errPath: []string{"b.json", "c.yaml"},
		},
		{
			name: "reads default export",
			fs: fstest.MapFS{
				"a.yaml": {Data: []byte("default:\n  /status:\n    ok: true\n")},
				"b.json": {Data: []byte(`{"default": {"/other": {"ok": 1}}}`)},
			},
			keys: []string{"/status", "/other"},
			values: map[string]any{
				"/status": map[string]any{"ok": true},
				"/other":  map[string]any{"ok": float64(1)},
			},
		},
		{
			name: "empty files contribute nothing",
			fs: fstest.MapFS{
				"a.yaml": {Data: []byte("")},
				"b.json": {Data: []byte("  ")},
			},
		},
		{
			name: "keeps null and scalar values for compilation to reject",
			fs: fstest.MapFS{
				"a.yaml": {Data: []byte("/null: null\n/text: hello\n")},
			},
			keys:   []string{"/null", "/text"},
			values: map[string]any{"/null": nil, "/text": "hello"},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			loader, err := NewLoader(test.fs, test.ignore, logging.Nop())
			require.NoError(t, err)

			definition, errs := loader.Load(context.Background())

			require.Equal(t, test.keys, keysOf(definition))
			for key, value := range test.values {
				entry, found := definition.Get(key)
				require.True(t, found, key)
				require.JSONEq(t, jsonOf(t, value), jsonOf(t, entry.Value), key)
			}

			var errPaths []string
			for _, err := range errs {
				var loadErr *LoadError
				require.ErrorAs(t, err, &loadErr)
				errPaths = append(errPaths, loadErr.Path)
			}
			require.Equal(t, test.errPath, errPaths)
		})
	}
}

func TestLoadHandlers(t *testing.T) {
	fileSystem := fstest.MapFS{
		"users.yaml": {Data: []byte(`
"GET /users/:id": !handler
  status: 201
  body:
    id: "${{ params.id }}"
"POST /users":
  $handler:
    body:
      ok: true
`)},
		"items.json": {Data: []byte(`{"GET /items": {"$handler": {"status": 202}}}`)},
	}

	loader, err := NewLoader(fileSystem, nil, logging.Nop())
	require.NoError(t, err)

	definition, errs := loader.Load(context.Background())
	require.Empty(t, errs)
	require.Equal(t, []string{"GET /items", "GET /users/:id", "POST /users"}, keysOf(definition))

	for _, entry := range definition.Entries() {
		require.IsType(t, &responder.Responder{}, entry.Value, entry.Key)
		require.NotEmpty(t, entry.Source)
	}

	entry, _ := definition.Get("GET /items")
	recorder := httptest.NewRecorder()
	entry.Value.(*responder.Responder).ServeMock(recorder, httptest.NewRequest(http.MethodGet, "/items", nil), nil)
	require.Equal(t, http.StatusAccepted, recorder.Code)
}

func TestLoadBrokenHandler(t *testing.T) {
	fileSystem := fstest.MapFS{
		"a.yaml": {Data: []byte("/ok:\n  fine: true\n")},
		"b.yaml": {Data: []byte("/broken: !handler\n  body: \"${{ nope( }}\"\n")},
		"c.yaml": {Data: []byte("/scalar: !handler text\n")},
	}

	loader, err := NewLoader(fileSystem, nil, logging.Nop())
	require.NoError(t, err)

	definition, errs := loader.Load(context.Background())
	require.Len(t, errs, 2)
	require.Equal(t, []string{"/ok"}, keysOf(definition))
}

func TestLoadReadsFreshContent(t *testing.T) {
	fileSystem := fstest.MapFS{
		"a.yaml": {Data: []byte("/status:\n  version: 1\n")},
	}

	loader, err := NewLoader(fileSystem, nil, logging.Nop())
	require.NoError(t, err)

	definition, _ := loader.Load(context.Background())
	entry, _ := definition.Get("/status")
	require.JSONEq(t, `{"version":1}`, jsonOf(t, entry.Value))

	fileSystem["a.yaml"] = &fstest.MapFile{Data: []byte("/status:\n  version: 2\n")}

	definition, _ = loader.Load(context.Background())
	entry, _ = definition.Get("/status")
	require.JSONEq(t, `{"version":2}`, jsonOf(t, entry.Value))
}

func TestLoadMissingRoot(t *testing.T) {
	loader, err := NewLoader(os.DirFS(filepath.Join(t.TempDir(), "missing")), nil, logging.Nop())
	require.NoError(t, err)

	definition, errs := loader.Load(context.Background())
	require.Nil(t, definition)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	require.Equal(t, Root, loadErr.Path)
}

func TestLoadCanceled(t *testing.T) {
	loader, err := NewLoader(fstest.MapFS{"a.yaml": {Data: []byte(firstPair.content)}}, nil, logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	definition, errs := loader.Load(ctx)
	require.Equal(t, 0, definition.Len())
	require.ErrorIs(t, errs[len(errs)-1], context.Canceled)
}

func TestNewLoaderInvalidIgnore(t *testing.T) {
	_, err := NewLoader(fstest.MapFS{}, []string{"[unclosed"}, logging.Nop())
	require.Error(t, err)
}

func TestDefinitionMerge(t *testing.T) {
	first := NewDefinition().Set("/a", 1).Set("/b", 2)
	second := NewDefinition().Set("/c", 3).Set("/a", 4)

	merged := NewDefinition().Merge(first).Merge(second).Merge(nil)

	require.Equal(t, []string{"/a", "/b", "/c"}, keysOf(merged))

	entry, _ := merged.Get("/a")
	require.Equal(t, 4, entry.Value)
	require.Equal(t, 3, merged.Len())
}

func TestHasMappingFileExtension(t *testing.T) {
	require.True(t, HasMappingFileExtension("a.yaml"))
	require.True(t, HasMappingFileExtension("dir/a.YML"))
	require.True(t, HasMappingFileExtension("a.json"))
	require.False(t, HasMappingFileExtension("a.js"))
	require.False(t, HasMappingFileExtension("yaml"))
}

func TestLoadKeepsValueKeyOrder(t *testing.T) {
	fileSystem := fstest.MapFS{
		"users.yaml": {Data: []byte(`
/user:
  name: Jon
  id: 1
  address:
    zip: "11000"
    city: Belgrade
  tags:
    - {z: 1, a: 2}
`)},
		"items.json": {Data: []byte(`{"/item": {"title": "Book", "id": 7, "meta": {"y": null, "b": [true]}}}`)},
	}

	loader, err := NewLoader(fileSystem, nil, logging.Nop())
	require.NoError(t, err)

	definition, errs := loader.Load(context.Background())
	require.Empty(t, errs)

	user, _ := definition.Get("/user")
	require.IsType(t, &Object{}, user.Value)
	require.Equal(t, `{"name":"Jon","id":1,"address":{"zip":"11000","city":"Belgrade"},"tags":[{"z":1,"a":2}]}`, jsonOf(t, user.Value))

	item, _ := definition.Get("/item")
	require.Equal(t, `{"title":"Book","id":7,"meta":{"y":null,"b":[true]}}`, jsonOf(t, item.Value))
}

func TestObject(t *testing.T) {
	object := NewObject().Set("b", 1).Set("a", 2).Set("b", 3)

	require.Equal(t, []string{"b", "a"}, object.Keys())
	require.Equal(t, 2, object.Len())

	value, found := object.Get("b")
	require.True(t, found)
	require.Equal(t, 3, value)

	require.Equal(t, `{"b":3,"a":2}`, jsonOf(t, object))
	require.Equal(t, `{}`, jsonOf(t, NewObject()))
}
