package mapping

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/djordjev/mock-simulator/internal/packages/logging"
)

const Root = "."

// LoadError is a mock file that could not be read or parsed. Only that file is
// dropped from the resulting Definition.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("unable to load mock file %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type loader struct {
	fileSystem fs.FS
	ignore     []string
	logger     logging.Logger
}

type fileResult struct {
	index      int
	definition *Definition
	err        error
}

// NewLoader reads mock files from fileSystem. Ignore patterns are doublestar
// globs relative to the root and also match dot files.
func NewLoader(fileSystem fs.FS, ignore []string, logger logging.Logger) (Loader, error) {
	patterns := make([]string, 0, len(ignore))
	for _, pattern := range ignore {
		pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "./")
		if pattern == "" {
			continue
		}

		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore pattern %q", pattern)
		}

		patterns = append(patterns, pattern)
	}

	if logger == nil {
		logger = logging.Nop()
	}

	return &loader{fileSystem: fileSystem, ignore: patterns, logger: logger}, nil
}

func (l *loader) Load(ctx context.Context) (*Definition, []error) {
	definition := NewDefinition()

	files, err := l.files()
	if err != nil {
		return nil, []error{&LoadError{Path: Root, Err: err}}
	}

	l.logger.Debug("loading mock files", logging.Strings("files", files))

	result := make(chan fileResult)
	for i, file := range files {
		go l.readMapping(i, file, result)
	}

	loaded := make([]fileResult, len(files))
	for range files {
		r := <-result
		loaded[r.index] = r
	}

	var errs []error
	for i, r := range loaded {
		if r.err != nil {
			errs = append(errs, &LoadError{Path: files[i], Err: r.err})
			continue
		}

		definition.Merge(r.definition)
	}

	if err := ctx.Err(); err != nil {
		return NewDefinition(), append(errs, err)
	}

	return definition, errs
}

// files lists mock files in sorted order. Hidden files and directories are not
// enumerated, ignore patterns are applied on top.
func (l *loader) files() ([]string, error) {
	var files []string

	err := fs.WalkDir(l.fileSystem, Root, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if filePath == Root {
			return nil
		}

		if IsHidden(filePath) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !HasMappingFileExtension(filePath) || l.IsIgnored(filePath) {
			return nil
		}

		files = append(files, filePath)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)

	return files, nil
}

// IsIgnored matches a slash separated path, relative to the root, against the
// ignore patterns.
func (l *loader) IsIgnored(filePath string) bool {
	filePath = path.Clean(strings.TrimPrefix(filePath, "./"))

	for _, pattern := range l.ignore {
		if matched, _ := doublestar.Match(pattern, filePath); matched {
			return true
		}
	}

	return false
}

func (l *loader) readMapping(index int, filePath string, result chan<- fileResult) {
	l.logger.Debug("reading file", logging.String("path", filePath))

	r := fileResult{index: index}
	defer func() {
		result <- r
	}()

	data, err := fs.ReadFile(l.fileSystem, filePath)
	if err != nil {
		r.err = err
		return
	}

	r.definition, r.err = decode(filePath, data)
}
