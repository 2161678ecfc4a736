package mapping

import (
	"path/filepath"
	"strings"
)

var supportedExtensions = [...]string{".yaml", ".yml", ".json"}

func HasMappingFileExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for i := 0; i < len(supportedExtensions); i++ {
		if ext == supportedExtensions[i] {
			return true
		}
	}
	return false
}

// IsHidden reports dot-prefixed names; "." and ".." are not hidden.
func IsHidden(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
