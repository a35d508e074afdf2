package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadAssetDir reads the regular files directly under dir into a map keyed by
// file name, for use with WithSharedAssets. An empty dir yields nil.
func LoadAssetDir(dir string) (map[string][]byte, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read asset dir: %w", err)
	}
	assets := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read asset %s: %w", entry.Name(), err)
		}
		assets[entry.Name()] = data
	}
	return assets, nil
}
