// internal/fallback/fallback.go
//
// Static marketing content used when a public section comes back empty or
// degraded.  The YAML is embedded at build time and decoded once.

package fallback

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var raw []byte

var (
	once     sync.Once
	sections map[string][]map[string]any
	loadErr  error
)

func load() {
	loadErr = yaml.Unmarshal(raw, &sections)
	if loadErr != nil {
		loadErr = fmt.Errorf("fallback: decode content.yaml: %w", loadErr)
	}
}

// For returns a fresh copy of the fallback records for resource name.  An
// unknown name yields an empty, non-nil slice.
func For(name string) []map[string]any {
	once.Do(load)
	src := sections[name]
	out := make([]map[string]any, len(src))
	for i, rec := range src {
		cp := make(map[string]any, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

// Names lists every section that has fallback content declared.
func Names() []string {
	once.Do(load)
	out := make([]string, 0, len(sections))
	for k := range sections {
		out = append(out, k)
	}
	return out
}

// Err reports whether the embedded content failed to decode.
func Err() error {
	once.Do(load)
	return loadErr
}
