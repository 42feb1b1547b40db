package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/media"
	"github.com/SeanMdegy2025/gotzwebapp-sub000/pkg/client"
)

// parseFields turns command arguments into a request body.
//
//	key=value   string (the server coerces numbers, booleans, and dates)
//	key:=json   raw JSON, for nulls, numbers, and the itinerary days list
//	key=@path   file contents as a base64 data URL, for image fields
func parseFields(args []string, readFile func(string) ([]byte, error)) (client.Record, error) {
	rec := client.Record{}
	for _, arg := range args {
		if k, raw, ok := strings.Cut(arg, ":="); ok && k != "" && !strings.Contains(k, "=") {
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, fmt.Errorf("%s: invalid JSON: %w", k, err)
			}
			rec[k] = v
			continue
		}

		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		if path, isFile := strings.CutPrefix(v, "@"); isFile {
			raw, err := readFile(path)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			v = media.DataURL(raw)
		}
		rec[k] = v
	}
	return rec, nil
}
