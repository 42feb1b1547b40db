// components/content/schemas.go
//
// Entity schemas shipped with the binary.

package content

import (
	"embed"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/internal/resource"
)

//go:embed schemas/*.yaml
var schemas embed.FS

// LoadRegistry parses every embedded schema.  cmd/web and safarictl share
// it so both sides agree on entity names.
func LoadRegistry() (*resource.Registry, error) {
	return resource.LoadFS(schemas, "schemas/*.yaml")
}
