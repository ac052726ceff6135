package domain_test

import (
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/reglet-dev/artefact-host/"

// The domain packages may import the standard library and each other.
// Entities sit at the bottom and import nothing from the module.
func TestDomainLayering(t *testing.T) {
	tests := []struct {
		pkg     string
		allowed []string
	}{
		{"entities", nil},
		{"errors", []string{"domain/entities"}},
		{"ports", []string{"domain/entities"}},
	}

	fset := token.NewFileSet()
	for _, tt := range tests {
		t.Run(tt.pkg, func(t *testing.T) {
			files, err := filepath.Glob(filepath.Join(tt.pkg, "*.go"))
			require.NoError(t, err)
			require.NotEmpty(t, files, "domain/%s has no Go files", tt.pkg)

			for _, file := range files {
				if strings.HasSuffix(file, "_test.go") {
					continue
				}
				f, err := parser.ParseFile(fset, file, nil, parser.ImportsOnly)
				require.NoError(t, err)

				for _, imp := range f.Imports {
					path := strings.Trim(imp.Path.Value, `"`)
					if strings.HasPrefix(path, modulePath) {
						assert.Contains(t, tt.allowed, strings.TrimPrefix(path, modulePath),
							"%s imports %s", file, path)
						continue
					}
					assert.NotContains(t, path, ".", "%s imports third-party %s", file, path)
				}
			}
		})
	}
}
