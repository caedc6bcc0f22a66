// ./internal/arch/arch_test.go
package arch

import (
	"bytes"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"testing"
)

type pkg struct {
	ImportPath string
	Imports    []string
	Standard   bool
}

func TestImportBoundaries(t *testing.T) {
	cmd := exec.Command("go", "list", "-json", "./...")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		t.Fatalf("go list: %v", err)
	}
	dec := json.NewDecoder(&out)

	bans := map[string][]string{
		"scell/internal/pipeline": {
			"scell/internal/app", "scell/internal/markersapp", "scell/internal/inspectapp",
			"scell/internal/cli", "scell/internal/writers", "scell/cmd/",
		},
		"scell/internal/writers": {
			"scell/internal/app", "scell/internal/markersapp", "scell/internal/inspectapp",
			"scell/internal/cli", "scell/internal/pipeline", "scell/cmd/",
		},
		"scell/internal/config": {
			"scell/internal/app", "scell/internal/markersapp", "scell/internal/inspectapp",
			"scell/internal/cli", "scell/internal/pipeline", "scell/cmd/",
		},
		"scell/internal/cli": {
			"scell/internal/app", "scell/internal/markersapp", "scell/internal/inspectapp",
			"scell/internal/pipeline", "scell/cmd/",
		},
		"scell/pkg/api": {
			"scell/internal/", "scell/cmd/",
		},
	}

	var violations []string
	for {
		var p pkg
		if err := dec.Decode(&p); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !strings.HasPrefix(p.ImportPath, "scell/") {
			continue
		}
		imp := p.ImportPath
		for prefix, forbidden := range bans {
			if !strings.HasPrefix(imp, prefix) {
				continue
			}
			for _, dep := range p.Imports {
				if !strings.HasPrefix(dep, "scell/") {
					continue
				}
				for _, ban := range forbidden {
					if strings.HasPrefix(dep, ban) {
						violations = append(violations, imp+" → "+dep)
					}
				}
			}
		}
	}

	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n  %s", strings.Join(violations, "\n  "))
	}
}
