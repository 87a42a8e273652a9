package quality

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestGofmtClean verifies that every Go source file in the module is
// already gofmt-formatted: running gofmt -l over the tree lists nothing.
func TestGofmtClean(t *testing.T) {
	root, err := findModuleRoot()
	if err != nil {
		t.Fatalf("failed to find module root: %v", err)
	}

	var goFiles []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if name == ".git" || name == "vendor" || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") {
			goFiles = append(goFiles, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk module: %v", err)
	}
	if len(goFiles) == 0 {
		t.Fatal("no Go files found")
	}

	for _, file := range goFiles {
		out, err := exec.Command("gofmt", "-l", file).Output()
		if err != nil {
			t.Errorf("gofmt failed for %s: %v", file, err)
			continue
		}
		if len(out) > 0 {
			t.Errorf("file is not gofmt-formatted: %s", file)
		}
	}
}

// findModuleRoot walks upward until it sees go.mod.
func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
