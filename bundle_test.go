package cyberchef

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBundlePassthrough(t *testing.T) {
	want, err := os.ReadFile(testBundle)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got, err := BundleOperationLibrary(testBundle)
	if err != nil {
		t.Fatalf("BundleOperationLibrary: %v", err)
	}
	if got != string(want) {
		t.Fatal("prebuilt bundle was modified")
	}
}

func TestBundleMissingFile(t *testing.T) {
	if _, err := BundleOperationLibrary("testdata/no_such_bundle.js"); err == nil {
		t.Fatal("missing bundle accepted")
	}
}

func TestBundleResolvesImports(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, "lib.js")
	entry := filepath.Join(dir, "entry.js")
	if err := os.WriteFile(lib, []byte("export function greet() { return 'hi'; }\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	src := "import { greet } from './lib.js';\nexport const out = greet();\n"
	if err := os.WriteFile(entry, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := BundleOperationLibrary(entry)
	if err != nil {
		t.Fatalf("BundleOperationLibrary: %v", err)
	}
	if !strings.Contains(got, "greet") {
		t.Fatal("bundled output lost the imported symbol")
	}
	if strings.Contains(got, "import {") {
		t.Fatal("bundled output still contains an import statement")
	}
}

func TestBundleBrokenImport(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "entry.js")
	src := "import { gone } from './missing.js';\n"
	if err := os.WriteFile(entry, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := BundleOperationLibrary(entry); err == nil {
		t.Fatal("unresolvable import accepted")
	}
}

func TestNeedsBundling(t *testing.T) {
	if needsBundling("module.exports = {};") {
		t.Fatal("plain CommonJS flagged for bundling")
	}
	if !needsBundling("import x from 'y';") {
		t.Fatal("import statement not detected")
	}
}
