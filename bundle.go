package cyberchef

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	esbuild "github.com/evanw/esbuild/pkg/api"
)

// BundleOperationLibrary prepares an operation-library distribution for
// loading. A prebuilt single-file UMD/CommonJS bundle is returned as-is; an
// npm-style package entry with import statements is bundled with esbuild
// into one CommonJS script that assigns bake and Dish to module.exports.
func BundleOperationLibrary(entryPath string) (string, error) {
	source, err := os.ReadFile(entryPath)
	if err != nil {
		return "", fmt.Errorf("reading operation library: %w", err)
	}

	src := string(source)

	// Skip bundling if there are no import statements.
	if !needsBundling(src) {
		return src, nil
	}

	result := esbuild.Build(esbuild.BuildOptions{
		EntryPoints:   []string{entryPath},
		AbsWorkingDir: filepath.Dir(entryPath),
		Bundle:        true,
		Format:        esbuild.FormatCommonJS,
		Write:         false,
		Platform:      esbuild.PlatformBrowser,
		Target:        esbuild.ES2022,
		TreeShaking:   esbuild.TreeShakingFalse,
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return "", fmt.Errorf("bundling operation library: %s", strings.Join(msgs, "; "))
	}

	if len(result.OutputFiles) == 0 {
		return "", fmt.Errorf("bundling produced no output")
	}

	return string(result.OutputFiles[0].Contents), nil
}

// needsBundling checks if a script contains import statements that require
// bundling. Prebuilt bundles without imports skip this step.
func needsBundling(source string) bool {
	return strings.Contains(source, "import ") ||
		strings.Contains(source, "import{") ||
		strings.Contains(source, "from 'node:") ||
		strings.Contains(source, "from \"node:")
}
