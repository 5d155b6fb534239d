package layout

import (
	"os"
	"path/filepath"

	pkgerrors "github.com/goplus/bzlpkg/pkgs/errors"
	"github.com/goplus/bzlpkg/pkgs/files"
)

// DefaultManifest lists the files a Bazel recipe exports with its sources.
var DefaultManifest = []string{
	MarkerWorkspace,
	".bazelproject",
	MarkerVersion,
	"lib/*",
	"LICENSE",
}

// ExportSources copies every file under recipeDir matching one of the
// manifest patterns into dst. Patterns matching nothing are ignored. A
// CMakeLists.txt next to the sources is exported to dst/src as well.
func ExportSources(recipeDir string, manifest []string, dst string) ([]string, error) {
	var exported []string
	for _, pattern := range manifest {
		copied, err := files.Copy(pattern, recipeDir, dst)
		exported = append(exported, copied...)
		if err != nil {
			return exported, pkgerrors.Wrap(pkgerrors.KindLayout, "layout.export", err)
		}
	}

	if _, err := os.Stat(filepath.Join(recipeDir, "CMakeLists.txt")); err == nil {
		copied, err := files.Copy("CMakeLists.txt", recipeDir, filepath.Join(dst, "src"))
		exported = append(exported, copied...)
		if err != nil {
			return exported, pkgerrors.Wrap(pkgerrors.KindLayout, "layout.export", err)
		}
	}
	return exported, nil
}
