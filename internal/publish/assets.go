package publish

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// defaultStylesheet keeps published pages readable when no assets directory
// is configured.
const defaultStylesheet = `body {
  max-width: 52rem;
  margin: 2rem auto;
  padding: 0 1rem;
  font-family: system-ui, sans-serif;
  line-height: 1.6;
}
nav.repo {
  color: #666;
  border-bottom: 1px solid #ddd;
  margin-bottom: 1.5rem;
}
pre {
  background: #f6f8fa;
  padding: 0.8rem;
  overflow-x: auto;
}
`

// RefreshAssets replaces the assets directory under the publish worktree.
// With no configured source directory a default stylesheet is written, so
// every published page has a working stylesheet link. Assets are refreshed
// on every run regardless of the touched set.
func RefreshAssets(publishRoot, assetsDir string) error {
	dst := filepath.Join(publishRoot, "assets")
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("clear assets: %w", err)
	}
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return fmt.Errorf("create assets dir: %w", err)
	}

	if assetsDir == "" {
		if err := os.WriteFile(filepath.Join(dst, "styles.css"), []byte(defaultStylesheet), 0o644); err != nil { // #nosec G306 - published asset
			return fmt.Errorf("write default stylesheet: %w", err)
		}
		return nil
	}

	return copyTree(assetsDir, dst)
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := filepath.Rel(src, path)
		if rerr != nil {
			return rerr
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - operator-configured assets directory
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) // #nosec G302 G304 - published asset
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
