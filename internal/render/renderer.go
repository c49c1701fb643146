// Package render turns one source file into one published HTML fragment.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Request describes one file to render.
type Request struct {
	SourcePath string // path relative to the repository root
	SourceRoot string // directory holding the source checkout
	RepoName   string // originating repository identifier
	OutputRoot string // publish worktree root
}

// Renderer converts one source file to one HTML artifact at a deterministic
// path derived from the source path. A failure renders only that file
// unusable; callers must not abort the whole run on it.
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// ArtifactPath derives the published artifact path for a source path:
// extension stripped, ".html" appended.
func ArtifactPath(sourcePath string) string {
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + ".html"
}

// Goldmark renders markdown sources through goldmark and wraps everything
// else in a preformatted code block, so non-markdown source files still get
// a browsable artifact.
type Goldmark struct {
	md goldmark.Markdown
}

// NewGoldmark creates a Goldmark renderer with GitHub-flavored extensions.
func NewGoldmark() *Goldmark {
	return &Goldmark{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Render implements Renderer. The artifact is written relative to
// req.OutputRoot at ArtifactPath(req.SourcePath).
func (g *Goldmark) Render(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src := filepath.Join(req.SourceRoot, filepath.FromSlash(req.SourcePath))
	content, err := os.ReadFile(src) // #nosec G304 - path comes from the tracked file list
	if err != nil {
		return "", fmt.Errorf("read source %s: %w", req.SourcePath, err)
	}

	var body bytes.Buffer
	if isMarkdown(req.SourcePath) {
		if err := g.md.Convert(content, &body); err != nil {
			return "", fmt.Errorf("render markdown %s: %w", req.SourcePath, err)
		}
	} else {
		renderCodeFragment(&body, req.SourcePath, content)
	}

	title := FragmentTitle(body.Bytes())
	if title == "" {
		title = TitleFromPath(req.SourcePath)
	}

	artifact := ArtifactPath(req.SourcePath)
	dst := filepath.Join(req.OutputRoot, filepath.FromSlash(artifact))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("create artifact directory: %w", err)
	}

	var page bytes.Buffer
	writePage(&page, title, req.RepoName, body.Bytes())

	if err := os.WriteFile(dst, page.Bytes(), 0o644); err != nil { // #nosec G306 - published artifact
		return "", fmt.Errorf("write artifact %s: %w", artifact, err)
	}
	return artifact, nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdown":
		return true
	}
	return false
}

func renderCodeFragment(w *bytes.Buffer, path string, content []byte) {
	w.WriteString("<pre><code class=\"language-")
	w.WriteString(htmlEscape(strings.TrimPrefix(filepath.Ext(path), ".")))
	w.WriteString("\">")
	w.WriteString(htmlEscape(string(content)))
	w.WriteString("</code></pre>\n")
}

func writePage(w *bytes.Buffer, title, repo string, body []byte) {
	w.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(w, "<title>%s</title>\n", htmlEscape(title))
	w.WriteString("<link rel=\"stylesheet\" href=\"/assets/styles.css\">\n")
	w.WriteString("</head>\n<body>\n")
	fmt.Fprintf(w, "<nav class=\"repo\">%s</nav>\n", htmlEscape(repo))
	w.Write(body)
	w.WriteString("</body>\n</html>\n")
}

func htmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

// NoLower keeps acronyms like "README" intact while capitalizing words.
var titleCaser = cases.Title(language.Und, cases.NoLower)

// TitleFromPath derives a fallback page title from the file name:
// "getting-started.md" becomes "Getting Started".
func TitleFromPath(sourcePath string) string {
	base := filepath.Base(sourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return titleCaser.String(base)
}
