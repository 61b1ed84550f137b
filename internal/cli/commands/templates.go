package commands

import (
	"bytes"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed all:templates
var templateFS embed.FS

// templateData is the data rendered into *.tmpl files.
type templateData struct {
	Name           string
	Crate          string
	RuntimeVersion string
}

// copyTemplate copies a template directory to the target directory.
// Files ending in .tmpl are rendered with data and lose the suffix.
// It returns the created files relative to targetDir.
func copyTemplate(templateName, targetDir string, data templateData, force bool) ([]string, error) {
	root := filepath.Join("templates", templateName)
	var created []string

	err := fs.WalkDir(templateFS, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = renameSpecialFiles(relPath)
		targetPath := filepath.Join(targetDir, relPath)

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0750)
		}

		if !force {
			if _, err := os.Stat(targetPath); err == nil {
				return nil // Skip existing files
			}
		}

		content, err := templateFS.ReadFile(path)
		if err != nil {
			return err
		}
		if strings.HasSuffix(path, ".tmpl") {
			content, err = renderTemplate(path, content, data)
			if err != nil {
				return err
			}
		}

		if err := os.WriteFile(targetPath, content, 0600); err != nil {
			return err
		}
		created = append(created, relPath)
		return nil
	})

	return created, err
}

func renderTemplate(name string, content []byte, data templateData) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renameSpecialFiles handles files that need renaming (dotfiles, rendered templates).
func renameSpecialFiles(path string) string {
	path = strings.TrimSuffix(path, ".tmpl")
	base := filepath.Base(path)
	dir := filepath.Dir(path)

	switch base {
	case "gitignore":
		return filepath.Join(dir, ".gitignore")
	default:
		return path
	}
}

// crateName turns a project name into a valid package name for the manifest.
func crateName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	crate := strings.Trim(b.String(), "_")
	if crate == "" {
		return "game"
	}
	if crate[0] >= '0' && crate[0] <= '9' {
		return "game_" + crate
	}
	return crate
}
