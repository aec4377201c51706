package templates

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"time"
)

//go:embed *.tmpl */*.tmpl
var embedded embed.FS

// Load parses the page templates. An empty dir uses the copies compiled into
// the binary; otherwise dir must have the same layout.
func Load(dir string) (*template.Template, error) {
	var fsys fs.FS = embedded
	if dir != "" {
		fsys = os.DirFS(dir)
	}
	return parse(fsys)
}

func parse(fsys fs.FS) (*template.Template, error) {
	patterns := []string{"*.tmpl", "auth/*.tmpl", "care/*.tmpl", "family/*.tmpl", "admin/*.tmpl"}

	tmpl := template.New("").Funcs(FuncMap())
	for _, pattern := range patterns {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			continue
		}
		if tmpl, err = tmpl.ParseFS(fsys, matches...); err != nil {
			return nil, fmt.Errorf("failed to parse templates: %w", err)
		}
	}
	return tmpl, nil
}

// FuncMap returns the helpers available to every page
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Local().Format("Jan 2, 2006")
		},
		"formatTime": func(t time.Time) string {
			return t.Local().Format("Jan 2, 15:04")
		},
		"formatEnd": func(t *time.Time) string {
			if t == nil {
				return "asleep"
			}
			return t.Local().Format("Jan 2, 15:04")
		},
		"amount": func(v *int) string {
			if v == nil {
				return "-"
			}
			return fmt.Sprint(*v)
		},
		"minutes": func(d time.Duration) int {
			return int(d.Minutes())
		},
	}
}
