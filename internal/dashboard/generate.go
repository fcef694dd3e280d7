package dashboard

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.json.tmpl
var content embed.FS

// Tables names the GreptimeDB tables the panels query.
type Tables struct {
	Database   string
	Fitness    string
	Events     string
	Threshold  float64
	CampaignID string
}

var funcMap = template.FuncMap{
	"env": func(key string) (string, error) {
		v := os.Getenv(key)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", key)
		}
		return v, nil
	},
}

// Render executes every embedded dashboard template against tables and writes the results
// to outDir. It returns the written paths.
func Render(outDir string, tables Tables) ([]string, error) {
	t, err := template.New("dashboards").Funcs(funcMap).ParseFS(content, "templates/*.json.tmpl")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, tpl := range t.Templates() {
		if !strings.HasSuffix(tpl.Name(), ".tmpl") {
			continue
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(tpl.Name(), ".tmpl"))
		f, err := os.Create(outPath)
		if err != nil {
			return written, err
		}
		if err := tpl.Execute(f, tables); err != nil {
			f.Close()
			os.Remove(outPath)
			return written, err
		}
		if err := f.Close(); err != nil {
			return written, err
		}
		written = append(written, outPath)
	}
	return written, nil
}
