// Package report renders a human readable summary of an import with
// text/template and the sprig function library.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig"

	"github.com/voxport/voxport/importer"
)

//go:embed templates
var templates embed.FS

const defaultTemplate = "summary.txt"

type Reporter struct {
	Template *template.Template
	Name     string
}

// New returns a reporter using the built-in summary template.
func New() (*Reporter, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templates, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("could not parse the built-in templates: %v", err)
	}
	return &Reporter{Template: tmpl, Name: defaultTemplate}, nil
}

// NewFromFile returns a reporter using a custom template file. The template
// gets an *importer.Result.
func NewFromFile(path string) (*Reporter, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFiles(path)
	if err != nil {
		return nil, fmt.Errorf(`could not create template based on file "%v": %v`, path, err)
	}
	return &Reporter{Template: tmpl, Name: filepath.Base(path)}, nil
}

func (r *Reporter) Render(w io.Writer, res *importer.Result) error {
	if err := r.Template.ExecuteTemplate(w, r.Name, res); err != nil {
		return fmt.Errorf(`could not execute template "%v": %v`, r.Name, err)
	}
	return nil
}

func (r *Reporter) String(res *importer.Result) (string, error) {
	result := bytes.NewBufferString("")
	err := r.Render(result, res)
	return result.String(), err
}
