package common

import (
	"log/slog"
	"text/template"

	"github.com/Alia5/bindgen/internal/codegen/meta"
)

const readmeTemplate = `# {{.LibraryName}} bindings

Automatically generated {{.Kind}} bindings for ` + "`{{.LibraryName}}`" + ` ({{.Version}}).
Do not edit by hand; rerun ` + "`bindgen generate`" + ` instead.

- **Target**: {{.TargetTriple}}
{{- if .Libraries}}
- **Links against**: {{range $i, $l := .Libraries}}{{if $i}}, {{end}}{{$l}}{{end}}
{{- end}}

## Headers

{{range .Headers}}- ` + "`{{.}}`" + `
{{end}}`

var readmeTmpl = template.Must(template.New("readme").Parse(readmeTemplate))

func GenerateReadme(logger *slog.Logger, w *Writer, md *meta.Metadata, kind string) error {
	data := struct {
		*meta.Metadata
		Kind string
	}{md, kind}
	if err := w.Execute("README.md", readmeTmpl, data); err != nil {
		return err
	}
	logger.Debug("Generated README.md", "dir", w.Root())
	return nil
}
