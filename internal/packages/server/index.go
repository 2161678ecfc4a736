package server

import (
	"html/template"
	"net/http"

	"github.com/djordjev/mock-simulator/internal/packages/logging"
	"github.com/djordjev/mock-simulator/internal/packages/routes"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Mock APIs</title>
<link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/bootstrap@4.5.3/dist/css/bootstrap.min.css" integrity="sha384-TX8t27EcRE3e/ihU7zmQxVncDAy5uIKz4rEkgIXeMed4M0jlfIDPvg6uqKI2xXr2" crossorigin="anonymous">
</head>
<body>
<div style="padding: 20px;">
<h3>Overview of available mock APIs</h3>
<ul style="list-style-type: none; padding-left: 0;">
{{- range . }}
<li><a href="{{ .FullPath }}"><span class="badge {{ .Badge }}">{{ .Method }}</span> {{ .FullPath }}</a></li>
{{- end }}
</ul>
</div>
</body>
</html>
`))

type indexEntry struct {
	Method   string
	FullPath string
	Badge    string
}

func badgeFor(method routes.Method) string {
	switch method {
	case routes.MethodGet:
		return "badge-success"
	case routes.MethodPost:
		return "badge-primary"
	case routes.MethodDelete:
		return "badge-danger"
	case routes.MethodPut, routes.MethodPatch:
		return "badge-info"
	}

	return "badge-secondary"
}

func (m *Mock) serveIndex(w http.ResponseWriter, table *routes.Table) {
	compiled := table.Routes()

	entries := make([]indexEntry, 0, len(compiled))
	for _, route := range compiled {
		entries = append(entries, indexEntry{
			Method:   string(route.Method),
			FullPath: m.options.MountPath + route.Path,
			Badge:    badgeFor(route.Method),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if err := indexTemplate.Execute(w, entries); err != nil {
		m.logger.Error("unable to render index", logging.Error(err))
	}
}
