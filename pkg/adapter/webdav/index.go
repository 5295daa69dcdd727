package webdav

import (
	"bytes"
	"html/template"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/mvandenburgh/dandidav/pkg/dav"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} - {{.Path}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { padding: 0.2em 1em; text-align: left; }
td.size { text-align: right; }
</style>
</head>
<body>
<h1>{{.Path}}</h1>
<table>
<thead><tr><th>Name</th><th>Type</th><th>Size</th><th>Modified</th></tr></thead>
<tbody>
{{- if .Parent}}
<tr><td><a href="{{.Parent}}">../</a></td><td>Parent directory</td><td></td><td></td></tr>
{{- end}}
{{- range .Rows}}
<tr><td><a href="{{.Href}}">{{.Name}}</a></td><td>{{.Kind}}</td><td class="size">{{.Size}}</td><td>{{.Modified}}</td></tr>
{{- end}}
</tbody>
</table>
</body>
</html>
`))

type indexRow struct {
	Href     string
	Name     string
	Kind     string
	Size     string
	Modified string
}

type indexPage struct {
	Title  string
	Path   string
	Parent string
	Rows   []indexRow
}

// sortForDisplay orders collections before files, then by name.
func sortForDisplay(items []dav.Item) []dav.Item {
	sorted := append([]dav.Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Collection != sorted[j].Collection {
			return sorted[i].Collection
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}

func parentOf(p string) string {
	trimmed := strings.TrimSuffix(p, "/")
	if trimmed == "" {
		return ""
	}
	parent := path.Dir(trimmed)
	if parent == "/" {
		return "/"
	}
	return parent + "/"
}

func rowFor(it dav.Item) indexRow {
	row := indexRow{Href: it.Href(), Name: it.Name, Kind: "File"}
	switch {
	case it.Collection:
		row.Name += "/"
		row.Kind = "Directory"
	case it.Listable:
		row.Kind = "Zarr"
	}
	if it.Size != nil {
		row.Size = strconv.FormatInt(*it.Size, 10)
	}
	if !it.Modified.IsZero() {
		row.Modified = dav.FormatModifiedDate(it.Modified)
	}
	return row
}

// serveIndex renders an HTML listing of a collection's children.
func (a *WebDAVAdapter) serveIndex(w http.ResponseWriter, r *http.Request, self dav.Item, children []dav.Item) {
	page := indexPage{Title: a.config.Title, Path: self.Path}
	if parent := parentOf(self.Path); parent != "" {
		page.Parent = dav.Href(parent)
	}
	for _, c := range sortForDisplay(children) {
		page.Rows = append(page.Rows, rowFor(c))
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, page); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	_, _ = buf.WriteTo(w)
}
