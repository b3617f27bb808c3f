package view

import (
	"bytes"
	"encoding/base64"
	"html/template"
	"io"
	"sort"

	"potability/pipeline"
)

// HTMLPresenter renders a single page with the upload form on top.
type HTMLPresenter struct {
	Title       string
	Description string
	PreviewRows int
	// Action is the form target for uploads.
	Action string

	tmpl *template.Template
}

func NewHTMLPresenter(title, description string) *HTMLPresenter {
	return &HTMLPresenter{
		Title:       title,
		Description: description,
		PreviewRows: DefaultPreviewRows,
		Action:      "/predict",
		tmpl:        template.Must(template.New("page").Parse(pageTemplate)),
	}
}

func (h *HTMLPresenter) Begin(w io.Writer) error {
	return h.tmpl.ExecuteTemplate(w, "begin", h)
}

func (h *HTMLPresenter) End(w io.Writer) error {
	return h.tmpl.ExecuteTemplate(w, "end", h)
}

func (h *HTMLPresenter) RenderInput(w io.Writer, in *pipeline.Table) error {
	return h.tmpl.ExecuteTemplate(w, "input", preview(in.Columns, in.Rows, h.PreviewRows))
}

type imputedColumn struct {
	Name  string
	Count int
}

func (h *HTMLPresenter) RenderResults(w io.Writer, res *pipeline.Result) error {
	var csv bytes.Buffer
	if err := res.WriteCSV(&csv); err != nil {
		return err
	}

	imputed := make([]imputedColumn, 0, len(res.Imputed))
	for name, count := range res.Imputed {
		imputed = append(imputed, imputedColumn{Name: name, Count: count})
	}
	sort.Slice(imputed, func(i, j int) bool { return imputed[i].Name < imputed[j].Name })

	return h.tmpl.ExecuteTemplate(w, "results", struct {
		section
		Potable  int
		Imputed  []imputedColumn
		Download template.URL
		Filename string
	}{
		section:  preview(res.Columns, res.Rows, h.PreviewRows),
		Potable:  countPotable(res),
		Imputed:  imputed,
		Download: template.URL("data:" + pipeline.CSVContentType + ";charset=utf-8;base64," + base64.StdEncoding.EncodeToString(csv.Bytes())),
		Filename: pipeline.DownloadFilename,
	})
}

func (h *HTMLPresenter) RenderError(w io.Writer, err error) error {
	return h.tmpl.ExecuteTemplate(w, "error", err.Error())
}

const pageTemplate = `
{{define "begin"}}<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; background: #f8f9fa; margin: 40px; }
.container { background: #fff; padding: 20px; border-radius: 10px; box-shadow: 0 0 10px rgba(0,0,0,0.1); }
table { border-collapse: collapse; margin: 10px 0; font-size: 13px; }
th, td { border: 1px solid #ddd; padding: 4px 8px; text-align: right; }
th { background: #eef2f7; }
.error { background: #fdecea; color: #611a15; padding: 12px; border-radius: 5px; }
.note { color: #555; }
button { background: #007bff; color: white; border: none; padding: 8px 16px; border-radius: 5px; cursor: pointer; }
</style>
</head>
<body>
<div class="container">
<h2>{{.Title}}</h2>
{{with .Description}}<p class="note">{{.}}</p>{{end}}
<form method="post" action="{{.Action}}" enctype="multipart/form-data">
<label>Upload your water quality CSV file</label>
<input type="file" name="file" accept=".csv,text/csv" required>
<button type="submit">Predict</button>
</form>
{{end}}

{{define "table"}}<table>
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{if lt (len .Rows) .Total}}<p class="note">Showing {{len .Rows}} of {{.Total}} rows.</p>{{end}}{{end}}

{{define "input"}}<h3>Uploaded Data Preview</h3>
{{template "table" .}}{{end}}

{{define "results"}}<h3>Prediction Results</h3>
<p>{{.Potable}} of {{.Total}} samples predicted potable.</p>
{{with .Imputed}}<p class="note">Missing values filled by the imputer:{{range .}} {{.Name}} ({{.Count}}){{end}}</p>{{end}}
{{template "table" .}}
<p><a href="{{.Download}}" download="{{.Filename}}"><button type="button">Download Results as CSV</button></a></p>{{end}}

{{define "error"}}<div class="error"><strong>Could not process the file.</strong> {{.}}</div>{{end}}

{{define "end"}}</div>
</body>
</html>
{{end}}`
