// Package view renders upload previews, prediction results and errors.
package view

import (
	"io"

	"potability/pipeline"
)

// DefaultPreviewRows caps the rows shown on screen; downloads always hold every row.
const DefaultPreviewRows = 200

// Presenter renders the three states of an upload.
type Presenter interface {
	RenderInput(w io.Writer, in *pipeline.Table) error
	RenderResults(w io.Writer, res *pipeline.Result) error
	RenderError(w io.Writer, err error) error
}

// Framer is implemented by presenters that wrap sections in a page.
type Framer interface {
	Begin(w io.Writer) error
	End(w io.Writer) error
}

// Render writes the input preview (when in is non-nil) followed by either the error or
// the results.
func Render(w io.Writer, p Presenter, in *pipeline.Table, res *pipeline.Result, renderErr error) error {
	if f, ok := p.(Framer); ok {
		if err := f.Begin(w); err != nil {
			return err
		}
	}
	if in != nil {
		if err := p.RenderInput(w, in); err != nil {
			return err
		}
	}
	switch {
	case renderErr != nil:
		if err := p.RenderError(w, renderErr); err != nil {
			return err
		}
	case res != nil:
		if err := p.RenderResults(w, res); err != nil {
			return err
		}
	}
	if f, ok := p.(Framer); ok {
		return f.End(w)
	}
	return nil
}

type section struct {
	Columns []string
	Rows    [][]string
	Total   int
}

func preview(columns []string, rows [][]string, limit int) section {
	s := section{Columns: columns, Rows: rows, Total: len(rows)}
	if limit > 0 && len(rows) > limit {
		s.Rows = rows[:limit]
	}
	return s
}

func countPotable(res *pipeline.Result) int {
	n := 0
	for _, p := range res.Predictions {
		if p.Class == 1 {
			n++
		}
	}
	return n
}
