package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"potability/pipeline"
)

// TextPresenter renders aligned tables for a terminal.
type TextPresenter struct {
	Title       string
	PreviewRows int
}

func NewTextPresenter(title string) *TextPresenter {
	return &TextPresenter{Title: title, PreviewRows: 20}
}

func (p *TextPresenter) RenderInput(w io.Writer, in *pipeline.Table) error {
	return p.table(w, "Uploaded data preview", preview(in.Columns, in.Rows, p.PreviewRows))
}

func (p *TextPresenter) RenderResults(w io.Writer, res *pipeline.Result) error {
	title := fmt.Sprintf("Prediction results (%d of %d potable, %d values imputed)",
		countPotable(res), len(res.Rows), res.ImputedTotal())
	return p.table(w, title, preview(res.Columns, res.Rows, p.PreviewRows))
}

func (p *TextPresenter) RenderError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "error: %v\n", err)
	return werr
}

func (p *TextPresenter) table(w io.Writer, title string, s section) error {
	if p.Title != "" {
		title = p.Title + ": " + title
	}
	if _, err := fmt.Fprintln(w, title); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(s.Columns, "\t"))
	for _, row := range s.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(s.Rows) < s.Total {
		_, err := fmt.Fprintf(w, "... %d more rows\n", s.Total-len(s.Rows))
		return err
	}
	return nil
}
