// Package pipeline runs the fitted imputer, scaler and classifier over uploaded tables.
package pipeline

import (
	"strings"
)

const (
	PredictionColumn = "Potability Prediction"
	ConfidenceColumn = "Confidence (Potable %)"

	LabelPotable    = "Potable"
	LabelNotPotable = "Not Potable"

	DownloadFilename = "potability_predictions.csv"
	CSVContentType   = "text/csv"
)

// missingMarkers mirrors the NA spellings recognised by pandas.read_csv.
var missingMarkers = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"NULL": {}, "null": {}, "None": {}, "<NA>": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {},
	"-1.#IND": {}, "-1.#QNAN": {}, "1.#IND": {}, "1.#QNAN": {},
}

// IsMissing reports whether a cell counts as a missing value.
func IsMissing(cell string) bool {
	_, ok := missingMarkers[strings.TrimSpace(cell)]
	return ok
}

// Table is tabular input with cells kept as the original text.
type Table struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, column := range t.Columns {
		if column == name {
			return i
		}
	}
	return -1
}

// Prediction is the model output for one row.
type Prediction struct {
	Class       int     `json:"class"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Confidence  float64 `json:"confidence"`
}

// Result is the input table with the prediction and confidence columns appended.
type Result struct {
	Columns     []string       `json:"columns"`
	Rows        [][]string     `json:"rows"`
	Predictions []Prediction   `json:"predictions"`
	Imputed     map[string]int `json:"imputed"`
}

// ImputedTotal returns the number of cells filled by the imputer.
func (r *Result) ImputedTotal() int {
	total := 0
	for _, n := range r.Imputed {
		total += n
	}
	return total
}

// LabelFor maps a predicted class to its display label.
func LabelFor(class int) string {
	if class == 1 {
		return LabelPotable
	}
	return LabelNotPotable
}
