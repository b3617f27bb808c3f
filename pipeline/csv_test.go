package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"
)

func TestReadCSV(t *testing.T) {
	input := "ph, Hardness ,Sulfate\n7.1, 200 ,\n6.5,180,310\n"

	table, err := ReadCSV(strings.NewReader(input), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ph", "Hardness", "Sulfate"}, table.Columns)
	assert.Equal(t, [][]string{{"7.1", "200", ""}, {"6.5", "180", "310"}}, table.Rows)
}

func TestReadCSVSniffsDelimiter(t *testing.T) {
	cases := map[string]string{
		"semicolon": "ph;Hardness\n7,1;200\n",
		"tab":       "ph\tHardness\n7,1\t200\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			table, err := ReadCSV(strings.NewReader(input), ReadOptions{})
			require.NoError(t, err)
			assert.Equal(t, []string{"ph", "Hardness"}, table.Columns)
			assert.Equal(t, []string{"7,1", "200"}, table.Rows[0])
		})
	}
}

func TestReadCSVStripsByteOrderMark(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("\ufeffph,Hardness\n7,200\n"), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "ph", table.Columns[0])
}

func TestReadCSVDecodesUTF16(t *testing.T) {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("ph,Hardness\r\n7,200\r\n")
	require.NoError(t, err)

	table, err := ReadCSV(strings.NewReader(encoded), ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ph", "Hardness"}, table.Columns)
	assert.Equal(t, []string{"7", "200"}, table.Rows[0])
}

func TestReadCSVFormatErrors(t *testing.T) {
	cases := map[string]struct {
		input string
		opt   ReadOptions
	}{
		"empty":     {input: ""},
		"blank":     {input: "\n\n  \n"},
		"ragged":    {input: "a,b\n1,2\n3\n"},
		"quote":     {input: "a,b\n\"1,2\n"},
		"duplicate": {input: "a,b,a\n1,2,3\n"},
		"tooMany":   {input: "a\n1\n2\n3\n", opt: ReadOptions{MaxRows: 2}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tc.input), tc.opt)
			var formatErr *InputFormatError
			require.ErrorAs(t, err, &formatErr)
		})
	}
}

func TestReadCSVReportsLine(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n1,2\n3,4\n5\n"), ReadOptions{})
	var formatErr *InputFormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, 4, formatErr.Line)
	assert.Contains(t, err.Error(), "line 4")
}

func TestReadCSVTooManyRows(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a\n1\n2\n"), ReadOptions{MaxRows: 1})
	assert.ErrorIs(t, err, ErrTooManyRows)

	table, err := ReadCSV(strings.NewReader("a\n1\n2\n"), ReadOptions{MaxRows: 2})
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestReadCSVSampleFile(t *testing.T) {
	f, err := os.Open(filepath.Join("..", "testdata", "artifacts", "water_samples.csv"))
	require.NoError(t, err)
	defer f.Close()

	table, err := ReadCSV(f, ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, table.Columns, 10)
	assert.Len(t, table.Rows, 3)
	assert.Equal(t, "", table.Rows[2][4])
}

func TestWriteCSVQuotesCells(t *testing.T) {
	result := &Result{
		Columns: []string{"note", PredictionColumn, ConfidenceColumn},
		Rows:    [][]string{{`said "hi", left`, LabelPotable, "51.00"}},
	}
	var buf bytes.Buffer
	require.NoError(t, result.WriteCSV(&buf))
	assert.Equal(t, "note,Potability Prediction,Confidence (Potable %)\n\"said \"\"hi\"\", left\",Potable,51.00\n", buf.String())

	parsed, err := ReadCSV(&buf, ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, result.Rows, parsed.Rows)
}

func TestIsMissing(t *testing.T) {
	for _, cell := range []string{"", " ", "NA", "NaN", "nan", "null", "None", "#N/A", "<NA>"} {
		assert.True(t, IsMissing(cell), "%q should be missing", cell)
	}
	for _, cell := range []string{"0", "7.0", "none", "-"} {
		assert.False(t, IsMissing(cell), "%q should not be missing", cell)
	}
}
