package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrTooManyRows      = errors.New("too many rows")
	ErrNoRows           = errors.New("no data rows")
	ErrMissingColumn    = errors.New("missing required column")
	ErrUnexpectedColumn = errors.New("unexpected column")
	ErrNotNumeric       = errors.New("value is not numeric")
)

// InputFormatError 上传文件无法解析为表格，或缺少必需列
type InputFormatError struct {
	Reason string
	Line   int // 1-based line in the file, 0 when not tied to a line
	Err    error
}

func (e *InputFormatError) Error() string {
	msg := "invalid input: " + e.Reason
	if e.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, e.Line)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InputFormatError) Unwrap() error { return e.Err }

// PreprocessingError 数据与模型的输入要求不符
type PreprocessingError struct {
	Stage  string // schema, parse, impute, scale, classify
	Row    int    // 1-based data row, 0 when not tied to a row
	Column string
	Err    error
}

func (e *PreprocessingError) Error() string {
	msg := "preprocessing failed at " + e.Stage
	if e.Row > 0 {
		msg = fmt.Sprintf("%s, row %d", msg, e.Row)
	}
	if e.Column != "" {
		msg = fmt.Sprintf("%s, column %q", msg, e.Column)
	}
	return msg + ": " + e.Err.Error()
}

func (e *PreprocessingError) Unwrap() error { return e.Err }
