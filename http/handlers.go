package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"potability/ml"
	"potability/monitoring"
	"potability/pipeline"
	"potability/view"
)

// uploadField 上传表单的文件字段名
const uploadField = "file"

// Predictor 对上传的表格执行推理
type Predictor interface {
	Predict(ctx context.Context, in *pipeline.Table) (*pipeline.Result, error)
	FeatureNames() []string
	LabelColumn() string
}

// Handlers 持有所有请求共享的只读状态
type Handlers struct {
	predictor Predictor
	presenter view.Presenter
	logger    *zap.Logger
	maxRows   int
	summary   *ml.Summary
	metrics   *monitoring.Metrics
}

// HandlerOptions 处理器选项
type HandlerOptions struct {
	MaxRows int
	// Summary 可选，非空时由 /api/schema 返回
	Summary *ml.Summary
	// Metrics 可选，为空时创建新的收集器
	Metrics *monitoring.Metrics
}

// NewHandlers 创建处理器
func NewHandlers(predictor Predictor, presenter view.Presenter, logger *zap.Logger, opt HandlerOptions) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opt.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	return &Handlers{
		predictor: predictor,
		presenter: presenter,
		logger:    logger,
		maxRows:   opt.MaxRows,
		summary:   opt.Summary,
		metrics:   metrics,
	}
}

func RegisterHandlers(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /predict", h.handlePredictPage)
	mux.HandleFunc("POST /api/predict", h.handlePredictAPI)
	mux.HandleFunc("GET /api/schema", h.handleSchema)
	mux.HandleFunc("GET /api/metrics", h.handleMetricsJSON)
	mux.HandleFunc("GET /metrics", h.handleMetricsPrometheus)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.respondPage(w, r, http.StatusOK, nil, nil, nil)
}

// handlePredictPage 处理网页表单上传，始终返回完整页面
func (h *Handlers) handlePredictPage(w http.ResponseWriter, r *http.Request) {
	table, result, err := h.predict(r, false)
	if err != nil {
		h.respondPage(w, r, statusFor(err), table, nil, err)
		return
	}
	h.respondPage(w, r, http.StatusOK, table, result, nil)
}

// handlePredictAPI 返回JSON，或在请求CSV时返回附件
func (h *Handlers) handlePredictAPI(w http.ResponseWriter, r *http.Request) {
	_, result, err := h.predict(r, true)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if !wantsCSV(r) {
		respondJSON(w, http.StatusOK, result)
		return
	}

	var buf bytes.Buffer
	if err := result.WriteCSV(&buf); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", pipeline.CSVContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": pipeline.DownloadFilename}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// predict 读取上传并推理。解析成功后失败时仍返回表格，用于页面预览
func (h *Handlers) predict(r *http.Request, allowRaw bool) (*pipeline.Table, *pipeline.Result, error) {
	start := time.Now()

	table, err := h.readUpload(r, allowRaw)
	if err != nil {
		h.metrics.RecordFailure(errorType(err), time.Since(start))
		return nil, nil, err
	}

	result, err := h.predictor.Predict(r.Context(), table)
	if err != nil {
		h.metrics.RecordFailure(errorType(err), time.Since(start))
		return table, nil, err
	}

	potable := 0
	for _, p := range result.Predictions {
		if p.Class == 1 {
			potable++
		}
	}
	h.metrics.RecordPrediction(len(result.Rows), potable, result.ImputedTotal(), time.Since(start))
	return table, result, nil
}

func (h *Handlers) handleMetricsJSON(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.metrics.Snapshot())
}

func (h *Handlers) handleMetricsPrometheus(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.metrics.ExportPrometheus(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Write(buf.Bytes())
}

func (h *Handlers) handleSchema(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"features":     h.predictor.FeatureNames(),
		"label_column": h.predictor.LabelColumn(),
	}
	if h.summary != nil {
		response["artifacts"] = h.summary
	}
	respondJSON(w, http.StatusOK, response)
}

// readUpload 解析上传的CSV。allowRaw 为真时接受非multipart的原始请求体
func (h *Handlers) readUpload(r *http.Request, allowRaw bool) (*pipeline.Table, error) {
	opt := pipeline.ReadOptions{MaxRows: h.maxRows}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if !allowRaw {
			return nil, &pipeline.InputFormatError{Reason: "expected a multipart upload with a \"" + uploadField + "\" field"}
		}
		return pipeline.ReadCSV(r.Body, opt)
	}

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, tooLarge
		}
		if errors.Is(err, http.ErrMissingFile) {
			return nil, &pipeline.InputFormatError{Reason: "no file uploaded", Err: err}
		}
		return nil, &pipeline.InputFormatError{Reason: "unreadable upload", Err: err}
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		return nil, &pipeline.InputFormatError{Reason: "only .csv files are accepted, got \"" + header.Filename + "\""}
	}
	return pipeline.ReadCSV(file, opt)
}

// respondPage 先渲染到缓冲区，出错时不会输出半个页面
func (h *Handlers) respondPage(w http.ResponseWriter, r *http.Request, status int, in *pipeline.Table, result *pipeline.Result, err error) {
	if err != nil {
		h.logFailure(r, status, err)
		err = errors.New(userMessage(status, err))
	}

	var buf bytes.Buffer
	if renderErr := view.Render(&buf, h.presenter, in, result, err); renderErr != nil {
		h.logger.Error("render page failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(renderErr))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// errorResponse API错误响应
type errorResponse struct {
	Error  string `json:"error"`
	Type   string `json:"type"`
	Stage  string `json:"stage,omitempty"`
	Row    int    `json:"row,omitempty"`
	Column string `json:"column,omitempty"`
	Line   int    `json:"line,omitempty"`
}

func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	h.logFailure(r, status, err)

	response := errorResponse{Error: userMessage(status, err), Type: errorType(err)}
	var formatErr *pipeline.InputFormatError
	var prepErr *pipeline.PreprocessingError
	switch {
	case errors.As(err, &prepErr):
		response.Stage, response.Row, response.Column = prepErr.Stage, prepErr.Row, prepErr.Column
	case errors.As(err, &formatErr):
		response.Line = formatErr.Line
	}
	respondJSON(w, status, response)
}

func (h *Handlers) logFailure(r *http.Request, status int, err error) {
	fields := []zap.Field{
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("prediction failed", fields...)
		return
	}
	h.logger.Info("prediction rejected", fields...)
}

// statusFor 将错误映射为HTTP状态码
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	var formatErr *pipeline.InputFormatError
	var prepErr *pipeline.PreprocessingError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, pipeline.ErrTooManyRows):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &formatErr):
		return http.StatusBadRequest
	case errors.As(err, &prepErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorType(err error) string {
	var tooLarge *http.MaxBytesError
	var formatErr *pipeline.InputFormatError
	var prepErr *pipeline.PreprocessingError
	switch {
	case errors.As(err, &tooLarge), errors.Is(err, pipeline.ErrTooManyRows):
		return "too_large"
	case errors.As(err, &formatErr):
		return "input_format"
	case errors.As(err, &prepErr):
		return "preprocessing"
	default:
		return "internal"
	}
}

// userMessage 内部错误不向用户暴露细节
func userMessage(status int, err error) string {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return "upload exceeds the size limit"
	case status >= http.StatusInternalServerError:
		return "internal error while predicting; see server logs"
	default:
		return err.Error()
	}
}

func wantsCSV(r *http.Request) bool {
	if format := r.URL.Query().Get("format"); format != "" {
		return strings.EqualFold(format, "csv")
	}
	return strings.Contains(r.Header.Get("Accept"), pipeline.CSVContentType)
}

// respondJSON 统一JSON响应
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.Copy(w, &buf)
}
