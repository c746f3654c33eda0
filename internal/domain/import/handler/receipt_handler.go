package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/receipt-intake/internal/domain/categorization"
	"github.com/FACorreiaa/receipt-intake/internal/domain/import/service"
	"github.com/FACorreiaa/receipt-intake/internal/domain/plan"
	"github.com/FACorreiaa/receipt-intake/internal/domain/receipt"
	"github.com/FACorreiaa/receipt-intake/pkg/cache"
	"github.com/FACorreiaa/receipt-intake/pkg/middleware"
	"github.com/FACorreiaa/receipt-intake/pkg/money"
)

const (
	fileField     = "file"
	budgetField   = "budget"
	currencyField = "currency"

	// DefaultMaxUploadBytes caps the multipart body when no limit is configured.
	DefaultMaxUploadBytes = 20 << 20
)

var cacheNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/FACorreiaa/receipt-intake/request"))

// Ingester runs the pipeline for one upload.
type Ingester interface {
	Ingest(ctx context.Context, u receipt.Upload, opts service.Options) (*service.Result, error)
}

// ReceiptHandler serves receipt uploads over HTTP
type ReceiptHandler struct {
	svc            Ingester
	cache          cache.Cache[*service.Result]
	maxUploadBytes int64
	currency       string
	logger         *slog.Logger
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(svc Ingester, logger *slog.Logger) *ReceiptHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptHandler{
		svc:            svc,
		maxUploadBytes: DefaultMaxUploadBytes,
		currency:       money.USD,
		logger:         logger,
	}
}

// WithCache memoizes results for identical requests
func (h *ReceiptHandler) WithCache(c cache.Cache[*service.Result]) *ReceiptHandler {
	h.cache = c
	return h
}

// WithMaxUploadBytes limits the request body size
func (h *ReceiptHandler) WithMaxUploadBytes(n int64) *ReceiptHandler {
	if n > 0 {
		h.maxUploadBytes = n
	}
	return h
}

// WithCurrency sets the default currency used for display totals
func (h *ReceiptHandler) WithCurrency(code string) *ReceiptHandler {
	if code != "" {
		h.currency = strings.ToUpper(code)
	}
	return h
}

// Register mounts the handler routes on mux.
func (h *ReceiptHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/receipts", h.Upload)
}

// RecordView is a record with its expenses and a formatted total.
type RecordView struct {
	service.Analysis
	DisplayTotal string `json:"displayTotal"`
}

// UploadResponse is the JSON body returned for a successful upload.
type UploadResponse struct {
	Fingerprint string                                  `json:"fingerprint"`
	Source      receipt.Source                          `json:"source"`
	Records     []RecordView                            `json:"records"`
	Impact      map[categorization.Category]plan.Impact `json:"impact,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Upload accepts a multipart form with a file field and an optional budget
// field holding {category: {allocated, spent}} JSON.
func (h *ReceiptHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	upload, err := readUpload(r)
	if err != nil {
		middleware.WriteJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: string(receipt.KindIO)})
		return
	}

	budgetRaw := strings.TrimSpace(r.FormValue(budgetField))
	opts, err := parseBudget(budgetRaw)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.ingest(r.Context(), upload, budgetRaw, opts)
	if err != nil {
		status := StatusFor(err)
		kind, _ := receipt.KindOf(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("failed to ingest receipt", slog.String("upload", upload.Name()), slog.Any("error", err))
		}
		middleware.WriteJSON(w, status, errorResponse{Error: err.Error(), Kind: string(kind)})
		return
	}

	currency := h.currency
	if c := strings.TrimSpace(r.FormValue(currencyField)); c != "" {
		currency = strings.ToUpper(c)
	}
	middleware.WriteJSON(w, http.StatusOK, NewUploadResponse(result, currency))
}

func (h *ReceiptHandler) ingest(ctx context.Context, u receipt.Upload, budgetRaw string, opts service.Options) (*service.Result, error) {
	if h.cache == nil {
		return h.svc.Ingest(ctx, u, opts)
	}
	key := requestKey(u, budgetRaw)
	return h.cache.Get(ctx, key, func(ctx context.Context) (*service.Result, error) {
		return h.svc.Ingest(ctx, u, opts)
	})
}

// NewUploadResponse formats a pipeline result for the wire.
func NewUploadResponse(result *service.Result, currency string) UploadResponse {
	resp := UploadResponse{
		Fingerprint: result.Fingerprint,
		Source:      result.Source,
		Records:     make([]RecordView, 0, len(result.Records)),
		Impact:      result.Impact,
	}
	for _, a := range result.Records {
		resp.Records = append(resp.Records, RecordView{
			Analysis:     a,
			DisplayTotal: money.Format(a.Record.Total, currency),
		})
	}
	return resp
}

// StatusFor maps pipeline error kinds to HTTP status codes.
func StatusFor(err error) int {
	kind, ok := receipt.KindOf(err)
	if !ok {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}
	switch kind {
	case receipt.KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case receipt.KindParse:
		return http.StatusUnprocessableEntity
	case receipt.KindIO:
		return http.StatusBadRequest
	case receipt.KindOCRFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func readUpload(r *http.Request) (receipt.Upload, error) {
	file, header, err := r.FormFile(fileField)
	if err != nil {
		return receipt.Upload{}, fmt.Errorf("missing %q file field", fileField)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return receipt.Upload{}, fmt.Errorf("failed to read upload: %w", err)
	}

	return receipt.Upload{
		Content:  data,
		MIMEType: header.Header.Get("Content-Type"),
		Filename: header.Filename,
	}, nil
}

func parseBudget(raw string) (service.Options, error) {
	if raw == "" {
		return service.Options{}, nil
	}

	budget, err := plan.ParseBudget([]byte(raw))
	if err != nil {
		return service.Options{}, err
	}
	return service.Options{Budget: budget}, nil
}

// requestKey identifies a request by everything that influences its result.
func requestKey(u receipt.Upload, budgetRaw string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(u.MIMEType))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(u.Name()))
	b.WriteByte('|')
	b.WriteString(budgetRaw)
	b.WriteByte('|')
	b.Write(u.Content)
	return uuid.NewSHA1(cacheNamespace, []byte(b.String())).String()
}
