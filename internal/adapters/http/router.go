package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/core/ports"
	"github.com/docudex/docudex-api/internal/observability/metrics"
)

const (
	apiPrefix           = "/api/v1"
	maxJSONBodyBytes    = 1 << 20
	multipartMemory     = 32 << 20
	backpressureWait    = 250 * time.Millisecond
	defaultMaxFileSize  = domain.DefaultMaxFileSize
	defaultMaxBulkFiles = domain.DefaultMaxBulkFiles
)

type Services struct {
	Ingest        ports.DocumentIngestor
	Documents     ports.DocumentService
	Folders       ports.FolderService
	Shares        ports.ShareService
	Notifications ports.NotificationService
	Workflows     ports.WorkflowService
	Sweeper       ports.StatusSweeper
	Classifier    ports.AdHocClassifier
}

type Options struct {
	MaxFileSize    int64
	MaxBulkFiles   int
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int

	Metrics        *metrics.HTTPServerMetrics
	MetricsHandler http.Handler
	Ready          func(*http.Request) error
}

type Router struct {
	services Services
	verifier ports.TokenVerifier
	options  Options
}

func NewRouter(services Services, verifier ports.TokenVerifier, options Options) *Router {
	if options.MaxFileSize <= 0 {
		options.MaxFileSize = defaultMaxFileSize
	}
	if options.MaxBulkFiles <= 0 {
		options.MaxBulkFiles = defaultMaxBulkFiles
	}
	return &Router{
		services: services,
		verifier: verifier,
		options:  options,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.options.MetricsHandler != nil {
		mux.Handle("GET /metrics", rt.options.MetricsHandler)
	}

	mux.Handle("GET "+apiPrefix+"/documents/stats", rt.authed(rt.documentStats))
	mux.Handle("GET "+apiPrefix+"/documents", rt.authed(rt.listDocuments))
	mux.Handle("POST "+apiPrefix+"/documents/upload", rt.authed(rt.uploadDocument))
	mux.Handle("POST "+apiPrefix+"/documents/upload/bulk", rt.authed(rt.uploadDocuments))
	mux.Handle("GET "+apiPrefix+"/documents/{id}", rt.authed(rt.getDocument))
	mux.Handle("PATCH "+apiPrefix+"/documents/{id}", rt.authed(rt.updateDocument))
	mux.Handle("DELETE "+apiPrefix+"/documents/{id}", rt.authed(rt.deleteDocument))
	mux.Handle("GET "+apiPrefix+"/documents/{id}/download", rt.authed(rt.downloadDocument))
	mux.Handle("POST "+apiPrefix+"/documents/{id}/classify", rt.authed(rt.classifyDocument))

	mux.Handle("POST "+apiPrefix+"/documents/{id}/share", rt.authed(rt.createShare))
	mux.Handle("GET "+apiPrefix+"/documents/{id}/shares", rt.authed(rt.listShares))
	mux.Handle("DELETE "+apiPrefix+"/shares/{token}", rt.authed(rt.revokeShare))
	mux.HandleFunc("GET "+apiPrefix+"/share/{token}", rt.resolveShare)

	mux.Handle("GET "+apiPrefix+"/folders", rt.authed(rt.listFolders))
	mux.Handle("POST "+apiPrefix+"/folders", rt.authed(rt.createFolder))
	mux.Handle("PATCH "+apiPrefix+"/folders/{id}", rt.authed(rt.renameFolder))
	mux.Handle("DELETE "+apiPrefix+"/folders/{id}", rt.authed(rt.deleteFolder))

	mux.Handle("GET "+apiPrefix+"/notifications", rt.authed(rt.listNotifications))
	mux.Handle("PATCH "+apiPrefix+"/notifications/read-all", rt.authed(rt.markAllNotificationsRead))
	mux.Handle("PATCH "+apiPrefix+"/notifications/{id}/read", rt.authed(rt.markNotificationRead))

	mux.Handle("GET "+apiPrefix+"/workflows/templates", rt.authed(rt.listWorkflowTemplates))
	mux.Handle("GET "+apiPrefix+"/workflows", rt.authed(rt.listWorkflows))
	mux.Handle("POST "+apiPrefix+"/workflows", rt.authed(rt.startWorkflow))
	mux.Handle("GET "+apiPrefix+"/workflows/{id}", rt.authed(rt.getWorkflow))
	mux.Handle("PATCH "+apiPrefix+"/workflows/{id}", rt.authed(rt.updateWorkflow))
	// templates/{id} and {id}/checklist overlap as mux patterns, so one handler serves both.
	mux.Handle("GET "+apiPrefix+"/workflows/{id}/{view}", rt.authed(rt.workflowSubresource))

	mux.Handle("POST "+apiPrefix+"/admin/sweep", rt.authed(rt.runSweep))

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.options.MaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst)
	if len(rt.options.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins:   rt.options.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
			ExposedHeaders:   []string{requestIDHeader, "Content-Disposition"},
			AllowCredentials: true,
		}).Handler(handler)
	}
	if rt.options.Metrics != nil {
		handler = rt.options.Metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(handler)
	return handler
}

func (rt *Router) authed(next principalHandler) http.Handler {
	return authenticate(rt.verifier, next)
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.options.Ready != nil {
		if err := rt.options.Ready(r); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) runSweep(w http.ResponseWriter, r *http.Request, principal domain.Principal) {
	if !principal.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required")
		return
	}
	if rt.services.Sweeper == nil {
		writeError(w, http.StatusServiceUnavailable, "status sweep is not configured")
		return
	}
	result, err := rt.services.Sweeper.Run(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":        result.Total(),
		"expired":      result.Expired,
		"expiringSoon": result.ExpiringSoon,
		"current":      result.Current,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	err := decodeOptionalJSON(w, r, dst)
	if errors.Is(err, errEmptyBody) {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", err)
	}
	return err
}

var errEmptyBody = errors.New("request body is required")

// decodeOptionalJSON leaves dst untouched for an empty body and returns errEmptyBody.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err))
	}
	return nil
}
