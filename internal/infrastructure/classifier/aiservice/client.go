package aiservice

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/infrastructure/resilience"
)

// Client calls the document classification service's POST /process endpoint.
// Per-call deadlines come from the caller's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	// HTTPTimeout is a hard upper bound on any single request.
	HTTPTimeout        time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Client {
	timeout := options.HTTPTimeout
	if timeout <= 0 {
		timeout = 150 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type processRequest struct {
	DocumentID string `json:"documentId,omitempty"`
	FilePath   string `json:"filePath"`
}

// Classify sends the file location to the service. An empty documentID is an
// ad-hoc classification that the service does not associate with a row.
func (c *Client) Classify(ctx context.Context, documentID, fileLocation string) (domain.ClassificationResult, error) {
	request := processRequest{DocumentID: documentID, FilePath: fileLocation}
	call := func(callCtx context.Context) (domain.ClassificationResult, error) {
		var result domain.ClassificationResult
		if err := c.postJSON(callCtx, "/process", request, &result, "process"); err != nil {
			return domain.ClassificationResult{}, err
		}
		return normalizeResult(result), nil
	}

	result, err := resilience.Call(ctx, c.executor, "classifier.process", call, classifyServiceError)
	if err != nil {
		return domain.ClassificationResult{}, wrapTemporaryIfNeeded("classify document", err)
	}
	return result, nil
}

func normalizeResult(result domain.ClassificationResult) domain.ClassificationResult {
	if result.Extraction.Fields == nil {
		result.Extraction.Fields = map[string]domain.ExtractedField{}
	}
	if result.ProcessingStatus == "" {
		result.ProcessingStatus = domain.ProcessingSuccess
	}
	return result
}
