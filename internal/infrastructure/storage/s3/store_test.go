package s3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/docudex/docudex-api/internal/core/domain"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(server.URL),
		UsePathStyle: true,
		Credentials:  credentials.NewStaticCredentialsProvider("test", "test", ""),
	})
	return NewWithClient(client, "docs", "uploads/")
}

func TestOpenMapsNoSuchKeyToNotFound(t *testing.T) {
	var requestedPath string
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
	})

	_, err := store.Open(context.Background(), "doc-1.pdf")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if requestedPath != "/docs/uploads/doc-1.pdf" {
		t.Fatalf("unexpected request path %q", requestedPath)
	}
}

func TestLocateUsesBucketAndPrefix(t *testing.T) {
	store := NewWithClient(s3.New(s3.Options{Region: "us-east-1"}), "docs", "/uploads/")
	if got := store.Locate("doc-1.pdf"); got != "s3://docs/uploads/doc-1.pdf" {
		t.Fatalf("unexpected location %q", got)
	}
	unprefixed := NewWithClient(s3.New(s3.Options{Region: "us-east-1"}), "docs", "")
	if got := unprefixed.Locate("doc-1.pdf"); got != "s3://docs/doc-1.pdf" {
		t.Fatalf("unexpected location %q", got)
	}
}
