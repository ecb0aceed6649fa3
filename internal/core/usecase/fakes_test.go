package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/docudex/docudex-api/internal/core/domain"
)

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStubClock(now time.Time) *stubClock {
	return &stubClock{now: now.UTC()}
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storageFake struct {
	mu        sync.Mutex
	objects   map[string][]byte
	saveErr   error
	deleteErr error
	deleted   []string
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string][]byte)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) (int64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return int64(len(raw)), nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "open object", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *storageFake) Locate(key string) string { return "/uploads/" + key }

func (f *storageFake) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

type queueFake struct {
	mu       sync.Mutex
	tasks    []domain.ClassificationTask
	err      error
	capacity int
}

func (f *queueFake) PublishClassification(_ context.Context, task domain.ClassificationTask) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.capacity > 0 && len(f.tasks) >= f.capacity {
		return domain.WrapError(domain.ErrTemporary, "publish", errors.New("queue full"))
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *queueFake) SubscribeClassification(context.Context, func(context.Context, domain.ClassificationTask) error) error {
	return errors.New("not implemented")
}

type classifierFake struct {
	result    domain.ClassificationResult
	err       error
	panicWith any
	calls     []string
}

func (f *classifierFake) Classify(_ context.Context, documentID, fileLocation string) (domain.ClassificationResult, error) {
	f.calls = append(f.calls, documentID+"@"+fileLocation)
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	if f.err != nil {
		return domain.ClassificationResult{}, f.err
	}
	return f.result, nil
}

type notifierFake struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func (f *notifierFake) Notify(_ context.Context, notification domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, notification)
}

func (f *notifierFake) ofType(kind domain.NotificationType) []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, n := range f.notifications {
		if n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

type auditFake struct {
	entries []domain.AuditEntry
	err     error
}

func (f *auditFake) Record(_ context.Context, entry domain.AuditEntry) error {
	f.entries = append(f.entries, entry)
	return f.err
}
