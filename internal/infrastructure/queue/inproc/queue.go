package inproc

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/docudex/docudex-api/internal/core/domain"
)

const DefaultBufferSize = 256

var errQueueFull = errors.New("classification queue is full")

// Queue hands classification tasks to worker goroutines in the same process.
// Publish never blocks: a full buffer is reported as a temporary failure so the
// caller can apply its fallback.
type Queue struct {
	tasks   chan domain.ClassificationTask
	workers int
	logger  *slog.Logger
}

func New(bufferSize, workers int, logger *slog.Logger) *Queue {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		tasks:   make(chan domain.ClassificationTask, bufferSize),
		workers: workers,
		logger:  logger,
	}
}

func (q *Queue) PublishClassification(ctx context.Context, task domain.ClassificationTask) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.tasks <- task:
		return nil
	default:
		return domain.WrapError(domain.ErrTemporary, "inproc publish", errQueueFull)
	}
}

// SubscribeClassification runs the workers until ctx is cancelled, then
// processes whatever is still buffered before returning.
func (q *Queue) SubscribeClassification(ctx context.Context, handler func(context.Context, domain.ClassificationTask) error) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.work(ctx, handler)
		}()
	}
	wg.Wait()
	return nil
}

func (q *Queue) work(ctx context.Context, handler func(context.Context, domain.ClassificationTask) error) {
	handlerCtx := context.WithoutCancel(ctx)
	for {
		select {
		case task := <-q.tasks:
			q.handle(handlerCtx, handler, task)
		case <-ctx.Done():
			for {
				select {
				case task := <-q.tasks:
					q.handle(handlerCtx, handler, task)
				default:
					return
				}
			}
		}
	}
}

func (q *Queue) handle(ctx context.Context, handler func(context.Context, domain.ClassificationTask) error, task domain.ClassificationTask) {
	if err := handler(ctx, task); err != nil {
		q.logger.Error("classification_handler_failed", "document_id", task.DocumentID, "error", err)
	}
}

// Pending reports the number of buffered tasks.
func (q *Queue) Pending() int {
	return len(q.tasks)
}
