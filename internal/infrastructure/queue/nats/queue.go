package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/docudex/docudex-api/internal/core/domain"
	"github.com/docudex/docudex-api/internal/infrastructure/resilience"
)

const (
	DefaultSubject    = "documents.classify"
	DefaultQueueGroup = "classifiers"
)

type Queue struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
	workers    int
	executor   *resilience.Executor
	logger     *slog.Logger
}

type Options struct {
	Subject              string
	QueueGroup           string
	Concurrency          int
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("docudex"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return newQueue(conn, options, logger), nil
}

func newQueue(conn *nats.Conn, options Options, logger *slog.Logger) *Queue {
	subject := options.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	group := options.QueueGroup
	if group == "" {
		group = DefaultQueueGroup
	}
	workers := options.Concurrency
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		conn:       conn,
		subject:    subject,
		queueGroup: group,
		workers:    workers,
		executor:   options.ResilienceExecutor,
		logger:     logger,
	}
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

// Ping reports whether the connection is usable, for readiness checks.
func (q *Queue) Ping(context.Context) error {
	if q.conn == nil || !q.conn.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (q *Queue) PublishClassification(ctx context.Context, task domain.ClassificationTask) error {
	payload, err := encodeTask(task)
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeClassification blocks until ctx is cancelled, then drains the
// subscription and waits for running handlers.
func (q *Queue) SubscribeClassification(ctx context.Context, handler func(context.Context, domain.ClassificationTask) error) error {
	slots := make(chan struct{}, q.workers)
	var running sync.WaitGroup

	sub, err := q.conn.QueueSubscribe(q.subject, q.queueGroup, func(msg *nats.Msg) {
		task, err := decodeTask(msg.Data)
		if err != nil {
			q.logger.Error("classification_task_malformed", "error", err, "payload_bytes", len(msg.Data))
			return
		}
		slots <- struct{}{}
		running.Add(1)
		go func() {
			defer func() {
				<-slots
				running.Done()
			}()
			// Handlers own their deadlines; shutdown must not cancel a task mid-write.
			if err := handler(context.WithoutCancel(ctx), task); err != nil {
				q.logger.Error("classification_handler_failed", "document_id", task.DocumentID, "error", err)
			}
		}()
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	waitDrained(sub, drainTimeout)
	running.Wait()
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

const drainTimeout = 30 * time.Second

// waitDrained returns once no more messages will be delivered to sub.
func waitDrained(sub *nats.Subscription, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for sub.IsValid() && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
}

func encodeTask(task domain.ClassificationTask) ([]byte, error) {
	payload, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode classification task: %w", err)
	}
	return payload, nil
}

func decodeTask(payload []byte) (domain.ClassificationTask, error) {
	var task domain.ClassificationTask
	if err := json.Unmarshal(payload, &task); err != nil {
		return domain.ClassificationTask{}, fmt.Errorf("decode classification task: %w", err)
	}
	if task.DocumentID == "" {
		return domain.ClassificationTask{}, fmt.Errorf("decode classification task: missing documentId")
	}
	return task, nil
}
