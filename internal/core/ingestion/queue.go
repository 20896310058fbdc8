package ingestion

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jinford/doc-rag/internal/core/document"
)

const (
	// DefaultQueueWorkerCount はデフォルトの取り込みワーカー数（I/O バウンド）
	DefaultQueueWorkerCount = 4
	// DefaultQueueCapacity は取り込みキューのデフォルト容量
	DefaultQueueCapacity = 64
)

// Job は取り込みキューに投入される処理単位
type Job struct {
	Document document.Document
	FilePath string
}

// Queue はドキュメント取り込みをバックグラウンドで処理するワーカープール
// 同一ドキュメントの二重投入はシングルフライトで抑止される
type Queue struct {
	service *Service
	jobs    chan Job
	logger  *slog.Logger

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}

	wg sync.WaitGroup
}

type queueOptions struct {
	workers  int
	capacity int
	logger   *slog.Logger
}

// QueueOption は Queue のオプション設定
type QueueOption func(*queueOptions)

// WithQueueWorkers はワーカー数を設定する
func WithQueueWorkers(workers int) QueueOption {
	return func(o *queueOptions) {
		if workers > 0 {
			o.workers = workers
		}
	}
}

// WithQueueCapacity はキュー容量を設定する
func WithQueueCapacity(capacity int) QueueOption {
	return func(o *queueOptions) {
		if capacity > 0 {
			o.capacity = capacity
		}
	}
}

// WithQueueLogger は Queue にロガーを設定する
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(o *queueOptions) {
		o.logger = logger
	}
}

// NewQueue は Queue を生成し、ワーカーを起動する
// ctx のキャンセルで全ワーカーが停止する
func NewQueue(ctx context.Context, service *Service, opts ...QueueOption) *Queue {
	options := &queueOptions{
		workers:  DefaultQueueWorkerCount,
		capacity: DefaultQueueCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	q := &Queue{
		service:  service,
		jobs:     make(chan Job, options.capacity),
		logger:   options.logger,
		inFlight: make(map[uuid.UUID]struct{}),
	}

	for i := 0; i < options.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}

	return q
}

// Enqueue は取り込みジョブを投入し、即座に制御を返す
// 同一ドキュメントが処理中・処理待ちの場合とキューが満杯の場合は false を返す
func (q *Queue) Enqueue(job Job) bool {
	q.mu.Lock()
	if _, exists := q.inFlight[job.Document.ID]; exists {
		q.mu.Unlock()
		q.logger.Warn("ドキュメントは既に処理中のためスキップします",
			slog.String("document_id", job.Document.ID.String()),
		)
		return false
	}
	q.inFlight[job.Document.ID] = struct{}{}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return true
	default:
		q.release(job.Document.ID)
		q.logger.Warn("取り込みキューが満杯です",
			slog.String("document_id", job.Document.ID.String()),
		)
		return false
	}
}

// Close は新規投入を締め切り、残りのジョブの完了を待つ
func (q *Queue) Close() {
	close(q.jobs)
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			if err := q.service.Process(ctx, job.Document, job.FilePath); err != nil {
				q.logger.Error("ドキュメントの処理に失敗しました",
					slog.String("document_id", job.Document.ID.String()),
					slog.String("error", err.Error()),
				)
			}
			q.release(job.Document.ID)
		}
	}
}

func (q *Queue) release(id uuid.UUID) {
	q.mu.Lock()
	delete(q.inFlight, id)
	q.mu.Unlock()
}
