package archive

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/ManuelReschke/PayFox/internal/pkg/cache"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey      = "archive_queue"
	popTimeout    = 5 * time.Second
	uploadTimeout = 30 * time.Second
)

// Job is one payload waiting to be archived. Payload travels base64-encoded
// through the JSON envelope in Redis.
type Job struct {
	ID         string    `json:"id"`
	Provider   string    `json:"provider"`
	Payload    []byte    `json:"payload"`
	ReceivedAt time.Time `json:"received_at"`
}

// Enqueue pushes a payload onto the archive queue. Callers treat failures as
// best-effort: the payload is already durable in webhook_events, the archive
// copy is an audit convenience.
func Enqueue(provider string, payload []byte) (string, error) {
	job := Job{
		ID:         uuid.NewString(),
		Provider:   provider,
		Payload:    append([]byte(nil), payload...),
		ReceivedAt: time.Now(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	if err := cache.GetClient().LPush(context.Background(), queueKey, data).Err(); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Worker drains the archive queue and uploads payloads to S3.
type Worker struct {
	client  *Client
	workers int
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewWorker creates an archive worker pool.
func NewWorker(client *Client, workers int) *Worker {
	if workers <= 0 {
		workers = 2
	}
	return &Worker{
		client:  client,
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker goroutines.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	log.Infof("[Archive] Starting %d workers", w.workers)

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(i)
	}
}

// Stop stops the workers and waits for in-flight uploads.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
	w.wg.Wait()
	log.Info("[Archive] All workers stopped")
}

func (w *Worker) run(id int) {
	defer w.wg.Done()
	client := cache.GetClient()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		res, err := client.BRPop(context.Background(), popTimeout, queueKey).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				log.Errorf("[Archive] worker %d: queue pop failed: %v", id, err)
				time.Sleep(time.Second)
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			log.Errorf("[Archive] worker %d: dropping unparseable job: %v", id, err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
		key := w.client.config.ObjectKey(job.Provider, job.ID, job.ReceivedAt)
		if err := w.client.PutPayload(ctx, key, job.Payload); err != nil {
			log.Errorf("[Archive] worker %d: upload of job %s failed: %v", id, job.ID, err)
			// Requeue once at the tail; a poisoned job cycles at queue pace
			// rather than blocking the head.
			_ = client.LPush(context.Background(), queueKey, res[1]).Err()
			time.Sleep(time.Second)
		}
		cancel()
	}
}

// StartFromEnv wires the archive worker from environment configuration.
// Returns nil when archiving is disabled.
func StartFromEnv() *Worker {
	cfg, err := LoadConfig()
	if err != nil {
		log.Errorf("[Archive] invalid configuration: %v", err)
		return nil
	}
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := NewClient(cfg)
	if err != nil {
		log.Errorf("[Archive] client setup failed: %v", err)
		return nil
	}
	worker := NewWorker(client, 2)
	worker.Start()
	return worker
}
