package docgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/guardline/payroll-engine/internal/core/period"
)

// RenderRequest asks the render service for one statutory document, a
// challan or return form for an obligation.
type RenderRequest struct {
	ObligationID  string          `json:"obligation_id"`
	StatutoryType string          `json:"statutory_type"`
	Period        period.Period   `json:"period"`
	Amount        decimal.Decimal `json:"amount"`
	Format        string          `json:"format,omitempty"`
}

// RenderResult is the stored reference to a generated document.
type RenderResult struct {
	DocumentRef string    `json:"document_ref"`
	GeneratedAt time.Time `json:"generated_at"`
}

type RenderJob struct {
	Request RenderRequest
}

type Worker struct {
	ID         int
	WorkerPool chan chan RenderJob
	JobChannel chan RenderJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan RenderJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan RenderJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(RenderJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			w.WorkerPool <- w.JobChannel

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker rendering document", "worker_id", w.ID, "obligation_id", job.Request.ObligationID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// Client talks to the document render service. Generate is synchronous for
// the filing workflow; QueueRender feeds the background pool for period-end
// bulk generation, delivering results to the callback URL.
type Client struct {
	renderURL     string
	apiKey        string
	callbackURL   string
	renderTimeout time.Duration
	logger        *slog.Logger

	jobQueue   chan RenderJob
	workerPool chan chan RenderJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

type Config struct {
	RenderURL     string
	APIKey        string
	CallbackURL   string
	RenderTimeout time.Duration
	MaxWorkers    int
	JobQueueSize  int
}

func NewClient(config Config, logger *slog.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	jobQueueSize := config.JobQueueSize
	if jobQueueSize <= 0 {
		jobQueueSize = 100
	}

	renderTimeout := config.RenderTimeout
	if renderTimeout <= 0 {
		renderTimeout = 15 * time.Second
	}

	client := &Client{
		renderURL:     config.RenderURL,
		apiKey:        config.APIKey,
		callbackURL:   config.CallbackURL,
		renderTimeout: renderTimeout,
		logger:        logger,

		maxWorkers: maxWorkers,
		jobQueue:   make(chan RenderJob, jobQueueSize),
		workerPool: make(chan chan RenderJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	client.startWorkerPool()

	return client
}

func (c *Client) startWorkerPool() {
	c.once.Do(func() {
		for i := 0; i < c.maxWorkers; i++ {
			worker := NewWorker(i, c.workerPool, c.logger)
			worker.Start(c.ctx, &c.wg, c.processRenderJob)
		}

		go c.dispatch()

		c.logger.Info("docgen worker pool started",
			"max_workers", c.maxWorkers,
			"queue_size", cap(c.jobQueue))
	})
}

func (c *Client) dispatch() {
	defer c.wg.Done()
	c.wg.Add(1)

	for {
		select {
		case job := <-c.jobQueue:
			select {
			case jobChannel := <-c.workerPool:
				select {
				case jobChannel <- job:
				case <-c.ctx.Done():
					c.logger.Info("dispatcher shutting down")
					return
				}
			case <-c.ctx.Done():
				c.logger.Info("dispatcher shutting down")
				return
			}
		case <-c.ctx.Done():
			c.logger.Info("dispatcher shutting down")
			return
		}
	}
}

func (c *Client) Shutdown() {
	c.logger.Info("shutting down docgen client")
	c.cancel()
	c.wg.Wait()
	c.logger.Info("docgen client shutdown complete")
}

// Generate renders one document synchronously. With no render service
// configured it falls back to a locally-issued reference so development
// environments work offline.
func (c *Client) Generate(req RenderRequest) (RenderResult, error) {
	if c.renderURL == "" {
		ref := fmt.Sprintf("local/%s/%s/%s", req.StatutoryType, req.Period.String(), uuid.New().String())
		c.logger.Info("docgen: issued local document reference",
			"obligation_id", req.ObligationID,
			"document_ref", ref)
		return RenderResult{DocumentRef: ref, GeneratedAt: time.Now()}, nil
	}

	ref, err := c.renderWithService(req)
	if err != nil {
		c.logger.Error("docgen: render failed",
			"obligation_id", req.ObligationID,
			"statutory_type", req.StatutoryType,
			"error", err)
		return RenderResult{}, err
	}

	return RenderResult{DocumentRef: ref, GeneratedAt: time.Now()}, nil
}

// QueueRender enqueues a render for the background pool. Rejected when the
// queue is full rather than blocking a caller.
func (c *Client) QueueRender(req RenderRequest) error {
	job := RenderJob{Request: req}

	select {
	case c.jobQueue <- job:
		c.logger.Info("docgen: render job queued",
			"obligation_id", req.ObligationID,
			"queue_length", len(c.jobQueue))
		return nil
	default:
		c.logger.Warn("docgen: job queue full, rejecting render",
			"obligation_id", req.ObligationID,
			"queue_capacity", cap(c.jobQueue))
		return fmt.Errorf("render queue full, please try again later")
	}
}

func (c *Client) renderWithService(req RenderRequest) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal render request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.renderTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.renderURL+"/documents", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	client := &http.Client{Timeout: c.renderTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("render service returned status %d", resp.StatusCode)
	}

	var apiResponse struct {
		Data struct {
			DocumentRef string `json:"document_ref"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("failed to decode render response: %w", err)
	}

	return apiResponse.Data.DocumentRef, nil
}

func (c *Client) processRenderJob(job RenderJob) {
	c.logger.Info("processing render job", "obligation_id", job.Request.ObligationID)

	result, err := c.Generate(job.Request)
	if err != nil {
		c.sendCallback(job.Request, "", err.Error())
		return
	}

	c.sendCallback(job.Request, result.DocumentRef, "")
}

func (c *Client) sendCallback(req RenderRequest, documentRef, failureReason string) {
	if c.callbackURL == "" {
		return
	}

	select {
	case <-c.ctx.Done():
		c.logger.Info("render callback cancelled", "obligation_id", req.ObligationID)
		return
	default:
	}

	payload := map[string]interface{}{
		"obligation_id":  req.ObligationID,
		"statutory_type": req.StatutoryType,
		"period":         req.Period.String(),
		"document_ref":   documentRef,
	}
	if failureReason != "" {
		payload["failure_reason"] = failureReason
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		c.logger.Error("docgen: failed to marshal callback", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, 10*time.Second)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.callbackURL, bytes.NewBuffer(jsonData))
	if err != nil {
		c.logger.Error("docgen: failed to create callback request",
			"error", err,
			"obligation_id", req.ObligationID)
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{}
	resp, err := client.Do(httpReq)
	if err != nil {
		c.logger.Error("docgen: callback failed",
			"error", err,
			"obligation_id", req.ObligationID)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("docgen: callback returned error status",
			"obligation_id", req.ObligationID,
			"status_code", resp.StatusCode)
	}
}
