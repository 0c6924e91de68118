package ingress

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// maxPayloadBytes caps how much of a webhook POST body is read.
const maxPayloadBytes = 1 << 20

// dedupCapacity bounds the message-id set: at-most-once handler invocation
// holds within a process lifetime, which is all the channel's at-least-once
// delivery needs.
const dedupCapacity = 4096

// Config tunes the HTTP surface and the worker pool.
type Config struct {
	Addr        string
	VerifyToken string
	Workers     int
	QueueSize   int
}

// Ingress owns the webhook HTTP server and the intake worker pool.
type Ingress struct {
	cfg       Config
	processor *Processor
	logger    *slog.Logger

	server *http.Server
	queue  chan Event
	dedup  *dedupSet
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates the ingress. The processor runs every accepted message.
func New(cfg Config, processor *Processor, logger *slog.Logger) *Ingress {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	return &Ingress{
		cfg:       cfg,
		processor: processor,
		logger:    logger.With("component", "ingress"),
		queue:     make(chan Event, cfg.QueueSize),
		dedup:     newDedupSet(dedupCapacity),
	}
}

// Start brings up the workers and the HTTP server. The worker pool detaches
// from ctx's cancellation so queued messages can drain after a shutdown
// signal, up to Stop's grace period.
func (i *Ingress) Start(ctx context.Context) {
	i.ctx, i.cancel = context.WithCancel(context.WithoutCancel(ctx))

	for n := 0; n < i.cfg.Workers; n++ {
		i.wg.Add(1)
		go i.worker()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", i.handleWebhook)
	mux.HandleFunc("/health", i.handleHealth)

	i.server = &http.Server{
		Addr:    i.cfg.Addr,
		Handler: securityHeaders(mux),
	}
	go func() {
		if err := i.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			i.logger.Error("ingress server error", "error", err)
		}
	}()
	i.logger.Info("ingress started", "addr", i.cfg.Addr, "workers", i.cfg.Workers)
}

// Stop shuts down the HTTP server and drains queued work until grace runs
// out. Unprocessed messages are abandoned; the channel redelivers.
func (i *Ingress) Stop(grace time.Duration) {
	deadline, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	handlersDone := true
	if i.server != nil {
		if err := i.server.Shutdown(deadline); err != nil {
			i.logger.Warn("ingress shutdown", "error", err)
			handlersDone = false
		}
	}
	// Closing the queue is only safe once every handler has returned, which
	// a clean Shutdown guarantees. After a timed-out shutdown the queue
	// stays open; cancel below unblocks any handler still waiting to
	// enqueue.
	if handlersDone {
		close(i.queue)
	}

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		i.logger.Info("ingress stopped")
	case <-deadline.Done():
		i.logger.Warn("ingress drain timed out, abandoning queued messages")
	}
	i.cancel()
}

// handleWebhook serves GET verification and POST intake on one path.
func (i *Ingress) handleWebhook(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		i.handleVerify(w, r)
	case http.MethodPost:
		i.handleReceive(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleVerify answers the hub handshake: echo the challenge when the mode
// and token match, 403 otherwise.
func (i *Ingress) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == i.cfg.VerifyToken {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		i.logger.Info("webhook verified")
		return
	}
	i.logger.Warn("webhook verification rejected", "mode", mode)
	w.WriteHeader(http.StatusForbidden)
}

// handleReceive acknowledges a payload as soon as it parses; processing
// happens on the worker pool. Only a syntactically invalid payload gets a
// 400; per-message failures never surface to the channel.
func (i *Ingress) handleReceive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	events, err := ParsePayload(body)
	if err != nil {
		i.logger.Debug("rejected webhook payload", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	for _, ev := range events {
		if ev.Kind == EventStatus || ev.Kind == EventUnknown {
			continue
		}
		if !i.dedup.Add(ev.MessageID) {
			i.logger.Debug("duplicate delivery dropped", "message_id", ev.MessageID)
			continue
		}
		select {
		case i.queue <- ev:
		case <-r.Context().Done():
			return
		case <-i.ctx.Done():
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (i *Ingress) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// worker drains the queue until it closes.
func (i *Ingress) worker() {
	defer i.wg.Done()
	for ev := range i.queue {
		i.processor.Process(i.ctx, ev)
	}
}

// securityHeaders is the standard response-header middleware.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// dedupSet is a bounded first-in-first-out set of message ids.
type dedupSet struct {
	mu    sync.Mutex
	seen  map[string]bool
	order []string
	cap   int
}

func newDedupSet(capacity int) *dedupSet {
	return &dedupSet{
		seen: make(map[string]bool, capacity),
		cap:  capacity,
	}
}

// Add records an id, returning false when it was already present. The
// oldest id is evicted once the set is full.
func (d *dedupSet) Add(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[id] {
		return false
	}
	if len(d.order) >= d.cap {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, oldest)
	}
	d.seen[id] = true
	d.order = append(d.order, id)
	return true
}
