// Package stream provides Server-Sent Events fan-out for the live
// emotion feed.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/emostream-io/emostream/pkg/models"
)

const (
	// queueSize bounds the per-client backlog. A client that falls behind
	// loses its oldest events, never the whole connection.
	queueSize = 64

	// writeAttempts bounds retries of a failed client write before the
	// client is dropped.
	writeAttempts = 3

	// retryBackoff is the base delay between write attempts; it doubles
	// per attempt.
	retryBackoff = 50 * time.Millisecond

	// DefaultStaleTimeout is how long the feed may be silent before a
	// synthetic stale event is emitted.
	DefaultStaleTimeout = 2 * time.Second

	// staleConfidence is assigned to synthetic stale events.
	staleConfidence = 0.5
)

// client is one connected SSE consumer with its bounded event queue.
type client struct {
	id    string
	queue chan []byte
	done  chan struct{}
}

// Broadcaster fans the emotion event stream out to SSE clients. Each
// client owns a writer goroutine fed by a bounded drop-oldest queue, so a
// slow consumer never stalls the pipeline or its peers.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]*client
	nextID  int

	staleTimeout time.Duration
	lastEvent    *models.EmotionEvent
	lastSample   time.Time
}

// NewBroadcaster creates a broadcaster. A non-positive staleTimeout falls
// back to the default.
func NewBroadcaster(staleTimeout time.Duration) *Broadcaster {
	if staleTimeout <= 0 {
		staleTimeout = DefaultStaleTimeout
	}
	return &Broadcaster{
		clients:      make(map[string]*client),
		staleTimeout: staleTimeout,
	}
}

// Publish fans a fresh emotion event out to every connected client and
// resets the staleness clock.
func (b *Broadcaster) Publish(ev models.EmotionEvent) {
	b.mu.Lock()
	b.lastEvent = &ev
	b.lastSample = time.Now()
	b.mu.Unlock()

	b.send(ev)
}

// send marshals and enqueues without touching the staleness clock.
func (b *Broadcaster) send(ev models.EmotionEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal stream event")
		return
	}
	message := []byte(fmt.Sprintf("data: %s\n\n", data))

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, c := range b.clients {
		select {
		case <-c.done:
			continue
		default:
		}
		for {
			select {
			case c.queue <- message:
			default:
				// Queue full: drop the oldest and retry.
				select {
				case <-c.queue:
				default:
				}
				continue
			}
			break
		}
	}
}

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// addClient registers a consumer and returns its handle.
func (b *Broadcaster) addClient() *client {
	b.mu.Lock()
	b.nextID++
	c := &client{
		id:    fmt.Sprintf("client-%d", b.nextID),
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
	}
	b.clients[c.id] = c
	count := len(b.clients)
	b.mu.Unlock()

	log.Debug().Str("clientId", c.id).Int("totalClients", count).Msg("Stream client connected")
	return c
}

// removeClient unregisters a consumer. Safe to call more than once.
func (b *Broadcaster) removeClient(c *client) {
	b.mu.Lock()
	_, exists := b.clients[c.id]
	delete(b.clients, c.id)
	count := len(b.clients)
	b.mu.Unlock()

	if exists {
		close(c.done)
		log.Debug().Str("clientId", c.id).Int("totalClients", count).Msg("Stream client disconnected")
	}
}

// HandleSSE serves one SSE connection until the client goes away.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	c := b.addClient()
	defer b.removeClient(c)

	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"clientId\":%q}\n\n", c.id)
	flusher.Flush()

	for {
		select {
		case message := <-c.queue:
			if !b.writeWithRetry(c, w, flusher, message) {
				return
			}
		case <-c.done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// writeWithRetry attempts the write up to writeAttempts times with
// doubling backoff. False means the client is beyond saving.
func (b *Broadcaster) writeWithRetry(c *client, w http.ResponseWriter, flusher http.Flusher, message []byte) bool {
	backoff := retryBackoff
	for attempt := 1; attempt <= writeAttempts; attempt++ {
		if _, err := w.Write(message); err == nil {
			flusher.Flush()
			return true
		} else if attempt == writeAttempts {
			log.Debug().
				Str("clientId", c.id).
				Err(err).
				Int("attempts", attempt).
				Msg("Stream write failed, dropping client")
			return false
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return false
}

// MonitorStale emits a synthetic neutral event whenever no fresh sample
// has arrived within the stale timeout. The synthetic event carries the
// last known metrics so dashboards keep their context. Blocks until ctx
// is cancelled.
func (b *Broadcaster) MonitorStale(ctx context.Context) {
	ticker := time.NewTicker(b.staleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		b.mu.RLock()
		last := b.lastEvent
		stale := last != nil && time.Since(b.lastSample) > b.staleTimeout
		b.mu.RUnlock()
		if !stale {
			continue
		}

		ev := models.EmotionEvent{
			Timestamp:  float64(time.Now().UnixNano()) / float64(time.Second),
			Emotion:    "neutral",
			Confidence: staleConfidence,
			Metrics:    last.Metrics,
			Status:     models.StatusStaleData,
		}
		log.Debug().Dur("staleTimeout", b.staleTimeout).Msg("No fresh samples, emitting stale event")
		b.send(ev)
	}
}
