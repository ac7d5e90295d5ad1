package httpgin

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	redisx "github.com/kirinyoku/vastore/internal/redis"
)

// Feed fans catalog change messages out to connected SSE clients. A slow
// client misses messages instead of stalling the others.
type Feed struct {
	mu        sync.Mutex
	subs      map[chan redisx.ListingsChanged]struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewFeed() *Feed {
	return &Feed{
		subs: make(map[chan redisx.ListingsChanged]struct{}),
		done: make(chan struct{}),
	}
}

// Close ends every open stream and refuses new ones. Shutdown does not cancel
// request contexts, so streams only return once Close is called.
func (f *Feed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}

// Publish matches the handler signature of redisx.ListingsPubSub.Subscribe.
func (f *Feed) Publish(_ context.Context, msg redisx.ListingsChanged) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ch := range f.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (f *Feed) subscribe() (<-chan redisx.ListingsChanged, func()) {
	ch := make(chan redisx.ListingsChanged, 16)

	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	return ch, func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}
}

func (f *Feed) clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

const feedPing = 25 * time.Second

// @Summary  Catalog change feed (Server-Sent Events)
// @Produce  text/event-stream
// @Success  200
// @Router   /api/listings/stream [get]
func handleListingsStream(feed *Feed) gin.HandlerFunc {
	return func(c *gin.Context) {
		if feed == nil {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "feed_unavailable"})
			return
		}

		select {
		case <-feed.done:
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "shutting_down"})
			return
		default:
		}

		msgs, cancel := feed.subscribe()
		defer cancel()

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		c.SSEvent("ready", gin.H{"ts_unix": time.Now().Unix()})
		c.Writer.Flush()

		ping := time.NewTicker(feedPing)
		defer ping.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false
			case <-feed.done:
				return false
			case msg := <-msgs:
				c.SSEvent("listings_changed", msg)
				return true
			case t := <-ping.C:
				c.SSEvent("ping", gin.H{"ts_unix": t.Unix()})
				return true
			}
		})
	}
}
