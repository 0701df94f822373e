package api

import (
	"io"   // Stream writer
	"time" // Heartbeat interval

	"art_market/internal/events" // Listing event bus

	"github.com/gin-gonic/gin" // Gin web framework
)

// DefaultHeartbeat is how often an idle stream sends a ping
const DefaultHeartbeat = 25 * time.Second

// ListingEventsHandler streams listing events as server-sent events until the client disconnects
func ListingEventsHandler(bus *events.Bus, heartbeat time.Duration) gin.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return func(c *gin.Context) {
		sub := bus.Subscribe(events.DefaultBuffer) // Register this connection
		defer bus.Unsubscribe(sub)                 // Disconnect removes the observer

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // Disable proxy buffering

		c.SSEvent("ready", gin.H{"subscribers": bus.Count()}) // Confirms the subscription
		c.Writer.Flush()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		c.Stream(func(io.Writer) bool {
			select {
			case <-c.Request.Context().Done():
				return false // Client went away
			case ev, ok := <-sub.C():
				if !ok {
					return false
				}
				c.SSEvent(ev.Type, ev)
				return true
			case t := <-ticker.C:
				c.SSEvent("ping", t.UTC().Unix())
				return true
			}
		})
	}
}
