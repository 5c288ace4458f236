package httpapi

import (
	"net/http"
	"strconv"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/gin-gonic/gin"
)

// readyEvent is sent once the live feed is subscribed.
const readyEvent = "ready"

func (s *Server) listNotifications(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "limit must be a number")
			return
		}
		limit = n
	}

	list, err := s.deps.Notifications.ListNotifications(c.Request.Context(), callerID(c), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok", "notifications": list})
}

// streamNotifications relays the caller's live channel as server-sent
// events until the client goes away or the server shuts down.
func (s *Server) streamNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	userID := callerID(c)

	sub, err := s.deps.Feed.Subscribe(ctx, userID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	defer func() { _ = sub.Close() }()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent(readyEvent, gin.H{"userId": userID})
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.closing:
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if msg.Event == "" {
				msg.Event = common.NotificationEvent
			}
			c.SSEvent(msg.Event, msg.Payload)
			c.Writer.Flush()
		}
	}
}
