package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/aimd54/engagement-engine/internal/models"
	"github.com/aimd54/engagement-engine/internal/service/notification"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Stream message types.
const (
	streamSnapshot     = "snapshot"
	streamNotification = "notification"
)

type streamMessage struct {
	Type          string                `json:"type"`
	Progress      *models.UserProgress  `json:"progress,omitempty"`
	Notifications []models.Notification `json:"notifications,omitempty"`
	Update        *notification.Update  `json:"update,omitempty"`
}

type streamer struct {
	upgrader websocket.Upgrader
	log      *logger.Logger
}

func newStreamer(allowedOrigins []string, log *logger.Logger) *streamer {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	allowAll := allowsAny(allowedOrigins)

	return &streamer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if allowAll || origin == "" {
					return true
				}
				if allowed[origin] {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && u.Host == r.Host
			},
		},
		log: log,
	}
}

func (s *streamer) serve(c *gin.Context, sessions SessionProvider, visitorID string) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.log.Warn().Err(err).Str("visitor_id", visitorID).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sess, detach := sessions.Attach(ctx, visitorID)
	defer detach()

	stopTracking := sess.Engine.StartTimeTracking(ctx)
	defer stopTracking()

	updates, unsubscribe := sess.Notifications.Subscribe()
	defer unsubscribe()

	s.log.Info().Str("visitor_id", visitorID).Msg("Stream connected")
	defer s.log.Info().Str("visitor_id", visitorID).Msg("Stream disconnected")

	go s.readPump(conn, cancel)

	snapshot := sess.Engine.Snapshot()
	if err := s.write(conn, streamMessage{
		Type:          streamSnapshot,
		Progress:      &snapshot,
		Notifications: sess.Notifications.Active(),
	}); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			p := sess.Engine.Snapshot()
			if err := s.write(conn, streamMessage{Type: streamNotification, Progress: &p, Update: &u}); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pongs and close frames are processed; it cancels
// the stream when the connection goes away.
func (s *streamer) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("Stream closed unexpectedly")
			}
			return
		}
	}
}

func (s *streamer) write(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Debug().Err(err).Msg("Stream write failed")
		return err
	}
	return nil
}
