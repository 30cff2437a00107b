package handler

import (
	"net/http"
	"strings"

	"github.com/examly/examly-backend/internal/config"
	"github.com/examly/examly-backend/internal/service"
	ws "github.com/examly/examly-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allow-list permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorHandler streams live attempt events (join / submit / evaluate) of
// one exam to a connected instructor over WebSocket, relayed from the
// exam's redis pub/sub channel.
type MonitorHandler struct {
	rdb      *redis.Client
	exams    *service.ExamService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, exams *service.ExamService, log zerolog.Logger, allowedOrigins []string) *MonitorHandler {
	return &MonitorHandler{
		rdb:      rdb,
		exams:    exams,
		log:      log.With().Str("component", "monitor_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// MonitorExam godoc
// WS /ws/v1/instructor/exams/:exam_id/monitor
func (h *MonitorHandler) MonitorExam(c *gin.Context) {
	examID := c.Param("exam_id")
	if _, err := h.exams.Get(c.Request.Context(), examID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "exam not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("exam_id", examID).Logger()
	wsLog.Info().Msg("Instructor monitor connected")

	sub := h.rdb.Subscribe(c.Request.Context(), config.CacheKey.ExamMonitorChannel(examID))
	defer sub.Close()

	// Reader goroutine: consume pings and detect client disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &msg); err != nil {
				return
			}
			if msg.Action == ws.ActionPing {
				_ = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			}
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case <-done:
			wsLog.Info().Msg("Instructor monitor disconnected")
			return
		case <-c.Request.Context().Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			if err := ws.WriteTyped(conn, ws.AttemptEvent{
				Event:   ws.EventAttempt,
				Payload: m.Payload,
			}); err != nil {
				wsLog.Debug().Err(err).Msg("monitor write failed")
				return
			}
		}
	}
}
