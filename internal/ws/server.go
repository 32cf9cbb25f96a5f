package ws

import (
	"context"
	"encoding/json"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/amity/internal/auth"
	"github.com/yourorg/amity/internal/config"
	"github.com/yourorg/amity/internal/metrics"
	"github.com/yourorg/amity/internal/presence"
	"github.com/yourorg/amity/pkg/apperr"
)

// Server owns the upgrade handler: it authenticates the socket, registers
// it with the hub and presence, then runs the pumps.
type Server struct {
	hub        *Hub
	dispatcher *Dispatcher
	validator  *auth.Validator
	presence   *presence.Store
	cfg        *config.Config
	log        *zap.SugaredLogger
}

func NewServer(hub *Hub, d *Dispatcher, v *auth.Validator, p *presence.Store, cfg *config.Config, log *zap.SugaredLogger) *Server {
	return &Server{hub: hub, dispatcher: d, validator: v, presence: p, cfg: cfg, log: log}
}

// Handle is the gofiber/websocket connection handler mounted at /ws.
// Clients connect with ?token=<jwt>.
func (s *Server) Handle(c *websocket.Conn) {
	token := c.Query("token")
	if token == "" {
		s.reject(c, "missing token")
		return
	}
	userID, err := s.validator.Validate(token)
	if err != nil {
		s.reject(c, "invalid token")
		return
	}

	client := NewClient(c, userID)
	socketID := uuid.NewString()
	s.hub.Register(client)
	metrics.ActiveSockets.Inc()
	if s.presence != nil {
		if err := s.presence.Connected(context.Background(), userID, socketID); err != nil {
			s.log.Warnw("presence connect", "user_id", userID, "error", err)
		}
	}
	s.log.Infow("socket connected", "user_id", userID, "socket_id", socketID)

	go client.writePump(s.cfg.PingInterval, s.cfg.WriteDeadline)

	defer func() {
		s.hub.Unregister(client)
		metrics.ActiveSockets.Dec()
		if s.presence != nil {
			if err := s.presence.Disconnected(context.Background(), userID, socketID); err != nil {
				s.log.Warnw("presence disconnect", "user_id", userID, "error", err)
			}
		}
		s.log.Infow("socket disconnected", "user_id", userID, "socket_id", socketID)
	}()

	c.SetReadLimit(s.cfg.WS.MaxMessageSize)
	for {
		mt, raw, err := c.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.hub.SendToUser(userID, NewEnvelope(EvtError, wsError{
				Code:    string(apperr.CodeInvalidArgument),
				Message: "malformed envelope",
			}))
			continue
		}
		s.dispatcher.Dispatch(context.Background(), userID, env)
	}
}

func (s *Server) reject(c *websocket.Conn, reason string) {
	_ = c.WriteMessage(websocket.TextMessage, []byte(reason))
	_ = c.Close()
}
