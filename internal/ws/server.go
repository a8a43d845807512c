package ws

import (
	"context"
	"time"

	"github.com/fathima-sithara/dm-service/internal/metrics"
	"github.com/fathima-sithara/dm-service/internal/presence"
	"github.com/fathima-sithara/dm-service/internal/registry"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// EventOnlineUsers carries the full list of online user ids.
const EventOnlineUsers = "getOnlineUsers"

const presenceTimeout = 2 * time.Second

type Server struct {
	reg      *registry.Registry
	presence presence.Tracker
	opts     Options
	log      *zap.Logger
}

func NewServer(reg *registry.Registry, tracker presence.Tracker, opts Options, log *zap.Logger) *Server {
	if tracker == nil {
		tracker = presence.NewLocal(reg)
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 25 * time.Second
	}
	if opts.PongWait <= 0 {
		opts.PongWait = 2 * opts.PingInterval
	}
	if opts.WriteDeadline <= 0 {
		opts.WriteDeadline = 10 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	return &Server{reg: reg, presence: tracker, opts: opts, log: log}
}

// RequireUpgrade rejects plain HTTP requests on the socket route.
func (s *Server) RequireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler expects an authenticated request with "user_id" in the locals.
func (s *Server) Handler() fiber.Handler {
	return websocket.New(s.serve)
}

func (s *Server) serve(conn *websocket.Conn) {
	userID, _ := conn.Locals("user_id").(string)
	if userID == "" {
		_ = conn.Close()
		return
	}

	c := NewConnection(conn, userID, s.opts)
	if prev := s.reg.Register(userID, c); prev != nil {
		s.log.Info("connection replaced", zap.String("user_id", userID), zap.String("conn_id", c.ID()))
	}
	metrics.LiveConnections.Set(float64(s.reg.Len()))
	s.setPresence(userID, true)
	s.log.Debug("connected", zap.String("user_id", userID), zap.String("conn_id", c.ID()))

	go c.writePump()
	go s.keepAlive(c)
	c.readPump()

	c.Close()
	<-c.done

	// a replaced connection must not take the newer one offline
	if s.reg.Unregister(userID, c) {
		s.setPresence(userID, false)
	}
	metrics.LiveConnections.Set(float64(s.reg.Len()))
	s.log.Debug("disconnected", zap.String("user_id", userID), zap.String("conn_id", c.ID()))
}

func (s *Server) setPresence(userID string, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	var err error
	if online {
		err = s.presence.MarkOnline(ctx, userID)
	} else {
		err = s.presence.MarkOffline(ctx, userID)
	}
	if err != nil {
		s.log.Warn("presence update failed", zap.String("user_id", userID), zap.Bool("online", online), zap.Error(err))
	}
	s.BroadcastOnline(ctx)
}

// keepAlive refreshes the user's presence entry until the connection's write pump exits.
func (s *Server) keepAlive(c *Connection) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
			if err := s.presence.MarkOnline(ctx, c.userID); err != nil {
				s.log.Warn("presence refresh failed", zap.String("user_id", c.userID), zap.Error(err))
			}
			cancel()
		}
	}
}

// Status is a single user's presence as reported to clients.
type Status struct {
	UserID   string `json:"user_id"`
	Online   bool   `json:"online"`
	LastSeen int64  `json:"last_seen,omitempty"`
}

// Presence reports whether userID is online. A failing tracker falls back to this instance's
// registry and an unknown last-seen time.
func (s *Server) Presence(ctx context.Context, userID string) Status {
	st := Status{UserID: userID}
	online, err := s.presence.IsOnline(ctx, userID)
	if err != nil {
		s.log.Warn("presence read failed", zap.String("user_id", userID), zap.Error(err))
		_, online = s.reg.Lookup(userID)
	}
	st.Online = online
	if seen, err := s.presence.LastSeen(ctx, userID); err == nil {
		st.LastSeen = seen
	}
	return st
}

// OnlineUsers falls back to this instance's registry when the tracker is unavailable.
func (s *Server) OnlineUsers(ctx context.Context) []string {
	ids, err := s.presence.OnlineUsers(ctx)
	if err != nil {
		s.log.Warn("presence read failed", zap.Error(err))
		return s.reg.UserIDs()
	}
	return ids
}

// BroadcastOnline sends the online list to every local connection.
func (s *Server) BroadcastOnline(ctx context.Context) {
	ids := s.OnlineUsers(ctx)
	s.reg.Range(func(_ string, conn registry.Conn) {
		_ = conn.Send(EventOnlineUsers, ids)
	})
}
