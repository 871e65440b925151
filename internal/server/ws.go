// Package server carries the websocket transport and the event hub that
// routes protocol messages to the room registry and session manager.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/mbxtn/vizzerdrix-server/internal/config"
	"github.com/mbxtn/vizzerdrix-server/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // whole-room snapshots can be large

	sendBufferSize = 64
)

// Server owns the HTTP listener and upgrades connections for the hub.
type Server struct {
	cfg    config.ServerConfig
	hub    *Hub
	logger *zap.Logger

	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewServer creates the websocket server front-end for hub.
func NewServer(cfg config.ServerConfig, hub *Hub, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ListenAndServe blocks serving websocket upgrades on /ws and a liveness
// probe on /healthz until Shutdown is called.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)

	s.httpSrv = &http.Server{
		Addr:    s.cfg.Address,
		Handler: handler,
	}

	s.logger.Info("websocket server listening", zap.String("address", s.cfg.Address))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		identity: uuid.NewString(),
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		logger:   s.logger,
	}

	s.hub.register(c)
	s.logger.Info("connection opened",
		zap.String("identity", c.identity),
		zap.String("remote", conn.RemoteAddr().String()),
	)

	go c.writePump()
	go c.readPump(s.hub)
}

// client is one live connection. The identity is transport-scoped: a
// reconnect gets a fresh one and must rejoin to reclaim its seat.
type client struct {
	identity string
	conn     *websocket.Conn
	send     chan []byte
	logger   *zap.Logger
}

// enqueue hands a frame to the write pump without blocking the hub. A client
// too slow to drain its buffer is dropped by the hub on the next broadcast.
func (c *client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read error", zap.String("identity", c.identity), zap.Error(err))
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Debug("dropping malformed frame",
				zap.String("identity", c.identity),
				zap.Error(err),
			)
			continue
		}

		h.Handle(c, msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
