package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/01moynul/stepup-orders/internal/broadcast"
	"github.com/01moynul/stepup-orders/internal/middleware"
)

const maxIngressBody = 1 << 20

// Options configures the relay's HTTP surface.
type Options struct {
	APIKeys []string
	Limiter *middleware.RateLimiter
	// TrustedProxies may set X-Forwarded-For. When empty the rate limiter
	// keys on the socket peer.
	TrustedProxies []string
}

// Server exposes the subscriber endpoint, the broadcast ingress and health.
type Server struct {
	hub      *Hub
	tokens   middleware.TokenValidator
	log      *zap.Logger
	upgrader websocket.Upgrader
	started  time.Time
	now      func() time.Time
}

func NewServer(hub *Hub, tokens middleware.TokenValidator, allowedOrigins []string, log *zap.Logger) *Server {
	s := &Server{
		hub:     hub,
		tokens:  tokens,
		log:     log,
		started: time.Now(),
		now:     time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
		},
	}
	return s
}

// Router builds the relay's gin engine.
func (s *Server) Router(opts Options) (*gin.Engine, error) {
	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(s.log))

	r.GET("/", s.Health)
	r.GET("/ws", s.Subscribe)

	ingress := []gin.HandlerFunc{}
	if opts.Limiter != nil {
		ingress = append(ingress, opts.Limiter.Middleware())
	}
	ingress = append(ingress, middleware.RequireAPIKey(broadcast.APIKeyHeader, opts.APIKeys), s.BroadcastOrder)
	r.POST("/broadcastOrder", ingress...)

	return r, nil
}

// Health is the handler for GET /.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime_seconds": int64(s.now().Sub(s.started).Seconds()),
		"connections":    s.hub.Connections(),
	})
}

// BroadcastOrder is the handler for POST /broadcastOrder.
func (s *Server) BroadcastOrder(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxIngressBody)
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid payload"})
		return
	}

	orderID, deliveries, err := Route(raw)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidPayload) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"success": false, "message": "Invalid payload"})
		return
	}

	delivered := 0
	for _, d := range deliveries {
		frame, err := json.Marshal(d.Frame)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid payload"})
			return
		}
		delivered += s.hub.Emit(d.Scope, frame)
	}

	s.log.Info("order event relayed",
		zap.Int64("order_id", orderID),
		zap.String("event", deliveries[len(deliveries)-1].Frame.Event),
		zap.Int("delivered", delivered),
	)
	c.JSON(http.StatusOK, gin.H{"success": true, "delivered": delivered})
}

// Subscribe is the handler for GET /ws. The token may come from the
// "token" query parameter or an Authorization header.
func (s *Server) Subscribe(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Token required"})
		return
	}

	id, err := s.tokens.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already answered the client.
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := &client{
		id:     uuid.NewString(),
		userID: id.UserID,
		scopes: ScopesFor(id),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    s.hub,
		log:    s.log,
	}
	s.hub.register(cl)

	welcome, _ := json.Marshal(Frame{Event: "subscribed", Data: mustJSON(gin.H{"scopes": cl.scopes})})
	cl.send <- welcome

	s.log.Info("subscriber connected",
		zap.String("conn_id", cl.id),
		zap.Int64("user_id", cl.userID),
		zap.Strings("scopes", cl.scopes),
	)

	go cl.writePump()
	go cl.readPump()
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
