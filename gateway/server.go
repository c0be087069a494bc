package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"wschat/chat"
	"wschat/tools/ids"
	"wschat/tools/safe"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Options tune the gateway; zero values get sane defaults.
type Options struct {
	GatewayID     string
	NodeID        int64
	HistoryLimit  int64 // entries sent on join and on a limit-less history request
	SendQueueSize int
}

func (o *Options) norm() {
	if o.GatewayID == "" {
		o.GatewayID = "gw-1"
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 10
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
}

// Server is the websocket transport in front of the chat manager. It owns the
// conn id -> client map; room membership itself lives in the registry.
type Server struct {
	mgr  *chat.Manager
	opts Options
	gen  *ids.Generator
	log  *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewServer(mgr *chat.Manager, opts Options, log *zap.Logger) *Server {
	opts.norm()
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		mgr:     mgr,
		opts:    opts,
		gen:     ids.NewGenerator(opts.NodeID),
		log:     log,
		clients: make(map[string]*Client),
	}
}

// Router mounts the websocket endpoint and a health probe.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", s.HandleWS)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

// HandleWS upgrades the request and runs the connection's read loop. The
// identity comes from the uid query parameter; display attributes ride along
// as username/avatar_16/avatar_32.
func (s *Server) HandleWS(c *gin.Context) {
	identity := c.Query("uid")
	if identity == "" {
		c.String(http.StatusBadRequest, "uid required")
		return
	}
	profile := chat.Profile{
		Username: c.Query("username"),
		Avatar16: c.Query("avatar_16"),
		Avatar32: c.Query("avatar_32"),
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	connID := s.gen.NextString()
	client := NewClient(connID, ws, s.opts.SendQueueSize, s.log)

	s.mu.Lock()
	s.clients[connID] = client
	s.mu.Unlock()

	s.mgr.Connect(c.Request.Context(), connID, identity, profile)
	safe.Go("write-pump-"+connID, client.WritePump)
	client.Enqueue(BuildConnected(connID, s.opts.GatewayID).Encode())

	s.readLoop(client)

	// teardown: registry first, then the local client map and writer
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	s.mgr.Disconnect(ctx, connID)
	cancel()

	s.mu.Lock()
	delete(s.clients, connID)
	s.mu.Unlock()
	client.CloseSend()
}

func (s *Server) readLoop(client *Client) {
	for {
		mt, data, err := client.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				s.log.Debug("peer closed", zap.String("conn", client.ConnID))
			} else {
				s.log.Debug("read error",
					zap.String("conn", client.ConnID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, err := ParseFrame(data)
		if err != nil {
			s.log.Debug("bad frame",
				zap.String("conn", client.ConnID), zap.Error(err))
			client.Enqueue(BuildError("malformed frame").Encode())
			continue
		}
		s.dispatch(client, frame)
	}
}

func (s *Server) dispatch(client *Client, frame *Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch frame.Type {
	case TypeJoin:
		s.handleJoin(ctx, client, frame)
	case TypeMessage:
		s.handleMessage(ctx, client, frame)
	case TypeHistory:
		s.handleHistory(ctx, client, frame)
	default:
		client.Enqueue(BuildError("unknown frame type: " + frame.Type).Encode())
	}
}

func (s *Server) handleJoin(ctx context.Context, client *Client, frame *Frame) {
	if frame.Room == "" {
		client.Enqueue(BuildError("room required").Encode())
		return
	}
	room, err := s.mgr.JoinRoom(frame.Room, frame.Title, client.ConnID)
	if err != nil {
		client.Enqueue(BuildError(err.Error()).Encode())
		return
	}
	user, ok := s.mgr.Registry().Lookup(client.ConnID)
	if !ok {
		return
	}

	// announce to everyone in the room, the joiner included
	s.broadcast(room.ID(), BuildJoined(room, user).Encode())

	// recent history goes only to the joiner
	entries, err := s.mgr.History(ctx, room.ID(), s.opts.HistoryLimit)
	if err != nil {
		s.log.Warn("history load on join failed",
			zap.String("room", room.ID()), zap.Error(err))
		return
	}
	client.Enqueue(BuildHistory(room.ID(), entries).Encode())
}

func (s *Server) handleMessage(ctx context.Context, client *Client, frame *Frame) {
	user, ok := s.mgr.Registry().Lookup(client.ConnID)
	if !ok {
		client.Enqueue(BuildError("not registered").Encode())
		return
	}
	room, ok := s.mgr.RoomOf(client.ConnID)
	if !ok {
		client.Enqueue(BuildError("join a room first").Encode())
		return
	}
	ts := frame.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}

	// store first, then deliver; a store failure is logged inside
	// SaveMessage and only registry errors surface here
	if err := s.mgr.SaveMessage(ctx, client.ConnID, frame.Message, ts); err != nil {
		client.Enqueue(BuildError(err.Error()).Encode())
		return
	}
	s.broadcast(room.ID(), BuildMessage(room, user, frame.Message, ts).Encode())
}

func (s *Server) handleHistory(ctx context.Context, client *Client, frame *Frame) {
	roomID := frame.Room
	if roomID == "" {
		if room, ok := s.mgr.RoomOf(client.ConnID); ok {
			roomID = room.ID()
		}
	}
	if roomID == "" {
		client.Enqueue(BuildError("room required").Encode())
		return
	}
	limit := frame.Limit
	if limit == 0 {
		limit = s.opts.HistoryLimit
	}
	entries, err := s.mgr.History(ctx, roomID, limit)
	if err != nil {
		client.Enqueue(BuildError("history unavailable").Encode())
		return
	}
	client.Enqueue(BuildHistory(roomID, entries).Encode())
}

// broadcast fans a payload out to one connection per room member.
func (s *Server) broadcast(roomID string, payload []byte) {
	members := s.mgr.Registry().RoomMembers(roomID)
	if len(members) == 0 {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range members {
		if cl, ok := s.clients[m.ConnID]; ok {
			cl.Enqueue(payload)
		}
	}
}
