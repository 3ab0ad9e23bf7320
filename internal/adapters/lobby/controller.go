// Package lobby is the WebSocket adapter for the realtime lobby: it owns
// the transport, the wire protocol and nothing else. Lobby semantics live
// in the orchestrator.
package lobby

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dkeye/Lobby/internal/adapters/auth"
	"github.com/dkeye/Lobby/internal/app"
	"github.com/dkeye/Lobby/internal/app/orch"
	"github.com/dkeye/Lobby/internal/config"
	"github.com/dkeye/Lobby/internal/core"
	"github.com/dkeye/Lobby/internal/domain"
	"github.com/dkeye/Lobby/internal/metrics"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	Orch    *orch.Orchestrator
	Auth    *auth.Verifier
	Metrics metrics.Collector
	Cfg     *config.Config
}

func NewController(o *orch.Orchestrator, v *auth.Verifier, m metrics.Collector, cfg *config.Config) *Controller {
	return &Controller{Orch: o, Auth: v, Metrics: m, Cfg: cfg}
}

// client bundles the per-connection state the pumps need.
type client struct {
	sid     core.ConnID
	conn    *wsConn
	limiter *rate.Limiter
}

// HandleLobby runs the connection lifecycle: authenticate, dedup-register,
// then hand the socket to the read/write pumps. Auth failures are refused
// before the upgrade; duplicate sessions get an explicit notice and then
// the close.
func (ctl *Controller) HandleLobby(ctx context.Context, c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Authorization")
	}
	user, err := ctl.Auth.Verify(token)
	if err != nil {
		log.Warn().Err(err).Str("module", "lobby").Msg("handshake auth failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "lobby").Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.Cfg.ReadLimit)

	sid := core.ConnID(uuid.NewString())
	conn := newWSConn(ws, ctl.Cfg.SendBuffer)
	sess := core.NewMemberSession(domain.NewMember(user), conn)
	connCtx, cancel := context.WithCancel(ctx)

	if err := ctl.Orch.Connect(sid, user, sess, cancel); err != nil {
		cancel()
		if errors.Is(err, app.ErrDuplicateSession) {
			ctl.Metrics.DuplicateSession()
			ctl.writeDirect(ws, envelope{Type: MsgDuplicateSession})
		}
		_ = ws.Close()
		return
	}

	ctl.Metrics.ConnectionOpened()
	log.Info().Str("module", "lobby").Str("cid", string(sid)).Str("user", string(user.ID)).Msg("connected")

	cl := &client{
		sid:     sid,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(ctl.Cfg.ChatRate), ctl.Cfg.ChatBurst),
	}

	go ctl.writePump(connCtx, cl)
	go ctl.readPump(connCtx, cl)

	ctl.send(conn, socketIDMsg{Type: MsgSocketID, ID: sid})
}

// disconnect runs the full cleanup path. Safe to call more than once; the
// orchestrator reports whether anything was actually torn down.
func (ctl *Controller) disconnect(cl *client) {
	cl.conn.Close()
	roomID, user, hadRoom := ctl.Orch.Disconnect(cl.sid)
	if user == nil {
		return
	}
	ctl.Metrics.ConnectionClosed()
	if hadRoom {
		ctl.broadcastRoom(roomID, "", memberLeftMsg{Type: MsgMemberLeft, ID: cl.sid})
	}
}

// writeDirect is for pre-pump terminal notices (duplicate session): the
// write pump never starts for those connections.
func (ctl *Controller) writeDirect(ws *websocket.Conn, v any) {
	_ = ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := ws.WriteJSON(v); err != nil {
		log.Error().Err(err).Str("module", "lobby").Msg("direct write")
	}
}
