package http

import (
	"net/http"
	"time"

	"github.com/dkeye/Mic/internal/adapters/token"
	"github.com/dkeye/Mic/internal/app/orch"
	"github.com/dkeye/Mic/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

const sessionNameKey = "name"

type handlers struct {
	orch     *orch.Orchestrator
	tokens   *token.Issuer
	ice      webrtc.Configuration
	tokenTTL time.Duration
}

type roomSummary struct {
	Room  domain.RoomID `json:"room"`
	Count int           `json:"count"`
	Floor any           `json:"floor"`
}

func (h *handlers) listRooms(c *gin.Context) {
	ids := h.orch.Floor.Rooms()
	out := make([]roomSummary, 0, len(ids))
	for _, id := range ids {
		st := h.orch.RoomState(id)
		out = append(out, roomSummary{Room: id, Count: st.Count, Floor: st.Floor})
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) getRoom(c *gin.Context) {
	id := domain.RoomID(c.Param("id"))
	if !id.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_room"})
		return
	}
	c.JSON(http.StatusOK, h.orch.RoomState(id))
}

func (h *handlers) iceServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"iceServers": h.ice.ICEServers})
}

// publishToken hands out a listener token for the room. Publish grants only
// travel over the holder's own socket.
func (h *handlers) publishToken(c *gin.Context) {
	if h.tokens == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tokens disabled"})
		return
	}
	room := domain.RoomID(c.Query("room"))
	if !room.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing room"})
		return
	}
	identity := c.Query("identity")
	if identity == "" {
		identity = "guest-" + uuid.NewString()[:8]
	}

	tok, err := h.tokens.Sign(token.Grant{Room: room, Identity: identity, TTL: h.tokenTTL})
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(room)).Msg("token generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	log.Info().Str("module", "adapters.http").Str("room", string(room)).Str("identity", identity).Msg("listener token issued")
	c.JSON(http.StatusOK, gin.H{"token": tok, "identity": identity, "role": "listener"})
}

func (h *handlers) saveProfile(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	name, err := domain.NormalizeName(body.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_name"})
		return
	}
	sess := sessions.Default(c)
	sess.Set(sessionNameKey, name)
	if err := sess.Save(); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("session save")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name})
}

// profileName is the display name remembered in the cookie session, if any.
func profileName(c *gin.Context) string {
	if name, ok := sessions.Default(c).Get(sessionNameKey).(string); ok {
		return name
	}
	return ""
}
