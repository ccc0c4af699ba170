package http

import (
	"context"
	"net/http"

	"github.com/dkeye/Mic/internal/adapters/signal"
	"github.com/dkeye/Mic/internal/adapters/token"
	"github.com/dkeye/Mic/internal/app/orch"
	"github.com/dkeye/Mic/internal/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Services are the collaborators the HTTP surface exposes.
type Services struct {
	Orch   *orch.Orchestrator
	Hub    *signal.Hub
	Limits *signal.ConnRateLimiter
	// Tokens may be nil when no media server is configured.
	Tokens *token.Issuer
	ICE    webrtc.Configuration
}

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ct, _ := c.Cookie("ct")
		if ct == "" {
			ct = genClientToken()
			c.SetCookie("ct", ct, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", ct)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cors.New(cfg)
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cors.New(cfg)
}

func SetupRouter(ctx context.Context, cfg *config.Config, svc Services) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(corsMiddleware(cfg.AllowedOrigins))
	}

	secret := cfg.Secret
	if secret == "" {
		secret = uuid.NewString()
		log.Warn().Str("module", "adapters.http").Msg("no session secret configured, sessions will not survive restarts")
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("MicSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := signal.NewSignalWSController(svc.Orch, svc.Hub, svc.Limits, signal.Options{
		ReadLimit:      cfg.ReadLimit,
		PingPeriod:     cfg.PingPeriod,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	h := &handlers{orch: svc.Orch, tokens: svc.Tokens, ice: svc.ICE, tokenTTL: cfg.Floor.TokenTTL}

	api := r.Group("/api")

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctrl.HandleSignal(ctx, c, profileName(c))
	})
	api.GET("/rooms", h.listRooms)
	api.GET("/rooms/:id", h.getRoom)
	api.GET("/ice-servers", h.iceServers)
	api.GET("/publish-token", h.publishToken)
	api.POST("/profile", h.saveProfile)

	return r
}
