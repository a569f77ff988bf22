package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/account"
	"cvbuilder/internal/ai"
	"cvbuilder/internal/analyses"
	googleauth "cvbuilder/internal/auth"
	"cvbuilder/internal/files"
	"cvbuilder/internal/resumes"
	"cvbuilder/internal/sanitize"
	"cvbuilder/internal/services/health"
	"cvbuilder/internal/settings"
	"cvbuilder/internal/shared/config"
	"cvbuilder/internal/shared/metrics"
	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/subscriptions"
	"cvbuilder/internal/templates"
	"cvbuilder/internal/usage"
	"cvbuilder/internal/users"
)

// RouterDeps holds the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config   config.Config
	Verifier middleware.TokenVerifier
	Health   *health.Service

	ResumeHandler       *resumes.Handler
	TemplateHandler     *templates.Handler
	SanitizeHandler     *sanitize.Handler
	FileHandler         *files.Handler
	AIHandler           *ai.Handler
	AnalysisHandler     *analyses.Handler
	SubscriptionHandler *subscriptions.Handler
	UsageHandler        *usage.Handler
	SettingsHandler     *settings.Handler
	AccountHandler      *account.Handler
	UserHandler         *users.Handler
	GoogleAuth          *googleauth.GoogleService

	RateLimits map[string]middleware.RateLimitRule
}

// DefaultRateLimits are per identity. AI calls and analyses share the "ai" bucket.
var DefaultRateLimits = map[string]middleware.RateLimitRule{
	"DEFAULT": {Rate: 20, Burst: 60},
	"ai":      {Rate: 0.5, Burst: 10},
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logging(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		metrics.Middleware(),
	)

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	r.GET("/healthz", func(c *gin.Context) {
		report := healthSvc.Status(c.Request.Context())
		status := http.StatusOK
		if !report.OK {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, report)
	})
	r.GET("/metrics", metrics.Handler())

	limits := deps.RateLimits
	if limits == nil {
		limits = DefaultRateLimits
	}

	api := r.Group("/api/v1")
	api.Use(
		middleware.Auth(deps.Verifier),
		middleware.RateLimit(middleware.RateLimitConfig{Rules: limits, GroupFor: rateLimitGroup}),
	)

	// Unauthenticated: the auth middleware lets these paths through.
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.SubscriptionHandler != nil {
		deps.SubscriptionHandler.RegisterWebhookRoutes(api)
	}

	// Guests and signed-in users.
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterRoutes(api)
	}
	if deps.ResumeHandler != nil {
		deps.ResumeHandler.RegisterRoutes(api)
	}
	if deps.TemplateHandler != nil {
		deps.TemplateHandler.RegisterRoutes(api)
	}
	if deps.SanitizeHandler != nil {
		deps.SanitizeHandler.RegisterRoutes(api)
	}

	signedIn := api.Group("")
	signedIn.Use(middleware.RequireUser())
	if deps.FileHandler != nil {
		deps.FileHandler.RegisterRoutes(signedIn)
	}
	if deps.AIHandler != nil {
		deps.AIHandler.RegisterRoutes(signedIn)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(signedIn)
	}
	if deps.SubscriptionHandler != nil {
		deps.SubscriptionHandler.RegisterRoutes(signedIn)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(signedIn)
	}
	if deps.SettingsHandler != nil {
		deps.SettingsHandler.RegisterRoutes(signedIn)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(signedIn)
	}

	if deps.Config.IsDevLike() {
		dev := signedIn.Group("/dev")
		if deps.UsageHandler != nil {
			deps.UsageHandler.RegisterDevRoutes(dev)
		}
		if deps.SubscriptionHandler != nil {
			deps.SubscriptionHandler.RegisterDevRoutes(dev)
		}
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	path := c.Request.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/ai/") && c.Request.Method == http.MethodPost:
		return "ai"
	case path == "/api/v1/analyses" && c.Request.Method == http.MethodPost:
		return "ai"
	case strings.HasSuffix(path, "/import") && c.Request.Method == http.MethodPost:
		return "ai"
	default:
		return ""
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
