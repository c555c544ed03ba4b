package server

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/donora/internal/audit/domain"
	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
	"github.com/smallbiznis/donora/internal/config"
	contentdomain "github.com/smallbiznis/donora/internal/content/domain"
	nodeselldomain "github.com/smallbiznis/donora/internal/nodesell/domain"
	"github.com/smallbiznis/donora/internal/observability"
	obsmiddleware "github.com/smallbiznis/donora/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/donora/internal/observability/metrics"
	obstracing "github.com/smallbiznis/donora/internal/observability/tracing"
	organizationdomain "github.com/smallbiznis/donora/internal/organization/domain"
	"github.com/smallbiznis/donora/internal/ratelimit"
	referraldomain "github.com/smallbiznis/donora/internal/referral/domain"
	userdomain "github.com/smallbiznis/donora/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func jsonFieldName(field reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return field.Name
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	addr := cfg.HTTPAddr
	if strings.TrimSpace(addr) == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	auditSvc        auditdomain.Service
	organizationSvc organizationdomain.Service
	userSvc         userdomain.Service
	contentSvc      contentdomain.Service
	campaignSvc     campaigndomain.Service
	nodeSellSvc     nodeselldomain.Service
	referralSvc     referraldomain.Service
	writeLimiter    *ratelimit.WriteLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	AuditSvc        auditdomain.Service
	OrganizationSvc organizationdomain.Service
	UserSvc         userdomain.Service
	ContentSvc      contentdomain.Service
	CampaignSvc     campaigndomain.Service
	NodeSellSvc     nodeselldomain.Service
	ReferralSvc     referraldomain.Service
	WriteLimiter    *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		auditSvc:        p.AuditSvc,
		organizationSvc: p.OrganizationSvc,
		userSvc:         p.UserSvc,
		contentSvc:      p.ContentSvc,
		campaignSvc:     p.CampaignSvc,
		nodeSellSvc:     p.NodeSellSvc,
		referralSvc:     p.ReferralSvc,
		writeLimiter:    p.WriteLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Organizations --------
	api.POST("/organizations", s.CreateOrganization)
	api.GET("/organizations/:id", s.GetOrganizationByID)
	api.PATCH("/organizations/:id/timezone", s.UpdateOrganizationTimezone)

	org := api.Group("", OrgContext(), ActorContext(), s.WriteRateLimit())

	// -------- Users --------
	org.POST("/users", s.CreateUser)
	org.GET("/users", s.ListUsers)
	org.GET("/users/:id", s.GetUserByID)

	// -------- Content --------
	org.POST("/content_items", s.CreateContentItem)
	org.GET("/content_items", s.ListContentItems)
	org.GET("/content_items/:id", s.GetContentItemByID)

	// -------- Campaigns --------
	org.POST("/campaigns", s.CreateCampaign)
	org.GET("/campaigns", s.ListCampaigns)
	org.GET("/campaigns/:id", s.GetCampaignByID)
	org.POST("/campaigns/:id/cancel", s.CancelCampaign)
	org.DELETE("/campaigns/:id", s.CancelCampaign)
	org.POST("/campaigns/:id/pause", s.PauseCampaign)
	org.POST("/campaigns/:id/resume", s.ResumeCampaign)
	org.GET("/campaigns/:id/drops", s.ListCampaignDrops)
	org.GET("/campaigns/:id/drops/:dropId", s.GetCampaignDrop)

	// -------- Delivery --------
	org.POST("/send_jobs/:id/status", s.ReportSendJobStatus)

	// -------- Nodes --------
	org.POST("/node_sells", s.CreateNodeSell)
	org.GET("/node_sells/:id", s.GetNodeSellByID)
	org.GET("/referrals", s.ListReferrals)

	// -------- Audit --------
	org.GET("/audit_logs", s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
