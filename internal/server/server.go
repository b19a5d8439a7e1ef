package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/repairdesk/internal/config"
	customerdomain "github.com/smallbiznis/repairdesk/internal/customer/domain"
	"github.com/smallbiznis/repairdesk/internal/observability"
	obslogger "github.com/smallbiznis/repairdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/repairdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/repairdesk/internal/observability/tracing"
	"github.com/smallbiznis/repairdesk/internal/ratelimit"
	servicerequestdomain "github.com/smallbiznis/repairdesk/internal/servicerequest/domain"
	sparepartdomain "github.com/smallbiznis/repairdesk/internal/sparepart/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	ratelimit.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	requestSvc   servicerequestdomain.Service
	sparePartSvc sparepartdomain.Service
	customerSvc  customerdomain.Service
	limiter      *ratelimit.WriteLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	RequestSvc   servicerequestdomain.Service
	SparePartSvc sparepartdomain.Service
	CustomerSvc  customerdomain.Service
	Limiter      *ratelimit.WriteLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		requestSvc:   p.RequestSvc,
		sparePartSvc: p.SparePartSvc,
		customerSvc:  p.CustomerSvc,
		limiter:      p.Limiter,
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
	api.Use(s.ActorRequired())
	api.Use(s.WriteRateLimit())

	// -------- Service requests --------
	requests := api.Group("/requests")
	{
		requests.POST("", s.CreateRequest)
		requests.GET("", s.ListRequests)
		requests.GET("/:id", s.GetRequest)
		requests.PATCH("/:id/status", s.ChangeRequestStatus)
		requests.PATCH("/:id/assign", s.AssignRequest)
		requests.POST("/:id/close", s.CloseRequest)
		requests.POST("/:id/costs", s.AddRequestCost)
		requests.GET("/:id/costs", s.ListRequestCosts)
		requests.GET("/:id/activities", s.ListRequestActivities)
		requests.GET("/:id/parts", s.ListRequestParts)
	}

	// -------- Reservations --------
	requestParts := api.Group("/request-parts")
	{
		requestParts.POST("", s.ReserveRequestPart)
		requestParts.PUT("/:id", s.UpdateRequestPart)
		requestParts.DELETE("/:id", s.DeleteRequestPart)
	}

	// -------- Storage --------
	storage := api.Group("/storage")
	{
		storage.POST("", s.CreateSparePart)
		storage.GET("", s.ListSpareParts)
		storage.GET("/:id", s.GetSparePart)
		storage.PUT("/:id", s.UpdateSparePart)
		storage.DELETE("/:id", s.DeleteSparePart)
		storage.POST("/:id/adjust-quantity", s.AdjustSparePartQuantity)
		storage.GET("/:id/history", s.ListSparePartHistory)
	}

	// -------- Customers --------
	customers := api.Group("/customers")
	{
		customers.POST("", s.CreateCustomer)
		customers.GET("", s.ListCustomers)
		customers.GET("/:id", s.GetCustomerByID)
	}
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
