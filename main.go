package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sachtalks/sachtalks-api/handlers"
	blogHandler "github.com/sachtalks/sachtalks-api/internal/blog/handler"
	blogRepository "github.com/sachtalks/sachtalks-api/internal/blog/repository"
	"github.com/sachtalks/sachtalks-api/internal/config"
	contactHandler "github.com/sachtalks/sachtalks-api/internal/contact/handler"
	contactRepository "github.com/sachtalks/sachtalks-api/internal/contact/repository"
	"github.com/sachtalks/sachtalks-api/internal/database"
	"github.com/sachtalks/sachtalks-api/internal/dispatch"
	dispatchHandler "github.com/sachtalks/sachtalks-api/internal/dispatch/handler"
	"github.com/sachtalks/sachtalks-api/internal/docclient"
	"github.com/sachtalks/sachtalks-api/internal/docstore"
	"github.com/sachtalks/sachtalks-api/internal/sessions"
	"github.com/sachtalks/sachtalks-api/internal/sitemap"
	"github.com/sachtalks/sachtalks-api/internal/storage"
	"github.com/sachtalks/sachtalks-api/internal/tokens"
	"github.com/sachtalks/sachtalks-api/internal/youtube"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
	"github.com/sachtalks/sachtalks-api/pkg/metrics"
	"github.com/sachtalks/sachtalks-api/pkg/middleware"
)

var startTime = time.Now()

// app holds the wired dependencies of one server process.
type app struct {
	cfg    *config.Config
	router *gin.Engine
	mongo  *database.Manager
	redis  *redis.Client
	images *storage.MinIOStorage
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.SetFormat(cfg.Log.Format)
	logger.Init(cfg.Log.Level)
	defer logger.Sync()
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(ctx, cfg)
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Infof("config summary: store=%s mongo=%v api=%v redis=%v minio=%v youtube=%v",
		cfg.Store.Backend, a.mongo != nil && a.mongo.Configured(), cfg.Store.APIURL != "", a.redis != nil, a.images != nil, cfg.YouTube.APIKey != "")
	logger.Infof("starting sachtalks-api on %s", addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	a.close(shutdownCtx)
}

// newApp wires stores, repositories and routes. Optional dependencies that fail to come up are
// logged and left out so the public site keeps serving.
func newApp(ctx context.Context, cfg *config.Config) *app {
	a := &app{cfg: cfg}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), cors.New(corsConfig(cfg.Server.CORSOrigins)))

	if cfg.Redis.Host != "" {
		port := cfg.Redis.Port
		if port == "" {
			port = "6379"
		}
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := rc.Ping(pingCtx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, port, err)
			_ = rc.Close()
		} else {
			a.redis = rc
			logger.Infof("connected to Redis at %s:%s", cfg.Redis.Host, port)
		}
		cancel()
	}

	var contactLimits []gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		rl := cfg.RateLimit
		r.Use(a.limiter(middleware.Budget{Name: "public", RPS: rl.RPS, Burst: rl.Burst}, rl.WindowSeconds))
		contactLimits = append(contactLimits, a.limiter(middleware.Budget{Name: "contact", RPS: rl.ContactRPS, Burst: rl.ContactBurst}, rl.ContactWindowSeconds))
	}

	var store docstore.Store
	switch cfg.Store.Backend {
	case "memory":
		logger.Warnf("using the in-memory document store; data is lost on restart")
		store = docstore.NewMemoryStore()
	default:
		a.mongo = database.NewManager(cfg.MongoDB)
		if !a.mongo.Configured() {
			logger.Warnf("MONGODB_URI or DB_NAME is not set; document store calls will fail until configured")
		}
		store = docstore.NewMongoStore(a.mongo)
	}
	d := dispatch.New(store)
	dispatchHandler.RegisterDispatchRoutes(r, d)

	var transport docclient.Transport = docclient.NewLocalTransport(d)
	if cfg.Store.APIURL != "" {
		logger.Infof("repositories use the remote dispatcher at %s", cfg.Store.APIURL)
		transport = docclient.NewHTTPTransport(cfg.Store.APIURL, 0)
	}
	docs := docclient.New(transport)
	blogs := blogRepository.NewDocRepo(docs)
	contacts := contactRepository.NewDocRepo(docs)

	var images blogHandler.ImageStore
	if cfg.MinIO.Endpoint != "" {
		s, err := storage.NewMinIOStorage(cfg.MinIO)
		if err == nil {
			bctx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = s.EnsureBucket(bctx)
			cancel()
		}
		if err != nil {
			logger.Warnf("image uploads disabled: %v", err)
		} else {
			a.images = s
			images = s
		}
	}

	var videos youtube.Source = youtube.NewClient(cfg.YouTube)
	if a.redis != nil {
		videos = youtube.NewCachedSource(videos, a.redis, cfg.YouTube.CacheTTL)
	}

	sess := sessions.NewService(a.sessionRepository(ctx), cfg.Admin.IdleTimeout)
	blacklist := sessions.NewBlacklist(a.redis)
	verifier := tokens.NewVerifier(cfg.JWT.Secret, blacklist, sess)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", a.ready)

	blogHandler.RegisterPublicRoutes(r, blogs)
	contactHandler.RegisterSubmitRoutes(r, contacts, contactLimits...)
	youtube.RegisterRoutes(r, videos)
	sitemap.RegisterRoutes(r, sitemap.New(cfg.Site.URL, blogs))

	handlers.NewAuthHandler(cfg, sess, blacklist).Register(r)
	handlers.RegisterSwagger(r)

	admin := r.Group("/api/admin", middleware.AuthMiddleware(verifier))
	blogHandler.RegisterAdminRoutes(admin, blogs, images)
	contactHandler.RegisterAdminRoutes(admin, contacts)

	a.router = r
	return a
}

// limiter shares b across replicas through Redis when configured, else per process.
func (a *app) limiter(b middleware.Budget, windowSeconds int) gin.HandlerFunc {
	if a.cfg.RateLimit.UseRedis && a.redis != nil {
		return middleware.RedisRateLimitMiddleware(a.redis, b, time.Duration(windowSeconds)*time.Second)
	}
	return middleware.RateLimitMiddleware(b)
}

// sessionRepository prefers Redis, then MongoDB, then process memory.
func (a *app) sessionRepository(ctx context.Context) sessions.Repository {
	if a.redis != nil {
		logger.Infof("using Redis for admin sessions")
		return sessions.NewRedisRepository(a.redis, "")
	}
	if a.mongo != nil && a.mongo.Configured() {
		repo := sessions.NewMongoRepository(a.mongo.Database)
		ictx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := repo.EnsureIndexes(ictx); err != nil {
			logger.Warnf("admin_sessions TTL index not created: %v", err)
		}
		logger.Infof("using MongoDB for admin sessions")
		return repo
	}
	logger.Warnf("using in-memory admin sessions")
	return sessions.NewMemoryRepository()
}

// ready returns 200 only when every configured dependency answers.
func (a *app) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	ready := true
	deps := map[string]bool{}
	if a.mongo != nil {
		deps["mongodb"] = a.mongo.Ping(ctx) == nil
		ready = ready && deps["mongodb"]
	}
	if a.redis != nil {
		deps["redis"] = a.redis.Ping(ctx).Err() == nil
		ready = ready && deps["redis"]
	}
	if a.images != nil {
		deps["minio"] = a.images.Ping(ctx) == nil
		ready = ready && deps["minio"]
	}

	status, word := http.StatusOK, "ready"
	if !ready {
		status, word = http.StatusServiceUnavailable, "not_ready"
	}
	c.JSON(status, gin.H{"status": word, "deps": deps, "uptime": time.Since(startTime).String()})
}

func (a *app) close(ctx context.Context) {
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			logger.Warnf("mongo close: %v", err)
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
