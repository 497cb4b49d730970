package router

import (
	"context"
	"time"

	"candycost/internal/config"
	"candycost/internal/handler"
	"candycost/internal/infra"
	"candycost/internal/middleware"
	"candycost/internal/repository"
	"candycost/internal/service"
	"candycost/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the wired services the routes depend on.
type Deps struct {
	Auth       service.AuthService
	Components service.ComponentService
	Products   service.ProductService
	// Queue is nil without Redis; recalculation then runs inline.
	Queue  handler.RecostQueue
	Health gin.HandlerFunc
}

// Wire builds every dependency. Dependency graph: Handler ← Service ← Repository ← DB/Redis.
// rdb may be nil, which disables the product cache and the job queue.
func Wire(cfg *config.Config, db *gorm.DB, rdb *redis.Client) Deps {
	// ── Infrastructure ───────────────────────────────────────────────────────
	var (
		cache   service.ProductCache = service.NoopCache{}
		cacheCB *infra.CircuitBreaker
		queue   handler.RecostQueue
	)
	if rdb != nil {
		pc := infra.NewProductCache(rdb, infra.NewCircuitBreaker(infra.DefaultCBConfig()),
			time.Duration(cfg.CacheTTLMinutes)*time.Minute)
		cache, cacheCB = pc, pc.Breaker()
		queue = worker.NewDispatcher(rdb)
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	uow := repository.NewUnitOfWork(db)
	repos := repository.NewRepos(db)
	userRepo := repository.NewUserRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	engine := service.NewCostEngine(uow)

	return Deps{
		Auth:       service.NewAuthService(userRepo, cfg),
		Components: service.NewComponentService(uow, repos.Components, engine, cache, cfg.DeletePolicy),
		Products:   service.NewProductService(uow, repos, engine, cache, cfg.DeletePolicy),
		Queue:      queue,
		Health:     handler.Health(db, rdb, cacheCB),
	}
}

// New wires all dependencies and returns a configured Gin engine.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	return Routes(ctx, cfg, Wire(cfg, db, rdb))
}

// Routes mounts the middleware chain and every endpoint on a new engine.
// Background middleware state is released when ctx is done.
func Routes(ctx context.Context, cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(ctx, cfg.APIRatePerMinute))

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(d.Auth)
	componentsH := handler.NewComponentsHandler(d.Components)
	productsH := handler.NewProductsHandler(d.Products, d.Queue)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	if d.Health != nil {
		r.GET("/health", d.Health)
	}
	r.POST("/users", authH.Register)
	r.POST("/users/login", middleware.LoginRateLimiter(ctx, cfg.LoginRatePerMinute), authH.Login)

	// Protected routes
	api := r.Group("", middleware.JWTAuth(cfg.JWTSecret))
	{
		api.GET("/users/validate-token", authH.ValidateToken)

		comps := api.Group("/components")
		{
			comps.GET("", componentsH.List)
			comps.GET("/search", componentsH.Search)
			comps.GET("/categories", componentsH.Categories)
			comps.GET("/:id", componentsH.GetByID)
			comps.POST("", componentsH.Create)
			comps.PUT("/:id", componentsH.Update)
			comps.DELETE("/:id", componentsH.Delete)
		}

		prods := api.Group("/products")
		{
			prods.GET("", productsH.List)
			prods.GET("/search", productsH.Search)
			prods.GET("/categories", productsH.Categories)
			prods.POST("/recalculate", productsH.Recalculate)
			prods.GET("/:id", productsH.GetByID)
			prods.GET("/:id/cost", productsH.Cost)
			prods.GET("/:id/cost-history", productsH.CostHistory)
			prods.GET("/:id/cost-sheet", productsH.CostSheet)
			prods.POST("", productsH.Create)
			prods.PUT("/:id", productsH.Update)
			prods.DELETE("/:id", productsH.Delete)
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
