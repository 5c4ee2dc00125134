package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/shopmaster/store-system/internal/api/handler"
	"github.com/shopmaster/store-system/internal/api/middleware"
	"github.com/shopmaster/store-system/internal/core/domain"
	"github.com/shopmaster/store-system/internal/core/ports"
	"github.com/shopmaster/store-system/internal/core/refdata"
)

// Deps carries everything the router wires into handlers. Mongo and
// Redis may be nil (file-storage mode, or replay protection disabled);
// the readiness probe adapts.
type Deps struct {
	AuthService     ports.AuthService
	Sessions        ports.SessionManager
	Brands          *refdata.BrandCatalog
	Currencies      *refdata.CurrencyTable
	Mongo           *mongo.Database
	Redis           *redis.Client
	JWTSecret       string
	OnlineThreshold time.Duration
	Log             zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("shopmaster"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.AuthService, deps.Sessions)
	sessionHandler := handler.NewSessionHandler(deps.Sessions)
	storeHandler := handler.NewStoreHandler(deps.Currencies, deps.OnlineThreshold)
	refdataHandler := handler.NewRefdataHandler(deps.Brands, deps.Currencies)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Reference data (no auth required) ---
	e.GET("/v1/brands", refdataHandler.Brands)
	e.GET("/v1/countries", refdataHandler.Countries)
	e.GET("/v1/countries/convert", refdataHandler.Convert)

	// --- Session-scoped routes ---
	v1 := e.Group("/v1", middleware.Auth(deps.JWTSecret), middleware.Session(deps.Sessions))

	v1.GET("/session", sessionHandler.Get)
	v1.GET("/session/stores", sessionHandler.Stores)
	v1.POST("/session/store", sessionHandler.Select)
	v1.POST("/session/switch", sessionHandler.Switch)
	v1.POST("/session/logout", sessionHandler.Logout)
	v1.POST("/stores", sessionHandler.Provision)
	v1.PATCH("/profile", sessionHandler.UpdateProfile)

	ownerOnly := middleware.RequireRole(domain.RoleOwner)

	v1.GET("/store", storeHandler.Get)
	v1.POST("/store/items", storeHandler.AddItem, ownerOnly)
	v1.PUT("/store/items/:id/price", storeHandler.SetPrice)
	v1.GET("/store/cart", storeHandler.Cart)
	v1.POST("/store/cart/items", storeHandler.AddToCart)
	v1.DELETE("/store/cart/items/:id", storeHandler.RemoveFromCart)
	v1.DELETE("/store/cart", storeHandler.ClearCart)
	v1.POST("/store/checkout", storeHandler.Checkout)
	v1.POST("/store/day-end", storeHandler.EndDay)
	v1.PUT("/store/members", storeHandler.UpdateMembers, ownerOnly)

	// --- Observability ---
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?

	return e
}
