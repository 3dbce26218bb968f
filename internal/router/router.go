package router

import (
	"time"

	"sazonpos/internal/clock"
	"sazonpos/internal/config"
	"sazonpos/internal/handler"
	"sazonpos/internal/infra"
	"sazonpos/internal/middleware"
	"sazonpos/internal/repository"
	"sazonpos/internal/service"
	"sazonpos/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, printerCB *infra.CircuitBreaker, clk clock.Clock, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	productoRepo := repository.NewProductoRepository(db)
	ventaRepo := repository.NewVentaRepository(db)
	sesionRepo := repository.NewSesionTicketRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	productoSvc := service.NewProductoService(productoRepo)
	sesionSvc := service.NewSesionTicketService(sesionRepo, clk)
	ventaSvc := service.NewVentaService(ventaRepo, sesionSvc, productoRepo, dispatcher, clk)
	turnos := service.NewTurnoTracker(sesionSvc, clk)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(authSvc)
	productosH := handler.NewProductosHandler(productoSvc)
	ventasH := handler.NewVentasHandler(ventaSvc, turnos)
	sesionesH := handler.NewSesionesHandler(sesionSvc, clk)
	reportesH := handler.NewReportesHandler(sesionSvc, clk)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, printerCB))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cajero, supervisor, administrador — declared per-endpoint
		v1.POST("/ventas", middleware.RequireRole("cajero", "supervisor", "administrador"), ventasH.RegistrarVenta)
		v1.GET("/ventas", middleware.RequireRole("cajero", "supervisor", "administrador"), ventasH.ListarVentas)
		v1.GET("/ventas/:id", middleware.RequireRole("cajero", "supervisor", "administrador"), ventasH.ObtenerVenta)

		// Ticket sessions — every cashier manages their own
		sesiones := v1.Group("/sesiones", middleware.RequireRole("cajero", "supervisor", "administrador"))
		{
			sesiones.GET("/activa", sesionesH.Activa)
			sesiones.POST("/cerrar", sesionesH.Cerrar)
		}
		v1.POST("/sesiones/nuevo-dia", middleware.RequireRole("supervisor", "administrador"), sesionesH.NuevoDia)

		// Reports — supervisor or administrador
		reportes := v1.Group("/reportes", middleware.RequireRole("supervisor", "administrador"))
		{
			reportes.GET("/diario", reportesH.Diario)
			reportes.GET("/sesiones", reportesH.Sesiones)
		}

		// GET /v1/productos — all roles can read (the sale screen needs the catalog)
		v1.GET("/productos", middleware.RequireRole("cajero", "supervisor", "administrador"), productosH.Listar)
		v1.GET("/productos/:id", middleware.RequireRole("cajero", "supervisor", "administrador"), productosH.ObtenerPorID)
		// Write operations — administrador only
		prods := v1.Group("/productos", middleware.RequireRole("administrador"))
		{
			prods.POST("", productosH.Crear)
			prods.PUT("/:id", productosH.Actualizar)
			prods.DELETE("/:id", productosH.Desactivar)
			prods.PATCH("/:id/reactivar", productosH.Reactivar)
		}

		usuarios := v1.Group("/usuarios", middleware.RequireRole("administrador"))
		{
			usuarios.POST("", usuariosH.Crear)
			usuarios.GET("", usuariosH.Listar)
			usuarios.PUT("/:id", usuariosH.Actualizar)
			usuarios.DELETE("/:id", usuariosH.Desactivar)
			usuarios.PATCH("/:id/reactivar", usuariosH.Reactivar)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
