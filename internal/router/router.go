package router

import (
	"time"

	"github.com/juan135072/chamos-barber-app-sub003/internal/config"
	"github.com/juan135072/chamos-barber-app-sub003/internal/handler"
	"github.com/juan135072/chamos-barber-app-sub003/internal/infra"
	"github.com/juan135072/chamos-barber-app-sub003/internal/middleware"
	"github.com/juan135072/chamos-barber-app-sub003/internal/repository"
	"github.com/juan135072/chamos-barber-app-sub003/internal/service"
	"github.com/juan135072/chamos-barber-app-sub003/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, agendaCB *infra.CircuitBreaker) *gin.Engine {
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

	// ── Infrastructure ───────────────────────────────────────────────────────
	citasClient := infra.NewCitasClient(cfg.CitasServiceURL)

	// ── Repositories ─────────────────────────────────────────────────────────
	usuarioRepo := repository.NewUsuarioRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	facturaRepo := repository.NewFacturaRepository(db)
	barberoRepo := repository.NewBarberoRepository(db)
	configuracionRepo := repository.NewConfiguracionRepository(db)
	citaSyncRepo := repository.NewCitaSyncRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(usuarioRepo, cfg)
	cajaSvc := service.NewCajaService(cajaRepo, facturaRepo, barberoRepo, dispatcher)
	seguridadSvc := service.NewSeguridadService(configuracionRepo)
	facturaSvc := service.NewFacturaService(facturaRepo, cajaRepo, barberoRepo, seguridadSvc, citaSyncRepo, citasClient, agendaCB)
	reconciliacionSvc := service.NewReconciliacionService(facturaRepo, cajaRepo, cfg.ReconciliacionEpsilon)
	barberoSvc := service.NewBarberoService(barberoRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	cajaH := handler.NewCajaHandler(cajaSvc)
	facturasH := handler.NewFacturaHandler(facturaSvc)
	reconciliacionH := handler.NewReconciliacionHandler(reconciliacionSvc)
	seguridadH := handler.NewSeguridadHandler(seguridadSvc)
	barberosH := handler.NewBarberoHandler(barberoSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, agendaCB))

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
		operador := middleware.RequireRole("cajero", "supervisor", "administrador")
		supervisor := middleware.RequireRole("supervisor", "administrador")
		admin := middleware.RequireRole("administrador")

		caja := v1.Group("/caja")
		{
			caja.POST("/abrir", operador, cajaH.Abrir)
			caja.POST("/ventas", operador, cajaH.RegistrarVenta)
			caja.POST("/ajustes", operador, cajaH.RegistrarAjuste)
			caja.POST("/cerrar", operador, cajaH.Cerrar)
			caja.GET("/activa", operador, cajaH.GetActiva)
			caja.GET("/:id/reporte", operador, cajaH.ObtenerReporte)
			caja.GET("/historial", supervisor, cajaH.Historial)
		}

		facturas := v1.Group("/facturas")
		{
			facturas.GET("", operador, facturasH.Listar)
			facturas.GET("/:id", operador, facturasH.Obtener)
			facturas.POST("/:id/anular", supervisor, facturasH.Anular)
			facturas.POST("/:id/corregir", supervisor, facturasH.Corregir)
		}

		v1.GET("/barberos", operador, barberosH.Listar)
		v1.GET("/barberos/:id", operador, barberosH.Obtener)

		reconciliacion := v1.Group("/reconciliacion", supervisor)
		{
			reconciliacion.POST("/facturas", reconciliacionH.Ejecutar)
			reconciliacion.GET("/sesiones/:id", reconciliacionH.VerificarSesion)
		}

		seguridad := v1.Group("/seguridad", admin)
		{
			seguridad.PUT("/clave", seguridadH.EstablecerClave)
			seguridad.GET("/estado", seguridadH.Estado)
		}

		usuarios := v1.Group("/usuarios", admin)
		{
			usuarios.POST("", authH.CrearUsuario)
			usuarios.GET("", authH.ListarUsuarios)
			usuarios.PUT("/:id", authH.ActualizarUsuario)
			usuarios.DELETE("/:id", authH.DesactivarUsuario)
		}
	}

	return r
}
