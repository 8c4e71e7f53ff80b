// routes.go - 路由与中间件注册
package api

import (
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ByLCY/posterkit/config"
	"github.com/ByLCY/posterkit/export"
)

// Dependencies 汇总各 handler 需要的依赖。
type Dependencies struct {
	Preparer *export.Preparer
	Exporter *export.Exporter
	Logger   *log.Logger
	Version  string
}

// Handlers 持有全部 handler 实例。
type Handlers struct {
	Health *HealthHandler
	Export *ExportHandler
}

func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health: NewHealthHandler(deps.Version),
		Export: NewExportHandler(deps.Preparer, deps.Exporter),
	}
}

// RegisterRoutes 注册全部 API 路由。
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/health", handlers.Health.HandleHealth)

	exportGroup := e.Group("/api/export")
	exportGroup.POST("/png", handlers.Export.HandleExportPNG)
	exportGroup.POST("/pptx", handlers.Export.HandleExportPPTX)

	e.POST("/api/components", handlers.Export.HandleComponents)
}

// SetupMiddleware 配置错误处理、恢复、请求体限制与请求日志。
func SetupMiddleware(e *echo.Echo, cfg config.ServerConfig, logger *log.Logger) {
	e.HTTPErrorHandler = ErrorHandler
	e.Use(middleware.Recover())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if cfg.LogRequest && logger != nil {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogMethod:    true,
			LogURI:       true,
			LogStatus:    true,
			LogLatency:   true,
			LogRequestID: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				logger.Printf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
				return nil
			},
		}))
	}
}

// NewServer 创建配置好中间件与路由的 echo 实例。
func NewServer(cfg config.ServerConfig, deps *Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	SetupMiddleware(e, cfg, deps.Logger)
	RegisterRoutes(e, NewHandlers(deps))
	return e
}
