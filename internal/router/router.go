package router

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"usermgmt/internal/handler"
	"usermgmt/internal/logging"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	log logging.Logger,
	accountHandler *handler.AccountHandler,
	healthHandler *handler.HealthHandler,
	authMiddleware *handler.AuthMiddleware,
) {
	e.HideBanner = true
	e.HTTPErrorHandler = handler.ErrorHandler(log)
	e.Validator = NewValidator()

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(log))
	e.Use(middleware.Recover())

	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Public routes
	e.POST("/users", accountHandler.Register)

	// Authenticated routes
	users := e.Group("/users", authMiddleware.BasicAuth())
	users.GET("/me", accountHandler.Me)
	users.PATCH("/me", accountHandler.UpdateMe)

	// Admin routes
	admin := users.Group("", authMiddleware.RequireAdmin)
	admin.GET("", accountHandler.List)
	admin.GET("/:id", accountHandler.Get)
	admin.PATCH("/:id/activate", accountHandler.Activate)
	admin.PATCH("/:id/deactivate", accountHandler.Deactivate)
	admin.DELETE("/:id", accountHandler.Delete)
}

func requestLogger(log logging.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			args := []any{
				"request_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				args = append(args, "error", v.Error)
			}
			log.Info(c.Request().Context(), "request", args...)
			return nil
		},
	})
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the request validator used by every handler.
// Field errors are reported under their JSON names.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
