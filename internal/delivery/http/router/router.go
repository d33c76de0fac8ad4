// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"console/internal/delivery/http/middleware"
	"console/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler        *handler.AuthHandler
	ProductHandler     *handler.ProductHandler
	TransactionHandler *handler.TransactionHandler
	SessionMiddleware  *middleware.SessionMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler        *handler.AuthHandler
	productHandler     *handler.ProductHandler
	transactionHandler *handler.TransactionHandler
	sessionMiddleware  *middleware.SessionMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:        params.AuthHandler,
		productHandler:     params.ProductHandler,
		transactionHandler: params.TransactionHandler,
		sessionMiddleware:  params.SessionMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the console.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Auth routes
	authGroup := e.Group("/auth")
	{
		authGroup.POST("/register", r.authHandler.Register)
		authGroup.POST("/login", r.authHandler.Login)
		authGroup.POST("/logout", r.authHandler.Logout)
	}

	// Session routes that require a logged-in merchant
	sessionGroup := e.Group("/session")
	sessionGroup.Use(r.sessionMiddleware.Require)
	{
		sessionGroup.GET("", r.authHandler.Current)
		sessionGroup.PUT("/profile", r.authHandler.UpdateProfile)
	}

	// Catalog routes. The delete flow is two-step: DELETE marks the product,
	// confirm-delete dispatches it.
	productGroup := e.Group("/products")
	productGroup.Use(r.sessionMiddleware.Require)
	{
		productGroup.GET("", r.productHandler.List)
		productGroup.POST("", r.productHandler.Create)
		productGroup.PUT("/:id", r.productHandler.Update)
		productGroup.DELETE("/:id", r.productHandler.RequestDelete)
		productGroup.POST("/:id/confirm-delete", r.productHandler.ConfirmDelete)
		productGroup.POST("/:id/cancel-delete", r.productHandler.CancelDelete)
		productGroup.POST("/:id/edit", r.productHandler.BeginEdit)
		productGroup.DELETE("/edit", r.productHandler.CancelEdit)
	}

	// Report routes
	transactionGroup := e.Group("/transactions")
	transactionGroup.Use(r.sessionMiddleware.Require)
	{
		transactionGroup.POST("/filter", r.transactionHandler.Filter)
	}
}
