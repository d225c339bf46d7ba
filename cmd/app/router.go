package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/sushihentaime/bloglist/internal/metrics"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundErrorResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedErrorResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthCheckHandler)
	router.Handler(http.MethodGet, "/metrics", metrics.Handler(app.registry))

	// user service
	router.HandlerFunc(http.MethodGet, "/api/users", app.listUsersHandler)
	router.HandlerFunc(http.MethodPost, "/api/users", app.createUserHandler)
	router.HandlerFunc(http.MethodGet, "/api/users/:id", app.getUserHandler)
	router.HandlerFunc(http.MethodPost, "/api/login", app.loginUserHandler)

	// blog service
	router.HandlerFunc(http.MethodGet, "/api/blogs", app.listBlogsHandler)
	router.HandlerFunc(http.MethodPost, "/api/blogs", app.requireAuthenticatedUser(app.createBlogHandler))
	router.HandlerFunc(http.MethodGet, "/api/blogs/:id", app.getBlogHandler)
	router.HandlerFunc(http.MethodPut, "/api/blogs/:id", app.requireAuthenticatedUser(app.updateBlogHandler))
	router.HandlerFunc(http.MethodDelete, "/api/blogs/:id", app.requireAuthenticatedUser(app.deleteBlogHandler))
	router.HandlerFunc(http.MethodGet, "/api/stats", app.statsHandler)

	return app.recordMetrics(app.recoverPanic(app.logRequest(app.enableCORS(app.rateLimit(app.authenticate(router))))))
}
