package dealserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// IndexText is served on GET / as a liveness banner.
const IndexText = "Bot is running!"

// Route is the information for every URI.
type Route struct {
	// Name is the name of this Route.
	Name string
	// Method is the string for the HTTP method. ex) GET, POST etc..
	Method string
	// Pattern is the pattern of the URI.
	Pattern string
	// HandlerFunc is the handler function of this route.
	HandlerFunc gin.HandlerFunc
}

// ApiHandleFunctions groups the handlers the router dispatches to.
type ApiHandleFunctions struct {
	// Routes for the Telegram webhook
	WebhookAPI WebhookAPI
	// Routes for the deal lookup API
	DealAPI DealAPI
	// Metrics serves the Prometheus exposition, when set.
	Metrics http.Handler
}

// NewRouter returns a new router.
func NewRouter(handleFunctions ApiHandleFunctions) *gin.Engine {
	return NewRouterWithGinEngine(gin.Default(), handleFunctions)
}

// NewRouterWithGinEngine adds the routes to an existing gin engine.
func NewRouterWithGinEngine(router *gin.Engine, handleFunctions ApiHandleFunctions) *gin.Engine {
	for _, route := range getRoutes(handleFunctions) {
		if route.HandlerFunc == nil {
			route.HandlerFunc = DefaultHandleFunc
		}
		switch route.Method {
		case http.MethodGet:
			router.GET(route.Pattern, route.HandlerFunc)
		case http.MethodPost:
			router.POST(route.Pattern, route.HandlerFunc)
		}
	}
	return router
}

// DefaultHandleFunc is the default handler for routes without an implementation.
func DefaultHandleFunc(c *gin.Context) {
	c.String(http.StatusNotImplemented, "501 not implemented")
}

// Index answers GET / for uptime checks.
func Index(c *gin.Context) {
	c.String(http.StatusOK, IndexText)
}

func getRoutes(handleFunctions ApiHandleFunctions) []Route {
	routes := []Route{
		{
			"Index",
			http.MethodGet,
			"/",
			Index,
		},
		{
			"ReceiveUpdate",
			http.MethodPost,
			"/webhook/:secret",
			handleFunctions.WebhookAPI.ReceiveUpdate,
		},
		{
			"GetDeal",
			http.MethodGet,
			"/v1/deals",
			handleFunctions.DealAPI.GetDeal,
		},
	}
	if handleFunctions.Metrics != nil {
		routes = append(routes, Route{
			"Metrics",
			http.MethodGet,
			"/metrics",
			gin.WrapH(handleFunctions.Metrics),
		})
	}
	return routes
}
