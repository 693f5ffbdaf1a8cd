// Package server assembles the HTTP surface of the guard daemon.
package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-guard/internal/api"
	"github.com/celerix-dev/celerix-guard/pkg/policy"
)

// Identity headers the session collaborator forwards. The guard does not
// authenticate; it consumes whatever identity the fronting layer vouches for.
const (
	ActorHeader  = "X-Guard-Actor"
	GroupsHeader = "X-Guard-Groups"
)

// PrincipalFunc resolves the acting principal for a request.
type PrincipalFunc func(c *gin.Context) policy.Principal

// HeaderPrincipal resolves the principal from the identity headers.
// A request without an actor header is unauthorized.
func HeaderPrincipal(c *gin.Context) policy.Principal {
	actor := c.GetHeader(ActorHeader)
	if actor == "" {
		return policy.Principal{}
	}
	var groups []string
	if raw := c.GetHeader(GroupsHeader); raw != "" {
		for _, g := range strings.Split(raw, ",") {
			if g = strings.TrimSpace(g); g != "" {
				groups = append(groups, g)
			}
		}
	}
	return policy.Principal{ID: actor, Groups: groups, Authenticated: true}
}

// NewRouter builds the gin engine with the user routes mounted under /api.
// A nil resolve falls back to HeaderPrincipal.
func NewRouter(h *api.Handler, resolve PrincipalFunc) *gin.Engine {
	if resolve == nil {
		resolve = HeaderPrincipal
	}

	r := gin.Default()

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, "+ActorHeader+", "+GroupsHeader)
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Attach the resolved principal and advertise the entity's declared
	// rate budget. Enforcement belongs to the fronting layer; the guard
	// only carries the declaration.
	rate := h.Users.Entity().Rate
	r.Use(func(c *gin.Context) {
		c.Set(api.PrincipalKey, resolve(c))
		if !rate.IsZero() {
			c.Writer.Header().Set("X-RateLimit-Policy", rate.String())
		}
		c.Next()
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/users", h.CreateUser)
		apiGroup.GET("/users", h.ListUsers)
		apiGroup.GET("/users/:id", h.GetUser)
		apiGroup.PATCH("/users/:id", h.UpdateUser)
		apiGroup.DELETE("/users/:id", h.DeleteUser)
		apiGroup.POST("/users/:id/confirm", h.ConfirmKey)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "API route not found"})
	})

	return r
}
