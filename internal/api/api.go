// Package api exposes the user guard over HTTP.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/celerix-guard/internal/engine"
	"github.com/celerix-dev/celerix-guard/internal/users"
	"github.com/celerix-dev/celerix-guard/pkg/policy"
)

// PrincipalKey is the gin context key the router stores the resolved
// acting principal under.
const PrincipalKey = "guard.principal"

// Principal returns the acting principal for the request. Requests that
// passed no identity resolve to the zero (unauthorized) principal.
func Principal(c *gin.Context) policy.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(policy.Principal); ok {
			return p
		}
	}
	return policy.Principal{}
}

type Handler struct {
	Users *users.Service
}

func (h *Handler) CreateUser(c *gin.Context) {
	var attrs map[string]any
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.Users.Create(c.Request.Context(), Principal(c), attrs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": rec.ID})
}

func (h *Handler) GetUser(c *gin.Context) {
	view, err := h.Users.Get(c.Request.Context(), Principal(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) ListUsers(c *gin.Context) {
	views, err := h.Users.List(c.Request.Context(), Principal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	var attrs map[string]any
	if err := c.ShouldBindJSON(&attrs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.Users.Update(c.Request.Context(), Principal(c), c.Param("id"), attrs); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.Users.Delete(c.Request.Context(), Principal(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *Handler) ConfirmKey(c *gin.Context) {
	var input struct {
		Key any `json:"key"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Users.ConfirmKey(c.Request.Context(), Principal(c), c.Param("id"), input.Key); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// writeError maps the guard's error kinds onto HTTP statuses. The body
// always carries the specific kind and attribute so a rejected write-set
// names what was refused.
func writeError(c *gin.Context, err error) {
	var (
		authzErr      *policy.AuthorizationError
		validationErr *policy.ValidationError
		missingErr    *policy.MissingFieldError
		duplicateErr  *policy.DuplicateError
	)
	switch {
	case errors.As(err, &authzErr), errors.Is(err, policy.ErrInvalidKey):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &validationErr), errors.As(err, &missingErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
