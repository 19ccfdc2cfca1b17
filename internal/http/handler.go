package http

import (
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/freelancehub/internal/service"
	"github.com/nurpe/freelancehub/internal/storage"
)

type Handler struct {
	users     *service.UserService
	jobs      *service.JobService
	proposals *service.ProposalService
	catalog   *service.CatalogService
	files     *storage.Storage
	maxUpload int64
	proxies   []netip.Prefix
	log       zerolog.Logger
}

type Services struct {
	Users     *service.UserService
	Jobs      *service.JobService
	Proposals *service.ProposalService
	Catalog   *service.CatalogService
}

func NewHandler(services Services, files *storage.Storage, maxUploadMB int64, log zerolog.Logger) *Handler {
	return &Handler{
		users:     services.Users,
		jobs:      services.Jobs,
		proposals: services.Proposals,
		catalog:   services.Catalog,
		files:     files,
		maxUpload: maxUploadMB << 20,
		log:       log,
	}
}

// Register mounts every API route. Accounts are also served under /api/auth
// and jobs under /api/tasks.
func (h *Handler) Register(router *gin.Engine, authMiddleware, optionalAuth gin.HandlerFunc) {
	api := router.Group("/api")

	for _, prefix := range []string{"/accounts", "/auth"} {
		h.registerAccounts(api.Group(prefix), authMiddleware)
	}
	for _, prefix := range []string{"/jobs", "/tasks"} {
		h.registerJobs(api.Group(prefix), authMiddleware, optionalAuth)
	}
	h.registerOffer(api, authMiddleware)
	h.registerCatalog(api.Group("/catalog"))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	var validation *service.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": validation.Fields})
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrAlreadyExists), errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrTooManyRequests):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many login attempts, try again later"})
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bindError reports a malformed body, with per-field messages when the
// validator produced them.
func (h *Handler) bindError(c *gin.Context, err error) {
	if fields := validationFields(err); len(fields) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": fields})
		return
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// missingFile answers a failed multipart lookup of field.
func (h *Handler) missingFile(c *gin.Context, field string, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": gin.H{field: "no file was submitted"}})
}

func (h *Handler) limitBody(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return uuid.Nil, false
	}
	return id, true
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, strconv.ErrSyntax
}

func isTruthy(raw string) bool {
	value, err := parseBool(raw)
	return err == nil && value
}

func sendFile(c *gin.Context, contentType string, result *service.FileResult) {
	c.Header("Content-Disposition", "attachment; filename=\""+result.FileName+"\"")
	c.Data(http.StatusOK, contentType, result.Content)
}
