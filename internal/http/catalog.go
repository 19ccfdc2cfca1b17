package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/freelancehub/internal/model"
	"github.com/nurpe/freelancehub/internal/service"
)

func (h *Handler) registerCatalog(group *gin.RouterGroup) {
	tasks := group.Group("/tasks")
	tasks.GET("", h.listTasks)
	tasks.POST("", h.createTask)
	tasks.GET("/:id", h.getTask)
	tasks.PUT("/:id", h.updateTask)
	tasks.PATCH("/:id", h.updateTask)
	tasks.DELETE("/:id", h.deleteTask)

	services := group.Group("/services")
	services.GET("", h.listServices)
	services.POST("", h.createService)
	services.GET("/:id", h.getService)
	services.PUT("/:id", h.updateService)
	services.PATCH("/:id", h.updateService)
	services.DELETE("/:id", h.deleteService)
}

type taskRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Location    *string          `json:"location"`
	Category    *string          `json:"category"`
	Status      *string          `json:"status"`
	Owner       *uuid.UUID       `json:"owner"`
}

func (r taskRequest) toInput() service.TaskInput {
	input := service.TaskInput{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Location:    r.Location,
		Category:    r.Category,
		OwnerID:     r.Owner,
	}
	if r.Status != nil {
		status := model.TaskStatus(strings.TrimSpace(*r.Status))
		input.Status = &status
	}
	return input
}

type serviceRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	RateType    *string          `json:"rate_type"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate"`
	ProjectRate *decimal.Decimal `json:"project_rate"`
	Category    *string          `json:"category"`
	Author      *uuid.UUID       `json:"author"`
	Rating      *float64         `json:"rating"`
}

func (r serviceRequest) toInput() service.ServiceInput {
	input := service.ServiceInput{
		Title:       r.Title,
		Description: r.Description,
		HourlyRate:  r.HourlyRate,
		ProjectRate: r.ProjectRate,
		Category:    r.Category,
		AuthorID:    r.Author,
		Rating:      r.Rating,
	}
	if r.RateType != nil {
		rateType := model.RateType(strings.TrimSpace(*r.RateType))
		input.RateType = &rateType
	}
	return input
}

// catalogQuery collects filter, search and ordering parameters. Unknown
// filter keys are dropped by the repository.
func catalogQuery(c *gin.Context) model.CatalogQuery {
	q := model.CatalogQuery{
		Filters:  map[string]string{},
		Search:   c.Query("search"),
		Ordering: c.Query("ordering"),
	}
	for key, values := range c.Request.URL.Query() {
		if key == "search" || key == "ordering" || len(values) == 0 {
			continue
		}
		q.Filters[key] = values[0]
	}
	return q
}

func (h *Handler) listTasks(c *gin.Context) {
	tasks, err := h.catalog.ListTasks(c.Request.Context(), catalogQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	result := make([]taskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = toTask(t)
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	task, err := h.catalog.GetTask(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTask(*task))
}

func (h *Handler) createTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	task, err := h.catalog.CreateTask(c.Request.Context(), req.toInput())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTask(*task))
}

func (h *Handler) updateTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	task, err := h.catalog.UpdateTask(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTask(*task))
}

func (h *Handler) deleteTask(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteTask(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listServices(c *gin.Context) {
	services, err := h.catalog.ListServices(c.Request.Context(), catalogQuery(c))
	if err != nil {
		h.handleError(c, err)
		return
	}
	result := make([]serviceResponse, len(services))
	for i, s := range services {
		result[i] = toService(s)
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getService(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	svc, err := h.catalog.GetService(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toService(*svc))
}

func (h *Handler) createService(c *gin.Context) {
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	svc, err := h.catalog.CreateService(c.Request.Context(), req.toInput())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toService(*svc))
}

func (h *Handler) updateService(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req serviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	svc, err := h.catalog.UpdateService(c.Request.Context(), id, req.toInput())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toService(*svc))
}

func (h *Handler) deleteService(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteService(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
