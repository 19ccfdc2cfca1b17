package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/freelancehub/internal/http/middleware"
	"github.com/nurpe/freelancehub/internal/model"
	"github.com/nurpe/freelancehub/internal/service"
)

func (h *Handler) registerOffer(api *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	api.GET("/offer/ping", h.ping)

	proposals := api.Group("/proposals")
	proposals.Use(authMiddleware)
	proposals.GET("", h.listProposals)
	proposals.POST("", h.createProposal)
	proposals.GET("/stats", h.proposalStats)
	proposals.GET("/:id", h.getProposal)
	proposals.PUT("/:id", h.updateProposal)
	proposals.PATCH("/:id", h.updateProposal)
	proposals.DELETE("/:id", h.deleteProposal)
	proposals.POST("/:id/withdraw", h.proposalAction(h.proposals.Withdraw))
	proposals.POST("/:id/shortlist", h.proposalAction(h.proposals.Shortlist))
	proposals.POST("/:id/reject", h.proposalAction(h.proposals.Reject))
	proposals.POST("/:id/accept", h.acceptProposal)

	assignments := api.Group("/assignments")
	assignments.Use(authMiddleware)
	assignments.GET("", h.listAssignments)
	assignments.GET("/:id", h.getAssignment)
	assignments.GET("/:id/agreement", h.assignmentAgreement)
}

func (h *Handler) ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "app": "offer"})
}

type proposalRequest struct {
	Job         *string          `json:"job"`
	CoverLetter *string          `json:"cover_letter"`
	BidAmount   *decimal.Decimal `json:"bid_amount"`
	Days        *int             `json:"days"`
}

func (r proposalRequest) toInput() (service.ProposalInput, error) {
	input := service.ProposalInput{
		CoverLetter: r.CoverLetter,
		BidAmount:   r.BidAmount,
		Days:        r.Days,
	}
	if r.Job != nil && strings.TrimSpace(*r.Job) != "" {
		id, err := uuid.Parse(strings.TrimSpace(*r.Job))
		if err != nil {
			return input, &service.ValidationError{Fields: map[string]string{"job": "invalid job id"}}
		}
		input.JobID = id
	}
	return input, nil
}

func (h *Handler) listProposals(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	input := service.ListProposalsInput{
		Mine:   isTruthy(c.Query("mine")),
		Status: model.ProposalStatus(strings.TrimSpace(c.Query("status"))),
	}
	if raw := strings.TrimSpace(c.Query("job")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusOK, []proposalResponse{})
			return
		}
		input.JobID = &id
	}

	proposals, err := h.proposals.List(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	result := make([]proposalResponse, len(proposals))
	for i, p := range proposals {
		result[i] = h.toProposal(c, p)
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) createProposal(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var req proposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.handleError(c, err)
		return
	}

	proposal, err := h.proposals.Create(c.Request.Context(), principal, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.toProposal(c, *proposal))
}

func (h *Handler) getProposal(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	proposal, err := h.proposals.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toProposal(c, *proposal))
}

func (h *Handler) updateProposal(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req proposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.handleError(c, err)
		return
	}

	proposal, err := h.proposals.Update(c.Request.Context(), principal, id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toProposal(c, *proposal))
}

func (h *Handler) deleteProposal(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.proposals.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type proposalTransition func(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.ProposalDetails, error)

// proposalAction serves the status change endpoints.
func (h *Handler) proposalAction(transition proposalTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := middleware.MustPrincipal(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
			return
		}
		id, ok := parseIDParam(c, "id")
		if !ok {
			return
		}
		proposal, err := transition(c.Request.Context(), principal, id)
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, h.toProposal(c, *proposal))
	}
}

func (h *Handler) acceptProposal(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.proposals.Accept(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"proposal":   h.toProposal(c, result.Proposal),
		"assignment": h.toAssignment(c, result.Assignment),
	})
}

func (h *Handler) proposalStats(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var jobID *uuid.UUID
	if raw := strings.TrimSpace(c.Query("job")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		jobID = &id
	}

	stats, err := h.proposals.Stats(c.Request.Context(), principal, jobID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{
		Job:         stats.JobID,
		Total:       stats.Total,
		Shortlisted: stats.Shortlisted,
		Accepted:    stats.Accepted,
	})
}

func (h *Handler) listAssignments(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	assignments, err := h.proposals.Assignments(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	result := make([]assignmentResponse, len(assignments))
	for i, a := range assignments {
		result[i] = h.toAssignment(c, a)
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getAssignment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	assignment, err := h.proposals.GetAssignment(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toAssignment(c, *assignment))
}

func (h *Handler) assignmentAgreement(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.proposals.Agreement(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, "application/pdf", result)
}
