package http

import (
	"net/netip"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nurpe/freelancehub/internal/model"
)

type profileResponse struct {
	ID        uuid.UUID           `json:"id"`
	Email     string              `json:"email"`
	Phone     *string             `json:"phone"`
	Role      model.Role          `json:"role"`
	FirstName string              `json:"first_name"`
	LastName  string              `json:"last_name"`
	Username  string              `json:"username"`
	AvatarURL *string             `json:"avatar_url"`
	Profile   model.PublicProfile `json:"profile"`
}

type publicUserResponse struct {
	ID        uuid.UUID           `json:"id"`
	Username  string              `json:"username"`
	FullName  string              `json:"full_name"`
	AvatarURL *string             `json:"avatar_url"`
	Rating    *float64            `json:"rating"`
	Role      model.Role          `json:"role"`
	Profile   model.PublicProfile `json:"profile"`
}

type ownerResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	Rating    *float64  `json:"rating"`
}

type executorResponse struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	AvatarURL *string   `json:"avatar_url"`
	Rating    *float64  `json:"rating"`
}

type attachmentResponse struct {
	ID          uuid.UUID `json:"id"`
	Job         uuid.UUID `json:"job"`
	URL         *string   `json:"url"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type jobResponse struct {
	ID             uuid.UUID            `json:"id"`
	Owner          *ownerResponse       `json:"owner"`
	Title          string               `json:"title"`
	Category       string               `json:"category"`
	Description    string               `json:"description"`
	Skills         []string             `json:"skills"`
	BudgetType     model.BudgetType     `json:"budget_type"`
	BudgetFixed    *int64               `json:"budget_fixed"`
	BudgetMin      *int64               `json:"budget_min"`
	BudgetMax      *int64               `json:"budget_max"`
	Deadline       string               `json:"deadline"`
	DeadlineText   string               `json:"deadline_text"`
	DeadlineType   model.DeadlineType   `json:"deadline_type"`
	Location       string               `json:"location"`
	Remote         bool                 `json:"remote"`
	Urgent         bool                 `json:"urgent"`
	IsActive       bool                 `json:"is_active"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
	ResponsesCount int64                `json:"responses_count"`
	ViewsCount     int64                `json:"views_count"`
	Attachments    []attachmentResponse `json:"attachments"`
	Status         model.JobStatus      `json:"status"`
	CanceledAt     *time.Time           `json:"canceled_at"`
	CanceledReason string               `json:"canceled_reason"`
}

type proposalResponse struct {
	ID          uuid.UUID            `json:"id"`
	Job         uuid.UUID            `json:"job"`
	Executor    executorResponse     `json:"executor"`
	CoverLetter string               `json:"cover_letter"`
	BidAmount   string               `json:"bid_amount"`
	Days        *int                 `json:"days"`
	Status      model.ProposalStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

type assignmentResponse struct {
	ID        uuid.UUID        `json:"id"`
	Job       uuid.UUID        `json:"job"`
	Executor  executorResponse `json:"executor"`
	Proposal  uuid.UUID        `json:"proposal"`
	CreatedAt time.Time        `json:"created_at"`
}

type statsResponse struct {
	Job         uuid.UUID `json:"job"`
	Total       int64     `json:"total"`
	Shortlisted int64     `json:"shortlisted"`
	Accepted    int64     `json:"accepted"`
}

type taskResponse struct {
	ID          uuid.UUID        `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Price       *string          `json:"price"`
	Location    string           `json:"location"`
	Category    string           `json:"category"`
	Status      model.TaskStatus `json:"status"`
	Owner       *uuid.UUID       `json:"owner"`
	CreatedAt   time.Time        `json:"created_at"`
}

type serviceResponse struct {
	ID          uuid.UUID      `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	RateType    model.RateType `json:"rate_type"`
	HourlyRate  *string        `json:"hourly_rate"`
	ProjectRate *string        `json:"project_rate"`
	Category    string         `json:"category"`
	Author      *uuid.UUID     `json:"author"`
	Rating      *float64       `json:"rating"`
	CreatedAt   time.Time      `json:"created_at"`
}

// absoluteURL resolves a stored path against the request host.
func (h *Handler) absoluteURL(c *gin.Context, storedPath string) *string {
	if storedPath == "" {
		return nil
	}
	url := h.files.URL(storedPath)
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return &url
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if h.fromTrustedProxy(c) {
		switch forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded {
		case "http", "https":
			scheme = forwarded
		}
	}
	url = scheme + "://" + c.Request.Host + "/" + strings.TrimPrefix(url, "/")
	return &url
}

func (h *Handler) fromTrustedProxy(c *gin.Context) bool {
	addr, err := netip.ParseAddr(c.RemoteIP())
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range h.proxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func (h *Handler) toProfile(c *gin.Context, user *model.User) profileResponse {
	return profileResponse{
		ID:        user.ID,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
		AvatarURL: h.absoluteURL(c, user.AvatarPath),
		Profile:   user.Profile,
	}
}

func (h *Handler) toPublicUser(c *gin.Context, user *model.User) publicUserResponse {
	return publicUserResponse{
		ID:        user.ID,
		Username:  user.Username,
		FullName:  user.FullName(),
		AvatarURL: h.absoluteURL(c, user.AvatarPath),
		Rating:    user.Rating,
		Role:      user.Role,
		Profile:   user.Profile,
	}
}

func (h *Handler) toExecutor(c *gin.Context, card model.UserCard) executorResponse {
	return executorResponse{
		ID:        card.ID,
		FullName:  card.FullName,
		AvatarURL: h.absoluteURL(c, card.AvatarPath),
		Rating:    card.Rating,
	}
}

func (h *Handler) toAttachment(c *gin.Context, a model.JobAttachment) attachmentResponse {
	return attachmentResponse{
		ID:          a.ID,
		Job:         a.JobID,
		URL:         h.absoluteURL(c, a.FilePath),
		Name:        a.OriginalName,
		ContentType: a.ContentType,
		Size:        a.Size,
		UploadedAt:  a.UploadedAt,
	}
}

func (h *Handler) toAttachments(c *gin.Context, items []model.JobAttachment) []attachmentResponse {
	result := make([]attachmentResponse, len(items))
	for i, a := range items {
		result[i] = h.toAttachment(c, a)
	}
	return result
}

func (h *Handler) toJob(c *gin.Context, d model.JobDetails) jobResponse {
	job := d.Job
	skills := []string(job.Skills)
	if skills == nil {
		skills = []string{}
	}
	resp := jobResponse{
		ID:             job.ID,
		Title:          job.Title,
		Category:       job.Category,
		Description:    job.Description,
		Skills:         skills,
		BudgetType:     job.BudgetType,
		BudgetFixed:    job.BudgetFixed,
		BudgetMin:      job.BudgetMin,
		BudgetMax:      job.BudgetMax,
		Deadline:       job.Deadline,
		DeadlineText:   job.Deadline,
		DeadlineType:   job.DeadlineType,
		Location:       job.Location,
		Remote:         job.Remote,
		Urgent:         job.Urgent,
		IsActive:       job.IsActive,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		ResponsesCount: d.ResponsesCount,
		ViewsCount:     d.ViewsCount,
		Attachments:    h.toAttachments(c, d.Attachments),
		Status:         job.Status(),
		CanceledAt:     job.CanceledAt,
		CanceledReason: job.CanceledReason,
	}
	if d.Owner != nil {
		resp.Owner = &ownerResponse{
			ID:        d.Owner.ID,
			Username:  d.Owner.Username,
			FullName:  d.Owner.FullName,
			AvatarURL: h.absoluteURL(c, d.Owner.AvatarPath),
			Rating:    d.Owner.Rating,
		}
	}
	return resp
}

func (h *Handler) toProposal(c *gin.Context, d model.ProposalDetails) proposalResponse {
	p := d.Proposal
	return proposalResponse{
		ID:          p.ID,
		Job:         p.JobID,
		Executor:    h.toExecutor(c, d.Executor),
		CoverLetter: p.CoverLetter,
		BidAmount:   p.BidAmount.StringFixed(2),
		Days:        p.Days,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (h *Handler) toAssignment(c *gin.Context, d model.AssignmentDetails) assignmentResponse {
	a := d.Assignment
	return assignmentResponse{
		ID:        a.ID,
		Job:       a.JobID,
		Executor:  h.toExecutor(c, d.Executor),
		Proposal:  a.ProposalID,
		CreatedAt: a.CreatedAt,
	}
}

func toTask(t model.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Price:       decimalString(t.Price),
		Location:    t.Location,
		Category:    t.Category,
		Status:      t.Status,
		Owner:       t.OwnerID,
		CreatedAt:   t.CreatedAt,
	}
}

func toService(s model.Service) serviceResponse {
	return serviceResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		RateType:    s.RateType,
		HourlyRate:  decimalString(s.HourlyRate),
		ProjectRate: decimalString(s.ProjectRate),
		Category:    s.Category,
		Author:      s.AuthorID,
		Rating:      s.Rating,
		CreatedAt:   s.CreatedAt,
	}
}

func decimalString(value decimal.NullDecimal) *string {
	if !value.Valid {
		return nil
	}
	s := value.Decimal.StringFixed(2)
	return &s
}
