package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nurpe/freelancehub/internal/http/middleware"
	"github.com/nurpe/freelancehub/internal/model"
	"github.com/nurpe/freelancehub/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *Handler) registerJobs(group *gin.RouterGroup, authMiddleware, optionalAuth gin.HandlerFunc) {
	group.GET("", optionalAuth, h.listJobs)
	group.GET("/:id", h.getJob)
	group.GET("/:id/attachments", h.listAttachments)

	protected := group.Group("")
	protected.Use(authMiddleware)
	protected.GET("/export", h.exportJobs)
	protected.POST("", h.createJob)
	protected.PUT("/:id", h.updateJob)
	protected.PATCH("/:id", h.updateJob)
	protected.DELETE("/:id", h.deleteJob)
	protected.POST("/:id/cancel", h.cancelJob)
	protected.POST("/:id/attachments", h.uploadAttachments)
	protected.DELETE("/attachments/:id", h.deleteAttachment)
}

type jobRequest struct {
	Title        *string     `json:"title"`
	Category     *string     `json:"category"`
	Description  *string     `json:"description"`
	Skills       skillsField `json:"skills"`
	BudgetType   *string     `json:"budget_type"`
	BudgetFixed  *int64      `json:"budget_fixed"`
	BudgetMin    *int64      `json:"budget_min"`
	BudgetMax    *int64      `json:"budget_max"`
	Deadline     *string     `json:"deadline"`
	DeadlineType *string     `json:"deadline_type"`
	Location     *string     `json:"location"`
	Remote       *bool       `json:"remote"`
	Urgent       *bool       `json:"urgent"`
}

// skillsField tells an explicit "skills": null apart from an absent key.
type skillsField struct {
	Set    bool
	Values []string
}

func (f *skillsField) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(bytes.TrimSpace(data)) == "null" {
		f.Values = nil
		return nil
	}
	return json.Unmarshal(data, &f.Values)
}

func (r jobRequest) toInput() service.JobInput {
	input := service.JobInput{
		Title:       r.Title,
		Category:    r.Category,
		Description: r.Description,
		Skills:      r.Skills.Values,
		SkillsSet:   r.Skills.Set,
		BudgetFixed: r.BudgetFixed,
		BudgetMin:   r.BudgetMin,
		BudgetMax:   r.BudgetMax,
		Deadline:    r.Deadline,
		Location:    r.Location,
		Remote:      r.Remote,
		Urgent:      r.Urgent,
	}
	if r.BudgetType != nil {
		bt := model.BudgetType(strings.TrimSpace(*r.BudgetType))
		input.BudgetType = &bt
	}
	if r.DeadlineType != nil {
		dt := model.DeadlineType(strings.TrimSpace(*r.DeadlineType))
		input.DeadlineType = &dt
	}
	return input
}

func (h *Handler) listJobs(c *gin.Context) {
	filter, err := parseJobFilter(c)
	if err != nil {
		h.handleError(c, err)
		return
	}

	jobs, err := h.jobs.List(c.Request.Context(), middleware.Principal(c), service.ListJobsInput{
		Filter: filter,
		Mine:   isTruthy(c.Query("mine")),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	result := make([]jobResponse, len(jobs))
	for i, job := range jobs {
		result[i] = h.toJob(c, job)
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) getJob(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toJob(c, *job))
}

func (h *Handler) createJob(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}

	var (
		input   service.JobInput
		uploads []service.Upload
	)
	if isMultipart(c) {
		h.limitBody(c)
		form, err := c.MultipartForm()
		if err != nil {
			h.bindError(c, err)
			return
		}
		if input, err = jobInputFromForm(form); err != nil {
			h.handleError(c, err)
			return
		}
		var closeAll func()
		if uploads, closeAll, err = openUploads(uploadedFiles(form)); err != nil {
			h.handleError(c, err)
			return
		}
		defer closeAll()
	} else {
		var req jobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.bindError(c, err)
			return
		}
		input = req.toInput()
	}

	job, err := h.jobs.Create(c.Request.Context(), principal, input, uploads)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.toJob(c, *job))
}

func (h *Handler) updateJob(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var input service.JobInput
	if isMultipart(c) {
		h.limitBody(c)
		form, err := c.MultipartForm()
		if err != nil {
			h.bindError(c, err)
			return
		}
		if input, err = jobInputFromForm(form); err != nil {
			h.handleError(c, err)
			return
		}
	} else {
		var req jobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.bindError(c, err)
			return
		}
		input = req.toInput()
	}

	job, err := h.jobs.Update(c.Request.Context(), principal, id, input)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toJob(c, *job))
}

func (h *Handler) deleteJob(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.jobs.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelJob(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req cancelRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.bindError(c, err)
			return
		}
	}

	job, err := h.jobs.Cancel(c.Request.Context(), principal, id, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toJob(c, *job))
}

func (h *Handler) listAttachments(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	attachments, err := h.jobs.Attachments(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.toAttachments(c, attachments))
}

func (h *Handler) uploadAttachments(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	h.limitBody(c)
	form, err := c.MultipartForm()
	if err != nil {
		h.missingFile(c, "attachments", err)
		return
	}
	uploads, closeAll, err := openUploads(uploadedFiles(form))
	if err != nil {
		h.handleError(c, err)
		return
	}
	defer closeAll()

	created, err := h.jobs.UploadAttachments(c.Request.Context(), principal, id, uploads)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.toAttachments(c, created))
}

func (h *Handler) deleteAttachment(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.jobs.DeleteAttachment(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) exportJobs(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return
	}
	result, err := h.jobs.Export(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}
	sendFile(c, xlsxContentType, result)
}

func parseJobFilter(c *gin.Context) (model.JobFilter, error) {
	filter := model.JobFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Status:   model.JobStatus(strings.TrimSpace(c.Query("status"))),
	}
	errs := map[string]string{}

	for key, target := range map[string]**bool{"remote": &filter.Remote, "urgent": &filter.Urgent} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		value, err := parseBool(raw)
		if err != nil {
			errs[key] = "enter a valid boolean"
			continue
		}
		*target = &value
	}
	for key, target := range map[string]**int64{"budget_min": &filter.BudgetMin, "budget_max": &filter.BudgetMax} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		value, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			errs[key] = "enter a whole number"
			continue
		}
		*target = &value
	}
	for key, target := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			errs[key] = "enter a non-negative whole number"
			continue
		}
		*target = value
	}

	if len(errs) > 0 {
		return filter, &service.ValidationError{Fields: errs}
	}
	return filter, nil
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// jobInputFromForm reads job fields from a multipart form. Skills may be
// repeated or sent as one JSON array.
func jobInputFromForm(form *multipart.Form) (service.JobInput, error) {
	var input service.JobInput
	errs := map[string]string{}

	str := func(key string) *string {
		values, ok := form.Value[key]
		if !ok || len(values) == 0 {
			return nil
		}
		v := values[0]
		return &v
	}
	integer := func(key string) *int64 {
		raw := str(key)
		if raw == nil || strings.TrimSpace(*raw) == "" {
			return nil
		}
		v, err := strconv.ParseInt(strings.TrimSpace(*raw), 10, 64)
		if err != nil {
			errs[key] = "enter a whole number"
			return nil
		}
		return &v
	}
	boolean := func(key string) *bool {
		raw := str(key)
		if raw == nil {
			return nil
		}
		v, err := parseBool(*raw)
		if err != nil {
			errs[key] = "enter a valid boolean"
			return nil
		}
		return &v
	}

	input.Title = str("title")
	input.Category = str("category")
	input.Description = str("description")
	input.Deadline = str("deadline")
	input.Location = str("location")
	input.BudgetFixed = integer("budget_fixed")
	input.BudgetMin = integer("budget_min")
	input.BudgetMax = integer("budget_max")
	input.Remote = boolean("remote")
	input.Urgent = boolean("urgent")
	if raw := str("budget_type"); raw != nil {
		bt := model.BudgetType(strings.TrimSpace(*raw))
		input.BudgetType = &bt
	}
	if raw := str("deadline_type"); raw != nil {
		dt := model.DeadlineType(strings.TrimSpace(*raw))
		input.DeadlineType = &dt
	}

	if values, ok := form.Value["skills"]; ok {
		input.SkillsSet = true
		if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
			var skills []string
			if err := json.Unmarshal([]byte(values[0]), &skills); err != nil {
				errs["skills"] = "skills must be a list of strings"
			}
			input.Skills = skills
		} else {
			input.Skills = values
		}
		if input.Skills == nil {
			input.Skills = []string{}
		}
	}

	if len(errs) > 0 {
		return input, &service.ValidationError{Fields: errs}
	}
	return input, nil
}

// uploadedFiles reads the "attachments" field and falls back to "file"
// only when no attachments were sent.
func uploadedFiles(form *multipart.Form) []*multipart.FileHeader {
	if files := form.File["attachments"]; len(files) > 0 {
		return files
	}
	return form.File["file"]
}

// openUploads opens every file header. The returned func closes them.
func openUploads(headers []*multipart.FileHeader) ([]service.Upload, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}

	uploads := make([]service.Upload, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		uploads = append(uploads, service.Upload{Name: header.Filename, Content: f})
	}
	return uploads, closeAll, nil
}
