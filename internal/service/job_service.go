package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/nurpe/freelancehub/internal/events"
	"github.com/nurpe/freelancehub/internal/model"
	"github.com/nurpe/freelancehub/internal/repository"
	"github.com/nurpe/freelancehub/internal/storage"
	"github.com/nurpe/freelancehub/internal/views"
)

const (
	maxTitleLen    = 200
	maxDeadlineLen = 120
	maxLocationLen = 120
	maxSkillLen    = 64
	minDescription = 10
)

type ExcelGenerator interface {
	Generate(report model.JobsReport) ([]byte, error)
}

type FileResult struct {
	FileName string
	Content  []byte
}

// Upload is a file received from a client.
type Upload struct {
	Name    string
	Content io.Reader
}

type JobService struct {
	jobs      *repository.JobRepository
	users     *repository.UserRepository
	reports   *repository.ReportRepository
	files     *storage.Storage
	views     views.Counter
	publisher events.Publisher
	excel     ExcelGenerator
	sanitizer *bluemonday.Policy
	log       zerolog.Logger
}

func NewJobService(
	jobs *repository.JobRepository,
	users *repository.UserRepository,
	reports *repository.ReportRepository,
	files *storage.Storage,
	counter views.Counter,
	publisher events.Publisher,
	excel ExcelGenerator,
	log zerolog.Logger,
) *JobService {
	return &JobService{
		jobs:      jobs,
		users:     users,
		reports:   reports,
		files:     files,
		views:     counter,
		publisher: publisher,
		excel:     excel,
		sanitizer: bluemonday.UGCPolicy(),
		log:       log,
	}
}

// JobInput holds client-supplied job fields. Nil fields keep their current value.
type JobInput struct {
	Title       *string
	Category    *string
	Description *string
	Skills      []string
	// SkillsSet applies Skills even when nil, which clears them.
	SkillsSet    bool
	BudgetType   *model.BudgetType
	BudgetFixed  *int64
	BudgetMin    *int64
	BudgetMax    *int64
	Deadline     *string
	DeadlineType *model.DeadlineType
	Location     *string
	Remote       *bool
	Urgent       *bool
}

type ListJobsInput struct {
	Filter model.JobFilter
	Mine   bool
}

func (s *JobService) List(ctx context.Context, principal *model.Principal, input ListJobsInput) ([]model.JobDetails, error) {
	filter := input.Filter
	switch filter.Status {
	case "", model.JobStatusActive, model.JobStatusCanceled:
	default:
		return nil, fieldError("status", "status must be active or canceled")
	}
	if input.Mine {
		if principal == nil {
			return nil, fmt.Errorf("%w: authentication required", ErrUnauthorized)
		}
		filter.OwnerID = &principal.UserID
	}

	jobs, err := s.jobs.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, jobs)
}

// Get returns a job and counts the view.
func (s *JobService) Get(ctx context.Context, id uuid.UUID) (*model.JobDetails, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "job")
	}
	if _, err := s.views.Incr(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("job_id", id.String()).Msg("count job view failed")
	}
	return s.detail(ctx, job)
}

func (s *JobService) Create(ctx context.Context, principal model.Principal, input JobInput, uploads []Upload) (*model.JobDetails, error) {
	if !principal.IsCustomer() {
		return nil, fmt.Errorf("%w: only customers can create jobs", ErrPermissionDenied)
	}

	job := &model.Job{
		OwnerID:      principal.UserID,
		Skills:       model.StringList{},
		BudgetType:   model.BudgetFixed,
		DeadlineType: model.DeadlineFlexible,
		Remote:       true,
		IsActive:     true,
	}
	if err := s.apply(job, input); err != nil {
		return nil, err
	}
	job.ID = uuid.New()
	attachments, err := s.storeUploads(job.ID, uploads)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Create(ctx, job, attachments); err != nil {
		s.discardFiles(attachments)
		return nil, err
	}

	s.log.Info().Str("job_id", job.ID.String()).Str("owner_id", job.OwnerID.String()).Msg("job created")
	s.publish(ctx, events.New(events.JobCreated, map[string]interface{}{
		"job_id":   job.ID,
		"owner_id": job.OwnerID,
		"title":    job.Title,
		"category": job.Category,
	}))
	return s.detail(ctx, job)
}

func (s *JobService) Update(ctx context.Context, principal model.Principal, id uuid.UUID, input JobInput) (*model.JobDetails, error) {
	job, err := s.ownedJob(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(job, input); err != nil {
		return nil, err
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	return s.detail(ctx, job)
}

func (s *JobService) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	if _, err := s.ownedJob(ctx, principal, id); err != nil {
		return err
	}
	attachments, err := s.jobs.Delete(ctx, id)
	if err != nil {
		return mapNotFound(err, "job")
	}
	s.discardFiles(attachments)
	if err := s.views.Delete(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("job_id", id.String()).Msg("drop job views failed")
	}
	s.log.Info().Str("job_id", id.String()).Msg("job deleted")
	return nil
}

// Cancel marks an active job as canceled.
func (s *JobService) Cancel(ctx context.Context, principal model.Principal, id uuid.UUID, reason string) (*model.JobDetails, error) {
	job, err := s.ownedJob(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if job.Status() == model.JobStatusCanceled {
		return nil, fmt.Errorf("%w: job is already canceled", ErrInvalidState)
	}

	now := time.Now().UTC()
	job.IsActive = false
	job.CanceledAt = &now
	job.CanceledReason = strings.TrimSpace(reason)
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.JobCanceled, map[string]interface{}{
		"job_id": job.ID,
		"reason": job.CanceledReason,
	}))
	return s.detail(ctx, job)
}

func (s *JobService) Attachments(ctx context.Context, jobID uuid.UUID) ([]model.JobAttachment, error) {
	if _, err := s.jobs.Get(ctx, jobID); err != nil {
		return nil, mapNotFound(err, "job")
	}
	grouped, err := s.jobs.Attachments(ctx, []uuid.UUID{jobID})
	if err != nil {
		return nil, err
	}
	result := grouped[jobID]
	if result == nil {
		result = []model.JobAttachment{}
	}
	return result, nil
}

func (s *JobService) UploadAttachments(ctx context.Context, principal model.Principal, jobID uuid.UUID, uploads []Upload) ([]model.JobAttachment, error) {
	if !principal.IsCustomer() {
		return nil, fmt.Errorf("%w: only customers can attach files", ErrPermissionDenied)
	}
	if _, err := s.ownedJob(ctx, principal, jobID); err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, fieldError("attachments", "no files provided")
	}
	attachments, err := s.storeUploads(jobID, uploads)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.CreateAttachments(ctx, jobID, attachments); err != nil {
		s.discardFiles(attachments)
		return nil, err
	}
	return attachments, nil
}

func (s *JobService) DeleteAttachment(ctx context.Context, principal model.Principal, attachmentID uuid.UUID) error {
	if !principal.IsCustomer() {
		return fmt.Errorf("%w: only customers can remove files", ErrPermissionDenied)
	}
	attachment, err := s.jobs.GetAttachment(ctx, attachmentID)
	if err != nil {
		return mapNotFound(err, "attachment")
	}
	if _, err := s.ownedJob(ctx, principal, attachment.JobID); err != nil {
		return err
	}
	if err := s.jobs.DeleteAttachment(ctx, attachmentID); err != nil {
		return mapNotFound(err, "attachment")
	}
	if err := s.files.Delete(attachment.FilePath); err != nil {
		s.log.Warn().Err(err).Str("path", attachment.FilePath).Msg("remove attachment file failed")
	}
	return nil
}

// Export builds the customer's spreadsheet of own jobs with proposal counts.
func (s *JobService) Export(ctx context.Context, principal model.Principal) (*FileResult, error) {
	if !principal.IsCustomer() {
		return nil, fmt.Errorf("%w: only customers can export jobs", ErrPermissionDenied)
	}
	owner, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return nil, mapNotFound(err, "user")
	}
	rows, err := s.reports.OwnerJobRows(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}

	report := model.JobsReport{
		Owner:       *owner,
		GeneratedAt: time.Now().UTC(),
		Rows:        rows,
	}
	content, err := s.excel.Generate(report)
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName: fmt.Sprintf("jobs-%s.xlsx", report.GeneratedAt.Format("20060102")),
		Content:  content,
	}, nil
}

func (s *JobService) ownedJob(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Job, error) {
	job, err := s.jobs.Get(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "job")
	}
	if job.OwnerID != principal.UserID {
		return nil, fmt.Errorf("%w: not the job owner", ErrPermissionDenied)
	}
	return job, nil
}

// storeUploads writes every upload to storage. Nothing is kept when any
// upload fails.
func (s *JobService) storeUploads(jobID uuid.UUID, uploads []Upload) ([]model.JobAttachment, error) {
	dir := path.Join("job_attachments", jobID.String())
	stored := make([]model.JobAttachment, 0, len(uploads))
	for _, upload := range uploads {
		saved, err := s.files.Save(dir, upload.Name, upload.Content)
		if err != nil {
			s.discardFiles(stored)
			if errors.Is(err, storage.ErrEmptyFile) {
				return nil, fieldError("attachments", fmt.Sprintf("file %q is empty", upload.Name))
			}
			return nil, err
		}
		stored = append(stored, model.JobAttachment{
			JobID:        jobID,
			FilePath:     saved.Path,
			OriginalName: saved.OriginalName,
			ContentType:  saved.ContentType,
			Size:         saved.Size,
			UploadedAt:   time.Now().UTC(),
		})
	}
	return stored, nil
}

func (s *JobService) discardFiles(attachments []model.JobAttachment) {
	for _, attachment := range attachments {
		if err := s.files.Delete(attachment.FilePath); err != nil {
			s.log.Warn().Err(err).Str("path", attachment.FilePath).Msg("remove attachment file failed")
		}
	}
}

// apply merges input into job and validates the result.
func (s *JobService) apply(job *model.Job, input JobInput) error {
	if input.Title != nil {
		job.Title = strings.TrimSpace(*input.Title)
	}
	if input.Category != nil {
		job.Category = strings.TrimSpace(*input.Category)
	}
	if input.Description != nil {
		job.Description = cleanMarkup(s.sanitizer, *input.Description)
	}
	if input.Skills != nil || input.SkillsSet {
		skills := make(model.StringList, len(input.Skills))
		for i, skill := range input.Skills {
			skills[i] = strings.TrimSpace(skill)
		}
		job.Skills = skills
	}
	if input.BudgetType != nil {
		job.BudgetType = *input.BudgetType
	}
	if input.BudgetFixed != nil {
		job.BudgetFixed = input.BudgetFixed
	}
	if input.BudgetMin != nil {
		job.BudgetMin = input.BudgetMin
	}
	if input.BudgetMax != nil {
		job.BudgetMax = input.BudgetMax
	}
	if input.Deadline != nil {
		job.Deadline = strings.TrimSpace(*input.Deadline)
	}
	if input.DeadlineType != nil {
		job.DeadlineType = *input.DeadlineType
	}
	if input.Location != nil {
		job.Location = strings.TrimSpace(*input.Location)
	}
	if input.Remote != nil {
		job.Remote = *input.Remote
	}
	if input.Urgent != nil {
		job.Urgent = *input.Urgent
	}
	if job.Skills == nil {
		job.Skills = model.StringList{}
	}
	return validateJob(job)
}

func validateJob(job *model.Job) error {
	errs := fieldErrors{}

	switch {
	case job.Title == "":
		errs.add("title", "enter a job title")
	case utf8.RuneCountInString(job.Title) > maxTitleLen:
		errs.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	}

	if job.Category == "" {
		errs.add("category", "choose a category")
	} else if !validCategory(job.Category) {
		errs.add("category", fmt.Sprintf("%q is not a valid choice", job.Category))
	}

	if utf8.RuneCountInString(job.Description) < minDescription {
		errs.add("description", fmt.Sprintf("describe the job in more detail (at least %d characters)", minDescription))
	}

	for _, skill := range job.Skills {
		if skill == "" {
			errs.add("skills", "each skill must be a non-empty string")
			break
		}
		if utf8.RuneCountInString(skill) > maxSkillLen {
			errs.add("skills", fmt.Sprintf("each skill must be at most %d characters", maxSkillLen))
			break
		}
	}

	switch job.BudgetType {
	case model.BudgetFixed:
		if job.BudgetFixed == nil {
			errs.add("budget_fixed", "enter a fixed budget")
		} else if *job.BudgetFixed <= 0 {
			errs.add("budget_fixed", "budget must be a positive number")
		}
		job.BudgetMin = nil
		job.BudgetMax = nil
	case model.BudgetRange:
		switch {
		case job.BudgetMin == nil || job.BudgetMax == nil:
			errs.add("budget_min", "enter a budget range (from/to)")
		case *job.BudgetMin <= 0 || *job.BudgetMax <= 0:
			errs.add("budget_min", "budget values must be greater than zero")
		case *job.BudgetMin > *job.BudgetMax:
			errs.add("budget_min", "minimum cannot exceed maximum")
		}
		job.BudgetFixed = nil
	default:
		errs.add("budget_type", "invalid budget type")
	}

	switch job.DeadlineType {
	case model.DeadlineFlexible, model.DeadlineStrict:
	default:
		errs.add("deadline_type", fmt.Sprintf("%q is not a valid choice", job.DeadlineType))
	}
	if utf8.RuneCountInString(job.Deadline) > maxDeadlineLen {
		errs.add("deadline", fmt.Sprintf("deadline must be at most %d characters", maxDeadlineLen))
	}
	if utf8.RuneCountInString(job.Location) > maxLocationLen {
		errs.add("location", fmt.Sprintf("location must be at most %d characters", maxLocationLen))
	}

	return errs.err()
}

func validCategory(category string) bool {
	for _, c := range model.Categories {
		if c == category {
			return true
		}
	}
	return false
}

func (s *JobService) detail(ctx context.Context, job *model.Job) (*model.JobDetails, error) {
	result, err := s.details(ctx, []model.Job{*job})
	if err != nil {
		return nil, err
	}
	return &result[0], nil
}

// details attaches owner cards, attachments and counters to jobs.
func (s *JobService) details(ctx context.Context, jobs []model.Job) ([]model.JobDetails, error) {
	result := make([]model.JobDetails, len(jobs))
	if len(jobs) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, len(jobs))
	ownerIDs := make([]uuid.UUID, len(jobs))
	for i, job := range jobs {
		ids[i] = job.ID
		ownerIDs[i] = job.OwnerID
	}

	owners, err := s.users.Cards(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}
	attachments, err := s.jobs.Attachments(ctx, ids)
	if err != nil {
		return nil, err
	}
	responses, err := s.jobs.CountProposals(ctx, ids)
	if err != nil {
		return nil, err
	}
	viewCounts, err := s.views.Get(ctx, ids)
	if err != nil {
		s.log.Warn().Err(err).Msg("load job views failed")
		viewCounts = map[uuid.UUID]int64{}
	}

	for i, job := range jobs {
		d := model.JobDetails{
			Job:            job,
			Attachments:    attachments[job.ID],
			ResponsesCount: responses[job.ID],
			ViewsCount:     viewCounts[job.ID],
		}
		if card, ok := owners[job.OwnerID]; ok {
			owner := card
			d.Owner = &owner
		}
		if d.Attachments == nil {
			d.Attachments = []model.JobAttachment{}
		}
		result[i] = d
	}
	return result, nil
}

func (s *JobService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", event.Type).Msg("publish event failed")
	}
}
