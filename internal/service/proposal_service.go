package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/freelancehub/internal/events"
	"github.com/nurpe/freelancehub/internal/model"
	"github.com/nurpe/freelancehub/internal/repository"
)

type AgreementGenerator interface {
	Generate(doc model.AgreementDocument) ([]byte, error)
}

type ProposalService struct {
	proposals *repository.ProposalRepository
	jobs      *repository.JobRepository
	users     *repository.UserRepository
	publisher events.Publisher
	pdf       AgreementGenerator
	sanitizer *bluemonday.Policy
	log       zerolog.Logger
}

func NewProposalService(
	proposals *repository.ProposalRepository,
	jobs *repository.JobRepository,
	users *repository.UserRepository,
	publisher events.Publisher,
	pdf AgreementGenerator,
	log zerolog.Logger,
) *ProposalService {
	return &ProposalService{
		proposals: proposals,
		jobs:      jobs,
		users:     users,
		publisher: publisher,
		pdf:       pdf,
		sanitizer: bluemonday.StrictPolicy(),
		log:       log,
	}
}

// ProposalInput holds client-supplied proposal fields. JobID is only read on create.
type ProposalInput struct {
	JobID       uuid.UUID
	CoverLetter *string
	BidAmount   *decimal.Decimal
	Days        *int
}

type ListProposalsInput struct {
	JobID  *uuid.UUID
	Mine   bool
	Status model.ProposalStatus
}

type AcceptResult struct {
	Proposal   model.ProposalDetails
	Assignment model.AssignmentDetails
}

func (s *ProposalService) Create(ctx context.Context, principal model.Principal, input ProposalInput) (*model.ProposalDetails, error) {
	if !principal.IsExecutor() {
		return nil, fmt.Errorf("%w: only executors can send proposals", ErrPermissionDenied)
	}
	if input.JobID == uuid.Nil {
		return nil, fieldError("job", "this field is required")
	}

	job, err := s.jobs.Get(ctx, input.JobID)
	if err != nil {
		return nil, mapNotFound(err, "job")
	}
	if job.OwnerID == principal.UserID {
		return nil, fmt.Errorf("%w: cannot respond to your own job", ErrPermissionDenied)
	}
	if job.Status() != model.JobStatusActive {
		return nil, fmt.Errorf("%w: job is not active", ErrInvalidState)
	}

	exists, err := s.proposals.Exists(ctx, job.ID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: you have already sent a proposal for this job", ErrAlreadyExists)
	}

	proposal := &model.Proposal{
		JobID:      job.ID,
		ExecutorID: principal.UserID,
		Status:     model.ProposalSent,
	}
	if err := s.apply(proposal, input, true); err != nil {
		return nil, err
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		if _, ok := repository.UniqueViolation(err); ok {
			return nil, fmt.Errorf("%w: you have already sent a proposal for this job", ErrAlreadyExists)
		}
		return nil, err
	}

	s.log.Info().Str("proposal_id", proposal.ID.String()).Str("job_id", job.ID.String()).Msg("proposal sent")
	s.publish(ctx, events.New(events.ProposalCreated, map[string]interface{}{
		"proposal_id": proposal.ID,
		"job_id":      proposal.JobID,
		"executor_id": proposal.ExecutorID,
		"bid_amount":  proposal.BidAmount.StringFixed(2),
	}))
	return s.detail(ctx, proposal)
}

func (s *ProposalService) List(ctx context.Context, principal model.Principal, input ListProposalsInput) ([]model.ProposalDetails, error) {
	if input.Status != "" && !input.Status.Valid() {
		return nil, fieldError("status", fmt.Sprintf("%q is not a valid choice", input.Status))
	}

	filter := repository.ProposalFilter{Status: input.Status}
	switch {
	case input.JobID != nil:
		job, err := s.jobs.Get(ctx, *input.JobID)
		if err != nil {
			if repository.IsNotFound(err) {
				return []model.ProposalDetails{}, nil
			}
			return nil, err
		}
		filter.JobID = &job.ID
		if job.OwnerID != principal.UserID {
			filter.ExecutorID = &principal.UserID
		}
	case input.Mine:
		filter.JobOwnerID = &principal.UserID
	default:
		filter.ExecutorID = &principal.UserID
	}

	proposals, err := s.proposals.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.details(ctx, proposals)
}

// Get is allowed for the proposal author and the job owner.
func (s *ProposalService) Get(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.ProposalDetails, error) {
	proposal, job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if proposal.ExecutorID != principal.UserID && job.OwnerID != principal.UserID {
		return nil, fmt.Errorf("%w: not your proposal", ErrPermissionDenied)
	}
	return s.detail(ctx, proposal)
}

func (s *ProposalService) Update(ctx context.Context, principal model.Principal, id uuid.UUID, input ProposalInput) (*model.ProposalDetails, error) {
	proposal, err := s.authored(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !proposal.Status.Open() {
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidState, proposal.Status)
	}
	if err := s.apply(proposal, input, false); err != nil {
		return nil, err
	}
	if err := s.proposals.Update(ctx, proposal); err != nil {
		return nil, err
	}
	return s.detail(ctx, proposal)
}

func (s *ProposalService) Delete(ctx context.Context, principal model.Principal, id uuid.UUID) error {
	proposal, err := s.authored(ctx, principal, id)
	if err != nil {
		return err
	}
	if proposal.Status == model.ProposalAccepted {
		return fmt.Errorf("%w: accepted proposals cannot be deleted", ErrInvalidState)
	}
	return mapNotFound(s.proposals.Delete(ctx, id), "proposal")
}

func (s *ProposalService) Withdraw(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.ProposalDetails, error) {
	proposal, err := s.authored(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if !proposal.Status.Open() {
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidState, proposal.Status)
	}
	return s.setStatus(ctx, proposal, model.ProposalWithdrawn)
}

func (s *ProposalService) Shortlist(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.ProposalDetails, error) {
	proposal, err := s.review(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, proposal, model.ProposalShortlisted)
}

func (s *ProposalService) Reject(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.ProposalDetails, error) {
	proposal, err := s.review(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, proposal, model.ProposalRejected)
}

// Accept binds the proposal's executor to the job, replacing any earlier assignment.
func (s *ProposalService) Accept(ctx context.Context, principal model.Principal, id uuid.UUID) (*AcceptResult, error) {
	proposal, job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != principal.UserID {
		return nil, fmt.Errorf("%w: not your job", ErrPermissionDenied)
	}
	if job.Status() != model.JobStatusActive {
		return nil, fmt.Errorf("%w: job is not active", ErrInvalidState)
	}
	if proposal.Status == model.ProposalWithdrawn || proposal.Status == model.ProposalRejected {
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidState, proposal.Status)
	}

	assignment, err := s.proposals.Accept(ctx, proposal)
	if err != nil {
		if errors.Is(err, repository.ErrStaleState) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		return nil, mapNotFound(err, "proposal")
	}

	s.log.Info().
		Str("proposal_id", proposal.ID.String()).
		Str("assignment_id", assignment.ID.String()).
		Msg("proposal accepted")
	s.publish(ctx, events.New(events.ProposalAccepted, map[string]interface{}{
		"proposal_id":   proposal.ID,
		"assignment_id": assignment.ID,
		"job_id":        job.ID,
		"executor_id":   proposal.ExecutorID,
	}))

	cards, err := s.users.Cards(ctx, []uuid.UUID{proposal.ExecutorID})
	if err != nil {
		return nil, err
	}
	executor := cards[proposal.ExecutorID]
	return &AcceptResult{
		Proposal:   model.ProposalDetails{Proposal: *proposal, Executor: executor},
		Assignment: model.AssignmentDetails{Assignment: *assignment, Executor: executor},
	}, nil
}

func (s *ProposalService) Stats(ctx context.Context, principal model.Principal, jobID *uuid.UUID) (*model.ProposalStats, error) {
	if jobID == nil {
		return nil, fieldError("job", "job is required")
	}
	job, err := s.jobs.Get(ctx, *jobID)
	if err != nil {
		return nil, mapNotFound(err, "job")
	}
	if job.OwnerID != principal.UserID && !principal.IsStaff {
		return nil, fmt.Errorf("%w: not your job", ErrPermissionDenied)
	}
	stats, err := s.proposals.Stats(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *ProposalService) Assignments(ctx context.Context, principal model.Principal) ([]model.AssignmentDetails, error) {
	assignments, err := s.proposals.ListAssignments(ctx, principal.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(assignments))
	for i, a := range assignments {
		ids[i] = a.ExecutorID
	}
	cards, err := s.users.Cards(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make([]model.AssignmentDetails, len(assignments))
	for i, a := range assignments {
		result[i] = model.AssignmentDetails{Assignment: a, Executor: cards[a.ExecutorID]}
	}
	return result, nil
}

func (s *ProposalService) GetAssignment(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.AssignmentDetails, error) {
	assignment, _, err := s.visibleAssignment(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	cards, err := s.users.Cards(ctx, []uuid.UUID{assignment.ExecutorID})
	if err != nil {
		return nil, err
	}
	return &model.AssignmentDetails{Assignment: *assignment, Executor: cards[assignment.ExecutorID]}, nil
}

// Agreement renders the PDF summary of an assignment.
func (s *ProposalService) Agreement(ctx context.Context, principal model.Principal, id uuid.UUID) (*FileResult, error) {
	assignment, job, err := s.visibleAssignment(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	proposal, err := s.proposals.Get(ctx, assignment.ProposalID)
	if err != nil {
		return nil, mapNotFound(err, "proposal")
	}
	customer, err := s.users.GetByID(ctx, job.OwnerID)
	if err != nil {
		return nil, mapNotFound(err, "customer")
	}
	executor, err := s.users.GetByID(ctx, assignment.ExecutorID)
	if err != nil {
		return nil, mapNotFound(err, "executor")
	}

	content, err := s.pdf.Generate(model.AgreementDocument{
		Assignment: *assignment,
		Proposal:   *proposal,
		Job:        *job,
		Customer:   *customer,
		Executor:   *executor,
	})
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName: fmt.Sprintf("agreement-%s.pdf", assignment.ID.String()[:8]),
		Content:  content,
	}, nil
}

// visibleAssignment hides assignments from everyone except the executor and job owner.
func (s *ProposalService) visibleAssignment(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Assignment, *model.Job, error) {
	assignment, err := s.proposals.GetAssignment(ctx, id)
	if err != nil {
		return nil, nil, mapNotFound(err, "assignment")
	}
	job, err := s.jobs.Get(ctx, assignment.JobID)
	if err != nil {
		return nil, nil, mapNotFound(err, "job")
	}
	if assignment.ExecutorID != principal.UserID && job.OwnerID != principal.UserID {
		return nil, nil, fmt.Errorf("%w: assignment", ErrNotFound)
	}
	return assignment, job, nil
}

func (s *ProposalService) load(ctx context.Context, id uuid.UUID) (*model.Proposal, *model.Job, error) {
	proposal, err := s.proposals.Get(ctx, id)
	if err != nil {
		return nil, nil, mapNotFound(err, "proposal")
	}
	job, err := s.jobs.Get(ctx, proposal.JobID)
	if err != nil {
		return nil, nil, mapNotFound(err, "job")
	}
	return proposal, job, nil
}

func (s *ProposalService) authored(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Proposal, error) {
	proposal, err := s.proposals.Get(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "proposal")
	}
	if proposal.ExecutorID != principal.UserID {
		return nil, fmt.Errorf("%w: not your proposal", ErrPermissionDenied)
	}
	return proposal, nil
}

// review loads a proposal for a status change by the job owner.
func (s *ProposalService) review(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.Proposal, error) {
	proposal, job, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != principal.UserID {
		return nil, fmt.Errorf("%w: not your job", ErrPermissionDenied)
	}
	if proposal.Status == model.ProposalWithdrawn || proposal.Status == model.ProposalAccepted {
		return nil, fmt.Errorf("%w: proposal is %s", ErrInvalidState, proposal.Status)
	}
	return proposal, nil
}

func (s *ProposalService) setStatus(ctx context.Context, proposal *model.Proposal, status model.ProposalStatus) (*model.ProposalDetails, error) {
	if err := s.proposals.SetStatus(ctx, proposal, status); err != nil {
		return nil, mapNotFound(err, "proposal")
	}
	return s.detail(ctx, proposal)
}

func (s *ProposalService) apply(proposal *model.Proposal, input ProposalInput, create bool) error {
	if input.CoverLetter != nil {
		proposal.CoverLetter = cleanMarkup(s.sanitizer, *input.CoverLetter)
	}
	if input.BidAmount != nil {
		proposal.BidAmount = input.BidAmount.Round(2)
	}
	if input.Days != nil {
		days := *input.Days
		proposal.Days = &days
	}

	errs := fieldErrors{}
	if create && input.BidAmount == nil {
		errs.add("bid_amount", "this field is required")
	} else if !proposal.BidAmount.IsPositive() {
		errs.add("bid_amount", "bid amount must be greater than zero")
	} else if proposal.BidAmount.GreaterThanOrEqual(decimal.New(1, 10)) {
		errs.add("bid_amount", "ensure that there are no more than 12 digits in total")
	}
	if proposal.Days != nil && *proposal.Days <= 0 {
		errs.add("days", "days must be a positive number")
	}
	return errs.err()
}

func (s *ProposalService) detail(ctx context.Context, proposal *model.Proposal) (*model.ProposalDetails, error) {
	result, err := s.details(ctx, []model.Proposal{*proposal})
	if err != nil {
		return nil, err
	}
	return &result[0], nil
}

func (s *ProposalService) details(ctx context.Context, proposals []model.Proposal) ([]model.ProposalDetails, error) {
	ids := make([]uuid.UUID, len(proposals))
	for i, p := range proposals {
		ids[i] = p.ExecutorID
	}
	cards, err := s.users.Cards(ctx, ids)
	if err != nil {
		return nil, err
	}
	result := make([]model.ProposalDetails, len(proposals))
	for i, p := range proposals {
		result[i] = model.ProposalDetails{Proposal: p, Executor: cards[p.ExecutorID]}
	}
	return result, nil
}

func (s *ProposalService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", event.Type).Msg("publish event failed")
	}
}
