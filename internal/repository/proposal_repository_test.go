package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/freelancehub/internal/db/testutil"
	"github.com/nurpe/freelancehub/internal/model"
)

func TestProposalUniquePerJobAndExecutor(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewProposalRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com", model.RoleCustomer)
	executor := createUser(t, db, "exec@example.com", model.RoleExecutor)
	job := createJob(t, db, owner.ID, "Logo", time.Now().UTC())

	createProposal(t, db, job.ID, executor.ID, model.ProposalSent)

	exists, err := repo.Exists(ctx, job.ID, executor.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	err = repo.Create(ctx, &model.Proposal{JobID: job.ID, ExecutorID: executor.ID, Status: model.ProposalSent})
	_, ok := UniqueViolation(err)
	assert.True(t, ok)
}

func TestProposalListFilters(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewProposalRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com", model.RoleCustomer)
	stranger := createUser(t, db, "stranger@example.com", model.RoleCustomer)
	e1 := createUser(t, db, "e1@example.com", model.RoleExecutor)
	e2 := createUser(t, db, "e2@example.com", model.RoleExecutor)
	job := createJob(t, db, owner.ID, "Logo", time.Now().UTC())
	foreign := createJob(t, db, stranger.ID, "Foreign", time.Now().UTC())

	p1 := createProposal(t, db, job.ID, e1.ID, model.ProposalSent)
	p2 := createProposal(t, db, job.ID, e2.ID, model.ProposalShortlisted)
	p3 := createProposal(t, db, foreign.ID, e1.ID, model.ProposalSent)

	ids := func(items []model.Proposal) []uuid.UUID {
		out := make([]uuid.UUID, len(items))
		for i, p := range items {
			out[i] = p.ID
		}
		return out
	}

	list, err := repo.List(ctx, ProposalFilter{JobID: &job.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{p1.ID, p2.ID}, ids(list))

	list, err = repo.List(ctx, ProposalFilter{JobID: &job.ID, ExecutorID: &e1.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p1.ID}, ids(list))

	list, err = repo.List(ctx, ProposalFilter{ExecutorID: &e1.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{p1.ID, p3.ID}, ids(list))

	list, err = repo.List(ctx, ProposalFilter{JobOwnerID: &owner.ID, Status: model.ProposalShortlisted})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p2.ID}, ids(list))
}

func TestProposalStats(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewProposalRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com", model.RoleCustomer)
	job := createJob(t, db, owner.ID, "Logo", time.Now().UTC())
	empty := createJob(t, db, owner.ID, "Empty", time.Now().UTC())

	statuses := []model.ProposalStatus{model.ProposalSent, model.ProposalShortlisted, model.ProposalShortlisted, model.ProposalAccepted}
	for _, status := range statuses {
		executor := createUser(t, db, uuid.NewString()+"@example.com", model.RoleExecutor)
		createProposal(t, db, job.ID, executor.ID, status)
	}

	stats, err := repo.Stats(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStats{JobID: job.ID, Total: 4, Shortlisted: 2, Accepted: 1}, stats)

	stats, err = repo.Stats(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStats{JobID: empty.ID}, stats)
}

func TestProposalAcceptReplacesAssignment(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewProposalRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com", model.RoleCustomer)
	e1 := createUser(t, db, "e1@example.com", model.RoleExecutor)
	e2 := createUser(t, db, "e2@example.com", model.RoleExecutor)
	job := createJob(t, db, owner.ID, "Logo", time.Now().UTC())
	first := createProposal(t, db, job.ID, e1.ID, model.ProposalSent)
	second := createProposal(t, db, job.ID, e2.ID, model.ProposalShortlisted)

	a1, err := repo.Accept(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalAccepted, first.Status)
	assert.Equal(t, e1.ID, a1.ExecutorID)

	a2, err := repo.Accept(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, second.ID, a2.ProposalID)

	reloaded, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalRejected, reloaded.Status)
	reloaded, err = repo.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalAccepted, reloaded.Status)

	_, err = repo.GetAssignment(ctx, a1.ID)
	assert.True(t, IsNotFound(err))

	forOwner, err := repo.ListAssignments(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, forOwner, 1)
	assert.Equal(t, a2.ID, forOwner[0].ID)

	forExecutor, err := repo.ListAssignments(ctx, e1.ID)
	require.NoError(t, err)
	assert.Empty(t, forExecutor)
}

func TestProposalAcceptRechecksStateUnderLock(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewProposalRepository(db)
	jobs := NewJobRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com", model.RoleCustomer)
	e1 := createUser(t, db, "e1@example.com", model.RoleExecutor)
	e2 := createUser(t, db, "e2@example.com", model.RoleExecutor)
	job := createJob(t, db, owner.ID, "Logo", time.Now().UTC())

	withdrawn := createProposal(t, db, job.ID, e1.ID, model.ProposalSent)
	stale := *withdrawn
	require.NoError(t, repo.SetStatus(ctx, withdrawn, model.ProposalWithdrawn))
	_, err := repo.Accept(ctx, &stale)
	assert.ErrorIs(t, err, ErrStaleState)
	assert.Equal(t, model.ProposalSent, stale.Status)

	pending := createProposal(t, db, job.ID, e2.ID, model.ProposalSent)
	canceledAt := time.Now().UTC()
	job.IsActive = false
	job.CanceledAt = &canceledAt
	require.NoError(t, jobs.Update(ctx, job))
	_, err = repo.Accept(ctx, pending)
	assert.ErrorIs(t, err, ErrStaleState)

	assignments, err := repo.ListAssignments(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, assignments)
	reloaded, err := repo.Get(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalSent, reloaded.Status)
}

func TestProposalSetStatusAndDelete(t *testing.T) {
	db := testutil.OpenDB(t)
	repo := NewProposalRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner@example.com", model.RoleCustomer)
	executor := createUser(t, db, "exec@example.com", model.RoleExecutor)
	job := createJob(t, db, owner.ID, "Logo", time.Now().UTC())
	proposal := createProposal(t, db, job.ID, executor.ID, model.ProposalSent)

	require.NoError(t, repo.SetStatus(ctx, proposal, model.ProposalWithdrawn))
	assert.Equal(t, model.ProposalWithdrawn, proposal.Status)

	require.NoError(t, repo.Delete(ctx, proposal.ID))
	assert.True(t, IsNotFound(repo.Delete(ctx, proposal.ID)))
	assert.True(t, IsNotFound(repo.SetStatus(ctx, proposal, model.ProposalSent)))
}
