package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/freelancehub/internal/events"
	"github.com/nurpe/freelancehub/internal/model"
)

type marketplace struct {
	env      *testEnv
	customer model.Principal
	exec1    model.Principal
	exec2    model.Principal
	job      *model.JobDetails
}

func newMarketplace(t *testing.T) *marketplace {
	t.Helper()
	env := newTestEnv(t)
	m := &marketplace{
		env:      env,
		customer: env.register(t, "owner@example.com", model.RoleCustomer),
		exec1:    env.register(t, "exec1@example.com", model.RoleExecutor),
		exec2:    env.register(t, "exec2@example.com", model.RoleExecutor),
	}
	m.job = env.createJob(t, m.customer, "Landing")
	return m
}

func (m *marketplace) propose(t *testing.T, executor model.Principal, bid int64) *model.ProposalDetails {
	t.Helper()
	amount := decimal.NewFromInt(bid)
	proposal, err := m.env.proposals.Create(context.Background(), executor, ProposalInput{
		JobID:       m.job.Job.ID,
		CoverLetter: strPtr("I can do it"),
		BidAmount:   &amount,
	})
	require.NoError(t, err)
	return proposal
}

func TestCreateProposal(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	amount := decimal.RequireFromString("1500.555")
	days := 5

	proposal, err := m.env.proposals.Create(ctx, m.exec1, ProposalInput{
		JobID:       m.job.Job.ID,
		CoverLetter: strPtr(`Hello <b>there</b><script>x()</script>`),
		BidAmount:   &amount,
		Days:        &days,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProposalSent, proposal.Proposal.Status)
	assert.Equal(t, "Hello there", proposal.Proposal.CoverLetter)
	assert.Equal(t, "1500.56", proposal.Proposal.BidAmount.StringFixed(2))
	assert.Equal(t, m.exec1.UserID, proposal.Executor.ID)
	assert.Contains(t, m.env.recorder.Types(), events.ProposalCreated)

	_, err = m.env.proposals.Create(ctx, m.exec1, ProposalInput{JobID: m.job.Job.ID, BidAmount: &amount})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	job, err := m.env.jobs.Get(ctx, m.job.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), job.ResponsesCount)
}

func TestCoverLetterKeepsPlainText(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	amount := decimal.NewFromInt(900)
	letter := `R&D background, budget < 1000 is "fine" for me`

	proposal, err := m.env.proposals.Create(ctx, m.exec1, ProposalInput{
		JobID:       m.job.Job.ID,
		CoverLetter: strPtr(letter),
		BidAmount:   &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, letter, proposal.Proposal.CoverLetter)

	stored, err := m.env.proposals.Get(ctx, m.exec1, proposal.Proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, letter, stored.Proposal.CoverLetter)
}

func TestCreateProposalRules(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	amount := decimal.NewFromInt(100)
	zero := decimal.Zero
	huge := decimal.New(1, 10)
	negativeDays := -2

	_, err := m.env.proposals.Create(ctx, m.customer, ProposalInput{JobID: m.job.Job.ID, BidAmount: &amount})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = m.env.proposals.Create(ctx, m.exec1, ProposalInput{BidAmount: &amount})
	assert.Contains(t, fieldsOf(t, err), "job")

	_, err = m.env.proposals.Create(ctx, m.exec1, ProposalInput{JobID: uuid.New(), BidAmount: &amount})
	assert.ErrorIs(t, err, ErrNotFound)

	cases := []struct {
		name  string
		input ProposalInput
		field string
	}{
		{"missing bid", ProposalInput{}, "bid_amount"},
		{"zero bid", ProposalInput{BidAmount: &zero}, "bid_amount"},
		{"too many digits", ProposalInput{BidAmount: &huge}, "bid_amount"},
		{"negative days", ProposalInput{BidAmount: &amount, Days: &negativeDays}, "days"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.input.JobID = m.job.Job.ID
			_, err := m.env.proposals.Create(ctx, m.exec1, tc.input)
			assert.Contains(t, fieldsOf(t, err), tc.field)
		})
	}

	_, err = m.env.jobs.Cancel(ctx, m.customer, m.job.Job.ID, "")
	require.NoError(t, err)
	_, err = m.env.proposals.Create(ctx, m.exec2, ProposalInput{JobID: m.job.Job.ID, BidAmount: &amount})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestListProposalsVisibility(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	p1 := m.propose(t, m.exec1, 100)
	p2 := m.propose(t, m.exec2, 200)
	jobID := m.job.Job.ID

	ids := func(items []model.ProposalDetails) []uuid.UUID {
		out := make([]uuid.UUID, len(items))
		for i, item := range items {
			out[i] = item.Proposal.ID
		}
		return out
	}

	owned, err := m.env.proposals.List(ctx, m.customer, ListProposalsInput{JobID: &jobID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{p1.Proposal.ID, p2.Proposal.ID}, ids(owned))

	own, err := m.env.proposals.List(ctx, m.exec1, ListProposalsInput{JobID: &jobID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p1.Proposal.ID}, ids(own))

	incoming, err := m.env.proposals.List(ctx, m.customer, ListProposalsInput{Mine: true})
	require.NoError(t, err)
	assert.Len(t, incoming, 2)

	sent, err := m.env.proposals.List(ctx, m.exec2, ListProposalsInput{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{p2.Proposal.ID}, ids(sent))

	missing := uuid.New()
	none, err := m.env.proposals.List(ctx, m.customer, ListProposalsInput{JobID: &missing})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = m.env.proposals.List(ctx, m.customer, ListProposalsInput{Status: "pending"})
	assert.Contains(t, fieldsOf(t, err), "status")
}

func TestProposalRetrievePermissions(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	p1 := m.propose(t, m.exec1, 100)

	_, err := m.env.proposals.Get(ctx, m.exec1, p1.Proposal.ID)
	assert.NoError(t, err)
	_, err = m.env.proposals.Get(ctx, m.customer, p1.Proposal.ID)
	assert.NoError(t, err)
	_, err = m.env.proposals.Get(ctx, m.exec2, p1.Proposal.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = m.env.proposals.Get(ctx, m.exec2, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateWithdrawDeleteProposal(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	p1 := m.propose(t, m.exec1, 100)
	bid := decimal.NewFromInt(150)

	_, err := m.env.proposals.Update(ctx, m.exec2, p1.Proposal.ID, ProposalInput{BidAmount: &bid})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := m.env.proposals.Update(ctx, m.exec1, p1.Proposal.ID, ProposalInput{BidAmount: &bid})
	require.NoError(t, err)
	assert.True(t, updated.Proposal.BidAmount.Equal(bid))
	assert.Equal(t, "I can do it", updated.Proposal.CoverLetter)

	withdrawn, err := m.env.proposals.Withdraw(ctx, m.exec1, p1.Proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalWithdrawn, withdrawn.Proposal.Status)

	_, err = m.env.proposals.Withdraw(ctx, m.exec1, p1.Proposal.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = m.env.proposals.Update(ctx, m.exec1, p1.Proposal.ID, ProposalInput{BidAmount: &bid})
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = m.env.proposals.Shortlist(ctx, m.customer, p1.Proposal.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, m.env.proposals.Delete(ctx, m.exec1, p1.Proposal.ID))
	_, err = m.env.proposals.Get(ctx, m.exec1, p1.Proposal.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewProposals(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	p1 := m.propose(t, m.exec1, 100)
	p2 := m.propose(t, m.exec2, 200)

	_, err := m.env.proposals.Shortlist(ctx, m.exec1, p1.Proposal.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	shortlisted, err := m.env.proposals.Shortlist(ctx, m.customer, p1.Proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalShortlisted, shortlisted.Proposal.Status)

	rejected, err := m.env.proposals.Reject(ctx, m.customer, p2.Proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalRejected, rejected.Proposal.Status)

	stats, err := m.env.proposals.Stats(ctx, m.customer, &m.job.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Shortlisted)
	assert.Zero(t, stats.Accepted)

	_, err = m.env.proposals.Stats(ctx, m.exec1, &m.job.Job.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	staff := m.exec1
	staff.IsStaff = true
	_, err = m.env.proposals.Stats(ctx, staff, &m.job.Job.ID)
	assert.NoError(t, err)
	_, err = m.env.proposals.Stats(ctx, m.customer, nil)
	assert.Contains(t, fieldsOf(t, err), "job")
}

func TestAcceptProposal(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	p1 := m.propose(t, m.exec1, 100)
	p2 := m.propose(t, m.exec2, 200)

	_, err := m.env.proposals.Accept(ctx, m.exec1, p1.Proposal.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	first, err := m.env.proposals.Accept(ctx, m.customer, p1.Proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalAccepted, first.Proposal.Proposal.Status)
	assert.Equal(t, m.exec1.UserID, first.Assignment.Assignment.ExecutorID)
	assert.Equal(t, m.exec1.UserID, first.Assignment.Executor.ID)

	assert.ErrorIs(t, m.env.proposals.Delete(ctx, m.exec1, p1.Proposal.ID), ErrInvalidState)

	second, err := m.env.proposals.Accept(ctx, m.customer, p2.Proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, m.exec2.UserID, second.Assignment.Assignment.ExecutorID)

	previous, err := m.env.proposals.Get(ctx, m.exec1, p1.Proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalRejected, previous.Proposal.Status)

	assignments, err := m.env.proposals.Assignments(ctx, m.customer)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, second.Assignment.Assignment.ID, assignments[0].Assignment.ID)

	stale, err := m.env.proposals.Assignments(ctx, m.exec1)
	require.NoError(t, err)
	assert.Empty(t, stale)

	_, err = m.env.proposals.Accept(ctx, m.customer, p1.Proposal.ID)
	assert.ErrorIs(t, err, ErrInvalidState)

	types := m.env.recorder.Types()
	assert.Equal(t, events.ProposalAccepted, types[len(types)-1])
}

func TestAssignmentVisibilityAndAgreement(t *testing.T) {
	m := newMarketplace(t)
	ctx := context.Background()
	p1 := m.propose(t, m.exec1, 100)
	accepted, err := m.env.proposals.Accept(ctx, m.customer, p1.Proposal.ID)
	require.NoError(t, err)
	assignmentID := accepted.Assignment.Assignment.ID

	for _, principal := range []model.Principal{m.customer, m.exec1} {
		got, err := m.env.proposals.GetAssignment(ctx, principal, assignmentID)
		require.NoError(t, err)
		assert.Equal(t, assignmentID, got.Assignment.ID)
	}
	_, err = m.env.proposals.GetAssignment(ctx, m.exec2, assignmentID)
	assert.ErrorIs(t, err, ErrNotFound)

	file, err := m.env.proposals.Agreement(ctx, m.exec1, assignmentID)
	require.NoError(t, err)
	assert.Equal(t, "agreement-"+assignmentID.String()[:8]+".pdf", file.FileName)
	assert.Equal(t, "owner@example.com", m.env.agreement.doc.Customer.Email)
	assert.Equal(t, "exec1@example.com", m.env.agreement.doc.Executor.Email)
	assert.Equal(t, p1.Proposal.ID, m.env.agreement.doc.Proposal.ID)

	_, err = m.env.proposals.Agreement(ctx, m.exec2, assignmentID)
	assert.ErrorIs(t, err, ErrNotFound)
}
