package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/freelancehub/internal/model"
)

func int64Ptr(v int64) *int64 { return &v }

func createUser(t *testing.T, db *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{
		Username:     email,
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		PasswordHash: "hash",
		IsActive:     true,
		Profile:      model.DefaultPublicProfile(),
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func createJob(t *testing.T, db *gorm.DB, owner uuid.UUID, title string, createdAt time.Time) *model.Job {
	t.Helper()
	job := &model.Job{
		OwnerID:      owner,
		Title:        title,
		Category:     "Design",
		Description:  "A long enough description",
		BudgetType:   model.BudgetFixed,
		BudgetFixed:  int64Ptr(1000),
		DeadlineType: model.DeadlineFlexible,
		Remote:       true,
		IsActive:     true,
		CreatedAt:    createdAt,
	}
	require.NoError(t, NewJobRepository(db).Create(context.Background(), job, nil))
	return job
}

func createProposal(t *testing.T, db *gorm.DB, jobID, executorID uuid.UUID, status model.ProposalStatus) *model.Proposal {
	t.Helper()
	proposal := &model.Proposal{
		JobID:       jobID,
		ExecutorID:  executorID,
		CoverLetter: "hello",
		BidAmount:   decimal.NewFromInt(500),
		Status:      status,
	}
	require.NoError(t, NewProposalRepository(db).Create(context.Background(), proposal))
	return proposal
}
