package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProposalStatus string

const (
	ProposalSent        ProposalStatus = "sent"
	ProposalWithdrawn   ProposalStatus = "withdrawn"
	ProposalShortlisted ProposalStatus = "shortlisted"
	ProposalAccepted    ProposalStatus = "accepted"
	ProposalRejected    ProposalStatus = "rejected"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case ProposalSent, ProposalWithdrawn, ProposalShortlisted, ProposalAccepted, ProposalRejected:
		return true
	}
	return false
}

// Open reports whether the executor may still edit or withdraw the proposal.
func (s ProposalStatus) Open() bool {
	return s == ProposalSent || s == ProposalShortlisted
}

type Proposal struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	JobID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_proposals_job_executor,priority:1"`
	ExecutorID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_proposals_job_executor,priority:2;index:idx_proposals_executor_id"`
	CoverLetter string          `gorm:"type:text;not null"`
	BidAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Days        *int
	Status      ProposalStatus `gorm:"size:20;not null;index:idx_proposals_status"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Proposal) TableName() string { return "proposals" }

type Assignment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_assignments_job_id"`
	ExecutorID uuid.UUID `gorm:"type:uuid;not null;index:idx_assignments_executor_id"`
	ProposalID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_assignments_proposal_id"`
	CreatedAt  time.Time
}

func (Assignment) TableName() string { return "assignments" }

type ProposalDetails struct {
	Proposal Proposal
	Executor UserCard
}

type AssignmentDetails struct {
	Assignment Assignment
	Executor   UserCard
}

type ProposalStats struct {
	JobID       uuid.UUID
	Total       int64
	Shortlisted int64
	Accepted    int64
}

// AgreementDocument feeds the assignment agreement PDF.
type AgreementDocument struct {
	Assignment Assignment
	Proposal   Proposal
	Job        Job
	Customer   User
	Executor   User
}
