package model

import (
	"time"

	"github.com/google/uuid"
)

type BudgetType string

const (
	BudgetFixed BudgetType = "fixed"
	BudgetRange BudgetType = "range"
)

type DeadlineType string

const (
	DeadlineFlexible DeadlineType = "flexible"
	DeadlineStrict   DeadlineType = "strict"
)

type JobStatus string

const (
	JobStatusActive   JobStatus = "active"
	JobStatusCanceled JobStatus = "canceled"
)

// Categories is the fixed set of job categories offered to customers.
var Categories = []string{
	"Веб-разработка",
	"Мобильные приложения",
	"Дизайн",
	"Копирайтинг",
	"SEO и маркетинг",
	"Переводы",
}

type Job struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OwnerID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_jobs_owner_id"`
	Title          string     `gorm:"size:200;not null"`
	Category       string     `gorm:"size:64;not null;index:idx_jobs_category"`
	Description    string     `gorm:"type:text;not null"`
	Skills         StringList `gorm:"type:jsonb;not null"`
	BudgetType     BudgetType `gorm:"size:16;not null"`
	BudgetFixed    *int64
	BudgetMin      *int64
	BudgetMax      *int64
	Deadline       string       `gorm:"size:120;not null"`
	DeadlineType   DeadlineType `gorm:"size:16;not null"`
	Location       string       `gorm:"size:120;not null"`
	Remote         bool         `gorm:"not null"`
	Urgent         bool         `gorm:"not null"`
	IsActive       bool         `gorm:"not null"`
	CanceledAt     *time.Time
	CanceledReason string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"index:idx_jobs_created_at"`
	UpdatedAt      time.Time
}

func (Job) TableName() string { return "jobs" }

func (j Job) Status() JobStatus {
	if j.CanceledAt != nil {
		return JobStatusCanceled
	}
	return JobStatusActive
}

// BudgetBounds returns the budget interval: both ends equal the fixed
// budget for fixed jobs.
func (j Job) BudgetBounds() (low, high *int64) {
	if j.BudgetType == BudgetFixed {
		return j.BudgetFixed, j.BudgetFixed
	}
	return j.BudgetMin, j.BudgetMax
}

type JobAttachment struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobID        uuid.UUID `gorm:"type:uuid;not null;index:idx_job_attachments_job_id"`
	FilePath     string    `gorm:"size:255;not null"`
	OriginalName string    `gorm:"size:255;not null"`
	ContentType  string    `gorm:"size:128;not null"`
	Size         int64     `gorm:"not null"`
	UploadedAt   time.Time `gorm:"not null"`
}

func (JobAttachment) TableName() string { return "job_attachments" }

// JobDetails is a job with everything the API shows next to it.
type JobDetails struct {
	Job            Job
	Owner          *UserCard
	Attachments    []JobAttachment
	ResponsesCount int64
	ViewsCount     int64
}

// JobFilter narrows job listings. Nil fields are not applied.
type JobFilter struct {
	Query     string
	Category  string
	Remote    *bool
	Urgent    *bool
	BudgetMin *int64
	BudgetMax *int64
	Status    JobStatus
	OwnerID   *uuid.UUID
	Limit     int
	Offset    int
}
