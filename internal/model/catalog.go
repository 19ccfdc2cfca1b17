package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	return s == TaskOpen || s == TaskInProgress || s == TaskDone
}

// Task is a legacy catalog entry predating jobs.
type Task struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Title       string              `gorm:"size:200;not null"`
	Description string              `gorm:"type:text;not null"`
	Price       decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	Location    string              `gorm:"size:120;not null"`
	Category    string              `gorm:"size:120;not null"`
	Status      TaskStatus          `gorm:"size:20;not null"`
	OwnerID     *uuid.UUID          `gorm:"type:uuid"`
	CreatedAt   time.Time
}

func (Task) TableName() string { return "catalog_tasks" }

// Service is an executor's offering in the legacy catalog.
type Service struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Title       string              `gorm:"size:200;not null"`
	Description string              `gorm:"type:text;not null"`
	RateType    RateType            `gorm:"size:20;not null"`
	HourlyRate  decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	ProjectRate decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	Category    string              `gorm:"size:120;not null"`
	AuthorID    *uuid.UUID          `gorm:"type:uuid"`
	Rating      *float64
	CreatedAt   time.Time
}

func (Service) TableName() string { return "catalog_services" }

// CatalogQuery is the generic filter/search/ordering input of catalog listings.
type CatalogQuery struct {
	Filters  map[string]string
	Search   string
	Ordering string
}
