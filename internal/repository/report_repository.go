package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/freelancehub/internal/model"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

type proposalCounts struct {
	JobID       uuid.UUID
	Total       int64
	Sent        int64
	Shortlisted int64
	Accepted    int64
	Rejected    int64
	Withdrawn   int64
}

// OwnerJobRows returns every job of the owner with proposal counts per
// status and the assigned executor, newest job first.
func (r *ReportRepository) OwnerJobRows(ctx context.Context, ownerID uuid.UUID) ([]model.JobReportRow, error) {
	var jobs []model.Job
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return []model.JobReportRow{}, nil
	}

	var counts []proposalCounts
	if err := r.db.WithContext(ctx).Raw(`
		SELECT
			p.job_id,
			COUNT(*) AS total,
			SUM(CASE WHEN p.status = 'sent' THEN 1 ELSE 0 END) AS sent,
			SUM(CASE WHEN p.status = 'shortlisted' THEN 1 ELSE 0 END) AS shortlisted,
			SUM(CASE WHEN p.status = 'accepted' THEN 1 ELSE 0 END) AS accepted,
			SUM(CASE WHEN p.status = 'rejected' THEN 1 ELSE 0 END) AS rejected,
			SUM(CASE WHEN p.status = 'withdrawn' THEN 1 ELSE 0 END) AS withdrawn
		FROM proposals p
		JOIN jobs j ON j.id = p.job_id
		WHERE j.owner_id = ?
		GROUP BY p.job_id
	`, ownerID).Scan(&counts).Error; err != nil {
		return nil, err
	}
	byJob := make(map[uuid.UUID]proposalCounts, len(counts))
	for _, c := range counts {
		byJob[c.JobID] = c
	}

	var assigned []struct {
		JobID      uuid.UUID
		ExecutorID uuid.UUID
		Username   string
		FirstName  string
		LastName   string
	}
	if err := r.db.WithContext(ctx).Raw(`
		SELECT a.job_id, a.executor_id, u.username, u.first_name, u.last_name
		FROM assignments a
		JOIN jobs j ON j.id = a.job_id
		JOIN users u ON u.id = a.executor_id
		WHERE j.owner_id = ?
	`, ownerID).Scan(&assigned).Error; err != nil {
		return nil, err
	}
	executors := make(map[uuid.UUID]model.UserCard, len(assigned))
	for _, a := range assigned {
		user := model.User{ID: a.ExecutorID, Username: a.Username, FirstName: a.FirstName, LastName: a.LastName}
		executors[a.JobID] = user.Card()
	}

	rows := make([]model.JobReportRow, 0, len(jobs))
	for _, job := range jobs {
		c := byJob[job.ID]
		row := model.JobReportRow{
			Job:         job,
			Total:       c.Total,
			Sent:        c.Sent,
			Shortlisted: c.Shortlisted,
			Accepted:    c.Accepted,
			Rejected:    c.Rejected,
			Withdrawn:   c.Withdrawn,
		}
		if card, ok := executors[job.ID]; ok {
			card := card
			row.Executor = &card
		}
		rows = append(rows, row)
	}
	return rows, nil
}
