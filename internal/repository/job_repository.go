package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/freelancehub/internal/model"
)

const (
	budgetLowExpr  = "CASE WHEN budget_type = 'fixed' THEN budget_fixed ELSE budget_min END"
	budgetHighExpr = "CASE WHEN budget_type = 'fixed' THEN budget_fixed ELSE budget_max END"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts the job and its attachment rows in one transaction.
func (r *JobRepository) Create(ctx context.Context, job *model.Job, attachments []model.JobAttachment) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Skills == nil {
		job.Skills = model.StringList{}
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		return createAttachments(tx, job.ID, attachments)
	})
}

func (r *JobRepository) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(ctx context.Context, job *model.Job) error {
	if job.Skills == nil {
		job.Skills = model.StringList{}
	}
	return r.db.WithContext(ctx).Save(job).Error
}

// Delete removes the job with its proposals, assignment and attachment rows
// and returns the removed attachments so their files can be cleaned up.
func (r *JobRepository) Delete(ctx context.Context, id uuid.UUID) ([]model.JobAttachment, error) {
	var attachments []model.JobAttachment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("job_id = ?", id).Find(&attachments).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", id).Delete(&model.Assignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", id).Delete(&model.Proposal{}).Error; err != nil {
			return err
		}
		if err := tx.Where("job_id = ?", id).Delete(&model.JobAttachment{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Job{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *JobRepository) List(ctx context.Context, filter model.JobFilter) ([]model.Job, error) {
	query := r.db.WithContext(ctx).Model(&model.Job{})

	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		query = query.Where("(LOWER(title) LIKE ? ESCAPE '\\' OR LOWER(description) LIKE ? ESCAPE '\\')", pattern, pattern)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("LOWER(category) = LOWER(?)", category)
	}
	if filter.Remote != nil {
		query = query.Where("remote = ?", *filter.Remote)
	}
	if filter.Urgent != nil {
		query = query.Where("urgent = ?", *filter.Urgent)
	}
	// Range overlap: the job's upper bound reaches the requested minimum and
	// its lower bound does not exceed the requested maximum.
	if filter.BudgetMin != nil {
		query = query.Where(budgetHighExpr+" >= ?", *filter.BudgetMin)
	}
	if filter.BudgetMax != nil {
		query = query.Where(budgetLowExpr+" <= ?", *filter.BudgetMax)
	}
	switch filter.Status {
	case model.JobStatusActive:
		query = query.Where("canceled_at IS NULL")
	case model.JobStatusCanceled:
		query = query.Where("canceled_at IS NOT NULL")
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var jobs []model.Job
	if err := query.Order("created_at DESC").Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *JobRepository) CountProposals(ctx context.Context, jobIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	result := make(map[uuid.UUID]int64, len(jobIDs))
	if len(jobIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		JobID uuid.UUID
		Total int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT job_id, COUNT(*) AS total
		FROM proposals
		WHERE job_id IN ?
		GROUP BY job_id
	`, jobIDs).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.JobID] = row.Total
	}
	return result, nil
}

// CreateAttachments inserts all rows or none. IDs are assigned in place.
func (r *JobRepository) CreateAttachments(ctx context.Context, jobID uuid.UUID, attachments []model.JobAttachment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createAttachments(tx, jobID, attachments)
	})
}

func createAttachments(tx *gorm.DB, jobID uuid.UUID, attachments []model.JobAttachment) error {
	for i := range attachments {
		if attachments[i].ID == uuid.Nil {
			attachments[i].ID = uuid.New()
		}
		attachments[i].JobID = jobID
		if err := tx.Create(&attachments[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *JobRepository) GetAttachment(ctx context.Context, id uuid.UUID) (*model.JobAttachment, error) {
	var attachment model.JobAttachment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&attachment).Error; err != nil {
		return nil, err
	}
	return &attachment, nil
}

func (r *JobRepository) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.JobAttachment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Attachments returns attachments grouped by job, newest first.
func (r *JobRepository) Attachments(ctx context.Context, jobIDs []uuid.UUID) (map[uuid.UUID][]model.JobAttachment, error) {
	result := make(map[uuid.UUID][]model.JobAttachment, len(jobIDs))
	if len(jobIDs) == 0 {
		return result, nil
	}
	var rows []model.JobAttachment
	err := r.db.WithContext(ctx).
		Where("job_id IN ?", jobIDs).
		Order("uploaded_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.JobID] = append(result[row.JobID], row)
	}
	return result, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
