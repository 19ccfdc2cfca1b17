package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nurpe/freelancehub/internal/model"
)

// ErrStaleState is returned when a job or proposal changed between the
// caller's read and the locked write.
var ErrStaleState = errors.New("job or proposal changed concurrently")

type ProposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) *ProposalRepository {
	return &ProposalRepository{db: db}
}

// ProposalFilter narrows proposal listings. All set fields are combined.
type ProposalFilter struct {
	JobID      *uuid.UUID
	ExecutorID *uuid.UUID
	JobOwnerID *uuid.UUID
	Status     model.ProposalStatus
}

func (r *ProposalRepository) Create(ctx context.Context, proposal *model.Proposal) error {
	if proposal.ID == uuid.Nil {
		proposal.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *ProposalRepository) Get(ctx context.Context, id uuid.UUID) (*model.Proposal, error) {
	var proposal model.Proposal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&proposal).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *ProposalRepository) Exists(ctx context.Context, jobID, executorID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Proposal{}).
		Where("job_id = ? AND executor_id = ?", jobID, executorID).
		Count(&count).Error
	return count > 0, err
}

func (r *ProposalRepository) Update(ctx context.Context, proposal *model.Proposal) error {
	return r.db.WithContext(ctx).Save(proposal).Error
}

func (r *ProposalRepository) SetStatus(ctx context.Context, proposal *model.Proposal, status model.ProposalStatus) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&model.Proposal{}).
		Where("id = ?", proposal.ID).
		Updates(map[string]interface{}{"status": status, "updated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	proposal.Status = status
	proposal.UpdatedAt = now
	return nil
}

func (r *ProposalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Proposal{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ProposalRepository) List(ctx context.Context, filter ProposalFilter) ([]model.Proposal, error) {
	query := r.db.WithContext(ctx).Model(&model.Proposal{})
	if filter.JobID != nil {
		query = query.Where("job_id = ?", *filter.JobID)
	}
	if filter.ExecutorID != nil {
		query = query.Where("executor_id = ?", *filter.ExecutorID)
	}
	if filter.JobOwnerID != nil {
		query = query.Where("job_id IN (?)", r.db.Model(&model.Job{}).Select("id").Where("owner_id = ?", *filter.JobOwnerID))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var proposals []model.Proposal
	if err := query.Order("created_at DESC").Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}

func (r *ProposalRepository) Stats(ctx context.Context, jobID uuid.UUID) (model.ProposalStats, error) {
	var row struct {
		Total       int64
		Shortlisted int64
		Accepted    int64
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN status = 'shortlisted' THEN 1 ELSE 0 END), 0) AS shortlisted,
			COALESCE(SUM(CASE WHEN status = 'accepted' THEN 1 ELSE 0 END), 0) AS accepted
		FROM proposals
		WHERE job_id = ?
	`, jobID).Scan(&row).Error
	if err != nil {
		return model.ProposalStats{}, err
	}
	return model.ProposalStats{
		JobID:       jobID,
		Total:       row.Total,
		Shortlisted: row.Shortlisted,
		Accepted:    row.Accepted,
	}, nil
}

// Accept makes proposal the job's only assignment. A previously accepted
// proposal of the same job is moved to rejected.
// Accept locks the job and proposal rows, re-checks their state and swaps
// the job's assignment to this proposal.
func (r *ProposalRepository) Accept(ctx context.Context, proposal *model.Proposal) (*model.Assignment, error) {
	now := time.Now().UTC()
	assignment := &model.Assignment{
		ID:         uuid.New(),
		JobID:      proposal.JobID,
		ExecutorID: proposal.ExecutorID,
		ProposalID: proposal.ID,
		CreatedAt:  now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job model.Job
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", proposal.JobID).First(&job).Error; err != nil {
			return err
		}
		var current model.Proposal
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", proposal.ID).First(&current).Error; err != nil {
			return err
		}
		if job.Status() != model.JobStatusActive ||
			current.Status == model.ProposalWithdrawn ||
			current.Status == model.ProposalRejected {
			return ErrStaleState
		}

		var previous []model.Assignment
		if err := tx.Where("job_id = ?", proposal.JobID).Find(&previous).Error; err != nil {
			return err
		}
		for _, prev := range previous {
			if prev.ProposalID == proposal.ID {
				continue
			}
			if err := tx.Model(&model.Proposal{}).
				Where("id = ? AND status = ?", prev.ProposalID, model.ProposalAccepted).
				Updates(map[string]interface{}{"status": model.ProposalRejected, "updated_at": now}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("job_id = ?", proposal.JobID).Delete(&model.Assignment{}).Error; err != nil {
			return err
		}
		if err := tx.Create(assignment).Error; err != nil {
			if _, dup := UniqueViolation(err); dup {
				return ErrStaleState
			}
			return err
		}
		return tx.Model(&model.Proposal{}).
			Where("id = ?", proposal.ID).
			Updates(map[string]interface{}{"status": model.ProposalAccepted, "updated_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	proposal.Status = model.ProposalAccepted
	proposal.UpdatedAt = now
	return assignment, nil
}

func (r *ProposalRepository) GetAssignment(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	var assignment model.Assignment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListAssignments returns assignments where the user is the executor or owns the job.
func (r *ProposalRepository) ListAssignments(ctx context.Context, userID uuid.UUID) ([]model.Assignment, error) {
	var assignments []model.Assignment
	err := r.db.WithContext(ctx).
		Where("executor_id = ? OR job_id IN (?)", userID, r.db.Model(&model.Job{}).Select("id").Where("owner_id = ?", userID)).
		Order("created_at DESC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}
