package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/freelancehub/internal/model"
)

// listColumns describes which columns a catalog listing may filter, search and order by.
type listColumns struct {
	filters  map[string]struct{}
	search   []string
	ordering map[string]struct{}
}

var (
	taskColumns = listColumns{
		filters:  set("status", "category"),
		search:   []string{"title", "description", "location"},
		ordering: set("created_at", "price"),
	}
	serviceColumns = listColumns{
		filters:  set("category", "rate_type"),
		search:   []string{"title", "description"},
		ordering: set("created_at", "hourly_rate", "project_rate"),
	}
)

func set(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

// apply adds filter, search and ordering clauses. Unknown filter and
// ordering keys are ignored.
func (s listColumns) apply(query *gorm.DB, q model.CatalogQuery) *gorm.DB {
	for key, value := range q.Filters {
		if _, ok := s.filters[key]; !ok || value == "" {
			continue
		}
		query = query.Where(key+" = ?", value)
	}

	if term := strings.TrimSpace(q.Search); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		clauses := make([]string, 0, len(s.search))
		args := make([]interface{}, 0, len(s.search))
		for _, column := range s.search {
			clauses = append(clauses, "LOWER("+column+") LIKE ? ESCAPE '\\'")
			args = append(args, pattern)
		}
		query = query.Where(strings.Join(clauses, " OR "), args...)
	}

	return query.Order(s.order(q.Ordering))
}

func (s listColumns) order(raw string) string {
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		column := strings.TrimPrefix(field, "-")
		if _, ok := s.ordering[column]; !ok {
			continue
		}
		if desc {
			return column + " DESC"
		}
		return column + " ASC"
	}
	return "created_at DESC"
}

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListTasks(ctx context.Context, q model.CatalogQuery) ([]model.Task, error) {
	var tasks []model.Task
	query := taskColumns.apply(r.db.WithContext(ctx).Model(&model.Task{}), q)
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *CatalogRepository) GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *CatalogRepository) CreateTask(ctx context.Context, task *model.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *CatalogRepository) UpdateTask(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *CatalogRepository) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.db.WithContext(ctx), &model.Task{}, id)
}

func (r *CatalogRepository) ListServices(ctx context.Context, q model.CatalogQuery) ([]model.Service, error) {
	var services []model.Service
	query := serviceColumns.apply(r.db.WithContext(ctx).Model(&model.Service{}), q)
	if err := query.Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

func (r *CatalogRepository) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var service model.Service
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&service).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *CatalogRepository) CreateService(ctx context.Context, service *model.Service) error {
	if service.ID == uuid.Nil {
		service.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(service).Error
}

func (r *CatalogRepository) UpdateService(ctx context.Context, service *model.Service) error {
	return r.db.WithContext(ctx).Save(service).Error
}

func (r *CatalogRepository) DeleteService(ctx context.Context, id uuid.UUID) error {
	return deleteByID(r.db.WithContext(ctx), &model.Service{}, id)
}

func deleteByID(db *gorm.DB, value interface{}, id uuid.UUID) error {
	result := db.Where("id = ?", id).Delete(value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
