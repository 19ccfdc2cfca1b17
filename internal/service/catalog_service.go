package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nurpe/freelancehub/internal/model"
	"github.com/nurpe/freelancehub/internal/repository"
)

const maxCatalogText = 120

// catalogAmountLimit bounds numeric(10,2) values.
var catalogAmountLimit = decimal.New(1, 8)

type CatalogService struct {
	catalog *repository.CatalogRepository
	users   *repository.UserRepository
	log     zerolog.Logger
}

func NewCatalogService(catalog *repository.CatalogRepository, users *repository.UserRepository, log zerolog.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, users: users, log: log}
}

type TaskInput struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Location    *string
	Category    *string
	Status      *model.TaskStatus
	OwnerID     *uuid.UUID
}

type ServiceInput struct {
	Title       *string
	Description *string
	RateType    *model.RateType
	HourlyRate  *decimal.Decimal
	ProjectRate *decimal.Decimal
	Category    *string
	AuthorID    *uuid.UUID
	Rating      *float64
}

func (s *CatalogService) ListTasks(ctx context.Context, q model.CatalogQuery) ([]model.Task, error) {
	return s.catalog.ListTasks(ctx, q)
}

func (s *CatalogService) GetTask(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := s.catalog.GetTask(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "task")
	}
	return task, nil
}

func (s *CatalogService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	task := &model.Task{Status: model.TaskOpen}
	if err := s.applyTask(ctx, task, input); err != nil {
		return nil, err
	}
	if err := s.catalog.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *CatalogService) UpdateTask(ctx context.Context, id uuid.UUID, input TaskInput) (*model.Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyTask(ctx, task, input); err != nil {
		return nil, err
	}
	if err := s.catalog.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *CatalogService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return mapNotFound(s.catalog.DeleteTask(ctx, id), "task")
}

func (s *CatalogService) ListServices(ctx context.Context, q model.CatalogQuery) ([]model.Service, error) {
	return s.catalog.ListServices(ctx, q)
}

func (s *CatalogService) GetService(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	service, err := s.catalog.GetService(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "service")
	}
	return service, nil
}

func (s *CatalogService) CreateService(ctx context.Context, input ServiceInput) (*model.Service, error) {
	service := &model.Service{RateType: model.RateHour}
	if err := s.applyService(ctx, service, input); err != nil {
		return nil, err
	}
	if err := s.catalog.CreateService(ctx, service); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *CatalogService) UpdateService(ctx context.Context, id uuid.UUID, input ServiceInput) (*model.Service, error) {
	service, err := s.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyService(ctx, service, input); err != nil {
		return nil, err
	}
	if err := s.catalog.UpdateService(ctx, service); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *CatalogService) DeleteService(ctx context.Context, id uuid.UUID) error {
	return mapNotFound(s.catalog.DeleteService(ctx, id), "service")
}

func (s *CatalogService) applyTask(ctx context.Context, task *model.Task, input TaskInput) error {
	if input.Title != nil {
		task.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		task.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		task.Price = decimal.NewNullDecimal(input.Price.Round(2))
	}
	if input.Location != nil {
		task.Location = strings.TrimSpace(*input.Location)
	}
	if input.Category != nil {
		task.Category = strings.TrimSpace(*input.Category)
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.OwnerID != nil {
		task.OwnerID = input.OwnerID
	}

	errs := fieldErrors{}
	validateTitle(errs, task.Title)
	validateText(errs, "location", task.Location)
	validateText(errs, "category", task.Category)
	validateAmount(errs, "price", task.Price)
	if !task.Status.Valid() {
		errs.add("status", fmt.Sprintf("%q is not a valid choice", task.Status))
	}
	if err := s.checkUser(ctx, errs, "owner", task.OwnerID); err != nil {
		return err
	}
	return errs.err()
}

func (s *CatalogService) applyService(ctx context.Context, service *model.Service, input ServiceInput) error {
	if input.Title != nil {
		service.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		service.Description = strings.TrimSpace(*input.Description)
	}
	if input.RateType != nil {
		service.RateType = *input.RateType
	}
	if input.HourlyRate != nil {
		service.HourlyRate = decimal.NewNullDecimal(input.HourlyRate.Round(2))
	}
	if input.ProjectRate != nil {
		service.ProjectRate = decimal.NewNullDecimal(input.ProjectRate.Round(2))
	}
	if input.Category != nil {
		service.Category = strings.TrimSpace(*input.Category)
	}
	if input.AuthorID != nil {
		service.AuthorID = input.AuthorID
	}
	if input.Rating != nil {
		rating := *input.Rating
		service.Rating = &rating
	}

	errs := fieldErrors{}
	validateTitle(errs, service.Title)
	validateText(errs, "category", service.Category)
	validateAmount(errs, "hourly_rate", service.HourlyRate)
	validateAmount(errs, "project_rate", service.ProjectRate)
	if service.RateType != model.RateHour && service.RateType != model.RateProject {
		errs.add("rate_type", fmt.Sprintf("%q is not a valid choice", service.RateType))
	}
	if err := s.checkUser(ctx, errs, "author", service.AuthorID); err != nil {
		return err
	}
	return errs.err()
}

func (s *CatalogService) checkUser(ctx context.Context, errs fieldErrors, field string, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	if _, err := s.users.GetByID(ctx, *id); err != nil {
		if repository.IsNotFound(err) {
			errs.add(field, "user does not exist")
			return nil
		}
		return err
	}
	return nil
}

func validateTitle(errs fieldErrors, title string) {
	switch {
	case title == "":
		errs.add("title", "this field is required")
	case utf8.RuneCountInString(title) > maxTitleLen:
		errs.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLen))
	}
}

func validateText(errs fieldErrors, field, value string) {
	if utf8.RuneCountInString(value) > maxCatalogText {
		errs.add(field, fmt.Sprintf("%s must be at most %d characters", field, maxCatalogText))
	}
}

func validateAmount(errs fieldErrors, field string, value decimal.NullDecimal) {
	if !value.Valid {
		return
	}
	if value.Decimal.IsNegative() {
		errs.add(field, "value must not be negative")
	} else if value.Decimal.GreaterThanOrEqual(catalogAmountLimit) {
		errs.add(field, "ensure that there are no more than 10 digits in total")
	}
}
