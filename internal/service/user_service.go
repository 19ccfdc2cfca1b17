package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/freelancehub/internal/auth"
	"github.com/nurpe/freelancehub/internal/model"
	"github.com/nurpe/freelancehub/internal/repository"
	"github.com/nurpe/freelancehub/internal/storage"
	"github.com/nurpe/freelancehub/internal/throttle"
)

const (
	msgEmailTaken = "user with this email already exists"
	msgPhoneTaken = "user with this phone already exists"
)

var (
	phonePattern    = regexp.MustCompile(`^\+7\d{10}$`)
	busyDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// ValidPhone reports whether phone has the +7XXXXXXXXXX form.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

type UserService struct {
	users   *repository.UserRepository
	tokens  *auth.Manager
	limiter throttle.Limiter
	files   *storage.Storage
	log     zerolog.Logger
}

func NewUserService(users *repository.UserRepository, tokens *auth.Manager, limiter throttle.Limiter, files *storage.Storage, log zerolog.Logger) *UserService {
	return &UserService{
		users:   users,
		tokens:  tokens,
		limiter: limiter,
		files:   files,
		log:     log,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Role      model.Role
	Password  string
	Confirm   string
}

func (s *UserService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)

	errs := fieldErrors{}
	if input.FirstName == "" {
		errs.add("first_name", "this field is required")
	}
	if input.LastName == "" {
		errs.add("last_name", "this field is required")
	}
	if input.Email == "" {
		errs.add("email", "this field is required")
	} else if !strings.Contains(input.Email, "@") {
		errs.add("email", "enter a valid email address")
	}
	if input.Phone == "" {
		errs.add("phone", "this field is required")
	} else if !ValidPhone(input.Phone) {
		errs.add("phone", "phone must have the format +7XXXXXXXXXX")
	}
	if !input.Role.Valid() {
		errs.add("role", "role must be executor or customer")
	}
	if input.Password == "" {
		errs.add("password", "this field is required")
	}
	if input.Password != input.Confirm {
		errs.add("confirm", "passwords do not match")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	if exists, err := s.users.EmailExists(ctx, input.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, fieldError("email", msgEmailTaken)
	}
	if exists, err := s.users.PhoneExists(ctx, input.Phone); err != nil {
		return nil, err
	} else if exists {
		return nil, fieldError("phone", msgPhoneTaken)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	phone := input.Phone
	user := &model.User{
		Username:     input.Email,
		Email:        input.Email,
		Phone:        &phone,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
		PasswordHash: hash,
		IsActive:     true,
		Profile:      model.DefaultPublicProfile(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if constraint, ok := repository.UniqueViolation(err); ok {
			return nil, registerConflict(constraint)
		}
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID.String()).Str("role", string(user.Role)).Msg("user registered")
	return user, nil
}

// registerConflict maps a unique violation raised after the pre-checks.
func registerConflict(constraint string) error {
	switch {
	case strings.Contains(constraint, "phone"):
		return fieldError("phone", msgPhoneTaken)
	case strings.Contains(constraint, "email"), strings.Contains(constraint, "username"):
		return fieldError("email", msgEmailTaken)
	default:
		return fieldError("detail", "user with these details already exists")
	}
}

type LoginInput struct {
	Email    string
	Username string
	Password string
	ClientIP string
}

// ThrottleKey identifies login attempts by client address and account.
func (in LoginInput) ThrottleKey() string {
	account := strings.ToLower(strings.TrimSpace(in.Email))
	if account == "" {
		account = strings.ToLower(strings.TrimSpace(in.Username))
	}
	if account == "" {
		account = "anonymous"
	}
	return in.ClientIP + ":" + account
}

func (s *UserService) Login(ctx context.Context, input LoginInput) (auth.TokenPair, error) {
	allowed, err := s.limiter.Allow(ctx, input.ThrottleKey())
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle unavailable")
	} else if !allowed {
		return auth.TokenPair{}, ErrTooManyRequests
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	username := strings.TrimSpace(input.Username)
	if email == "" && username == "" {
		return auth.TokenPair{}, &ValidationError{Fields: map[string]string{
			"email":    "enter an email",
			"username": "enter a username or email",
		}}
	}

	var user *model.User
	if email != "" {
		user, err = s.users.FindByEmail(ctx, email)
		if err != nil && !repository.IsNotFound(err) {
			return auth.TokenPair{}, err
		}
	}
	if user == nil && username != "" {
		user, err = s.users.FindByUsername(ctx, username)
		if err != nil && !repository.IsNotFound(err) {
			return auth.TokenPair{}, err
		}
	}
	if user == nil {
		return auth.TokenPair{}, fieldError("email", "user not found")
	}
	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		return auth.TokenPair{}, fieldError("password", "wrong password")
	}
	if !user.IsActive {
		return auth.TokenPair{}, fieldError("detail", "account is disabled, contact support")
	}

	return s.tokens.IssuePair(*user)
}

// Refresh issues a new access token for a valid refresh token.
func (s *UserService) Refresh(ctx context.Context, refresh string) (string, error) {
	userID, err := s.tokens.ParseRefresh(refresh)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", fmt.Errorf("%w: user not found", ErrUnauthorized)
		}
		return "", err
	}
	if !user.IsActive {
		return "", fmt.Errorf("%w: account is disabled", ErrUnauthorized)
	}
	return s.tokens.IssueAccess(*user)
}

func (s *UserService) Profile(ctx context.Context, principal model.Principal) (*model.User, error) {
	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		return nil, mapNotFound(err, "user")
	}
	return user, nil
}

// PublicCard returns any user's public page.
func (s *UserService) PublicCard(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "user")
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}
	return user, nil
}

// UpdatePublicProfile replaces the questionnaire after normalizing the rates.
func (s *UserService) UpdatePublicProfile(ctx context.Context, principal model.Principal, profile model.PublicProfile) (*model.User, error) {
	profile, err := NormalizeProfile(profile)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdateProfile(ctx, principal.UserID, profile); err != nil {
		return nil, mapNotFound(err, "user")
	}
	return s.Profile(ctx, principal)
}

// NormalizeProfile validates a public profile and fills empty fields with defaults.
func NormalizeProfile(p model.PublicProfile) (model.PublicProfile, error) {
	errs := fieldErrors{}
	switch p.Status {
	case "":
		p.Status = model.AvailabilityOpen
	case model.AvailabilityOpen, model.AvailabilityPartial, model.AvailabilityBusy:
	default:
		errs.add("status", fmt.Sprintf("%q is not a valid choice", p.Status))
	}

	switch p.RateType {
	case "", model.RateHour:
		p.RateType = model.RateHour
		if p.HourlyRate == nil || *p.HourlyRate <= 0 {
			errs.add("hourly_rate", "enter a valid hourly rate")
		}
		p.ProjectRate = nil
	case model.RateProject:
		if p.ProjectRate == nil || *p.ProjectRate <= 0 {
			errs.add("project_rate", "enter a valid project rate")
		}
		p.HourlyRate = nil
	default:
		errs.add("rate_type", fmt.Sprintf("%q is not a valid choice", p.RateType))
	}

	for _, day := range p.BusyDates {
		if !busyDatePattern.MatchString(day) {
			errs.add("busy_dates", "dates must use the YYYY-MM-DD format")
			break
		}
	}
	if err := errs.err(); err != nil {
		return model.PublicProfile{}, err
	}

	if p.Categories == nil {
		p.Categories = []string{}
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Links == nil {
		p.Links = []map[string]string{}
	}
	if p.Socials == nil {
		p.Socials = map[string]string{}
	}
	if p.Portfolio == nil {
		p.Portfolio = []map[string]string{}
	}
	if p.BusyDates == nil {
		p.BusyDates = []string{}
	}
	return p, nil
}

// UploadAvatar stores an image under avatars/<user id>/ and replaces the old one.
func (s *UserService) UploadAvatar(ctx context.Context, principal model.Principal, name string, r io.Reader) (*model.User, error) {
	user, err := s.Profile(ctx, principal)
	if err != nil {
		return nil, err
	}

	saved, err := s.files.Save(path.Join("avatars", user.ID.String()), name, r)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyFile) {
			return nil, fieldError("avatar", "the submitted file is empty")
		}
		return nil, err
	}
	if !storage.IsImage(saved.ContentType) {
		_ = s.files.Delete(saved.Path)
		return nil, fieldError("avatar", "upload a valid image")
	}

	if err := s.users.UpdateAvatar(ctx, user.ID, saved.Path); err != nil {
		_ = s.files.Delete(saved.Path)
		return nil, mapNotFound(err, "user")
	}
	if user.AvatarPath != "" && user.AvatarPath != saved.Path {
		if err := s.files.Delete(user.AvatarPath); err != nil {
			s.log.Warn().Err(err).Str("path", user.AvatarPath).Msg("remove old avatar failed")
		}
	}
	user.AvatarPath = saved.Path
	return user, nil
}
