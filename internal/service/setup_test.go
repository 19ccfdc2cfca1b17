package service

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/freelancehub/internal/auth"
	"github.com/nurpe/freelancehub/internal/db/testutil"
	"github.com/nurpe/freelancehub/internal/events"
	"github.com/nurpe/freelancehub/internal/model"
	"github.com/nurpe/freelancehub/internal/repository"
	"github.com/nurpe/freelancehub/internal/storage"
	"github.com/nurpe/freelancehub/internal/throttle"
	"github.com/nurpe/freelancehub/internal/views"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

type fakeExcel struct {
	report model.JobsReport
}

func (f *fakeExcel) Generate(report model.JobsReport) ([]byte, error) {
	f.report = report
	return []byte("xlsx"), nil
}

type fakeAgreement struct {
	doc model.AgreementDocument
}

func (f *fakeAgreement) Generate(doc model.AgreementDocument) ([]byte, error) {
	f.doc = doc
	return []byte("%PDF-1.3"), nil
}

type testEnv struct {
	db        *gorm.DB
	fs        afero.Fs
	tokens    *auth.Manager
	recorder  *events.Recorder
	excel     *fakeExcel
	agreement *fakeAgreement
	users     *UserService
	jobs      *JobService
	proposals *ProposalService
	catalog   *CatalogService
	seq       int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenDB(t)
	fs := afero.NewMemMapFs()
	files := storage.New(fs, "/media/")
	log := zerolog.Nop()

	env := &testEnv{
		db:        db,
		fs:        fs,
		tokens:    auth.NewManager("access", "refresh", 15*time.Minute, time.Hour, "test"),
		recorder:  &events.Recorder{},
		excel:     &fakeExcel{},
		agreement: &fakeAgreement{},
	}

	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewJobRepository(db)
	proposalRepo := repository.NewProposalRepository(db)

	env.users = NewUserService(userRepo, env.tokens, throttle.NewMemoryLimiter(3, time.Minute), files, log)
	env.jobs = NewJobService(jobRepo, userRepo, repository.NewReportRepository(db), files, views.NewMemoryCounter(), env.recorder, env.excel, log)
	env.proposals = NewProposalService(proposalRepo, jobRepo, userRepo, env.recorder, env.agreement, log)
	env.catalog = NewCatalogService(repository.NewCatalogRepository(db), userRepo, log)
	return env
}

func (e *testEnv) register(t *testing.T, email string, role model.Role) model.Principal {
	t.Helper()
	e.seq++
	phone := fmt.Sprintf("+7701%07d", e.seq)
	user, err := e.users.Register(context.Background(), RegisterInput{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Phone:     phone,
		Role:      role,
		Password:  "secret-pass",
		Confirm:   "secret-pass",
	})
	require.NoError(t, err)
	return model.Principal{UserID: user.ID, Role: user.Role}
}

func (e *testEnv) createJob(t *testing.T, owner model.Principal, title string) *model.JobDetails {
	t.Helper()
	job, err := e.jobs.Create(context.Background(), owner, validJobInput(title), nil)
	require.NoError(t, err)
	return job
}

func validJobInput(title string) JobInput {
	category := model.Categories[0]
	description := "Build a landing page for a bakery"
	budget := int64(50000)
	return JobInput{
		Title:       &title,
		Category:    &category,
		Description: &description,
		Skills:      []string{"html", " css "},
		BudgetFixed: &budget,
	}
}

func upload(name string, content []byte) Upload {
	return Upload{Name: name, Content: bytes.NewReader(content)}
}

func strPtr(s string) *string { return &s }
