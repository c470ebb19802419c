package service

import (
	"sync"
	"testing"
	"time"

	"buildledger/internal/config"
	"buildledger/internal/database"
	"buildledger/internal/lock"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordedEvent struct {
	Type string
	Data any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(eventType string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Data: data})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// testEnv wires every repository and service against one in-memory database.
type testEnv struct {
	db     *gorm.DB
	events *recordingPublisher

	owner      model.ActingUser
	accountant model.ActingUser

	projectRepo    repository.ProjectRepository
	vendorRepo     repository.VendorRepository
	contractorRepo repository.ContractorRepository
	incomeRepo     repository.IncomeRepository
	expenseRepo    repository.ExpenseRepository
	paymentRepo    repository.VendorPaymentRepository
	historyRepo    repository.PaymentHistoryRepository
	loanRepo       repository.LoanRepository
	requestRepo    repository.EditRequestRepository
	auditRepo      repository.AuditRepository
	userRepo       repository.UserRepository
	txManager      repository.TransactionManager

	projects    ProjectService
	vendors     VendorService
	contractors ContractorService
	income      IncomeService
	expenses    ExpenseService
	payments    VendorPaymentService
	loans       LoanService
	summary     SummaryService
	requests    EditRequestService
	audit       AuditService
	users       UserService
}

var testJWT = config.JWTConfig{
	Secret:     "test-secret",
	Expiration: time.Hour,
	Issuer:     "buildledger-test",
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		db:             db,
		events:         &recordingPublisher{},
		projectRepo:    repository.NewProjectRepository(db),
		vendorRepo:     repository.NewVendorRepository(db),
		contractorRepo: repository.NewContractorRepository(db),
		incomeRepo:     repository.NewIncomeRepository(db),
		expenseRepo:    repository.NewExpenseRepository(db),
		paymentRepo:    repository.NewVendorPaymentRepository(db),
		historyRepo:    repository.NewPaymentHistoryRepository(db),
		loanRepo:       repository.NewLoanRepository(db),
		requestRepo:    repository.NewEditRequestRepository(db),
		auditRepo:      repository.NewAuditRepository(db),
		userRepo:       repository.NewUserRepository(db),
		txManager:      repository.NewTransactionManager(db),
	}
	env.owner = seedUser(t, db, "owner@example.com", model.RoleOwner)
	env.accountant = seedUser(t, db, "accountant@example.com", model.RoleAccountant)

	env.projects = NewProjectService(env.projectRepo, env.vendorRepo, env.contractorRepo, env.auditRepo, env.txManager)
	env.vendors = NewVendorService(env.projectRepo, env.vendorRepo, env.expenseRepo, env.paymentRepo, env.auditRepo, env.txManager)
	env.contractors = NewContractorService(env.projectRepo, env.contractorRepo, env.expenseRepo, env.auditRepo, env.txManager)
	env.income = NewIncomeService(env.projectRepo, env.incomeRepo, env.auditRepo, env.txManager, env.events)
	env.expenses = NewExpenseService(env.projectRepo, env.vendorRepo, env.contractorRepo, env.expenseRepo,
		env.paymentRepo, env.historyRepo, env.auditRepo, env.txManager, env.events)
	env.payments = env.paymentService(env.expenseRepo)
	env.loans = NewLoanService(env.projectRepo, env.loanRepo, env.auditRepo, env.txManager, env.events)
	env.summary = NewSummaryService(env.projectRepo, env.incomeRepo, env.expenseRepo, env.loanRepo)
	env.requests = NewEditRequestService(env.requestRepo, env.incomeRepo, env.expenseRepo, env.loanRepo,
		env.auditRepo, env.txManager, EditTargets{Expense: env.expenses, Income: env.income, Loan: env.loans}, env.events)
	env.audit = NewAuditService(env.auditRepo)
	env.users = NewUserService(env.userRepo, testJWT)
	return env
}

// paymentService builds the allocator over the given expense repository so a
// test can inject failures.
func (env *testEnv) paymentService(expenseRepo repository.ExpenseRepository) VendorPaymentService {
	return NewVendorPaymentService(env.vendorRepo, expenseRepo, env.paymentRepo, env.historyRepo,
		env.auditRepo, env.txManager, lock.NewMemoryLocker(), env.events)
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) model.ActingUser {
	t.Helper()
	u := &model.User{Name: role, Email: email, Password: "x", Role: role}
	require.NoError(t, db.Create(u).Error)
	return model.ActingUser{ID: u.ID, Role: u.Role}
}

func day(s string) time.Time {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func (env *testEnv) seedProject(t *testing.T, name string) *model.Project {
	t.Helper()
	p := &model.Project{
		Name:               name,
		Type:               model.ProjectTypeCompany,
		AgreementStartDate: day("2024-01-01"),
		AgreementEndDate:   day("2024-12-31"),
		Status:             model.ProjectActive,
	}
	require.NoError(t, env.db.Create(p).Error)
	return p
}

func (env *testEnv) seedVendor(t *testing.T, name string, projectID *uuid.UUID) *model.Vendor {
	t.Helper()
	v := &model.Vendor{Name: name, Phone: "0100", ProjectID: projectID}
	require.NoError(t, env.db.Create(v).Error)
	return v
}

func (env *testEnv) seedContractor(t *testing.T, name string, projectID *uuid.UUID) *model.Contractor {
	t.Helper()
	c := &model.Contractor{Name: name, ProjectID: projectID, AgreedAmount: dec("1000")}
	require.NoError(t, env.db.Create(c).Error)
	return c
}

// seedMaterial stores an unpaid bank-funded material expense bought from v.
func (env *testEnv) seedMaterial(t *testing.T, projectID uuid.UUID, v *model.Vendor, date, amount string) *model.Expense {
	t.Helper()
	e := &model.Expense{
		ProjectID:      projectID,
		Type:           model.ExpenseMaterial,
		Amount:         dec(amount),
		Date:           day(date),
		FundingDetails: model.FundingDetails{Mode: model.ModeBank},
		VendorID:       &v.ID,
		VendorName:     v.Name,
	}
	require.NoError(t, env.db.Create(e).Error)
	return e
}

func (env *testEnv) reloadExpense(t *testing.T, id uuid.UUID) *model.Expense {
	t.Helper()
	var e model.Expense
	require.NoError(t, env.db.First(&e, "id = ?", id).Error)
	return &e
}

func (env *testEnv) count(t *testing.T, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(m).Count(&n).Error)
	return n
}

func bank() FundingRequest { return FundingRequest{Mode: model.ModeBank} }

func locker(location string) FundingRequest {
	return FundingRequest{Mode: model.ModeCash, CashLocation: location}
}
