package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"buildledger/internal/config"
	"buildledger/internal/database"
	"buildledger/internal/lock"
	"buildledger/internal/middleware"
	"buildledger/internal/model"
	"buildledger/internal/repository"
	"buildledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testJWT = config.JWTConfig{Secret: "handler-secret", Expiration: time.Hour, Issuer: "buildledger-test"}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB

	ownerToken      string
	accountantToken string
}

// envelope mirrors response.Response with the payload left raw.
type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

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

	projectRepo := repository.NewProjectRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	contractorRepo := repository.NewContractorRepository(db)
	incomeRepo := repository.NewIncomeRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	paymentRepo := repository.NewVendorPaymentRepository(db)
	historyRepo := repository.NewPaymentHistoryRepository(db)
	loanRepo := repository.NewLoanRepository(db)
	requestRepo := repository.NewEditRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	txManager := repository.NewTransactionManager(db)

	incomeService := service.NewIncomeService(projectRepo, incomeRepo, auditRepo, txManager, nil)
	expenseService := service.NewExpenseService(projectRepo, vendorRepo, contractorRepo, expenseRepo,
		paymentRepo, historyRepo, auditRepo, txManager, nil)
	loanService := service.NewLoanService(projectRepo, loanRepo, auditRepo, txManager, nil)

	auth := middleware.NewAuth(testJWT, config.CookieConfig{})
	router := gin.New()
	api := router.Group("")
	NewAuthHandler(service.NewUserService(userRepo, testJWT), auth).RegisterRoutes(api)
	NewProjectHandler(service.NewProjectService(projectRepo, vendorRepo, contractorRepo, auditRepo, txManager)).RegisterRoutes(api, auth)
	NewVendorHandler(service.NewVendorService(projectRepo, vendorRepo, expenseRepo, paymentRepo, auditRepo, txManager)).RegisterRoutes(api, auth)
	NewContractorHandler(service.NewContractorService(projectRepo, contractorRepo, expenseRepo, auditRepo, txManager)).RegisterRoutes(api, auth)
	NewIncomeHandler(incomeService).RegisterRoutes(api, auth)
	NewExpenseHandler(expenseService).RegisterRoutes(api, auth)
	NewVendorPaymentHandler(service.NewVendorPaymentService(vendorRepo, expenseRepo, paymentRepo, historyRepo,
		auditRepo, txManager, lock.NewMemoryLocker(), nil)).RegisterRoutes(api, auth)
	NewLoanHandler(loanService).RegisterRoutes(api, auth)
	NewSummaryHandler(service.NewSummaryService(projectRepo, incomeRepo, expenseRepo, loanRepo)).RegisterRoutes(api, auth)
	NewEditRequestHandler(service.NewEditRequestService(requestRepo, incomeRepo, expenseRepo, loanRepo, auditRepo, txManager,
		service.EditTargets{Expense: expenseService, Income: incomeService, Loan: loanService}, nil)).RegisterRoutes(api, auth)
	NewAuditHandler(service.NewAuditService(auditRepo)).RegisterRoutes(api, auth)

	return &testServer{
		router:          router,
		db:              db,
		ownerToken:      seedToken(t, db, "owner@example.com", model.RoleOwner),
		accountantToken: seedToken(t, db, "accountant@example.com", model.RoleAccountant),
	}
}

func seedToken(t *testing.T, db *gorm.DB, email, role string) string {
	t.Helper()
	u := &model.User{Name: role, Email: email, Password: "x", Role: role}
	require.NoError(t, db.Create(u).Error)
	token, _, err := service.IssueAccessToken(testJWT, model.ActingUser{ID: u.ID, Role: u.Role}, time.Now())
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

// create posts body and decodes the created entity's id.
func (s *testServer) create(t *testing.T, path, token string, body any) string {
	t.Helper()
	w, env := s.do(t, http.MethodPost, path, token, body)
	require.Equal(t, http.StatusCreated, w.Code, env.Error)
	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.NotEmpty(t, out.ID)
	return out.ID
}

func (s *testServer) seedProject(t *testing.T, name string) string {
	t.Helper()
	return s.create(t, "/api/projects", s.ownerToken, map[string]any{
		"name":                 name,
		"type":                 "company",
		"agreement_start_date": "2024-01-01",
		"agreement_end_date":   "2024-12-31",
	})
}
