package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"buildledger/internal/apperror"
	"buildledger/internal/ledger"
	"buildledger/internal/logger"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateExpenseRequest struct {
	ProjectID   string          `json:"project_id" binding:"required,uuid"`
	Type        string          `json:"type" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date" binding:"required,ledgerdate"`
	Description string          `json:"description"`
	PaidBy      string          `json:"paid_by" binding:"omitempty,oneof=customer company"`
	FundingRequest

	// Material
	VendorID            string           `json:"vendor_id" binding:"omitempty,uuid"`
	VendorName          string           `json:"vendor_name"`
	MaterialName        string           `json:"material_name"`
	MaterialQuantity    *decimal.Decimal `json:"material_quantity"`
	MaterialUnit        string           `json:"material_unit"`
	VendorPaymentStatus string           `json:"vendor_payment_status" binding:"omitempty,oneof=pending partial full"`
	VendorPaidAmount    decimal.Decimal  `json:"vendor_paid_amount"`

	// Labor
	LaborType      string `json:"labor_type" binding:"omitempty,oneof=direct contractor"`
	ContractorID   string `json:"contractor_id" binding:"omitempty,uuid"`
	ContractorName string `json:"contractor_name"`
	TeamName       string `json:"team_name"`
	LaborName      string `json:"labor_name"`

	// Petty cash
	SupervisorName string `json:"supervisor_name"`
	Summary        string `json:"summary"`
	WeekEnding     string `json:"week_ending"`
}

// UpdateExpenseRequest carries the fields an owner may change on a recorded
// expense. Vendor payment fields are not editable here.
type UpdateExpenseRequest struct {
	Amount           *decimal.Decimal `json:"amount"`
	Date             *string          `json:"date"`
	Description      *string          `json:"description"`
	PaidBy           *string          `json:"paid_by"`
	Funding          *FundingRequest  `json:"funding"`
	MaterialName     *string          `json:"material_name"`
	MaterialQuantity *decimal.Decimal `json:"material_quantity"`
	MaterialUnit     *string          `json:"material_unit"`
	LaborType        *string          `json:"labor_type"`
	TeamName         *string          `json:"team_name"`
	LaborName        *string          `json:"labor_name"`
	SupervisorName   *string          `json:"supervisor_name"`
	Summary          *string          `json:"summary"`
	WeekEnding       *string          `json:"week_ending"`
}

type ExpenseFilter struct {
	ProjectID string
	Type      string
	Page      int
	Limit     int
}

// ExpenseResponse is an expense with the amount that counts as spent.
type ExpenseResponse struct {
	model.Expense
	EffectiveAmount decimal.Decimal               `json:"effective_amount"`
	PaymentHistory  []model.ExpensePaymentHistory `json:"payment_history,omitempty"`
}

func toExpenseResponse(e model.Expense) ExpenseResponse {
	return ExpenseResponse{Expense: e, EffectiveAmount: ledger.EffectiveAmount(&e)}
}

// --- Interface ---

type ExpenseService interface {
	CreateExpense(ctx context.Context, actor model.ActingUser, req CreateExpenseRequest) (*ExpenseResponse, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]ExpenseResponse, int64, error)
	GetExpense(ctx context.Context, id string) (*ExpenseResponse, error)
	UpdateExpense(ctx context.Context, actor model.ActingUser, id string, req UpdateExpenseRequest) (*ExpenseResponse, error)
	// ApplyEdit applies an approved edit request inside the caller's transaction.
	ApplyEdit(ctx context.Context, actor model.ActingUser, id uuid.UUID, data json.RawMessage) error
}

type expenseService struct {
	projectRepo    repository.ProjectRepository
	vendorRepo     repository.VendorRepository
	contractorRepo repository.ContractorRepository
	expenseRepo    repository.ExpenseRepository
	paymentRepo    repository.VendorPaymentRepository
	historyRepo    repository.PaymentHistoryRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	events         EventPublisher
}

func NewExpenseService(
	projectRepo repository.ProjectRepository,
	vendorRepo repository.VendorRepository,
	contractorRepo repository.ContractorRepository,
	expenseRepo repository.ExpenseRepository,
	paymentRepo repository.VendorPaymentRepository,
	historyRepo repository.PaymentHistoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) ExpenseService {
	return &expenseService{
		projectRepo:    projectRepo,
		vendorRepo:     vendorRepo,
		contractorRepo: contractorRepo,
		expenseRepo:    expenseRepo,
		paymentRepo:    paymentRepo,
		historyRepo:    historyRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		events:         orNop(events),
	}
}

// --- Implementation ---

func (s *expenseService) CreateExpense(ctx context.Context, actor model.ActingUser, req CreateExpenseRequest) (*ExpenseResponse, error) {
	projectID, err := parseID(req.ProjectID, "project_id")
	if err != nil {
		return nil, err
	}
	expenseType := normalizeExpenseType(req.Type)
	switch expenseType {
	case model.ExpenseMaterial, model.ExpenseLabor, model.ExpenseFactoryOverhead, model.ExpensePettyCash:
	default:
		return nil, apperror.Validation("type must be material, labor, factory_overhead or petty_cash")
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than 0")
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return nil, err
	}
	funding, src, err := req.FundingRequest.resolve()
	if err != nil {
		return nil, err
	}
	paidBy := strings.TrimSpace(req.PaidBy)
	if paidBy == "" {
		paidBy = model.PaidByCompany
	}
	if paidBy != model.PaidByCompany && paidBy != model.PaidByCustomer {
		return nil, apperror.Validation("paid_by must be customer or company")
	}

	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, apperror.FromDB(err, "project")
	}

	expense := model.Expense{
		ProjectID:      projectID,
		Type:           expenseType,
		Amount:         req.Amount,
		Date:           date,
		Description:    strings.TrimSpace(req.Description),
		PaidBy:         paidBy,
		FundingDetails: funding,
		EnteredByID:    actor.UserRef(),
	}

	switch expenseType {
	case model.ExpenseMaterial:
		if err := s.linkVendor(ctx, &expense, req.VendorID, req.VendorName); err != nil {
			return nil, err
		}
		expense.MaterialName = strings.TrimSpace(req.MaterialName)
		expense.MaterialQuantity = req.MaterialQuantity
		expense.MaterialUnit = strings.TrimSpace(req.MaterialUnit)
	case model.ExpenseLabor:
		expense.LaborType = req.LaborType
		if expense.LaborType == "" {
			expense.LaborType = model.LaborDirect
		}
		if err := s.linkContractor(ctx, &expense, req.ContractorID, req.ContractorName); err != nil {
			return nil, err
		}
		expense.TeamName = strings.TrimSpace(req.TeamName)
		expense.LaborName = strings.TrimSpace(req.LaborName)
	case model.ExpensePettyCash:
		expense.SupervisorName = strings.TrimSpace(req.SupervisorName)
		expense.Summary = strings.TrimSpace(req.Summary)
		if expense.WeekEnding, err = parseOptionalDate(req.WeekEnding, "week_ending"); err != nil {
			return nil, err
		}
	}

	seeded, err := ledger.SeedPayment(&expense, req.VendorPaymentStatus, req.VendorPaidAmount, src)
	if err != nil {
		return nil, apperror.Validation("%s", err.Error())
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Create(txCtx, &expense); err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		if seeded.IsPositive() {
			entry := &model.ExpensePaymentHistory{
				ExpenseID:      expense.ID,
				Amount:         seeded,
				Date:           date,
				FundingDetails: funding,
			}
			if expense.VendorID != nil {
				companion := &model.VendorPayment{
					VendorID:          *expense.VendorID,
					ProjectID:         &expense.ProjectID,
					Amount:            seeded,
					Date:              date,
					Description:       expense.Description,
					FundingDetails:    funding,
					SourceType:        model.PaymentSourceExpense,
					SourceExpenseID:   &expense.ID,
					AppliedToExpenses: true,
					UnappliedAmount:   decimal.Zero,
					EnteredByID:       actor.UserRef(),
				}
				if err := s.paymentRepo.Create(txCtx, companion); err != nil {
					return fmt.Errorf("failed to create vendor payment: %w", err)
				}
				entry.VendorPaymentID = &companion.ID
			}
			if err := s.historyRepo.Create(txCtx, entry); err != nil {
				return fmt.Errorf("failed to append payment history: %w", err)
			}
		}

		details := map[string]any{
			"type":          expense.Type,
			"amount":        expense.Amount.String(),
			"mode":          expense.Mode,
			"vendor_name":   expense.VendorName,
			"seeded_amount": seeded.String(),
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateExpense, expense.ID.String(), expense.Description, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.L(ctx).Error("create expense rolled back", zap.String("project_id", projectID.String()), zap.Error(err))
		return nil, apperror.Passthrough("create expense", err)
	}

	logger.L(ctx).Info("expense created",
		zap.String("expense_id", expense.ID.String()),
		zap.String("type", expense.Type),
		zap.String("amount", expense.Amount.String()),
	)

	resp := toExpenseResponse(expense)
	s.events.Publish(EventExpenseCreated, resp)
	return &resp, nil
}

// linkVendor points a material expense at its vendor. A bare name is linked
// to the vendor of that name in the project, then to a general vendor, and
// otherwise kept as a legacy name.
func (s *expenseService) linkVendor(ctx context.Context, e *model.Expense, rawID, name string) error {
	vendorID, err := parseOptionalID(rawID, "vendor_id")
	if err != nil {
		return err
	}
	if vendorID != nil {
		v, err := s.vendorRepo.FindByID(ctx, *vendorID)
		if err != nil {
			return apperror.FromDB(err, "vendor")
		}
		e.VendorID = &v.ID
		e.VendorName = v.Name
		return nil
	}

	e.VendorName = strings.TrimSpace(name)
	if e.VendorName == "" {
		return nil
	}
	for _, scope := range []*uuid.UUID{&e.ProjectID, nil} {
		v, err := s.vendorRepo.FindByName(ctx, e.VendorName, scope)
		if err == nil {
			e.VendorID = &v.ID
			e.VendorName = v.Name
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up vendor: %w", err)
		}
	}
	return nil
}

func (s *expenseService) linkContractor(ctx context.Context, e *model.Expense, rawID, name string) error {
	contractorID, err := parseOptionalID(rawID, "contractor_id")
	if err != nil {
		return err
	}
	if contractorID != nil {
		c, err := s.contractorRepo.FindByID(ctx, *contractorID)
		if err != nil {
			return apperror.FromDB(err, "contractor")
		}
		e.ContractorID = &c.ID
		e.ContractorName = c.Name
		return nil
	}

	e.ContractorName = strings.TrimSpace(name)
	if e.ContractorName == "" {
		return nil
	}
	for _, scope := range []*uuid.UUID{&e.ProjectID, nil} {
		c, err := s.contractorRepo.FindByName(ctx, e.ContractorName, scope)
		if err == nil {
			e.ContractorID = &c.ID
			e.ContractorName = c.Name
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up contractor: %w", err)
		}
	}
	return nil
}

func (s *expenseService) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]ExpenseResponse, int64, error) {
	projectID, err := parseOptionalID(filter.ProjectID, "project_id")
	if err != nil {
		return nil, 0, err
	}
	expenses, total, err := s.expenseRepo.List(ctx, repository.RecordFilter{
		ProjectID: projectID,
		Type:      normalizeExpenseType(filter.Type),
		Page:      filter.Page,
		Limit:     filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch expenses: %w", err)
	}

	result := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		result = append(result, toExpenseResponse(e))
	}
	return result, total, nil
}

func (s *expenseService) GetExpense(ctx context.Context, id string) (*ExpenseResponse, error) {
	expenseID, err := parseID(id, "expense id")
	if err != nil {
		return nil, err
	}
	expense, err := s.expenseRepo.FindByID(ctx, expenseID)
	if err != nil {
		return nil, apperror.FromDB(err, "expense")
	}
	history, err := s.historyRepo.ListByExpense(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment history: %w", err)
	}

	resp := toExpenseResponse(*expense)
	resp.PaymentHistory = history
	return &resp, nil
}

func (s *expenseService) UpdateExpense(ctx context.Context, actor model.ActingUser, id string, req UpdateExpenseRequest) (*ExpenseResponse, error) {
	if err := requireOwner(actor, "edit expenses"); err != nil {
		return nil, err
	}
	expenseID, err := parseID(id, "expense id")
	if err != nil {
		return nil, err
	}
	expense, err := s.update(ctx, actor, expenseID, req)
	if err != nil {
		return nil, err
	}
	resp := toExpenseResponse(*expense)
	s.events.Publish(EventExpenseUpdated, resp)
	return &resp, nil
}

func (s *expenseService) ApplyEdit(ctx context.Context, actor model.ActingUser, id uuid.UUID, data json.RawMessage) error {
	var req UpdateExpenseRequest
	if err := decodeEdit(data, &req); err != nil {
		return err
	}
	_, err := s.update(ctx, actor, id, req)
	return err
}

func (s *expenseService) update(ctx context.Context, actor model.ActingUser, id uuid.UUID, req UpdateExpenseRequest) (*model.Expense, error) {
	var expense *model.Expense
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		expense, err = s.expenseRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			return apperror.FromDB(err, "expense")
		}
		before := toExpenseResponse(*expense)

		if err := applyExpenseChanges(expense, req); err != nil {
			return err
		}
		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		// Repricing re-derives the status from the locked paid amount.
		if req.Amount != nil && expense.IsMaterial() {
			if err := s.expenseRepo.UpdatePayment(txCtx, expense); err != nil {
				return fmt.Errorf("failed to update expense payment status: %w", err)
			}
		}

		details := map[string]any{
			"amount_before":    before.Amount.String(),
			"amount_after":     expense.Amount.String(),
			"effective_before": before.EffectiveAmount.String(),
			"effective_after":  ledger.EffectiveAmount(expense).String(),
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateExpense, expense.ID.String(), expense.Description, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("update expense", err)
	}
	return expense, nil
}

func applyExpenseChanges(e *model.Expense, req UpdateExpenseRequest) error {
	if req.Amount != nil {
		if err := ledger.Reprice(e, *req.Amount); err != nil {
			return apperror.Validation("%s", err.Error())
		}
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date, "date")
		if err != nil {
			return err
		}
		e.Date = d
	}
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.PaidBy != nil {
		if *req.PaidBy != model.PaidByCompany && *req.PaidBy != model.PaidByCustomer {
			return apperror.Validation("paid_by must be customer or company")
		}
		e.PaidBy = *req.PaidBy
	}
	if req.Funding != nil {
		funding, _, err := req.Funding.resolve()
		if err != nil {
			return err
		}
		e.FundingDetails = funding
	}

	switch e.Type {
	case model.ExpenseMaterial:
		if req.MaterialName != nil {
			e.MaterialName = strings.TrimSpace(*req.MaterialName)
		}
		if req.MaterialQuantity != nil {
			e.MaterialQuantity = req.MaterialQuantity
		}
		if req.MaterialUnit != nil {
			e.MaterialUnit = strings.TrimSpace(*req.MaterialUnit)
		}
	case model.ExpenseLabor:
		if req.LaborType != nil {
			if *req.LaborType != model.LaborDirect && *req.LaborType != model.LaborContractor {
				return apperror.Validation("labor_type must be direct or contractor")
			}
			e.LaborType = *req.LaborType
		}
		if req.TeamName != nil {
			e.TeamName = strings.TrimSpace(*req.TeamName)
		}
		if req.LaborName != nil {
			e.LaborName = strings.TrimSpace(*req.LaborName)
		}
	case model.ExpensePettyCash:
		if req.SupervisorName != nil {
			e.SupervisorName = strings.TrimSpace(*req.SupervisorName)
		}
		if req.Summary != nil {
			e.Summary = strings.TrimSpace(*req.Summary)
		}
		if req.WeekEnding != nil {
			week, err := parseOptionalDate(*req.WeekEnding, "week_ending")
			if err != nil {
				return err
			}
			e.WeekEnding = week
		}
	}
	return nil
}
