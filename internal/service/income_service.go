package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"buildledger/internal/apperror"
	"buildledger/internal/logger"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateIncomeRequest struct {
	ProjectID   string          `json:"project_id" binding:"required,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date" binding:"required,ledgerdate"`
	Description string          `json:"description"`
	FundingRequest
}

type UpdateIncomeRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Date        *string          `json:"date"`
	Description *string          `json:"description"`
	Funding     *FundingRequest  `json:"funding"`
}

type IncomeService interface {
	CreateIncome(ctx context.Context, actor model.ActingUser, req CreateIncomeRequest) (*model.Income, error)
	ListIncome(ctx context.Context, projectID string, page, limit int) ([]model.Income, int64, error)
	GetIncome(ctx context.Context, id string) (*model.Income, error)
	UpdateIncome(ctx context.Context, actor model.ActingUser, id string, req UpdateIncomeRequest) (*model.Income, error)
	ApplyEdit(ctx context.Context, actor model.ActingUser, id uuid.UUID, data json.RawMessage) error
}

type incomeService struct {
	projectRepo repository.ProjectRepository
	incomeRepo  repository.IncomeRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewIncomeService(
	projectRepo repository.ProjectRepository,
	incomeRepo repository.IncomeRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) IncomeService {
	return &incomeService{
		projectRepo: projectRepo,
		incomeRepo:  incomeRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      orNop(events),
	}
}

func (s *incomeService) CreateIncome(ctx context.Context, actor model.ActingUser, req CreateIncomeRequest) (*model.Income, error) {
	projectID, err := parseID(req.ProjectID, "project_id")
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than 0")
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return nil, err
	}
	funding, _, err := req.FundingRequest.resolve()
	if err != nil {
		return nil, err
	}
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, apperror.FromDB(err, "project")
	}

	income := model.Income{
		ProjectID:      projectID,
		Amount:         req.Amount,
		Date:           date,
		Description:    strings.TrimSpace(req.Description),
		FundingDetails: funding,
		EnteredByID:    actor.UserRef(),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.incomeRepo.Create(txCtx, &income); err != nil {
			return fmt.Errorf("failed to create income: %w", err)
		}
		details := map[string]any{
			"amount":        income.Amount.String(),
			"mode":          income.Mode,
			"cash_location": income.CashLocation,
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateIncome, income.ID.String(), income.Description, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("create income", err)
	}

	logger.L(ctx).Info("income recorded",
		zap.String("income_id", income.ID.String()),
		zap.String("amount", income.Amount.String()),
		zap.String("mode", income.Mode),
	)
	s.events.Publish(EventIncomeCreated, income)
	return &income, nil
}

func (s *incomeService) ListIncome(ctx context.Context, projectID string, page, limit int) ([]model.Income, int64, error) {
	pid, err := parseOptionalID(projectID, "project_id")
	if err != nil {
		return nil, 0, err
	}
	incomes, total, err := s.incomeRepo.List(ctx, repository.RecordFilter{ProjectID: pid, Page: page, Limit: limit})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch income: %w", err)
	}
	return incomes, total, nil
}

func (s *incomeService) GetIncome(ctx context.Context, id string) (*model.Income, error) {
	incomeID, err := parseID(id, "income id")
	if err != nil {
		return nil, err
	}
	income, err := s.incomeRepo.FindByID(ctx, incomeID)
	if err != nil {
		return nil, apperror.FromDB(err, "income")
	}
	return income, nil
}

func (s *incomeService) UpdateIncome(ctx context.Context, actor model.ActingUser, id string, req UpdateIncomeRequest) (*model.Income, error) {
	if err := requireOwner(actor, "edit income"); err != nil {
		return nil, err
	}
	incomeID, err := parseID(id, "income id")
	if err != nil {
		return nil, err
	}
	income, err := s.update(ctx, actor, incomeID, req)
	if err != nil {
		return nil, err
	}
	s.events.Publish(EventIncomeUpdated, income)
	return income, nil
}

func (s *incomeService) ApplyEdit(ctx context.Context, actor model.ActingUser, id uuid.UUID, data json.RawMessage) error {
	var req UpdateIncomeRequest
	if err := decodeEdit(data, &req); err != nil {
		return err
	}
	_, err := s.update(ctx, actor, id, req)
	return err
}

func (s *incomeService) update(ctx context.Context, actor model.ActingUser, id uuid.UUID, req UpdateIncomeRequest) (*model.Income, error) {
	var income *model.Income
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		income, err = s.incomeRepo.FindByID(txCtx, id)
		if err != nil {
			return apperror.FromDB(err, "income")
		}
		before := income.Amount

		if req.Amount != nil {
			if !req.Amount.IsPositive() {
				return apperror.Validation("amount must be greater than 0")
			}
			income.Amount = *req.Amount
		}
		if req.Date != nil {
			d, err := parseDate(*req.Date, "date")
			if err != nil {
				return err
			}
			income.Date = d
		}
		if req.Description != nil {
			income.Description = strings.TrimSpace(*req.Description)
		}
		if req.Funding != nil {
			funding, _, err := req.Funding.resolve()
			if err != nil {
				return err
			}
			income.FundingDetails = funding
		}

		if err := s.incomeRepo.Update(txCtx, income); err != nil {
			return fmt.Errorf("failed to update income: %w", err)
		}
		details := map[string]any{
			"amount_before": before.String(),
			"amount_after":  income.Amount.String(),
			"mode":          income.Mode,
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateIncome, income.ID.String(), income.Description, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("update income", err)
	}
	return income, nil
}
