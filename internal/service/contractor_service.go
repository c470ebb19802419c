package service

import (
	"context"
	"fmt"
	"strings"

	"buildledger/internal/apperror"
	"buildledger/internal/ledger"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateContractorRequest struct {
	Name         string          `json:"name" binding:"required,notblank"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email" binding:"omitempty,email"`
	Address      string          `json:"address"`
	Notes        string          `json:"notes"`
	AgreedAmount decimal.Decimal `json:"agreed_amount"`
	ProjectID    string          `json:"project_id" binding:"omitempty,uuid"`
}

type UpdateContractorRequest struct {
	Name         *string          `json:"name"`
	Phone        *string          `json:"phone"`
	Email        *string          `json:"email"`
	Address      *string          `json:"address"`
	Notes        *string          `json:"notes"`
	AgreedAmount *decimal.Decimal `json:"agreed_amount"`
}

type ContractorResponse struct {
	model.Contractor
	ledger.ContractorBalance
}

type ContractorDetailResponse struct {
	ContractorResponse
	Expenses []ExpenseResponse `json:"expenses"`
}

type ContractorService interface {
	ListContractors(ctx context.Context, filter PartyListFilter) ([]ContractorResponse, error)
	GetContractor(ctx context.Context, id string) (*ContractorDetailResponse, error)
	CreateContractor(ctx context.Context, actor model.ActingUser, req CreateContractorRequest) (*ContractorResponse, error)
	UpdateContractor(ctx context.Context, actor model.ActingUser, id string, req UpdateContractorRequest) (*ContractorResponse, error)
	DeleteContractor(ctx context.Context, actor model.ActingUser, id string) error
}

type contractorService struct {
	projectRepo    repository.ProjectRepository
	contractorRepo repository.ContractorRepository
	expenseRepo    repository.ExpenseRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
}

func NewContractorService(
	projectRepo repository.ProjectRepository,
	contractorRepo repository.ContractorRepository,
	expenseRepo repository.ExpenseRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ContractorService {
	return &contractorService{
		projectRepo:    projectRepo,
		contractorRepo: contractorRepo,
		expenseRepo:    expenseRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
	}
}

func (s *contractorService) ListContractors(ctx context.Context, filter PartyListFilter) ([]ContractorResponse, error) {
	projectID, err := parseOptionalID(filter.ProjectID, "project_id")
	if err != nil {
		return nil, err
	}
	contractors, err := s.contractorRepo.List(ctx, repository.PartyFilter{ProjectID: projectID, IncludeGeneral: filter.IncludeGeneral})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contractors: %w", err)
	}

	result := make([]ContractorResponse, 0, len(contractors))
	for i := range contractors {
		expenses, err := s.expenseRepo.ListForContractor(ctx, &contractors[i])
		if err != nil {
			return nil, fmt.Errorf("failed to fetch contractor expenses: %w", err)
		}
		result = append(result, ContractorResponse{
			Contractor:        contractors[i],
			ContractorBalance: ledger.ComputeContractorBalance(&contractors[i], expenses),
		})
	}
	return result, nil
}

func (s *contractorService) GetContractor(ctx context.Context, id string) (*ContractorDetailResponse, error) {
	contractorID, err := parseID(id, "contractor id")
	if err != nil {
		return nil, err
	}
	contractor, err := s.contractorRepo.FindByID(ctx, contractorID)
	if err != nil {
		return nil, apperror.FromDB(err, "contractor")
	}
	expenses, err := s.expenseRepo.ListForContractor(ctx, contractor)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contractor expenses: %w", err)
	}

	detail := &ContractorDetailResponse{
		ContractorResponse: ContractorResponse{
			Contractor:        *contractor,
			ContractorBalance: ledger.ComputeContractorBalance(contractor, expenses),
		},
		Expenses: make([]ExpenseResponse, 0, len(expenses)),
	}
	for _, e := range expenses {
		detail.Expenses = append(detail.Expenses, toExpenseResponse(e))
	}
	return detail, nil
}

func (s *contractorService) CreateContractor(ctx context.Context, actor model.ActingUser, req CreateContractorRequest) (*ContractorResponse, error) {
	contractor := model.Contractor{
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		Email:        strings.TrimSpace(req.Email),
		Address:      strings.TrimSpace(req.Address),
		Notes:        strings.TrimSpace(req.Notes),
		AgreedAmount: req.AgreedAmount,
	}
	if contractor.Name == "" {
		return nil, apperror.Validation("name is required")
	}
	if contractor.AgreedAmount.IsNegative() {
		return nil, apperror.Validation("agreed_amount cannot be negative")
	}
	projectID, err := parseOptionalID(req.ProjectID, "project_id")
	if err != nil {
		return nil, err
	}
	contractor.ProjectID = projectID

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := ensureNameFree(txCtx, s.contractorRepo.FindByName, "contractor", contractor.Name, projectID, uuid.Nil); err != nil {
			return err
		}
		if err := s.contractorRepo.Create(txCtx, &contractor); err != nil {
			return fmt.Errorf("failed to create contractor: %w", apperror.FromDB(err, "contractor"))
		}
		if projectID != nil {
			project, err := s.projectRepo.FindByID(txCtx, *projectID)
			if err != nil {
				return apperror.FromDB(err, "project")
			}
			project.Contractors = mergeNames(project.Contractors, contractor.Name)
			if err := s.projectRepo.Update(txCtx, project); err != nil {
				return fmt.Errorf("failed to update project contractors: %w", err)
			}
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateContractor, contractor.ID.String(), contractor.Name, req); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("create contractor", err)
	}
	return &ContractorResponse{
		Contractor:        contractor,
		ContractorBalance: ledger.ComputeContractorBalance(&contractor, nil),
	}, nil
}

func (s *contractorService) UpdateContractor(ctx context.Context, actor model.ActingUser, id string, req UpdateContractorRequest) (*ContractorResponse, error) {
	contractorID, err := parseID(id, "contractor id")
	if err != nil {
		return nil, err
	}

	var contractor *model.Contractor
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if contractor, err = s.contractorRepo.FindByID(txCtx, contractorID); err != nil {
			return apperror.FromDB(err, "contractor")
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.Validation("name cannot be empty")
			}
			if err := ensureNameFree(txCtx, s.contractorRepo.FindByName, "contractor", name, contractor.ProjectID, contractor.ID); err != nil {
				return err
			}
			contractor.Name = name
		}
		if req.Phone != nil {
			contractor.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.Email != nil {
			contractor.Email = strings.TrimSpace(*req.Email)
		}
		if req.Address != nil {
			contractor.Address = strings.TrimSpace(*req.Address)
		}
		if req.Notes != nil {
			contractor.Notes = strings.TrimSpace(*req.Notes)
		}
		if req.AgreedAmount != nil {
			if req.AgreedAmount.IsNegative() {
				return apperror.Validation("agreed_amount cannot be negative")
			}
			contractor.AgreedAmount = *req.AgreedAmount
		}

		if err := s.contractorRepo.Update(txCtx, contractor); err != nil {
			return fmt.Errorf("failed to update contractor: %w", err)
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateContractor, contractor.ID.String(), contractor.Name, req); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("update contractor", err)
	}

	expenses, err := s.expenseRepo.ListForContractor(ctx, contractor)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contractor expenses: %w", err)
	}
	return &ContractorResponse{
		Contractor:        *contractor,
		ContractorBalance: ledger.ComputeContractorBalance(contractor, expenses),
	}, nil
}

func (s *contractorService) DeleteContractor(ctx context.Context, actor model.ActingUser, id string) error {
	if err := requireOwner(actor, "delete contractors"); err != nil {
		return err
	}
	contractorID, err := parseID(id, "contractor id")
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		contractor, err := s.contractorRepo.FindByID(txCtx, contractorID)
		if err != nil {
			return apperror.FromDB(err, "contractor")
		}
		expenses, err := s.expenseRepo.ListForContractor(txCtx, contractor)
		if err != nil {
			return fmt.Errorf("failed to check contractor expenses: %w", err)
		}
		if len(expenses) > 0 {
			return apperror.Conflict("contractor %q has recorded transactions and cannot be deleted", contractor.Name)
		}

		if err := s.contractorRepo.Delete(txCtx, contractor.ID); err != nil {
			return fmt.Errorf("failed to delete contractor: %w", err)
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteContractor, contractor.ID.String(), contractor.Name, nil); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	return apperror.Passthrough("delete contractor", err)
}
