package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"buildledger/internal/apperror"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProjectRequest struct {
	Name                       string           `json:"name" binding:"required,notblank"`
	Type                       string           `json:"type" binding:"required,oneof=customer company investor"`
	CustomerName               string           `json:"customer_name"`
	InvestorCustomerPercentage *decimal.Decimal `json:"investor_customer_percentage"`
	InvestorCompanyPercentage  *decimal.Decimal `json:"investor_company_percentage"`
	AgreementTotalAmount       decimal.Decimal  `json:"agreement_total_amount"`
	AgreementStartDate         string           `json:"agreement_start_date" binding:"required,ledgerdate"`
	AgreementEndDate           string           `json:"agreement_end_date" binding:"required,ledgerdate"`
	AgreementDescription       string           `json:"agreement_description"`
	Supervisor                 string           `json:"supervisor"`
	Vendors                    []string         `json:"vendors"`
	Contractors                []string         `json:"contractors"`
	Status                     string           `json:"status"`
}

type UpdateProjectRequest struct {
	Name                       *string          `json:"name"`
	Type                       *string          `json:"type"`
	CustomerName               *string          `json:"customer_name"`
	InvestorCustomerPercentage *decimal.Decimal `json:"investor_customer_percentage"`
	InvestorCompanyPercentage  *decimal.Decimal `json:"investor_company_percentage"`
	AgreementTotalAmount       *decimal.Decimal `json:"agreement_total_amount"`
	AgreementStartDate         *string          `json:"agreement_start_date"`
	AgreementEndDate           *string          `json:"agreement_end_date"`
	AgreementDescription       *string          `json:"agreement_description"`
	Supervisor                 *string          `json:"supervisor"`
	Vendors                    *[]string        `json:"vendors"`
	Contractors                *[]string        `json:"contractors"`
	Status                     *string          `json:"status"`
}

// --- Interface ---

type ProjectService interface {
	ListProjects(ctx context.Context, status string) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	CreateProject(ctx context.Context, actor model.ActingUser, req CreateProjectRequest) (*model.Project, error)
	UpdateProject(ctx context.Context, actor model.ActingUser, id string, req UpdateProjectRequest) (*model.Project, error)
	// DeleteProject refuses while any income, expense, loan or vendor payment
	// references the project.
	DeleteProject(ctx context.Context, actor model.ActingUser, id string) error
}

type projectService struct {
	projectRepo    repository.ProjectRepository
	vendorRepo     repository.VendorRepository
	contractorRepo repository.ContractorRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
}

func NewProjectService(
	projectRepo repository.ProjectRepository,
	vendorRepo repository.VendorRepository,
	contractorRepo repository.ContractorRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ProjectService {
	return &projectService{
		projectRepo:    projectRepo,
		vendorRepo:     vendorRepo,
		contractorRepo: contractorRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
	}
}

// --- Implementation ---

func (s *projectService) ListProjects(ctx context.Context, status string) ([]model.Project, error) {
	if status != "" {
		status = normalizeProjectStatus(status)
		if !validProjectStatus(status) {
			return nil, apperror.Validation("status must be active, completed or on_hold")
		}
	}
	projects, err := s.projectRepo.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}
	return projects, nil
}

func (s *projectService) GetProject(ctx context.Context, id string) (*model.Project, error) {
	projectID, err := parseID(id, "project id")
	if err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, apperror.FromDB(err, "project")
	}
	return project, nil
}

func (s *projectService) CreateProject(ctx context.Context, actor model.ActingUser, req CreateProjectRequest) (*model.Project, error) {
	if err := requireOwner(actor, "create projects"); err != nil {
		return nil, err
	}

	start, err := parseDate(req.AgreementStartDate, "agreement_start_date")
	if err != nil {
		return nil, err
	}
	end, err := parseDate(req.AgreementEndDate, "agreement_end_date")
	if err != nil {
		return nil, err
	}
	project := model.Project{
		Name:                       strings.TrimSpace(req.Name),
		Type:                       strings.ToLower(strings.TrimSpace(req.Type)),
		CustomerName:               strings.TrimSpace(req.CustomerName),
		InvestorCustomerPercentage: req.InvestorCustomerPercentage,
		InvestorCompanyPercentage:  req.InvestorCompanyPercentage,
		AgreementTotalAmount:       req.AgreementTotalAmount,
		AgreementStartDate:         start,
		AgreementEndDate:           end,
		AgreementDescription:       strings.TrimSpace(req.AgreementDescription),
		Supervisor:                 strings.TrimSpace(req.Supervisor),
		Vendors:                    mergeNames(nil, req.Vendors...),
		Contractors:                mergeNames(nil, req.Contractors...),
		Status:                     normalizeProjectStatus(req.Status),
	}
	if project.Status == "" {
		project.Status = model.ProjectActive
	}
	if err := validateProject(&project); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.projectRepo.Create(txCtx, &project); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		if err := s.syncParties(txCtx, &project); err != nil {
			return err
		}
		details := map[string]any{
			"type":        project.Type,
			"vendors":     len(project.Vendors),
			"contractors": len(project.Contractors),
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateProject, project.ID.String(), project.Name, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("create project", err)
	}
	return &project, nil
}

func (s *projectService) UpdateProject(ctx context.Context, actor model.ActingUser, id string, req UpdateProjectRequest) (*model.Project, error) {
	if err := requireOwner(actor, "edit projects"); err != nil {
		return nil, err
	}
	projectID, err := parseID(id, "project id")
	if err != nil {
		return nil, err
	}

	var project *model.Project
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if project, err = s.projectRepo.FindByID(txCtx, projectID); err != nil {
			return apperror.FromDB(err, "project")
		}
		if err := applyProjectChanges(project, req); err != nil {
			return err
		}
		if err := validateProject(project); err != nil {
			return err
		}
		if err := s.projectRepo.Update(txCtx, project); err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		if err := s.syncParties(txCtx, project); err != nil {
			return err
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateProject, project.ID.String(), project.Name, req); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("update project", err)
	}
	return project, nil
}

func (s *projectService) DeleteProject(ctx context.Context, actor model.ActingUser, id string) error {
	if err := requireOwner(actor, "delete projects"); err != nil {
		return err
	}
	projectID, err := parseID(id, "project id")
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		project, err := s.projectRepo.FindByID(txCtx, projectID)
		if err != nil {
			return apperror.FromDB(err, "project")
		}
		used, err := s.projectRepo.HasTransactions(txCtx, project.ID)
		if err != nil {
			return fmt.Errorf("failed to check project transactions: %w", err)
		}
		if used {
			return apperror.Conflict("project %q has recorded transactions and cannot be deleted", project.Name)
		}
		if err := s.projectRepo.Delete(txCtx, project.ID); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteProject, project.ID.String(), project.Name, nil); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	return apperror.Passthrough("delete project", err)
}

// syncParties creates a project-scoped vendor or contractor for every listed
// name that does not have one yet.
func (s *projectService) syncParties(ctx context.Context, p *model.Project) error {
	for _, name := range p.Vendors {
		_, err := s.vendorRepo.FindByName(ctx, name, &p.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up vendor %q: %w", name, err)
		}
		if err := s.vendorRepo.Create(ctx, &model.Vendor{Name: name, ProjectID: projectRef(p.ID)}); err != nil {
			return fmt.Errorf("failed to create vendor %q: %w", name, err)
		}
	}
	for _, name := range p.Contractors {
		_, err := s.contractorRepo.FindByName(ctx, name, &p.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up contractor %q: %w", name, err)
		}
		if err := s.contractorRepo.Create(ctx, &model.Contractor{Name: name, ProjectID: projectRef(p.ID)}); err != nil {
			return fmt.Errorf("failed to create contractor %q: %w", name, err)
		}
	}
	return nil
}

func projectRef(id uuid.UUID) *uuid.UUID { return &id }

func applyProjectChanges(p *model.Project, req UpdateProjectRequest) error {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		p.Type = strings.ToLower(strings.TrimSpace(*req.Type))
	}
	if req.CustomerName != nil {
		p.CustomerName = strings.TrimSpace(*req.CustomerName)
	}
	if req.InvestorCustomerPercentage != nil {
		p.InvestorCustomerPercentage = req.InvestorCustomerPercentage
	}
	if req.InvestorCompanyPercentage != nil {
		p.InvestorCompanyPercentage = req.InvestorCompanyPercentage
	}
	if req.AgreementTotalAmount != nil {
		p.AgreementTotalAmount = *req.AgreementTotalAmount
	}
	if req.AgreementStartDate != nil {
		d, err := parseDate(*req.AgreementStartDate, "agreement_start_date")
		if err != nil {
			return err
		}
		p.AgreementStartDate = d
	}
	if req.AgreementEndDate != nil {
		d, err := parseDate(*req.AgreementEndDate, "agreement_end_date")
		if err != nil {
			return err
		}
		p.AgreementEndDate = d
	}
	if req.AgreementDescription != nil {
		p.AgreementDescription = strings.TrimSpace(*req.AgreementDescription)
	}
	if req.Supervisor != nil {
		p.Supervisor = strings.TrimSpace(*req.Supervisor)
	}
	if req.Vendors != nil {
		p.Vendors = mergeNames(nil, *req.Vendors...)
	}
	if req.Contractors != nil {
		p.Contractors = mergeNames(nil, *req.Contractors...)
	}
	if req.Status != nil {
		p.Status = normalizeProjectStatus(*req.Status)
	}
	return nil
}

var hundred = decimal.NewFromInt(100)

func validateProject(p *model.Project) error {
	if p.Name == "" {
		return apperror.Validation("name is required")
	}
	switch p.Type {
	case model.ProjectTypeCustomer, model.ProjectTypeCompany:
	case model.ProjectTypeInvestor:
		if p.InvestorCustomerPercentage == nil || p.InvestorCompanyPercentage == nil {
			return apperror.Validation("investor projects need both investor percentages")
		}
		for _, pct := range []decimal.Decimal{*p.InvestorCustomerPercentage, *p.InvestorCompanyPercentage} {
			if pct.IsNegative() || pct.GreaterThan(hundred) {
				return apperror.Validation("investor percentages must be between 0 and 100")
			}
		}
		if !p.InvestorCustomerPercentage.Add(*p.InvestorCompanyPercentage).Equal(hundred) {
			return apperror.Validation("investor percentages must add up to 100")
		}
	default:
		return apperror.Validation("type must be customer, company or investor")
	}
	if p.AgreementTotalAmount.IsNegative() {
		return apperror.Validation("agreement_total_amount cannot be negative")
	}
	if p.AgreementEndDate.Before(p.AgreementStartDate) {
		return apperror.Validation("agreement_end_date cannot be before agreement_start_date")
	}
	if !validProjectStatus(p.Status) {
		return apperror.Validation("status must be active, completed or on_hold")
	}
	return nil
}

func validProjectStatus(s string) bool {
	return s == model.ProjectActive || s == model.ProjectCompleted || s == model.ProjectOnHold
}
