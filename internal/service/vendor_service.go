package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"buildledger/internal/apperror"
	"buildledger/internal/ledger"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateVendorRequest struct {
	Name      string `json:"name" binding:"required,notblank"`
	Phone     string `json:"phone" binding:"required,notblank"`
	Email     string `json:"email" binding:"omitempty,email"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
	ProjectID string `json:"project_id" binding:"omitempty,uuid"`
}

type UpdateVendorRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// PartyListFilter narrows vendor and contractor listings to one project.
type PartyListFilter struct {
	ProjectID      string
	IncludeGeneral bool
}

type VendorResponse struct {
	model.Vendor
	ledger.VendorBalance
}

type VendorDetailResponse struct {
	VendorResponse
	Expenses []ExpenseResponse    `json:"expenses"`
	Payments []model.VendorPayment `json:"payments"`
}

// --- Interface ---

type VendorService interface {
	ListVendors(ctx context.Context, filter PartyListFilter) ([]VendorResponse, error)
	GetVendor(ctx context.Context, id string) (*VendorDetailResponse, error)
	CreateVendor(ctx context.Context, actor model.ActingUser, req CreateVendorRequest) (*VendorResponse, error)
	UpdateVendor(ctx context.Context, actor model.ActingUser, id string, req UpdateVendorRequest) (*VendorResponse, error)
	DeleteVendor(ctx context.Context, actor model.ActingUser, id string) error
}

type vendorService struct {
	projectRepo repository.ProjectRepository
	vendorRepo  repository.VendorRepository
	expenseRepo repository.ExpenseRepository
	paymentRepo repository.VendorPaymentRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
}

func NewVendorService(
	projectRepo repository.ProjectRepository,
	vendorRepo repository.VendorRepository,
	expenseRepo repository.ExpenseRepository,
	paymentRepo repository.VendorPaymentRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) VendorService {
	return &vendorService{
		projectRepo: projectRepo,
		vendorRepo:  vendorRepo,
		expenseRepo: expenseRepo,
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
	}
}

// --- Implementation ---

func (s *vendorService) ListVendors(ctx context.Context, filter PartyListFilter) ([]VendorResponse, error) {
	projectID, err := parseOptionalID(filter.ProjectID, "project_id")
	if err != nil {
		return nil, err
	}
	vendors, err := s.vendorRepo.List(ctx, repository.PartyFilter{ProjectID: projectID, IncludeGeneral: filter.IncludeGeneral})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch vendors: %w", err)
	}

	result := make([]VendorResponse, 0, len(vendors))
	for i := range vendors {
		balance, _, _, err := s.balanceOf(ctx, &vendors[i])
		if err != nil {
			return nil, err
		}
		result = append(result, VendorResponse{Vendor: vendors[i], VendorBalance: balance})
	}
	return result, nil
}

func (s *vendorService) GetVendor(ctx context.Context, id string) (*VendorDetailResponse, error) {
	vendorID, err := parseID(id, "vendor id")
	if err != nil {
		return nil, err
	}
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		return nil, apperror.FromDB(err, "vendor")
	}

	balance, expenses, payments, err := s.balanceOf(ctx, vendor)
	if err != nil {
		return nil, err
	}
	detail := &VendorDetailResponse{
		VendorResponse: VendorResponse{Vendor: *vendor, VendorBalance: balance},
		Expenses:       make([]ExpenseResponse, 0, len(expenses)),
		Payments:       payments,
	}
	for _, e := range expenses {
		detail.Expenses = append(detail.Expenses, toExpenseResponse(e))
	}
	if detail.Payments == nil {
		detail.Payments = []model.VendorPayment{}
	}
	return detail, nil
}

func (s *vendorService) balanceOf(ctx context.Context, v *model.Vendor) (ledger.VendorBalance, []model.Expense, []model.VendorPayment, error) {
	expenses, err := s.expenseRepo.ListForVendor(ctx, v, nil, false)
	if err != nil {
		return ledger.VendorBalance{}, nil, nil, fmt.Errorf("failed to fetch vendor expenses: %w", err)
	}
	payments, err := s.paymentRepo.ListByVendor(ctx, v.ID)
	if err != nil {
		return ledger.VendorBalance{}, nil, nil, fmt.Errorf("failed to fetch vendor payments: %w", err)
	}
	return ledger.ComputeVendorBalance(v, expenses, payments), expenses, payments, nil
}

func (s *vendorService) CreateVendor(ctx context.Context, actor model.ActingUser, req CreateVendorRequest) (*VendorResponse, error) {
	vendor := model.Vendor{
		Name:    strings.TrimSpace(req.Name),
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
		Address: strings.TrimSpace(req.Address),
		Notes:   strings.TrimSpace(req.Notes),
	}
	if vendor.Name == "" || vendor.Phone == "" {
		return nil, apperror.Validation("name and phone are required")
	}
	projectID, err := parseOptionalID(req.ProjectID, "project_id")
	if err != nil {
		return nil, err
	}
	vendor.ProjectID = projectID

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := ensureNameFree(txCtx, s.vendorRepo.FindByName, "vendor", vendor.Name, projectID, uuid.Nil); err != nil {
			return err
		}
		if err := s.vendorRepo.Create(txCtx, &vendor); err != nil {
			return fmt.Errorf("failed to create vendor: %w", apperror.FromDB(err, "vendor"))
		}
		if projectID != nil {
			if err := s.appendToProject(txCtx, *projectID, vendor.Name); err != nil {
				return err
			}
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateVendor, vendor.ID.String(), vendor.Name, req); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("create vendor", err)
	}
	return &VendorResponse{Vendor: vendor, VendorBalance: ledger.ComputeVendorBalance(&vendor, nil, nil)}, nil
}

func (s *vendorService) appendToProject(ctx context.Context, projectID uuid.UUID, name string) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return apperror.FromDB(err, "project")
	}
	project.Vendors = mergeNames(project.Vendors, name)
	if err := s.projectRepo.Update(ctx, project); err != nil {
		return fmt.Errorf("failed to update project vendors: %w", err)
	}
	return nil
}

func (s *vendorService) UpdateVendor(ctx context.Context, actor model.ActingUser, id string, req UpdateVendorRequest) (*VendorResponse, error) {
	vendorID, err := parseID(id, "vendor id")
	if err != nil {
		return nil, err
	}

	var vendor *model.Vendor
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if vendor, err = s.vendorRepo.FindByID(txCtx, vendorID); err != nil {
			return apperror.FromDB(err, "vendor")
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperror.Validation("name cannot be empty")
			}
			if err := ensureNameFree(txCtx, s.vendorRepo.FindByName, "vendor", name, vendor.ProjectID, vendor.ID); err != nil {
				return err
			}
			vendor.Name = name
		}
		if req.Phone != nil {
			phone := strings.TrimSpace(*req.Phone)
			if phone == "" {
				return apperror.Validation("phone cannot be empty")
			}
			vendor.Phone = phone
		}
		if req.Email != nil {
			vendor.Email = strings.TrimSpace(*req.Email)
		}
		if req.Address != nil {
			vendor.Address = strings.TrimSpace(*req.Address)
		}
		if req.Notes != nil {
			vendor.Notes = strings.TrimSpace(*req.Notes)
		}

		if err := s.vendorRepo.Update(txCtx, vendor); err != nil {
			return fmt.Errorf("failed to update vendor: %w", err)
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateVendor, vendor.ID.String(), vendor.Name, req); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("update vendor", err)
	}

	balance, _, _, err := s.balanceOf(ctx, vendor)
	if err != nil {
		return nil, err
	}
	return &VendorResponse{Vendor: *vendor, VendorBalance: balance}, nil
}

func (s *vendorService) DeleteVendor(ctx context.Context, actor model.ActingUser, id string) error {
	if err := requireOwner(actor, "delete vendors"); err != nil {
		return err
	}
	vendorID, err := parseID(id, "vendor id")
	if err != nil {
		return err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, err := s.vendorRepo.FindByID(txCtx, vendorID)
		if err != nil {
			return apperror.FromDB(err, "vendor")
		}
		expenses, err := s.expenseRepo.ListForVendor(txCtx, vendor, nil, false)
		if err != nil {
			return fmt.Errorf("failed to check vendor expenses: %w", err)
		}
		payments, err := s.paymentRepo.ListByVendor(txCtx, vendor.ID)
		if err != nil {
			return fmt.Errorf("failed to check vendor payments: %w", err)
		}
		if len(expenses) > 0 || len(payments) > 0 {
			return apperror.Conflict("vendor %q has recorded transactions and cannot be deleted", vendor.Name)
		}

		if err := s.vendorRepo.Delete(txCtx, vendor.ID); err != nil {
			return fmt.Errorf("failed to delete vendor: %w", err)
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionDeleteVendor, vendor.ID.String(), vendor.Name, nil); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	return apperror.Passthrough("delete vendor", err)
}

// ensureNameFree fails with a conflict when another party in the same scope
// already uses name.
func ensureNameFree[T any](
	ctx context.Context,
	find func(context.Context, string, *uuid.UUID) (*T, error),
	entity, name string,
	projectID *uuid.UUID,
	self uuid.UUID,
) error {
	existing, err := find(ctx, name, projectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check %s name: %w", entity, err)
	}
	if partyID(existing) == self {
		return nil
	}
	return apperror.Conflict("%s %q already exists", entity, name)
}

func partyID(p any) uuid.UUID {
	switch v := p.(type) {
	case *model.Vendor:
		return v.ID
	case *model.Contractor:
		return v.ID
	}
	return uuid.Nil
}
