package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"buildledger/internal/apperror"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// --- DTOs ---

type CreateEditRequestDTO struct {
	Collection string          `json:"collection_name" binding:"required,oneof=Expense Income Loan"`
	OriginalID string          `json:"original_id" binding:"required,uuid"`
	ProjectID  string          `json:"project_id" binding:"omitempty,uuid"`
	NewData    json.RawMessage `json:"new_data" binding:"required"`
}

type RejectEditRequestDTO struct {
	Reason string `json:"reason"`
}

// EditTarget is a record collection that accepts approved edits. The edit
// runs inside the approval transaction.
type EditTarget interface {
	ApplyEdit(ctx context.Context, actor model.ActingUser, id uuid.UUID, data json.RawMessage) error
}

type EditTargets struct {
	Expense EditTarget
	Income  EditTarget
	Loan    EditTarget
}

// --- Interface ---

type EditRequestService interface {
	CreateRequest(ctx context.Context, actor model.ActingUser, req CreateEditRequestDTO) (*model.EditRequest, error)
	ListRequests(ctx context.Context, actor model.ActingUser, status string, page, limit int) ([]model.EditRequest, int64, error)
	ApproveRequest(ctx context.Context, actor model.ActingUser, id string) (*model.EditRequest, error)
	RejectRequest(ctx context.Context, actor model.ActingUser, id string, reason string) (*model.EditRequest, error)
}

type editRequestService struct {
	requestRepo repository.EditRequestRepository
	incomeRepo  repository.IncomeRepository
	expenseRepo repository.ExpenseRepository
	loanRepo    repository.LoanRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	targets     EditTargets
	events      EventPublisher
}

func NewEditRequestService(
	requestRepo repository.EditRequestRepository,
	incomeRepo repository.IncomeRepository,
	expenseRepo repository.ExpenseRepository,
	loanRepo repository.LoanRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	targets EditTargets,
	events EventPublisher,
) EditRequestService {
	return &editRequestService{
		requestRepo: requestRepo,
		incomeRepo:  incomeRepo,
		expenseRepo: expenseRepo,
		loanRepo:    loanRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		targets:     targets,
		events:      orNop(events),
	}
}

// --- Implementation ---

func (s *editRequestService) CreateRequest(ctx context.Context, actor model.ActingUser, req CreateEditRequestDTO) (*model.EditRequest, error) {
	originalID, err := parseID(req.OriginalID, "original_id")
	if err != nil {
		return nil, err
	}
	projectID, err := parseOptionalID(req.ProjectID, "project_id")
	if err != nil {
		return nil, err
	}
	if err := validateEditData(req.Collection, req.NewData); err != nil {
		return nil, err
	}

	recordProject, err := s.projectOf(ctx, req.Collection, originalID)
	if err != nil {
		return nil, err
	}
	if projectID == nil {
		projectID = &recordProject
	}

	request := model.EditRequest{
		Collection:  req.Collection,
		OriginalID:  originalID,
		ProjectID:   projectID,
		NewData:     datatypes.JSON(req.NewData),
		Status:      model.EditPending,
		RequestedBy: actor.UserRef(),
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.requestRepo.Create(txCtx, &request); err != nil {
			return fmt.Errorf("failed to create edit request: %w", err)
		}
		details := map[string]any{
			"collection":  request.Collection,
			"original_id": request.OriginalID.String(),
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateEditRequest, request.ID.String(), request.Collection, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("create edit request", err)
	}

	s.events.Publish(EventEditRequestCreated, request)
	return &request, nil
}

// projectOf confirms the record exists and returns its project.
func (s *editRequestService) projectOf(ctx context.Context, collection string, id uuid.UUID) (uuid.UUID, error) {
	switch collection {
	case model.EditCollectionExpense:
		e, err := s.expenseRepo.FindByID(ctx, id)
		if err != nil {
			return uuid.Nil, apperror.FromDB(err, "expense")
		}
		return e.ProjectID, nil
	case model.EditCollectionIncome:
		i, err := s.incomeRepo.FindByID(ctx, id)
		if err != nil {
			return uuid.Nil, apperror.FromDB(err, "income")
		}
		return i.ProjectID, nil
	case model.EditCollectionLoan:
		l, err := s.loanRepo.FindByID(ctx, id)
		if err != nil {
			return uuid.Nil, apperror.FromDB(err, "loan")
		}
		return l.ProjectID, nil
	}
	return uuid.Nil, apperror.Validation("collection_name must be Expense, Income or Loan")
}

// validateEditData checks new data against the update shape of its
// collection so a bad request is refused at submission, not at approval.
func validateEditData(collection string, data json.RawMessage) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return apperror.Validation("new_data must be a JSON object")
	}
	if len(fields) == 0 {
		return apperror.Validation("new_data cannot be empty")
	}
	switch collection {
	case model.EditCollectionExpense:
		return decodeEdit(data, &UpdateExpenseRequest{})
	case model.EditCollectionIncome:
		return decodeEdit(data, &UpdateIncomeRequest{})
	case model.EditCollectionLoan:
		return decodeEdit(data, &UpdateLoanRequest{})
	}
	return apperror.Validation("collection_name must be Expense, Income or Loan")
}

func (s *editRequestService) target(collection string) EditTarget {
	switch collection {
	case model.EditCollectionExpense:
		return s.targets.Expense
	case model.EditCollectionIncome:
		return s.targets.Income
	case model.EditCollectionLoan:
		return s.targets.Loan
	}
	return nil
}

func (s *editRequestService) ListRequests(ctx context.Context, actor model.ActingUser, status string, page, limit int) ([]model.EditRequest, int64, error) {
	if err := requireOwner(actor, "review edit requests"); err != nil {
		return nil, 0, err
	}
	switch status = strings.ToLower(strings.TrimSpace(status)); status {
	case "":
		status = model.EditPending
	case "all":
		status = ""
	case model.EditPending, model.EditApproved, model.EditRejected:
	default:
		return nil, 0, apperror.Validation("status must be pending, approved, rejected or all")
	}

	requests, total, err := s.requestRepo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch edit requests: %w", err)
	}
	return requests, total, nil
}

func (s *editRequestService) ApproveRequest(ctx context.Context, actor model.ActingUser, id string) (*model.EditRequest, error) {
	return s.review(ctx, actor, id, true, "")
}

func (s *editRequestService) RejectRequest(ctx context.Context, actor model.ActingUser, id string, reason string) (*model.EditRequest, error) {
	return s.review(ctx, actor, id, false, strings.TrimSpace(reason))
}

func (s *editRequestService) review(ctx context.Context, actor model.ActingUser, id string, approve bool, reason string) (*model.EditRequest, error) {
	if err := requireOwner(actor, "review edit requests"); err != nil {
		return nil, err
	}
	requestID, err := parseID(id, "request id")
	if err != nil {
		return nil, err
	}

	var request *model.EditRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		if request, err = s.requestRepo.FindByIDForUpdate(txCtx, requestID); err != nil {
			return apperror.FromDB(err, "edit request")
		}
		if request.Status != model.EditPending {
			return apperror.Conflict("request already processed")
		}

		action := model.ActionRejectEditRequest
		if approve {
			target := s.target(request.Collection)
			if target == nil {
				return apperror.Validation("unsupported collection %q", request.Collection)
			}
			if err := target.ApplyEdit(txCtx, actor, request.OriginalID, json.RawMessage(request.NewData)); err != nil {
				return err
			}
			request.Status = model.EditApproved
			action = model.ActionApproveEditRequest
		} else {
			request.Status = model.EditRejected
			request.RejectionReason = reason
		}
		now := time.Now()
		request.ReviewedBy = actor.UserRef()
		request.ReviewedAt = &now

		if err := s.requestRepo.Update(txCtx, request); err != nil {
			return fmt.Errorf("failed to update edit request: %w", err)
		}
		details := map[string]any{
			"collection":  request.Collection,
			"original_id": request.OriginalID.String(),
			"reason":      reason,
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, action, request.ID.String(), request.Collection, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, apperror.Passthrough("review edit request", err)
	}

	s.events.Publish(EventEditRequestReviewed, request)
	return request, nil
}
