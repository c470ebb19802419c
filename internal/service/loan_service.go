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
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var errLoanRowNotUpdated = errors.New("loan row was not updated")

type CreateLoanRequest struct {
	ProjectID       string          `json:"project_id" binding:"required,uuid"`
	LoanType        string          `json:"loan_type" binding:"omitempty,oneof=external inter_project"`
	BorrowerName    string          `json:"borrower_name"`
	LinkedProjectID string          `json:"linked_project_id" binding:"omitempty,uuid"`
	AmountGiven     decimal.Decimal `json:"amount_given"`
	DateGiven       string          `json:"date_given" binding:"required,ledgerdate"`
	Description     string          `json:"description"`
}

// ReturnLoanRequest sets the total returned so far, not an increment.
type ReturnLoanRequest struct {
	AmountReturned decimal.Decimal `json:"amount_returned"`
	DateReturned   string          `json:"date_returned"`
}

type UpdateLoanRequest struct {
	BorrowerName *string          `json:"borrower_name"`
	Description  *string          `json:"description"`
	AmountGiven  *decimal.Decimal `json:"amount_given"`
	DateGiven    *string          `json:"date_given"`
	DateReturned *string          `json:"date_returned"`
}

type LoanFilter struct {
	ProjectID string
	LoanType  string
	Direction string
	Page      int
	Limit     int
}

type LoanService interface {
	// CreateLoan records an external loan, or both rows of an inter-project
	// loan linked to each other.
	CreateLoan(ctx context.Context, actor model.ActingUser, req CreateLoanRequest) ([]model.Loan, error)
	ListLoans(ctx context.Context, filter LoanFilter) ([]model.Loan, int64, error)
	GetLoan(ctx context.Context, id string) (*model.Loan, error)
	RecordReturn(ctx context.Context, actor model.ActingUser, id string, req ReturnLoanRequest) (*model.Loan, error)
	UpdateLoan(ctx context.Context, actor model.ActingUser, id string, req UpdateLoanRequest) (*model.Loan, error)
	ApplyEdit(ctx context.Context, actor model.ActingUser, id uuid.UUID, data json.RawMessage) error
}

type loanService struct {
	projectRepo repository.ProjectRepository
	loanRepo    repository.LoanRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewLoanService(
	projectRepo repository.ProjectRepository,
	loanRepo repository.LoanRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) LoanService {
	return &loanService{
		projectRepo: projectRepo,
		loanRepo:    loanRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      orNop(events),
	}
}

func (s *loanService) CreateLoan(ctx context.Context, actor model.ActingUser, req CreateLoanRequest) ([]model.Loan, error) {
	ctx, span := tracer.Start(ctx, "LoanService.CreateLoan")
	defer span.End()

	projectID, err := parseID(req.ProjectID, "project_id")
	if err != nil {
		return nil, err
	}
	if !req.AmountGiven.IsPositive() {
		return nil, apperror.Validation("amount_given must be greater than 0")
	}
	dateGiven, err := parseDate(req.DateGiven, "date_given")
	if err != nil {
		return nil, err
	}
	loanType := strings.TrimSpace(req.LoanType)
	if loanType == "" {
		loanType = model.LoanExternal
	}

	lender, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, apperror.FromDB(err, "project")
	}

	base := model.Loan{
		ProjectID:      lender.ID,
		BorrowerName:   strings.TrimSpace(req.BorrowerName),
		AmountGiven:    req.AmountGiven,
		DateGiven:      dateGiven,
		AmountReturned: decimal.Zero,
		Status:         model.LoanActive,
		Description:    strings.TrimSpace(req.Description),
		LoanType:       loanType,
		EnteredByID:    actor.UserRef(),
	}

	var borrower *model.Project
	switch loanType {
	case model.LoanExternal:
		if base.BorrowerName == "" {
			return nil, apperror.Validation("borrower_name is required for external loans")
		}
	case model.LoanInterProject:
		linkedID, err := parseOptionalID(req.LinkedProjectID, "linked_project_id")
		if err != nil {
			return nil, err
		}
		if linkedID == nil {
			return nil, apperror.Validation("linked_project_id is required for inter-project loans")
		}
		if *linkedID == lender.ID {
			return nil, apperror.Validation("a project cannot lend to itself")
		}
		if borrower, err = s.projectRepo.FindByID(ctx, *linkedID); err != nil {
			return nil, apperror.FromDB(err, "linked project")
		}
		base.BorrowerName = borrower.Name
	default:
		return nil, apperror.Validation("loan_type must be external or inter_project")
	}
	span.SetAttributes(attribute.String("loan.type", loanType))

	var created []model.Loan
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if loanType == model.LoanExternal {
			loan := base
			if err := s.loanRepo.Create(txCtx, &loan); err != nil {
				return fmt.Errorf("failed to create loan: %w", err)
			}
			created = []model.Loan{loan}
		} else {
			payable := base
			payable.Direction = model.LoanPayable
			payable.LinkedProjectID = &borrower.ID
			if err := s.loanRepo.Create(txCtx, &payable); err != nil {
				return fmt.Errorf("failed to create payable loan: %w", err)
			}

			receivable := base
			receivable.ProjectID = borrower.ID
			receivable.Direction = model.LoanReceivable
			receivable.LinkedProjectID = &lender.ID
			receivable.LinkedLoanID = &payable.ID
			if err := s.loanRepo.Create(txCtx, &receivable); err != nil {
				return fmt.Errorf("failed to create receivable loan: %w", err)
			}

			if err := s.loanRepo.SetLinkedLoan(txCtx, payable.ID, receivable.ID); err != nil {
				return fmt.Errorf("failed to link loans: %w", err)
			}
			payable.LinkedLoanID = &receivable.ID
			created = []model.Loan{payable, receivable}
		}

		details := map[string]any{
			"loan_type":    loanType,
			"amount_given": base.AmountGiven.String(),
			"rows":         len(created),
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionCreateLoan, created[0].ID.String(), base.BorrowerName, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Passthrough("create loan", err)
	}

	logger.L(ctx).Info("loan created",
		zap.String("loan_id", created[0].ID.String()),
		zap.String("loan_type", loanType),
		zap.String("amount_given", base.AmountGiven.String()),
	)
	s.events.Publish(EventLoanCreated, created)
	return created, nil
}

func (s *loanService) ListLoans(ctx context.Context, filter LoanFilter) ([]model.Loan, int64, error) {
	projectID, err := parseOptionalID(filter.ProjectID, "project_id")
	if err != nil {
		return nil, 0, err
	}
	f := repository.LoanFilter{
		ProjectID: projectID,
		LoanType:  filter.LoanType,
		Direction: filter.Direction,
		Page:      filter.Page,
		Limit:     filter.Limit,
	}
	if f.Direction != "" {
		if f.Direction != model.LoanPayable && f.Direction != model.LoanReceivable {
			return nil, 0, apperror.Validation("direction must be payable or receivable")
		}
		f.LoanType = model.LoanInterProject
	}

	loans, total, err := s.loanRepo.List(ctx, f)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch loans: %w", err)
	}
	return loans, total, nil
}

func (s *loanService) GetLoan(ctx context.Context, id string) (*model.Loan, error) {
	loanID, err := parseID(id, "loan id")
	if err != nil {
		return nil, err
	}
	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return nil, apperror.FromDB(err, "loan")
	}
	return loan, nil
}

func (s *loanService) RecordReturn(ctx context.Context, actor model.ActingUser, id string, req ReturnLoanRequest) (*model.Loan, error) {
	ctx, span := tracer.Start(ctx, "LoanService.RecordReturn")
	defer span.End()

	loanID, err := parseID(id, "loan id")
	if err != nil {
		return nil, err
	}
	dateReturned, err := parseOptionalDate(req.DateReturned, "date_returned")
	if err != nil {
		return nil, err
	}

	var loan *model.Loan
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var linked *model.Loan
		var err error
		loan, linked, err = s.lockPair(txCtx, loanID)
		if err != nil {
			return err
		}
		if err := ledger.ApplyReturn(loan, req.AmountReturned, dateReturned); err != nil {
			return apperror.Validation("%s", err.Error())
		}
		if err := s.persistPair(txCtx, loan, linked); err != nil {
			return err
		}

		details := map[string]any{
			"amount_returned": loan.AmountReturned.String(),
			"status":          loan.Status,
			"mirrored":        linked != nil,
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionReturnLoan, loan.ID.String(), loan.BorrowerName, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		logger.L(ctx).Error("loan return rolled back", zap.String("loan_id", loanID.String()), zap.Error(err))
		return nil, apperror.Passthrough("record loan return", err)
	}

	logger.L(ctx).Info("loan return recorded",
		zap.String("loan_id", loan.ID.String()),
		zap.String("amount_returned", loan.AmountReturned.String()),
		zap.String("status", loan.Status),
	)
	s.events.Publish(EventLoanUpdated, loan)
	return loan, nil
}

func (s *loanService) UpdateLoan(ctx context.Context, actor model.ActingUser, id string, req UpdateLoanRequest) (*model.Loan, error) {
	if err := requireOwner(actor, "edit loans"); err != nil {
		return nil, err
	}
	loanID, err := parseID(id, "loan id")
	if err != nil {
		return nil, err
	}
	loan, err := s.update(ctx, actor, loanID, req)
	if err != nil {
		return nil, err
	}
	s.events.Publish(EventLoanUpdated, loan)
	return loan, nil
}

func (s *loanService) ApplyEdit(ctx context.Context, actor model.ActingUser, id uuid.UUID, data json.RawMessage) error {
	var req UpdateLoanRequest
	if err := decodeEdit(data, &req); err != nil {
		return err
	}
	_, err := s.update(ctx, actor, id, req)
	return err
}

func (s *loanService) update(ctx context.Context, actor model.ActingUser, id uuid.UUID, req UpdateLoanRequest) (*model.Loan, error) {
	ctx, span := tracer.Start(ctx, "LoanService.UpdateLoan")
	defer span.End()

	var loan *model.Loan
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var linked *model.Loan
		var err error
		loan, linked, err = s.lockPair(txCtx, id)
		if err != nil {
			return err
		}

		if req.BorrowerName != nil {
			if loan.IsInterProject() {
				return apperror.Validation("borrower_name of an inter-project loan follows the borrowing project")
			}
			loan.BorrowerName = strings.TrimSpace(*req.BorrowerName)
		}
		if req.Description != nil {
			loan.Description = strings.TrimSpace(*req.Description)
		}
		if req.DateGiven != nil {
			d, err := parseDate(*req.DateGiven, "date_given")
			if err != nil {
				return err
			}
			loan.DateGiven = d
		}
		if req.DateReturned != nil {
			d, err := parseOptionalDate(*req.DateReturned, "date_returned")
			if err != nil {
				return err
			}
			loan.DateReturned = d
		}
		if req.AmountGiven != nil {
			if !req.AmountGiven.IsPositive() {
				return apperror.Validation("amount_given must be greater than 0")
			}
			if req.AmountGiven.LessThan(loan.AmountReturned) {
				return apperror.Validation("amount_given cannot be lower than amount_returned")
			}
			loan.AmountGiven = *req.AmountGiven
			loan.Status = ledger.LoanStatus(loan.AmountGiven, loan.AmountReturned)
		}

		if err := s.persistPair(txCtx, loan, linked); err != nil {
			return err
		}
		details := map[string]any{
			"amount_given": loan.AmountGiven.String(),
			"status":       loan.Status,
			"mirrored":     linked != nil,
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionUpdateLoan, loan.ID.String(), loan.BorrowerName, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Passthrough("update loan", err)
	}
	return loan, nil
}

// lockPair locks a loan and, for inter-project loans, its linked row. Rows are
// locked in id order so two requests on either side of a pair cannot deadlock.
func (s *loanService) lockPair(ctx context.Context, id uuid.UUID) (*model.Loan, *model.Loan, error) {
	head, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, apperror.FromDB(err, "loan")
	}
	if !head.IsInterProject() || head.LinkedLoanID == nil {
		loan, err := s.loanRepo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return nil, nil, apperror.FromDB(err, "loan")
		}
		return loan, nil, nil
	}

	ids := []uuid.UUID{id, *head.LinkedLoanID}
	if ids[1].String() < ids[0].String() {
		ids[0], ids[1] = ids[1], ids[0]
	}
	locked := make(map[uuid.UUID]*model.Loan, 2)
	for _, lid := range ids {
		l, err := s.loanRepo.FindByIDForUpdate(ctx, lid)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to lock loan %s: %w", lid, err)
		}
		locked[lid] = l
	}
	return locked[id], locked[*head.LinkedLoanID], nil
}

// persistPair writes loan and mirrors it onto linked. Each side must update
// exactly one row or the transaction is abandoned.
func (s *loanService) persistPair(ctx context.Context, loan, linked *model.Loan) error {
	n, err := s.loanRepo.UpdateTerms(ctx, loan)
	if err != nil {
		return fmt.Errorf("failed to update loan: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("loan %s: %w", loan.ID, errLoanRowNotUpdated)
	}
	if linked == nil {
		return nil
	}

	ledger.MirrorLoan(loan, linked)
	n, err = s.loanRepo.UpdateTerms(ctx, linked)
	if err != nil {
		return fmt.Errorf("failed to update linked loan: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("linked loan %s: %w", linked.ID, errLoanRowNotUpdated)
	}
	return nil
}
