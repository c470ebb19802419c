package service

import (
	"context"
	"fmt"
	"strings"

	"buildledger/internal/apperror"
	"buildledger/internal/ledger"
	"buildledger/internal/lock"
	"buildledger/internal/logger"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// --- DTOs ---

type RecordVendorPaymentRequest struct {
	VendorID    string          `json:"vendor_id" binding:"required,uuid"`
	ProjectID   string          `json:"project_id" binding:"omitempty,uuid"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date" binding:"required,ledgerdate"`
	Description string          `json:"description"`
	FundingRequest
}

type VendorPaymentFilter struct {
	VendorID  string
	ProjectID string
	Page      int
	Limit     int
}

// AllocationLine is one expense touched by a recorded payment.
type AllocationLine struct {
	ExpenseID        uuid.UUID       `json:"expense_id"`
	Applied          decimal.Decimal `json:"applied"`
	VendorPaidAmount decimal.Decimal `json:"vendor_paid_amount"`
	Status           string          `json:"vendor_payment_status"`
}

type VendorPaymentResult struct {
	Payment     model.VendorPayment `json:"payment"`
	Allocations []AllocationLine    `json:"allocations"`
}

// --- Interface ---

type VendorPaymentService interface {
	// RecordPayment stores a lump-sum payment to a vendor and spreads it over
	// the vendor's outstanding material expenses, oldest first. Whatever is
	// left stays with the vendor as credit.
	RecordPayment(ctx context.Context, actor model.ActingUser, req RecordVendorPaymentRequest) (*VendorPaymentResult, error)
	ListPayments(ctx context.Context, filter VendorPaymentFilter) ([]model.VendorPayment, int64, error)
}

type vendorPaymentService struct {
	vendorRepo  repository.VendorRepository
	expenseRepo repository.ExpenseRepository
	paymentRepo repository.VendorPaymentRepository
	historyRepo repository.PaymentHistoryRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	locker      lock.Locker
	events      EventPublisher
}

func NewVendorPaymentService(
	vendorRepo repository.VendorRepository,
	expenseRepo repository.ExpenseRepository,
	paymentRepo repository.VendorPaymentRepository,
	historyRepo repository.PaymentHistoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	locker lock.Locker,
	events EventPublisher,
) VendorPaymentService {
	return &vendorPaymentService{
		vendorRepo:  vendorRepo,
		expenseRepo: expenseRepo,
		paymentRepo: paymentRepo,
		historyRepo: historyRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		locker:      locker,
		events:      orNop(events),
	}
}

func vendorLockKey(id uuid.UUID) string {
	return "vendor:" + id.String()
}

// --- Implementation ---

func (s *vendorPaymentService) RecordPayment(ctx context.Context, actor model.ActingUser, req RecordVendorPaymentRequest) (*VendorPaymentResult, error) {
	ctx, span := tracer.Start(ctx, "VendorPaymentService.RecordPayment")
	defer span.End()

	vendorID, err := parseID(req.VendorID, "vendor_id")
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation("amount must be greater than 0")
	}
	funding, src, err := req.FundingRequest.resolve()
	if err != nil {
		return nil, err
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		return nil, err
	}
	scope, err := parseOptionalID(req.ProjectID, "project_id")
	if err != nil {
		return nil, err
	}

	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		return nil, apperror.FromDB(err, "vendor")
	}
	span.SetAttributes(
		attribute.String("vendor.id", vendor.ID.String()),
		attribute.String("payment.amount", req.Amount.String()),
		attribute.String("payment.source", string(src)),
	)

	key := vendorLockKey(vendor.ID)
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return nil, apperror.TransactionFailure("lock vendor", err)
	}
	defer release()

	payment := model.VendorPayment{
		VendorID:        vendor.ID,
		ProjectID:       vendor.ProjectID,
		Amount:          req.Amount,
		Date:            date,
		Description:     strings.TrimSpace(req.Description),
		FundingDetails:  funding,
		SourceType:      model.PaymentSourceManual,
		UnappliedAmount: req.Amount,
		EnteredByID:     actor.UserRef(),
	}
	if payment.ProjectID == nil {
		payment.ProjectID = scope
	}

	var lines []AllocationLine
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.txManager.LockKey(txCtx, key); err != nil {
			return fmt.Errorf("failed to lock vendor: %w", err)
		}
		if err := s.paymentRepo.Create(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to create vendor payment: %w", err)
		}

		rows, err := s.expenseRepo.ListForVendor(txCtx, vendor, scope, true)
		if err != nil {
			return fmt.Errorf("failed to load vendor expenses: %w", err)
		}
		expenses := make([]*model.Expense, len(rows))
		for i := range rows {
			expenses[i] = &rows[i]
		}

		allocations, remaining, err := ledger.AllocateFIFO(expenses, payment.Amount, src)
		if err != nil {
			return apperror.Validation("%s", err.Error())
		}

		for _, a := range allocations {
			if err := s.expenseRepo.UpdatePayment(txCtx, a.Expense); err != nil {
				return fmt.Errorf("failed to update expense %s: %w", a.Expense.ID, err)
			}
			entry := &model.ExpensePaymentHistory{
				ExpenseID:       a.Expense.ID,
				VendorPaymentID: &payment.ID,
				Amount:          a.Applied,
				Date:            date,
				FundingDetails:  funding,
			}
			if err := s.historyRepo.Create(txCtx, entry); err != nil {
				return fmt.Errorf("failed to append payment history: %w", err)
			}
			lines = append(lines, AllocationLine{
				ExpenseID:        a.Expense.ID,
				Applied:          a.Applied,
				VendorPaidAmount: a.Expense.VendorPaidAmount,
				Status:           a.Expense.VendorPaymentStatus,
			})
		}

		payment.AppliedToExpenses = len(allocations) > 0
		payment.UnappliedAmount = remaining
		if err := s.paymentRepo.UpdateAllocation(txCtx, &payment); err != nil {
			return fmt.Errorf("failed to update vendor payment: %w", err)
		}

		details := map[string]any{
			"vendor_id":        vendor.ID.String(),
			"amount":           payment.Amount.String(),
			"source":           string(src),
			"expenses_touched": len(allocations),
			"unapplied_amount": remaining.String(),
		}
		if err := writeAudit(txCtx, s.auditRepo, actor, model.ActionRecordVendorPayment, payment.ID.String(), vendor.Name, details); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record vendor payment failed")
		logger.L(ctx).Error("vendor payment rolled back",
			zap.String("vendor_id", vendor.ID.String()),
			zap.String("amount", req.Amount.String()),
			zap.Error(err),
		)
		return nil, apperror.Passthrough("record vendor payment", err)
	}

	logger.L(ctx).Info("vendor payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("vendor_id", vendor.ID.String()),
		zap.String("amount", payment.Amount.String()),
		zap.Int("expenses_touched", len(lines)),
		zap.String("unapplied_amount", payment.UnappliedAmount.String()),
	)

	payment.Vendor = vendor
	result := &VendorPaymentResult{Payment: payment, Allocations: lines}
	if result.Allocations == nil {
		result.Allocations = []AllocationLine{}
	}
	s.events.Publish(EventVendorPaymentRecorded, result)
	return result, nil
}

func (s *vendorPaymentService) ListPayments(ctx context.Context, filter VendorPaymentFilter) ([]model.VendorPayment, int64, error) {
	vendorID, err := parseOptionalID(filter.VendorID, "vendor_id")
	if err != nil {
		return nil, 0, err
	}
	projectID, err := parseOptionalID(filter.ProjectID, "project_id")
	if err != nil {
		return nil, 0, err
	}

	payments, total, err := s.paymentRepo.List(ctx, repository.VendorPaymentFilter{
		VendorID:  vendorID,
		ProjectID: projectID,
		Page:      filter.Page,
		Limit:     filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch vendor payments: %w", err)
	}
	return payments, total, nil
}
