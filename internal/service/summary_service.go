package service

import (
	"context"
	"fmt"

	"buildledger/internal/apperror"
	"buildledger/internal/ledger"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type SummaryProject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type SummaryResponse struct {
	ledger.Summary
	Project *SummaryProject `json:"project,omitempty"`
}

type SummaryService interface {
	// GetSummary aggregates one project, or every project when projectID is
	// empty. Amounts are recomputed from the records on every call.
	GetSummary(ctx context.Context, actor model.ActingUser, projectID string) (*SummaryResponse, error)
}

type summaryService struct {
	projectRepo repository.ProjectRepository
	incomeRepo  repository.IncomeRepository
	expenseRepo repository.ExpenseRepository
	loanRepo    repository.LoanRepository
}

func NewSummaryService(
	projectRepo repository.ProjectRepository,
	incomeRepo repository.IncomeRepository,
	expenseRepo repository.ExpenseRepository,
	loanRepo repository.LoanRepository,
) SummaryService {
	return &summaryService{
		projectRepo: projectRepo,
		incomeRepo:  incomeRepo,
		expenseRepo: expenseRepo,
		loanRepo:    loanRepo,
	}
}

func (s *summaryService) GetSummary(ctx context.Context, actor model.ActingUser, projectID string) (*SummaryResponse, error) {
	if err := requireOwner(actor, "view the financial summary"); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "SummaryService.GetSummary")
	defer span.End()

	pid, err := parseOptionalID(projectID, "project_id")
	if err != nil {
		return nil, err
	}

	resp := &SummaryResponse{}
	if pid != nil {
		project, err := s.projectRepo.FindByID(ctx, *pid)
		if err != nil {
			return nil, apperror.FromDB(err, "project")
		}
		resp.Project = &SummaryProject{ID: project.ID.String(), Name: project.Name, Type: project.Type}
		span.SetAttributes(attribute.String("project.id", project.ID.String()))
	}

	incomes, _, err := s.incomeRepo.List(ctx, repository.RecordFilter{ProjectID: pid})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch income: %w", err)
	}
	expenses, _, err := s.expenseRepo.List(ctx, repository.RecordFilter{ProjectID: pid})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch expenses: %w", err)
	}
	loans, _, err := s.loanRepo.List(ctx, repository.LoanFilter{ProjectID: pid})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch loans: %w", err)
	}
	if pid == nil {
		loans = withoutReceivables(loans)
	}

	resp.Summary = ledger.Summarize(incomes, expenses, loans)
	return resp, nil
}

// withoutReceivables drops the borrower side of inter-project pairs so a
// company-wide view counts each loan once.
func withoutReceivables(loans []model.Loan) []model.Loan {
	out := loans[:0]
	for _, l := range loans {
		if l.Direction != model.LoanReceivable {
			out = append(out, l)
		}
	}
	return out
}
