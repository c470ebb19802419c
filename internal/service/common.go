package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"buildledger/internal/apperror"
	"buildledger/internal/ledger"
	"buildledger/internal/model"
	"buildledger/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

// Event types published after a change is committed.
const (
	EventIncomeCreated         = "income.created"
	EventIncomeUpdated         = "income.updated"
	EventExpenseCreated        = "expense.created"
	EventExpenseUpdated        = "expense.updated"
	EventVendorPaymentRecorded = "vendor_payment.recorded"
	EventLoanCreated           = "loan.created"
	EventLoanUpdated           = "loan.updated"
	EventEditRequestCreated    = "edit_request.created"
	EventEditRequestReviewed   = "edit_request.reviewed"
)

// EventPublisher fans committed changes out to live listeners such as the
// websocket hub. Publish must not block.
type EventPublisher interface {
	Publish(eventType string, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

func orNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

var tracer = otel.Tracer("buildledger/internal/service")

const dateLayout = "2006-01-02"

// FundingRequest names where money came from or went to.
type FundingRequest struct {
	Mode          string `json:"mode" binding:"required,oneof=bank cash"`
	CashLocation  string `json:"cash_location" binding:"omitempty,oneof=locker1 locker2"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

func (r FundingRequest) resolve() (model.FundingDetails, ledger.Source, error) {
	f := model.FundingDetails{
		Mode:          strings.ToLower(strings.TrimSpace(r.Mode)),
		CashLocation:  strings.ToLower(strings.TrimSpace(r.CashLocation)),
		BankName:      strings.TrimSpace(r.BankName),
		AccountNumber: strings.TrimSpace(r.AccountNumber),
	}
	if f.Mode == model.ModeBank {
		f.CashLocation = ""
	} else {
		f.BankName, f.AccountNumber = "", ""
	}
	src, err := ledger.SourceOf(f)
	if err != nil {
		return model.FundingDetails{}, "", apperror.Validation("%s", err.Error())
	}
	return f, src, nil
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid %s", field)
	}
	return id, nil
}

func parseOptionalID(raw, field string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := parseID(raw, field)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(raw, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return d, nil
	}
	if d, err := time.Parse(time.RFC3339, raw); err == nil {
		return d.UTC(), nil
	}
	return time.Time{}, apperror.Validation("%s must be a date in YYYY-MM-DD format", field)
}

func parseOptionalDate(raw, field string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := parseDate(raw, field)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func requireOwner(actor model.ActingUser, action string) error {
	if !actor.IsOwner() {
		return apperror.Forbidden("only the owner can %s", action)
	}
	return nil
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, actor model.ActingUser, action, entityID, entityName string, details any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}
	return repo.Log(ctx, &model.AuditLog{
		UserID:     actor.UserRef(),
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	})
}

// decodeEdit reads the new data of an edit request into an update request.
// Unknown fields are rejected so a typo cannot silently approve nothing.
func decodeEdit(data json.RawMessage, into any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		return apperror.Validation("invalid edit data: %v", err)
	}
	return nil
}

func normalizeExpenseType(t string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), "-", "_")
}

func normalizeProjectStatus(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// mergeNames appends names to list, trimmed and without case-insensitive
// duplicates.
func mergeNames(list []string, names ...string) []string {
	seen := make(map[string]bool, len(list)+len(names))
	out := make([]string, 0, len(list)+len(names))
	for _, n := range append(append([]string{}, list...), names...) {
		n = strings.TrimSpace(n)
		if n == "" || seen[nameKey(n)] {
			continue
		}
		seen[nameKey(n)] = true
		out = append(out, n)
	}
	return out
}
