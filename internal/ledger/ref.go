package ledger

import (
	"strings"

	"buildledger/internal/model"

	"github.com/google/uuid"
)

// PartyRef points an expense at its vendor or contractor. Rows entered before
// parties were linked carry only a name, so a reference is either ById or
// ByLegacyName and is resolved against the canonical party before any
// aggregation runs.
type PartyRef struct {
	id   uuid.UUID
	name string
}

// VendorRef is the reference held by material expenses.
type VendorRef = PartyRef

func ByID(id uuid.UUID) PartyRef { return PartyRef{id: id} }

func ByLegacyName(name string) PartyRef { return PartyRef{name: strings.TrimSpace(name)} }

// IsLegacy reports whether the reference is by name only.
func (r PartyRef) IsLegacy() bool { return r.id == uuid.Nil }

func (r PartyRef) ID() uuid.UUID { return r.id }

func (r PartyRef) Name() string { return r.name }

// VendorRefOf returns the vendor reference of a material expense.
func VendorRefOf(e *model.Expense) (PartyRef, bool) {
	if !e.IsMaterial() {
		return PartyRef{}, false
	}
	return refOf(e.VendorID, e.VendorName)
}

// ContractorRefOf returns the contractor reference of a labor expense.
func ContractorRefOf(e *model.Expense) (PartyRef, bool) {
	if e.Type != model.ExpenseLabor {
		return PartyRef{}, false
	}
	return refOf(e.ContractorID, e.ContractorName)
}

func refOf(id *uuid.UUID, name string) (PartyRef, bool) {
	if id != nil && *id != uuid.Nil {
		return ByID(*id), true
	}
	if strings.TrimSpace(name) != "" {
		return ByLegacyName(name), true
	}
	return PartyRef{}, false
}

// resolves reports whether r designates the party with the given identity.
// Legacy names only match inside the party's project scope when it has one.
func (r PartyRef) resolves(id uuid.UUID, name string, partyProject *uuid.UUID, expenseProject uuid.UUID) bool {
	if !r.IsLegacy() {
		return r.id == id
	}
	if !SameName(r.name, name) {
		return false
	}
	return partyProject == nil || *partyProject == expenseProject
}

// BelongsToVendor reports whether a material expense was bought from v.
func BelongsToVendor(e *model.Expense, v *model.Vendor) bool {
	ref, ok := VendorRefOf(e)
	return ok && ref.resolves(v.ID, v.Name, v.ProjectID, e.ProjectID)
}

// BelongsToContractor reports whether a labor expense was paid to c.
func BelongsToContractor(e *model.Expense, c *model.Contractor) bool {
	ref, ok := ContractorRefOf(e)
	return ok && ref.resolves(c.ID, c.Name, c.ProjectID, e.ProjectID)
}

// SameName compares party names the way users type them.
func SameName(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
