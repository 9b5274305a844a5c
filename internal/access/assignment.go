package access

import (
	"errors"
	"fmt"

	"github.com/jwalitptl/access-api/internal/model"
)

var (
	ErrHomeOfficeRequired    = errors.New("home office is required")
	ErrHomeOfficeNotAssigned = errors.New("home office must be one of the assigned offices")
	ErrRemoveHomeOffice      = errors.New("cannot remove the home office; reassign it first")
	ErrLastOffice            = errors.New("a user must keep at least one assigned office")
)

// OfficeAssignment couples a home office with the assigned set so the two can
// only change together. Every method preserves home ∈ assigned.
type OfficeAssignment struct {
	home     string
	assigned []string
}

// NewOfficeAssignment builds an assignment from raw ids, failing if home is not assigned.
func NewOfficeAssignment(home string, assigned []string) (OfficeAssignment, error) {
	h := NormalizeOfficeID(home)
	if h == "" {
		return OfficeAssignment{}, ErrHomeOfficeRequired
	}
	ids := NormalizeOfficeIDs(assigned)
	if !contains(ids, h) {
		return OfficeAssignment{}, fmt.Errorf("%w: %s", ErrHomeOfficeNotAssigned, h)
	}
	return OfficeAssignment{home: h, assigned: ids}, nil
}

// AssignmentOf reads the assignment currently stored on a user.
func AssignmentOf(u *model.User) (OfficeAssignment, error) {
	return NewOfficeAssignment(u.HomeOfficeID, u.AssignedOfficeIDs)
}

func (a OfficeAssignment) Home() string {
	return a.home
}

func (a OfficeAssignment) Assigned() []string {
	return append([]string(nil), a.assigned...)
}

// Assign adds an office. Adding one already assigned is a no-op.
func (a OfficeAssignment) Assign(officeID string) OfficeAssignment {
	id := NormalizeOfficeID(officeID)
	if id == "" || contains(a.assigned, id) {
		return a
	}
	return OfficeAssignment{home: a.home, assigned: append(a.Assigned(), id)}
}

// Remove drops an office. The home office cannot be removed.
func (a OfficeAssignment) Remove(officeID string) (OfficeAssignment, error) {
	id := NormalizeOfficeID(officeID)
	if id == a.home {
		return a, ErrRemoveHomeOffice
	}
	next := make([]string, 0, len(a.assigned))
	for _, o := range a.assigned {
		if o != id {
			next = append(next, o)
		}
	}
	if len(next) == 0 {
		return a, ErrLastOffice
	}
	return OfficeAssignment{home: a.home, assigned: next}, nil
}

// SetHome moves the home office; the new home is assigned if it was not already.
func (a OfficeAssignment) SetHome(officeID string) (OfficeAssignment, error) {
	id := NormalizeOfficeID(officeID)
	if id == "" {
		return a, ErrHomeOfficeRequired
	}
	next := a.Assign(id)
	next.home = id
	return next, nil
}

// ApplyTo writes the assignment back onto the user.
func (a OfficeAssignment) ApplyTo(u *model.User) {
	u.HomeOfficeID = a.home
	u.AssignedOfficeIDs = a.Assigned()
}
