package shared

import "fmt"

// PersonDetails identifies a human actor as captured at command time.
// The details are immutable once recorded on an event: later name changes in
// the directory never rewrite history.
type PersonDetails struct {
	UserID    ID     `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// NewPersonDetails creates person details for a resolved directory entry.
func NewPersonDetails(userID ID, firstName, lastName string) (PersonDetails, error) {
	if userID.IsZero() {
		return PersonDetails{}, fmt.Errorf("%w: userID is required", ErrValidation)
	}
	return PersonDetails{UserID: userID, FirstName: firstName, LastName: lastName}, nil
}

// FullName returns "First Last" for display and audit purposes.
func (p PersonDetails) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// IsZero reports whether the details are empty.
func (p PersonDetails) IsZero() bool {
	return p.UserID.IsZero()
}
