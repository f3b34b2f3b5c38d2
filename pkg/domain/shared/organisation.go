package shared

import "fmt"

// CPSOrganisationCode is the classification code of the Crown Prosecution
// Service. Routing only distinguishes the literal "CPS" from everything else;
// all other prosecuting-authority codes (DVLA, TFL, ...) are treated the same.
const CPSOrganisationCode = "CPS"

// Organisation identifies a prosecuting or defending organisation.
type Organisation struct {
	ID   ID     `json:"organisationId"`
	Name string `json:"organisationName"`
}

// NewOrganisation creates an organisation reference.
func NewOrganisation(id ID, name string) (Organisation, error) {
	if id.IsZero() {
		return Organisation{}, fmt.Errorf("%w: organisation id is required", ErrValidation)
	}
	return Organisation{ID: id, Name: name}, nil
}

// IsZero reports whether the organisation reference is empty.
func (o Organisation) IsZero() bool {
	return o.ID.IsZero()
}

// IsCPSCode reports whether a representing-organisation code is the CPS.
func IsCPSCode(code string) bool {
	return code == CPSOrganisationCode
}
