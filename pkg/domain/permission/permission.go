// Package permission defines the catalog of material-access permissions and
// the role groups that qualify for them.
//
// A permission is a capability tuple, not a relationship: it names an action
// on an object, held by a source user against a target defence client.
// Multiple permissions may exist for the same (source, target) pair.
package permission

import (
	"fmt"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

// Action is the verb of a permission.
type Action string

// Object is the noun of a permission.
type Object string

const (
	ActionView   Action = "VIEW"
	ActionUpload Action = "UPLOAD"

	ObjectDefendant Object = "DEFENDANT"
	ObjectDocument  Object = "DOCUMENT"
)

// Kind identifies a permission kind in the catalog.
type Kind string

const (
	KindViewDefendant  Kind = "VIEW_DEFENDANT"
	KindViewDocument   Kind = "VIEW_DOCUMENT"
	KindUploadDocument Kind = "UPLOAD_DOCUMENT"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsValid reports whether the kind is part of the catalog.
func (k Kind) IsValid() bool {
	switch k {
	case KindViewDefendant, KindViewDocument, KindUploadDocument:
		return true
	}
	return false
}

// kindTuples maps each catalog kind to its action/object pair.
var kindTuples = map[Kind]struct {
	action Action
	object Object
}{
	KindViewDefendant:  {ActionView, ObjectDefendant},
	KindViewDocument:   {ActionView, ObjectDocument},
	KindUploadDocument: {ActionUpload, ObjectDocument},
}

// Permission is a capability tuple granted to a user against a defence client.
type Permission struct {
	ID     shared.ID `json:"id"`
	Action Action    `json:"action"`
	Object Object    `json:"object"`
	Source shared.ID `json:"source"` // grantee user
	Target shared.ID `json:"target"` // defence client
}

// New creates a permission of the given kind for source against target.
func New(kind Kind, source, target shared.ID) (Permission, error) {
	tuple, ok := kindTuples[kind]
	if !ok {
		return Permission{}, fmt.Errorf("%w: unknown permission kind %q", shared.ErrValidation, kind)
	}
	if source.IsZero() {
		return Permission{}, fmt.Errorf("%w: source is required", shared.ErrValidation)
	}
	if target.IsZero() {
		return Permission{}, fmt.Errorf("%w: target is required", shared.ErrValidation)
	}
	return Permission{
		ID:     shared.NewID(),
		Action: tuple.action,
		Object: tuple.object,
		Source: source,
		Target: target,
	}, nil
}

// Kind returns the catalog kind of the permission, or "" if the tuple does
// not correspond to a catalog entry.
func (p Permission) Kind() Kind {
	for kind, tuple := range kindTuples {
		if tuple.action == p.Action && tuple.object == p.Object {
			return kind
		}
	}
	return ""
}
