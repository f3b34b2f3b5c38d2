package association

import (
	"testing"
	"time"

	"github.com/caseaccessio/api/pkg/domain/shared"
)

func associateCommand(defendantID, orgID shared.ID, name string) AssociateOrganisationCommand {
	return AssociateOrganisationCommand{
		DefendantID:        defendantID,
		OrganisationID:     orgID,
		OrganisationName:   name,
		RepresentationType: "REPRESENTATION_ORDER_APPLIED_FOR",
		LAAContractNumber:  "1234567890",
		UserID:             shared.NewID(),
		Timestamp:          time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAggregate_AssociateOrganisation(t *testing.T) {
	defendantID := shared.NewID()

	t.Run("first association emits a single event", func(t *testing.T) {
		agg := NewAggregate(nil)
		cmd := associateCommand(defendantID, shared.NewID(), "Org1")

		events, err := agg.AssociateOrganisation(cmd)
		if err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		associated, ok := events[0].(DefenceOrganisationAssociated)
		if !ok {
			t.Fatalf("got %T, want DefenceOrganisationAssociated", events[0])
		}
		if associated.OrganisationName != "Org1" {
			t.Errorf("OrganisationName = %q, want Org1", associated.OrganisationName)
		}
	})

	t.Run("same organisation again is rejected", func(t *testing.T) {
		agg := NewAggregate(nil)
		cmd := associateCommand(defendantID, shared.NewID(), "Org1")
		if _, err := agg.AssociateOrganisation(cmd); err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}

		events, err := agg.AssociateOrganisation(cmd)
		if err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}
		failed, ok := events[0].(DefenceAssociationFailed)
		if !ok {
			t.Fatalf("got %T, want DefenceAssociationFailed", events[0])
		}
		if failed.Reason != ReasonAlreadyAssociated {
			t.Errorf("Reason = %q, want %q", failed.Reason, ReasonAlreadyAssociated)
		}
	})

	t.Run("different organisation disassociates the old one first", func(t *testing.T) {
		agg := NewAggregate(nil)
		org1 := shared.NewID()
		org2 := shared.NewID()
		if _, err := agg.AssociateOrganisation(associateCommand(defendantID, org1, "Org1")); err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}

		events, err := agg.AssociateOrganisation(associateCommand(defendantID, org2, "Org2"))
		if err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		disassociated, ok := events[0].(DefenceOrganisationDisassociated)
		if !ok {
			t.Fatalf("events[0] = %T, want DefenceOrganisationDisassociated", events[0])
		}
		if !disassociated.OrganisationID.Equals(org1) {
			t.Errorf("disassociated org = %v, want %v", disassociated.OrganisationID, org1)
		}
		associated, ok := events[1].(DefenceOrganisationAssociated)
		if !ok {
			t.Fatalf("events[1] = %T, want DefenceOrganisationAssociated", events[1])
		}
		if !associated.OrganisationID.Equals(org2) {
			t.Errorf("associated org = %v, want %v", associated.OrganisationID, org2)
		}
	})
}

func TestAggregate_AssociateOrganisationForRepOrder(t *testing.T) {
	defendantID := shared.NewID()
	orgID := shared.NewID()

	t.Run("changed LAA reference for the same organisation", func(t *testing.T) {
		agg := NewAggregate(nil)
		cmd := associateCommand(defendantID, orgID, "Org1")
		if _, err := agg.AssociateOrganisationForRepOrder(cmd); err != nil {
			t.Fatalf("AssociateOrganisationForRepOrder() error = %v", err)
		}

		cmd.LAAContractNumber = "9999999999"
		events, err := agg.AssociateOrganisationForRepOrder(cmd)
		if err != nil {
			t.Fatalf("AssociateOrganisationForRepOrder() error = %v", err)
		}
		received, ok := events[0].(DefenceOrganisationLAAReferenceReceived)
		if !ok {
			t.Fatalf("got %T, want DefenceOrganisationLAAReferenceReceived", events[0])
		}
		if received.LAAContractNumber != "9999999999" {
			t.Errorf("LAAContractNumber = %q", received.LAAContractNumber)
		}

		// The folded state carries the new reference.
		active, ok := agg.State().Active()
		if !ok || active.LAAContractNumber != "9999999999" {
			t.Errorf("active association = %+v, want updated LAA reference", active)
		}
	})

	t.Run("same organisation and reference is rejected", func(t *testing.T) {
		agg := NewAggregate(nil)
		cmd := associateCommand(defendantID, orgID, "Org1")
		if _, err := agg.AssociateOrganisationForRepOrder(cmd); err != nil {
			t.Fatalf("AssociateOrganisationForRepOrder() error = %v", err)
		}

		events, err := agg.AssociateOrganisationForRepOrder(cmd)
		if err != nil {
			t.Fatalf("AssociateOrganisationForRepOrder() error = %v", err)
		}
		if _, ok := events[0].(DefenceAssociationFailed); !ok {
			t.Fatalf("got %T, want DefenceAssociationFailed", events[0])
		}
	})

	t.Run("different organisation replaces the association", func(t *testing.T) {
		agg := NewAggregate(nil)
		if _, err := agg.AssociateOrganisationForRepOrder(associateCommand(defendantID, orgID, "Org1")); err != nil {
			t.Fatalf("AssociateOrganisationForRepOrder() error = %v", err)
		}

		events, err := agg.AssociateOrganisationForRepOrder(associateCommand(defendantID, shared.NewID(), "Org2"))
		if err != nil {
			t.Fatalf("AssociateOrganisationForRepOrder() error = %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
	})
}

func TestAggregate_DisassociateOrganisation(t *testing.T) {
	defendantID := shared.NewID()
	orgID := shared.NewID()

	t.Run("disassociates the active organisation", func(t *testing.T) {
		agg := NewAggregate(nil)
		if _, err := agg.AssociateOrganisation(associateCommand(defendantID, orgID, "Org1")); err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}

		events, err := agg.DisassociateOrganisation(DisassociateOrganisationCommand{
			DefendantID:    defendantID,
			OrganisationID: orgID,
			UserID:         shared.NewID(),
		})
		if err != nil {
			t.Fatalf("DisassociateOrganisation() error = %v", err)
		}
		if _, ok := events[0].(DefenceOrganisationDisassociated); !ok {
			t.Fatalf("got %T, want DefenceOrganisationDisassociated", events[0])
		}
		if _, active := agg.State().Active(); active {
			t.Error("association should no longer be active")
		}
		if last, ok := agg.State().LastKnown(); !ok || last.EndDate == nil {
			t.Error("last-known association should be recorded with an end date")
		}
	})

	t.Run("second disassociation in a row fails", func(t *testing.T) {
		agg := NewAggregate(nil)
		if _, err := agg.AssociateOrganisation(associateCommand(defendantID, orgID, "Org1")); err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}
		cmd := DisassociateOrganisationCommand{DefendantID: defendantID, OrganisationID: orgID, UserID: shared.NewID()}
		if _, err := agg.DisassociateOrganisation(cmd); err != nil {
			t.Fatalf("DisassociateOrganisation() error = %v", err)
		}

		events, err := agg.DisassociateOrganisation(cmd)
		if err != nil {
			t.Fatalf("DisassociateOrganisation() error = %v", err)
		}
		if _, ok := events[0].(DefenceDisassociationFailed); !ok {
			t.Fatalf("got %T, want DefenceDisassociationFailed", events[0])
		}
	})

	t.Run("wrong organisation fails", func(t *testing.T) {
		agg := NewAggregate(nil)
		if _, err := agg.AssociateOrganisation(associateCommand(defendantID, orgID, "Org1")); err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}

		events, err := agg.DisassociateOrganisation(DisassociateOrganisationCommand{
			DefendantID:    defendantID,
			OrganisationID: shared.NewID(),
			UserID:         shared.NewID(),
		})
		if err != nil {
			t.Fatalf("DisassociateOrganisation() error = %v", err)
		}
		if _, ok := events[0].(DefenceDisassociationFailed); !ok {
			t.Fatalf("got %T, want DefenceDisassociationFailed", events[0])
		}
	})
}

func TestAggregate_HandleOrphanedDefendantAssociation(t *testing.T) {
	defendantID := shared.NewID()

	t.Run("no active association emits one event", func(t *testing.T) {
		agg := NewAggregate(nil)
		events, err := agg.HandleOrphanedDefendantAssociation(associateCommand(defendantID, shared.NewID(), "Org1"))
		if err != nil {
			t.Fatalf("HandleOrphanedDefendantAssociation() error = %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
	})

	t.Run("active association is replaced in order", func(t *testing.T) {
		agg := NewAggregate(nil)
		org1 := shared.NewID()
		if _, err := agg.AssociateOrganisation(associateCommand(defendantID, org1, "Org1")); err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}

		events, err := agg.HandleOrphanedDefendantAssociation(associateCommand(defendantID, shared.NewID(), "Org2"))
		if err != nil {
			t.Fatalf("HandleOrphanedDefendantAssociation() error = %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("got %d events, want 2", len(events))
		}
		if _, ok := events[0].(DefenceOrganisationDisassociated); !ok {
			t.Fatalf("events[0] = %T, want DefenceOrganisationDisassociated", events[0])
		}
		if _, ok := events[1].(DefenceOrganisationAssociated); !ok {
			t.Fatalf("events[1] = %T, want DefenceOrganisationAssociated", events[1])
		}
	})
}

func TestAggregate_HandleDefendantDefenceAssociationLocked(t *testing.T) {
	defendantID := shared.NewID()
	orgID := shared.NewID()

	lockedAggregate := func(t *testing.T) *Aggregate {
		t.Helper()
		agg := NewAggregate(nil)
		if _, err := agg.AssociateOrganisation(associateCommand(defendantID, orgID, "Org1")); err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}
		if _, err := agg.HandleDefendantDefenceAssociationLocked(defendantID, "1234567890"); err != nil {
			t.Fatalf("HandleDefendantDefenceAssociationLocked() error = %v", err)
		}
		return agg
	}

	t.Run("lock is recorded on the active association", func(t *testing.T) {
		agg := lockedAggregate(t)
		if !agg.State().Locked() {
			t.Error("state should be locked")
		}
		active, _ := agg.State().Active()
		if !active.LockedByRepOrder {
			t.Error("active association should carry the rep-order lock")
		}

		// A repeated lock message emits again without changing anything.
		events, err := agg.HandleDefendantDefenceAssociationLocked(defendantID, "1234567890")
		if err != nil {
			t.Fatalf("HandleDefendantDefenceAssociationLocked() error = %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
	})

	t.Run("locked association rejects takeover", func(t *testing.T) {
		takeover := associateCommand(defendantID, shared.NewID(), "Org2")
		for name, attempt := range map[string]func(*Aggregate) ([]shared.Event, error){
			"associate": func(agg *Aggregate) ([]shared.Event, error) {
				return agg.AssociateOrganisation(takeover)
			},
			"rep order": func(agg *Aggregate) ([]shared.Event, error) {
				return agg.AssociateOrganisationForRepOrder(takeover)
			},
		} {
			agg := lockedAggregate(t)
			events, err := attempt(agg)
			if err != nil {
				t.Fatalf("%s: error = %v", name, err)
			}
			if len(events) != 1 {
				t.Fatalf("%s: got %d events, want 1", name, len(events))
			}
			failed, ok := events[0].(DefenceAssociationFailed)
			if !ok {
				t.Fatalf("%s: got %T, want DefenceAssociationFailed", name, events[0])
			}
			if failed.Reason != ReasonAssociationLocked {
				t.Errorf("%s: Reason = %q, want %q", name, failed.Reason, ReasonAssociationLocked)
			}
			active, _ := agg.State().Active()
			if !active.OrganisationID.Equals(orgID) {
				t.Errorf("%s: active org changed to %v", name, active.OrganisationID)
			}
		}
	})

	t.Run("rep order for the locked organisation refreshes the reference", func(t *testing.T) {
		agg := lockedAggregate(t)
		cmd := associateCommand(defendantID, orgID, "Org1")
		cmd.LAAContractNumber = "9999999999"

		events, err := agg.AssociateOrganisationForRepOrder(cmd)
		if err != nil {
			t.Fatalf("AssociateOrganisationForRepOrder() error = %v", err)
		}
		if _, ok := events[0].(DefenceOrganisationLAAReferenceReceived); !ok {
			t.Fatalf("got %T, want DefenceOrganisationLAAReferenceReceived", events[0])
		}
	})

	t.Run("lock carries onto an association made after it", func(t *testing.T) {
		agg := NewAggregate(nil)
		if _, err := agg.HandleDefendantDefenceAssociationLocked(defendantID, "1234567890"); err != nil {
			t.Fatalf("HandleDefendantDefenceAssociationLocked() error = %v", err)
		}

		// Nothing is active, so a new association is still possible; the
		// folded lock flag lands on it.
		events, err := agg.AssociateOrganisation(associateCommand(defendantID, shared.NewID(), "Org2"))
		if err != nil {
			t.Fatalf("AssociateOrganisation() error = %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("got %d events, want 1", len(events))
		}
		active, ok := agg.State().Active()
		if !ok || !active.LockedByRepOrder {
			t.Error("association made under a standing lock should carry the flag")
		}
	})
}
