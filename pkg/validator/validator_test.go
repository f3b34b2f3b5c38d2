package validator

import (
	"errors"
	"testing"
)

type associateRequest struct {
	DefendantID        string `validate:"required,case_uuid"`
	OrganisationID     string `validate:"required,case_uuid"`
	LAAContractNumber  string `validate:"omitempty,laa_contract_number"`
	RepresentationType string `validate:"required,representation_type"`
}

func validRequest() associateRequest {
	return associateRequest{
		DefendantID:        "7f8a1f7e-2d4b-4c1a-9a63-0a6f4f2f0c11",
		OrganisationID:     "3a9f0ef2-9b25-4a4f-8f27-6d2bb2b60f8e",
		LAAContractNumber:  "0X5001A",
		RepresentationType: "REPRESENTATION_ORDER",
	}
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	t.Run("valid request", func(t *testing.T) {
		if err := v.Validate(validRequest()); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("invalid uuid", func(t *testing.T) {
		req := validRequest()
		req.DefendantID = "not-a-uuid"
		assertFieldError(t, v.Validate(req), "defendant_id")
	})

	t.Run("lowercase contract number rejected", func(t *testing.T) {
		req := validRequest()
		req.LAAContractNumber = "0x5001a"
		assertFieldError(t, v.Validate(req), "laa_contract_number")
	})

	t.Run("empty contract number allowed", func(t *testing.T) {
		req := validRequest()
		req.LAAContractNumber = ""
		if err := v.Validate(req); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	t.Run("unknown representation type rejected", func(t *testing.T) {
		req := validRequest()
		req.RepresentationType = "PRO_BONO"
		assertFieldError(t, v.Validate(req), "representation_type")
	})

	t.Run("missing required fields", func(t *testing.T) {
		err := v.Validate(associateRequest{})
		var verrs ValidationErrors
		if !errors.As(err, &verrs) {
			t.Fatalf("Validate() error = %v, want ValidationErrors", err)
		}
		if len(verrs) != 3 {
			t.Errorf("got %d errors, want 3: %v", len(verrs), verrs)
		}
	})
}

func assertFieldError(t *testing.T, err error, field string) {
	t.Helper()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error = %v, want ValidationErrors", err)
	}
	for _, e := range verrs {
		if e.Field == field {
			return
		}
	}
	t.Errorf("no error for field %q in %v", field, verrs)
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct{ in, want string }{
		{"DefendantID", "defendant_id"},
		{"LAAContractNumber", "laa_contract_number"},
		{"RepresentationType", "representation_type"},
		{"UserID", "user_id"},
	}
	for _, tt := range tests {
		if got := toSnakeCase(tt.in); got != tt.want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
