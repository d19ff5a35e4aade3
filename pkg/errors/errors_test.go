package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeStateConflict, "contract already signed")
	outer := fmt.Errorf("sign contract: %w", inner)
	if !IsCode(outer, CodeStateConflict) {
		t.Fatalf("expected IsCode to find wrapped state conflict")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatalf("unexpected match for not found")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestFieldErrorsCarriesDetails(t *testing.T) {
	err := FieldErrors("invalid business info", map[string]string{"businessNumber": "invalid format"})
	if err.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", err.Code())
	}
	details, ok := err.Details().(map[string]string)
	if !ok || details["businessNumber"] != "invalid format" {
		t.Fatalf("unexpected details %#v", err.Details())
	}
	if FieldErrors("empty", nil).Details() != nil {
		t.Fatalf("expected nil details for empty field map")
	}
}

func TestPublicMessageHidesServerFailures(t *testing.T) {
	if got := New(CodeConflict, "email already registered").PublicMessage(); got != "email already registered" {
		t.Fatalf("conflict message should be exposed, got %q", got)
	}
	if got := Wrap(CodeInternal, stdErrors.New("dial tcp"), "load contract").PublicMessage(); got != "internal server error" {
		t.Fatalf("internal message leaked: %q", got)
	}
	if got := New(CodeValidation, "").PublicMessage(); got != "validation failed" {
		t.Fatalf("empty message should fall back, got %q", got)
	}
	if New(CodeForbidden, "no").WithDetails("x").PublicDetails() != nil {
		t.Fatalf("forbidden details must not be exposed")
	}
}

func TestLogFieldsExtractsPostgres(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "signatures_contract_id_key", TableName: "signatures", Message: "duplicate key"}
	err := Wrap(CodeStateConflict, pgErr, "store signature")

	fields := LogFields(err)
	if fields["error_code"] != CodeStateConflict {
		t.Fatalf("expected state conflict code, got %v", fields["error_code"])
	}
	if fields["pg_code"] != "23505" || fields["pg_constraint"] != "signatures_contract_id_key" || fields["pg_table"] != "signatures" {
		t.Fatalf("unexpected pg fields %#v", fields)
	}
	if chain, _ := fields["error_chain"].([]string); len(chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", fields["error_chain"])
	}

	pg, ok := Postgres(&pq.Error{Code: "23503", Constraint: "contracts_created_by_fkey"})
	if !ok || pg.Code != "23503" || pg.Constraint != "contracts_created_by_fkey" {
		t.Fatalf("unexpected pq extraction %#v", pg)
	}
	if _, ok := Postgres(stdErrors.New("plain")); ok {
		t.Fatalf("plain error is not a postgres error")
	}
}
