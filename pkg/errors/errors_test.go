package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
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
		{code: CodeNonServiceable, status: http.StatusUnprocessableEntity, publicMsg: "delivery not available for this postal code", detailsOK: true},
		{code: CodeInsufficientFunds, status: http.StatusUnprocessableEntity, publicMsg: "insufficient funds", detailsOK: true},
		{code: CodeRateLimit, status: http.StatusTooManyRequests, publicMsg: "too many attempts", retryable: true, detailsOK: true},
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

func TestConflictCarriesReasonAndExtras(t *testing.T) {
	err := Conflict(ReasonAmountMismatch, "amount mismatch", map[string]any{"expected_paise": int64(50000)})
	if err.Code() != CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", err.Code())
	}
	if got := ReasonOf(err); got != ReasonAmountMismatch {
		t.Fatalf("unexpected reason %q", got)
	}
	details := err.Details().(map[string]any)
	if details["expected_paise"] != int64(50000) {
		t.Fatalf("extra detail dropped: %v", details)
	}
	if !IsCode(err, CodeStateConflict) || IsCode(err, CodeValidation) {
		t.Fatalf("IsCode mismatch")
	}
	if ReasonOf(stdErrors.New("plain")) != "" {
		t.Fatalf("plain errors carry no reason")
	}
}

func TestDumpNamesTheMoneyGuard(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		ConstraintName: "ux_driver_earnings_order_type",
		TableName:      "driver_earnings",
		Message:        "duplicate key value violates unique constraint",
	}
	d := Dump(Wrap(CodeDependency, pgErr, "create driver earning"))
	if d.Code != CodeDependency || !d.Retryable {
		t.Fatalf("unexpected code %s retryable=%v", d.Code, d.Retryable)
	}
	if d.PGCode != "23505" || d.PGTable != "driver_earnings" {
		t.Fatalf("postgres fields not copied: %+v", d)
	}
	if d.MoneyGuard != "driver earning already recorded for order" {
		t.Fatalf("unexpected money guard %q", d.MoneyGuard)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected typed error and cause in chain, got %v", d.Chain)
	}
}

func TestDumpCarriesReasonAndPaise(t *testing.T) {
	err := Conflict(ReasonAmountMismatch, "collected cash does not match", map[string]any{
		"expected_paise": int64(85000),
		"received_paise": 80000,
		"expected":       "₹850.00",
	})
	d := Dump(err)
	if d.Reason != ReasonAmountMismatch {
		t.Fatalf("unexpected reason %q", d.Reason)
	}
	if d.Amounts["expected_paise"] != 85000 || d.Amounts["received_paise"] != 80000 || len(d.Amounts) != 2 {
		t.Fatalf("unexpected amounts %v", d.Amounts)
	}
	if d.MoneyGuard != "" || d.PGCode != "" {
		t.Fatalf("plain conflicts carry no postgres fields: %+v", d)
	}
	if Dump(nil).TopMessage != "" {
		t.Fatalf("nil dumps empty")
	}
}
