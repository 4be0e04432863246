package validators

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/sitecompliance-backend/pkg/errors"
)

type sampleBody struct {
	Name      string `json:"name" validate:"required,max=8"`
	Frequency string `json:"frequency" validate:"omitempty,oneof=monthly annual"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"frequency":"weekly"}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	if details["name"] != "is required" {
		t.Fatalf("unexpected name detail %q", details["name"])
	}
	if !strings.HasPrefix(details["frequency"], "must be one of") {
		t.Fatalf("unexpected frequency detail %q", details["frequency"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("due_date", "2024-06-30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Equal(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", got)
	}

	got, err = ParseDate("due_date", "2024-06-30T10:00:00-03:00")
	if err != nil {
		t.Fatalf("parse rfc3339: %v", err)
	}
	if got.UTC().Hour() != 13 {
		t.Fatalf("unexpected instant %v", got.UTC())
	}

	if got, err := ParseDate("due_date", " "); err != nil || got != nil {
		t.Fatalf("expected nil for empty value, got %v %v", got, err)
	}
	if _, err := ParseDate("due_date", "30/06/2024"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?days=45&project_id=bad", nil)

	days, err := ParseQueryOptionalInt(req, "days", 0, 3650)
	if err != nil || days == nil || *days != 45 {
		t.Fatalf("unexpected days %v %v", days, err)
	}
	missing, err := ParseQueryOptionalInt(req, "limit", 0, 100)
	if err != nil || missing != nil {
		t.Fatalf("expected nil limit, got %v %v", missing, err)
	}
	if _, err := ParseQueryUUID(req, "project_id"); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := ParseQueryInt(req, "days", 0, 0, 30); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestSanitizeStringTrimsAndCaps(t *testing.T) {
	if got := SanitizeString("  LO-123  ", 0); got != "LO-123" {
		t.Fatalf("unexpected trim %q", got)
	}
	if got := SanitizeString("abcdef", 3); got != "abc" {
		t.Fatalf("unexpected cap %q", got)
	}
	// "São" is 4 bytes; a 2-byte cap must not split the ã
	if got := SanitizeString("São Paulo", 2); got != "S" {
		t.Fatalf("expected rune-safe cut, got %q", got)
	}
}
