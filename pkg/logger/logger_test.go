package logger

import (
	"context"
	"strings"
	"testing"

	"github.com/theory-cloud/bulktransition/pkg/observability"
)

func TestLogger_DefaultIsNoOp(t *testing.T) {
	got := Logger()
	if got == nil {
		t.Fatal("expected Logger() to return a non-nil logger")
	}
	if err := got.Flush(context.Background()); err != nil {
		t.Fatalf("expected no-op flush, got %v", err)
	}
}

func TestLogger_SetLogger(t *testing.T) {
	stub := observability.NewTestLogger()
	SetLogger(stub)
	t.Cleanup(func() { SetLogger(nil) })
	if Logger() != stub {
		t.Fatal("expected Logger() to return the logger set via SetLogger")
	}

	ForService("payments").Info("scoped")
	entries := stub.Entries()
	if len(entries) != 1 || entries[0].Service != "payments" {
		t.Fatalf("expected service-scoped entry, got %#v", entries)
	}

	SetLogger(nil)
	if Logger() == nil {
		t.Fatal("expected Logger() to reset to a non-nil logger")
	}
	if Logger() == observability.StructuredLogger(stub) {
		t.Fatal("expected Logger() to reset away from the previous logger")
	}
}

func TestSanitizeJSON(t *testing.T) {
	if got := SanitizeJSON([]byte(`{"password":"x"}`)); got != `{"password":"[REDACTED]"}` {
		t.Fatalf("unexpected %q", got)
	}
	if got := SanitizeJSON([]byte("not json")); !strings.HasPrefix(got, "(malformed JSON") {
		t.Fatalf("unexpected %q", got)
	}
}
