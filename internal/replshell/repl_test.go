package replshell

import (
	"strings"
	"testing"

	"ion/internal/boot"
)

func TestShellEvaluatesArithmeticLine(t *testing.T) {
	in := strings.NewReader("1 + 2 + 3\nexit\n")
	var out strings.Builder
	New(boot.Default(), in, &out).Run()

	if !strings.Contains(out.String(), "6") {
		t.Fatalf("output = %q, want it to contain \"6\"", out.String())
	}
}

func TestShellReportsSyntaxErrorsWithoutCrashing(t *testing.T) {
	in := strings.NewReader("[1 2\nexit\n")
	var out strings.Builder
	New(boot.Default(), in, &out).Run()

	if !strings.Contains(out.String(), "syntax error") {
		t.Fatalf("output = %q, want a syntax error message", out.String())
	}
}
