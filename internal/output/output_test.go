package output

import (
	"bytes"
	"context"
	"testing"
)

func TestFromContext_Default(t *testing.T) {
	t.Parallel()
	p := FromContext(context.Background())
	if p == nil {
		t.Fatal("FromContext returned nil")
	}
}

func TestFromContext_RoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := WithPrinter(context.Background(), &buf)
	FromContext(ctx).Printf("%s\t%d\n", "feature-x", 3)
	if got := buf.String(); got != "feature-x\t3\n" {
		t.Errorf("Printf output = %q, want %q", got, "feature-x\t3\n")
	}
}

func TestPrintln(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	New(&buf).Println("ok")
	if got := buf.String(); got != "ok\n" {
		t.Errorf("Println output = %q, want %q", got, "ok\n")
	}
}
