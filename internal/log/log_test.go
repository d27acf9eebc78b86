package log

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestFromContext_NoLogger(t *testing.T) {
	t.Parallel()
	l := FromContext(context.Background())
	if l == nil {
		t.Fatal("FromContext returned nil")
	}
	// Must not panic when writing to the no-op logger.
	l.Printf("hello %s", "world")
	l.Command("git", "status")
}

func TestFromContext_RoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, false, false))
	FromContext(ctx).Printf("hello %d", 42)
	if got := buf.String(); got != "hello 42" {
		t.Errorf("Printf output = %q, want %q", got, "hello 42")
	}
}

func TestCommand_VerboseOnly(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	New(&buf, false, false).Command("git", "fetch", "origin")
	if buf.Len() != 0 {
		t.Errorf("Command with verbose=false wrote %q, want nothing", buf.String())
	}

	New(&buf, true, false).Command("git", "fetch", "origin")
	want := "$ git fetch origin\n"
	if got := buf.String(); got != want {
		t.Errorf("Command output = %q, want %q", got, want)
	}
}

func TestQuiet_SuppressesInfo(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l := New(&buf, false, true)
	l.Printf("info\n")
	l.Println("more info")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q, want nothing", buf.String())
	}
}

func TestQuiet_KeepsWarnings(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	New(&buf, false, true).Warnf("refresh failed: %s\n", "timeout")
	if !strings.Contains(buf.String(), "warning: refresh failed: timeout") {
		t.Errorf("Warnf output = %q, want warning text", buf.String())
	}
}
