package format

import (
	"testing"
	"time"

	"github.com/raphi011/gw/internal/store"
)

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func TestRelativeTime(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	tests := []struct {
		ts   int64
		want string
	}{
		{0, "unknown"},
		{-5, "unknown"},
		{now.Unix() - 30, "30s ago"},
		{now.Unix() - 90, "1m ago"},
		{now.Unix() - 2*3600, "2h ago"},
		{now.Unix() - 3*86_400, "3d ago"},
		{now.Unix() - 2*604_800, "2w ago"},
		{now.Unix() - 3*2_629_800, "3mo ago"},
		{now.Unix() + 100, "0s ago"}, // clock skew clamps to now
	}
	for _, tt := range tests {
		if got := RelativeTime(now, tt.ts); got != tt.want {
			t.Errorf("RelativeTime(%d) = %q, want %q", tt.ts, got, tt.want)
		}
	}
}

func TestPullPush(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		row  store.Row
		want string
	}{
		{"in sync", store.Row{}, ""},
		{"diverged", store.Row{Pull: 2, Push: 1}, "2↓ 1↑"},
		{"dirty only", store.Row{Dirty: true}, "(dirty)"},
		{"diverged and dirty", store.Row{Pull: 1, Dirty: true}, "1↓ 0↑ (dirty)"},
		{"merged remote gone", store.Row{PRMerged: true, PRUpstreamDeleted: true}, "merged (remote deleted)"},
		{"merged but remote kept", store.Row{PRMerged: true, Push: 1}, "0↓ 1↑"},
	}
	for _, tt := range tests {
		if got := PullPush(tt.row); got != tt.want {
			t.Errorf("%s: PullPush = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestPR(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		row  store.Row
		want string
	}{
		{"no pr", store.Row{}, ""},
		{"open default target", store.Row{PRNumber: intp(12), PRTargetBranch: strp("main")}, "#12"},
		{"open custom target", store.Row{PRNumber: intp(12), PRTargetBranch: strp("develop")}, "#12 -> develop"},
		{"merged", store.Row{PRNumber: intp(7), PRMerged: true}, "#7 merged"},
		{"merged remote gone", store.Row{PRNumber: intp(7), PRMerged: true, PRUpstreamDeleted: true}, "#7 merged (remote deleted)"},
	}
	for _, tt := range tests {
		if got := PR(tt.row, "main"); got != tt.want {
			t.Errorf("%s: PR = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestChecks(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		row  store.Row
		want string
	}{
		{"unknown", store.Row{}, ""},
		{"all done", store.Row{ChecksPassed: intp(5), ChecksTotal: intp(5)}, "5/5"},
		{"failing", store.Row{ChecksPassed: intp(3), ChecksTotal: intp(5)}, "3/5"},
		{"pending", store.Row{ChecksPassed: intp(1), ChecksTotal: intp(4), ChecksPending: true}, "1/4…"},
	}
	for _, tt := range tests {
		if got := Checks(tt.row); got != tt.want {
			t.Errorf("%s: Checks = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestBehindAhead(t *testing.T) {
	t.Parallel()
	if got := BehindAhead(store.Row{Behind: 3, Ahead: 1}); got != "3|1" {
		t.Errorf("BehindAhead = %q, want 3|1", got)
	}
}

func TestChanges(t *testing.T) {
	t.Parallel()
	if got := Changes(store.Row{Added: 10, Removed: 2}); got != "+10 -2" {
		t.Errorf("Changes = %q, want +10 -2", got)
	}
}
