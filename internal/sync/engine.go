// Package sync runs the two-phase refresh cycle: a local phase that
// reconciles the cache with observed git state, then a remote phase that
// fetches, recomputes default-branch divergence and queries the review
// platform. Both phases stream partial results as events instead of
// returning only on completion.
//
// Mutations race refreshes by design. Every path carries a generation
// counter: the engine captures the generation before computing a row and
// discards the result if a mutation bumped it in the meantime, so the
// most recent local observation always wins and stale data is never
// persisted.
package sync

import (
	"context"
	stdsync "sync"

	"github.com/raphi011/gw/internal/forge"
	"github.com/raphi011/gw/internal/git"
	"github.com/raphi011/gw/internal/store"
)

// Phase identifies which refresh phase produced an event.
type Phase int

const (
	PhaseLocal Phase = iota
	PhaseRemote
)

func (p Phase) String() string {
	if p == PhaseRemote {
		return "remote"
	}
	return "local"
}

// Event is a streamed partial refresh result. The concrete types below
// are the only implementations.
type Event interface{ isEvent() }

// RowLocal delivers freshly computed local fields for one path.
type RowLocal struct {
	Path     string
	Gen      uint64
	Detached bool
	Fields   store.LocalFields
}

// RowRemote delivers freshly computed remote fields for one path.
type RowRemote struct {
	Path   string
	Gen    uint64
	Fields store.RemoteFields
}

// RowGone reports a path the local phase no longer observes.
type RowGone struct {
	Path string
}

// PhaseDone marks the end of a phase. Err is set when the phase itself
// failed (e.g. worktree listing), never for per-row failures.
type PhaseDone struct {
	Phase Phase
	Err   error
}

// ForgeUnavailable reports, once per session, that review-platform
// lookups are degraded to unknown.
type ForgeUnavailable struct {
	Err error
}

func (RowLocal) isEvent()         {}
func (RowRemote) isEvent()        {}
func (RowGone) isEvent()          {}
func (PhaseDone) isEvent()        {}
func (ForgeUnavailable) isEvent() {}

// gitOps is the slice of the git interface the engine needs. Narrowed
// for tests; production wiring uses the real git package.
type gitOps interface {
	ListWorktrees(ctx context.Context) ([]git.Worktree, error)
	Upstream(ctx context.Context, branch string) (string, bool)
	CountAheadBehind(ctx context.Context, left, right string) git.AheadBehind
	DiffCounts(ctx context.Context, path string) git.DiffStat
	LastCommitTime(ctx context.Context, target string) int64
	FetchPrune(ctx context.Context)
	DefaultBranch(ctx context.Context) string
}

type realGit struct{ root string }

func (g realGit) ListWorktrees(ctx context.Context) ([]git.Worktree, error) {
	return git.ListWorktrees(ctx, g.root)
}
func (g realGit) Upstream(ctx context.Context, branch string) (string, bool) {
	return git.Upstream(ctx, g.root, branch)
}
func (g realGit) CountAheadBehind(ctx context.Context, left, right string) git.AheadBehind {
	return git.CountAheadBehind(ctx, g.root, left, right)
}
func (g realGit) DiffCounts(ctx context.Context, path string) git.DiffStat {
	return git.DiffCounts(ctx, path)
}
func (g realGit) LastCommitTime(ctx context.Context, target string) int64 {
	return git.LastCommitTime(ctx, g.root, target)
}
func (g realGit) FetchPrune(ctx context.Context) { git.FetchPrune(ctx, g.root) }
func (g realGit) DefaultBranch(ctx context.Context) string {
	return git.DefaultBranch(ctx, g.root)
}

// Engine drives refresh cycles for one repository.
type Engine struct {
	git           gitOps
	store         *store.Store
	forge         forge.Forge // nil disables review lookups
	defaultBranch string      // config override, empty = detect

	events chan Event

	mu            stdsync.Mutex
	gens          map[string]uint64
	forgeDown     bool
	forgeReported bool
}

// New creates an engine for the repository at root. A nil forge disables
// review-platform lookups.
func New(root string, st *store.Store, f forge.Forge, defaultBranch string) *Engine {
	return newEngine(realGit{root: root}, st, f, defaultBranch)
}

func newEngine(g gitOps, st *store.Store, f forge.Forge, defaultBranch string) *Engine {
	return &Engine{
		git:           g,
		store:         st,
		forge:         f,
		defaultBranch: defaultBranch,
		events:        make(chan Event, 64),
		gens:          map[string]uint64{},
	}
}

// Events is the stream the session drains. Events arrive in phase order
// within one cycle: local rows, local PhaseDone, remote rows, remote
// PhaseDone.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// Invalidate bumps a path's generation after a direct user mutation.
// In-flight refresh results captured before the bump are discarded, so
// the mutation's effect cannot be overwritten by stale data.
func (e *Engine) Invalidate(paths ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range paths {
		e.gens[p]++
	}
}

// Generation returns a path's current mutation generation. The session
// compares event generations against this to drop results that were
// still queued when a newer mutation landed.
func (e *Engine) Generation(path string) uint64 {
	return e.gen(path)
}

func (e *Engine) gen(path string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gens[path]
}

func (e *Engine) genCurrent(path string, gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gens[path] == gen
}

// Refresh runs one full cycle: local phase, then remote phase on the
// exact set of worktrees the local phase observed. Blocking; run it in
// its own goroutine and drain Events.
func (e *Engine) Refresh(ctx context.Context) {
	observed := e.localPhase(ctx, nil)
	e.remotePhase(ctx, observed)
}

// RefreshPaths recomputes local fields for specific paths only, typically
// right after a mutation. No removal scheduling, no remote phase.
func (e *Engine) RefreshPaths(ctx context.Context, paths ...string) {
	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		want[p] = true
	}
	e.localPhase(ctx, want)
}

// localPhase reconciles cache rows with observed worktrees. With a
// non-nil filter only matching paths are recomputed and removal is
// skipped. Returns the observed worktrees for the remote phase.
func (e *Engine) localPhase(ctx context.Context, filter map[string]bool) []git.Worktree {
	worktrees, err := e.git.ListWorktrees(ctx)
	if err != nil {
		e.emit(ctx, PhaseDone{Phase: PhaseLocal, Err: err})
		return nil
	}

	observed := make(map[string]bool, len(worktrees))
	for _, wt := range worktrees {
		observed[wt.Path] = true
		if filter != nil && !filter[wt.Path] {
			continue
		}
		e.refreshLocalRow(ctx, wt)
	}

	if filter == nil {
		e.removeStale(ctx, observed)
	} else {
		for p := range filter {
			if !observed[p] {
				if err := e.store.Remove(p); err == nil {
					e.emit(ctx, RowGone{Path: p})
				}
			}
		}
	}

	e.emit(ctx, PhaseDone{Phase: PhaseLocal})
	return worktrees
}

func (e *Engine) refreshLocalRow(ctx context.Context, wt git.Worktree) {
	gen := e.gen(wt.Path)

	target := wt.Branch
	if wt.Detached {
		target = wt.Head
	}
	fields := store.LocalFields{
		Branch:       wt.Branch,
		LastCommitTS: e.git.LastCommitTime(ctx, target),
	}
	if !wt.Detached {
		if upstream, ok := e.git.Upstream(ctx, wt.Branch); ok {
			ab := e.git.CountAheadBehind(ctx, upstream, wt.Branch)
			fields.Pull = ab.Ahead
			fields.Push = ab.Behind
		}
	}
	stat := e.git.DiffCounts(ctx, wt.Path)
	fields.Dirty = stat.Dirty
	fields.Added = stat.Added
	fields.Removed = stat.Removed

	// A mutation superseded this observation while we were computing.
	if !e.genCurrent(wt.Path, gen) {
		return
	}
	if err := e.store.UpsertLocal(wt.Path, fields); err != nil {
		return
	}
	e.emit(ctx, RowLocal{Path: wt.Path, Gen: gen, Detached: wt.Detached, Fields: fields})
}

func (e *Engine) removeStale(ctx context.Context, observed map[string]bool) {
	cached, err := e.store.Load()
	if err != nil {
		return
	}
	for _, row := range cached {
		if observed[row.Path] {
			continue
		}
		if err := e.store.Remove(row.Path); err != nil {
			continue
		}
		e.emit(ctx, RowGone{Path: row.Path})
	}
}

// remotePhase fetches, then recomputes divergence and review state per
// observed worktree. Operates on the worktree set the local phase of the
// same cycle produced, never on a stale listing.
func (e *Engine) remotePhase(ctx context.Context, worktrees []git.Worktree) {
	e.git.FetchPrune(ctx)

	defaultBranch := e.defaultBranch
	if defaultBranch == "" {
		defaultBranch = e.git.DefaultBranch(ctx)
	}

	f := e.checkForge(ctx)

	for _, wt := range worktrees {
		if wt.Detached {
			continue
		}
		gen := e.gen(wt.Path)

		ab := e.git.CountAheadBehind(ctx, wt.Branch, defaultBranch)
		fields := store.RemoteFields{Ahead: ab.Ahead, Behind: ab.Behind}

		if f != nil {
			// A single branch's lookup failure degrades that branch to
			// unknown review fields; it never aborts the phase.
			if pr, err := f.PullRequestFor(ctx, wt.Branch); err == nil && pr != nil {
				fields.PRNumber = &pr.Number
				if pr.TargetBranch != "" {
					target := pr.TargetBranch
					fields.PRTargetBranch = &target
				}
				fields.PRMerged = pr.Merged
				if pr.Merged {
					_, hasUpstream := e.git.Upstream(ctx, wt.Branch)
					fields.PRUpstreamDeleted = !hasUpstream
				}
				if checks, err := f.ChecksFor(ctx, pr.Number); err == nil && checks != nil {
					fields.ChecksPassed = &checks.Passed
					fields.ChecksTotal = &checks.Total
					fields.ChecksPending = checks.Pending
				}
			}
		}

		if !e.genCurrent(wt.Path, gen) {
			continue
		}
		if err := e.store.UpsertRemote(wt.Path, fields); err != nil {
			continue
		}
		e.emit(ctx, RowRemote{Path: wt.Path, Gen: gen, Fields: fields})
	}

	e.emit(ctx, PhaseDone{Phase: PhaseRemote})
}

// checkForge verifies the review platform once per session. On failure
// it reports ForgeUnavailable a single time and disables lookups.
func (e *Engine) checkForge(ctx context.Context) forge.Forge {
	if e.forge == nil {
		return nil
	}

	e.mu.Lock()
	down, reported := e.forgeDown, e.forgeReported
	e.mu.Unlock()
	if down {
		return nil
	}
	if reported {
		return e.forge
	}

	err := e.forge.Check(ctx)

	e.mu.Lock()
	e.forgeReported = true
	e.forgeDown = err != nil
	e.mu.Unlock()

	if err != nil {
		e.emit(ctx, ForgeUnavailable{Err: err})
		return nil
	}
	return e.forge
}

func (e *Engine) emit(ctx context.Context, ev Event) {
	select {
	case e.events <- ev:
	case <-ctx.Done():
	}
}
