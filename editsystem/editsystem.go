// Package editsystem implements the linear, fully undo/redo/jump
// capable edit history that sits on top of a graph.Graph: a staging
// graph for work in progress, a stable history of committed Edits,
// checkpoints, nesting-aware transactions, and event publication.
//
// # ELI12
//
// Think of it like a stack of photographs of your desk, one per change
// you commit. The stack never throws a photo away on its own — undo
// just points your finger at an earlier photo, redo points it forward
// again. Taking a brand-new photo after pointing backward tears up
// every photo after the one you're pointing at, the way a redo branch
// is discarded once you commit fresh work.
//
// This mirrors the teacher's pkg/storage/transaction.go buffer-then-
// commit design one level up: where a storage.Transaction buffers
// node/edge operations until Commit applies them, EditSystem buffers
// a whole Graph's worth of staged mutation until commit() appends it
// to history.
package editsystem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/osmgraph/core/config"
	"github.com/osmgraph/core/difference"
	"github.com/osmgraph/core/entity"
	"github.com/osmgraph/core/graph"
	"github.com/osmgraph/core/internal/obslog"
)

// Errors mirrors the spec's error taxonomy for EditSystem-level failures.
var (
	ErrUnsupportedVersion = errors.New("editsystem: unsupported history version")
	ErrTransactionMisuse  = errors.New("editsystem: commitAppend on the base edit")
)

// Edit is one entry of the history: a graph snapshot plus the
// bookkeeping needed to render an undo/redo annotation and to persist
// imagery provenance.
type Edit struct {
	Graph       *graph.Graph
	Annotation  string
	SelectedIDs []entity.ID
	SourcesUsed []string
	Transient   bool
}

func (e Edit) hasAnnotation() bool { return e.Annotation != "" }

// CommitOptions carries the optional annotation/selection/imagery
// metadata a caller attaches when appending a new stable Edit.
type CommitOptions struct {
	Annotation  string
	SelectedIDs []entity.ID
	SourcesUsed []string
	Transient   bool
}

// EventKind discriminates the five events EditSystem publishes.
type EventKind int

const (
	EventStagingChange EventKind = iota
	EventStableChange
	EventHistoryJump
	EventMerge
	EventBackupStatusChange
)

// Event is the payload delivered to a Listener. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind        EventKind
	Diff        *difference.Difference // staging/stable change
	FromIndex   int                     // history jump
	ToIndex     int                     // history jump
	MergedIDs   map[entity.ID]struct{}  // merge
	BackupClean bool                    // backup status change
}

// Listener receives EditSystem events synchronously, in emission order.
type Listener func(Event)

// System is the edit history: a linear stack of Edits, a staging graph
// sitting at the current index with possible work in progress, named
// checkpoints, and nesting-aware transaction support.
type System struct {
	history []Edit
	index   int
	staging Edit

	checkpoints map[string]checkpoint

	txDepth     int
	txEntryDiff *graph.Graph // stable.graph snapshot when the outermost transaction began

	checkpointOrder []string // insertion order, oldest first; drives maxCheckpoints eviction
	maxCheckpoints  int

	listeners []Listener
	ids       *idAllocator
	log       *obslog.Logger

	transitionSteps    int
	transitionInterval time.Duration
}

type checkpoint struct {
	history []Edit
	index   int
}

// New constructs a fresh System: history[0] is the locked base edit
// with an empty graph (H1), index 0, staging derived fresh from it.
func New() *System {
	base := graph.NewBase()
	baseEdit := Edit{Graph: base}
	hist := config.LoadFromEnv().History
	s := &System{
		history:            []Edit{baseEdit},
		index:              0,
		checkpoints:        map[string]checkpoint{},
		ids:                newIDAllocator(),
		log:                obslog.Default(),
		maxCheckpoints:     hist.MaxCheckpoints,
		transitionSteps:    hist.TransitionSteps,
		transitionInterval: hist.TransitionInterval,
	}
	s.staging = Edit{Graph: base.Derive()}
	return s
}

// SetLogger replaces the System's logger, e.g. to route into an
// application's own obslog.Logger instance instead of the default.
func (s *System) SetLogger(l *obslog.Logger) { s.log = l }

// SetTransitionSchedule overrides the frame count/spacing PerformAsync
// divides a Transitionable action's animation into. Both default from
// config.HistoryConfig (TransitionSteps/TransitionInterval).
func (s *System) SetTransitionSchedule(steps int, interval time.Duration) {
	s.transitionSteps = steps
	s.transitionInterval = interval
}

// NextID allocates the next not-yet-uploaded id for kind.
func (s *System) NextID(kind IDKind) string { return s.ids.Next(kind) }

// Listen registers a listener for every event the system emits.
func (s *System) Listen(l Listener) { s.listeners = append(s.listeners, l) }

func (s *System) emit(ev Event) {
	if s.txDepth > 0 {
		return // coalesced; endTransaction emits the accumulated pair
	}
	for _, l := range s.listeners {
		l(ev)
	}
}

func (s *System) stable() Edit { return s.history[s.index] }

// HasWorkInProgress is H5: staging differs from stable. Staging is
// always derived from stable at stable's version, and every mutation
// bumps the version, so a version difference marks staged work.
func (s *System) HasWorkInProgress() bool {
	return s.staging.Graph.Version() != s.stable().Graph.Version()
}

// StagingGraph returns the current work-in-progress graph.
func (s *System) StagingGraph() *graph.Graph { return s.staging.Graph }

// StableGraph returns the immutable graph at the current history index.
func (s *System) StableGraph() *graph.Graph { return s.stable().Graph }

// Index returns the current stable history index.
func (s *System) Index() int { return s.index }

// Perform applies actions left-to-right to the staging graph.
// Transitionable actions are run at their terminal state, t=1. Returns
// a Difference against the staging graph's prior state and emits
// stagingchange unless inside a transaction.
func (s *System) Perform(actions ...Action) (*difference.Difference, error) {
	prev := s.staging.Graph
	cur := prev
	for _, a := range actions {
		next, err := a.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("perform: %w", err)
		}
		cur = next
	}
	s.staging.Graph = cur
	diff := difference.Compute(prev, cur)
	s.emit(Event{Kind: EventStagingChange, Diff: diff})
	return diff, nil
}

// Action is the minimal surface Perform needs from an actions.Action,
// kept narrow here to avoid editsystem depending on the actions
// package's full Disabled/Transitionable machinery.
type Action interface {
	Apply(g *graph.Graph) (*graph.Graph, error)
}

// TransitionableAction is the minimal surface PerformAsync needs from
// an actions.Transitionable, mirroring Action above.
type TransitionableAction interface {
	Action
	ApplyAt(g *graph.Graph, t float64) (*graph.Graph, error)
}

// PerformAsync drives a Transitionable action's t from 0 to 1 across
// System's configured transition schedule (config.HistoryConfig's
// TransitionSteps/TransitionInterval, overridable via
// SetTransitionSchedule), staging one interpolated frame per step and
// emitting stagingchange for each. ctx cancellation stops the schedule
// after its current frame: the staging graph is left wherever that
// frame put it, uncommitted, and ctx.Err() is returned alongside the
// diff for that last-applied frame.
func (s *System) PerformAsync(ctx context.Context, action TransitionableAction) (*difference.Difference, error) {
	steps := s.transitionSteps
	if steps <= 0 {
		steps = 1
	}
	prev := s.staging.Graph
	var diff *difference.Difference
	for step := 1; step <= steps; step++ {
		select {
		case <-ctx.Done():
			return diff, ctx.Err()
		default:
		}

		t := float64(step) / float64(steps)
		next, err := action.ApplyAt(prev, t)
		if err != nil {
			return nil, fmt.Errorf("performAsync: %w", err)
		}
		s.staging.Graph = next
		diff = difference.Compute(prev, next)
		s.emit(Event{Kind: EventStagingChange, Diff: diff})

		if step < steps && s.transitionInterval > 0 {
			select {
			case <-ctx.Done():
				return diff, ctx.Err()
			case <-time.After(s.transitionInterval):
			}
		}
	}
	return diff, nil
}

// Revert discards staged work: replaces staging with a fresh
// derivation of stable. Emits stagingchange only if there was work in
// progress to discard.
func (s *System) Revert() {
	if !s.HasWorkInProgress() {
		return
	}
	prev := s.staging.Graph
	fresh := s.stable().Graph.Derive()
	s.staging = Edit{Graph: fresh}
	s.emit(Event{Kind: EventStagingChange, Diff: difference.Compute(prev, fresh)})
}

// Commit appends a new Edit at index+1, truncating any redo tail, and
// advances index. Emits stagingchange then stablechange.
func (s *System) Commit(opts CommitOptions) {
	prevStaging := s.staging.Graph
	prevStable := s.stable().Graph

	edit := Edit{
		Graph:       s.staging.Graph,
		Annotation:  opts.Annotation,
		SelectedIDs: opts.SelectedIDs,
		SourcesUsed: opts.SourcesUsed,
		Transient:   opts.Transient,
	}
	s.history = append(s.history[:s.index+1], edit)
	s.index++
	s.staging = Edit{Graph: s.history[s.index].Graph.Derive()}

	s.log.Infof("commit at index %d: %q", s.index, opts.Annotation)
	s.emit(Event{Kind: EventStagingChange, Diff: difference.Compute(prevStaging, edit.Graph)})
	s.emit(Event{Kind: EventStableChange, Diff: difference.Compute(prevStable, s.stable().Graph)})
}

// CommitAppend replaces the Edit at the current index in place: same
// effect as Commit but no index advance, no redo truncation. Fails
// with ErrTransactionMisuse if index is 0 (the base edit).
func (s *System) CommitAppend(opts CommitOptions) error {
	if s.index == 0 {
		return ErrTransactionMisuse
	}
	prevStaging := s.staging.Graph
	prevStable := s.stable().Graph
	s.history[s.index] = Edit{
		Graph:       s.staging.Graph,
		Annotation:  opts.Annotation,
		SelectedIDs: opts.SelectedIDs,
		SourcesUsed: opts.SourcesUsed,
		Transient:   opts.Transient,
	}
	s.staging = Edit{Graph: s.history[s.index].Graph.Derive()}
	s.emit(Event{Kind: EventStagingChange, Diff: difference.Compute(prevStaging, s.stable().Graph)})
	s.emit(Event{Kind: EventStableChange, Diff: difference.Compute(prevStable, s.stable().Graph)})
	return nil
}

// Undo moves index back to the nearest prior Edit carrying a
// non-empty annotation, no-op at the history's start.
func (s *System) Undo() { s.jump(-1) }

// Redo moves index forward to the nearest following Edit carrying a
// non-empty annotation, no-op at the history's end.
func (s *System) Redo() { s.jump(1) }

func (s *System) jump(dir int) {
	target := s.nextAnnotated(dir)
	if target == s.index {
		return
	}
	prevStaging := s.staging.Graph
	prevStable := s.stable().Graph
	fromIndex := s.index
	s.index = target
	s.staging = Edit{Graph: s.stable().Graph.Derive()}

	s.log.Debugf("history jump %d -> %d (dir %d)", fromIndex, s.index, dir)
	s.emit(Event{Kind: EventStagingChange, Diff: difference.Compute(prevStaging, s.staging.Graph)})
	s.emit(Event{Kind: EventStableChange, Diff: difference.Compute(prevStable, s.stable().Graph)})
	s.emit(Event{Kind: EventHistoryJump, FromIndex: fromIndex, ToIndex: s.index})
}

func (s *System) nextAnnotated(dir int) int {
	i := s.index
	for {
		i += dir
		if i < 0 || i >= len(s.history) {
			return s.index
		}
		if i == 0 || s.history[i].hasAnnotation() {
			return i
		}
	}
}

// UndoAnnotation returns the annotation of the current edit, the one
// Undo would step back over, or "" at the history's start.
func (s *System) UndoAnnotation() string {
	i := s.nextAnnotated(-1)
	if i == s.index {
		return ""
	}
	return s.history[s.index].Annotation
}

// RedoAnnotation returns the annotation that Redo would move to, or ""
// at the history's end.
func (s *System) RedoAnnotation() string {
	i := s.nextAnnotated(1)
	if i == s.index {
		return ""
	}
	return s.history[i].Annotation
}

// SetMaxCheckpoints overrides how many named checkpoints SetCheckpoint
// retains before evicting the oldest. Defaults from
// config.HistoryConfig.MaxCheckpoints; 0 means unlimited.
func (s *System) SetMaxCheckpoints(n int) { s.maxCheckpoints = n }

// SetCheckpoint snapshots the (history, index) pair under id. The
// history slice is copied so later truncation by Commit cannot
// corrupt a stored checkpoint. If id was already set, it is refreshed
// in place without affecting eviction order; otherwise, once more than
// maxCheckpoints (if positive) are held, the oldest is evicted.
func (s *System) SetCheckpoint(id string) {
	cp := checkpoint{history: append([]Edit(nil), s.history...), index: s.index}
	if _, exists := s.checkpoints[id]; !exists {
		s.checkpointOrder = append(s.checkpointOrder, id)
	}
	s.checkpoints[id] = cp
	s.log.Infof("checkpoint %q set at index %d", id, s.index)

	if s.maxCheckpoints > 0 {
		for len(s.checkpointOrder) > s.maxCheckpoints {
			oldest := s.checkpointOrder[0]
			s.checkpointOrder = s.checkpointOrder[1:]
			delete(s.checkpoints, oldest)
			s.log.Infof("checkpoint %q evicted: exceeds max_checkpoints=%d", oldest, s.maxCheckpoints)
		}
	}
}

// RestoreCheckpoint restores a previously set (history, index) pair,
// emitting stagingchange, stablechange, and historyjump. An unknown id
// is a silent no-op.
func (s *System) RestoreCheckpoint(id string) {
	cp, ok := s.checkpoints[id]
	if !ok {
		s.log.Warnf("restore checkpoint %q: no such checkpoint", id)
		return
	}
	prevStaging := s.staging.Graph
	prevStable := s.stable().Graph
	fromIndex := s.index

	s.history = append([]Edit(nil), cp.history...)
	s.index = cp.index
	s.staging = Edit{Graph: s.stable().Graph.Derive()}

	s.emit(Event{Kind: EventStagingChange, Diff: difference.Compute(prevStaging, s.staging.Graph)})
	s.emit(Event{Kind: EventStableChange, Diff: difference.Compute(prevStable, s.stable().Graph)})
	s.emit(Event{Kind: EventHistoryJump, FromIndex: fromIndex, ToIndex: s.index})
}

// BeginTransaction increments the nesting depth. Only the outermost
// begin/end pair has effect: staging/stable events raised while
// txDepth > 0 are suppressed until EndTransaction, which emits the
// single coalesced pair spanning entry to exit.
func (s *System) BeginTransaction() {
	if s.txDepth == 0 {
		s.txEntryDiff = s.stable().Graph
	}
	s.txDepth++
}

// EndTransaction decrements the nesting depth; a call with no matching
// BeginTransaction is a silent no-op (TransactionMisuse is never
// raised for this case, per the spec's propagation policy).
func (s *System) EndTransaction() {
	if s.txDepth == 0 {
		return
	}
	s.txDepth--
	if s.txDepth > 0 {
		return
	}
	entry := s.txEntryDiff
	s.txEntryDiff = nil
	s.emit(Event{Kind: EventStagingChange, Diff: difference.Compute(entry, s.staging.Graph)})
	s.emit(Event{Kind: EventStableChange, Diff: difference.Compute(entry, s.stable().Graph)})
}

// Merge rebases entities into the base edit's graph across the full
// stack of graphs on the history (every Edit's Graph, plus staging),
// and emits merge(idSet).
func (s *System) Merge(incoming []graph.Incoming, force bool) map[entity.ID]struct{} {
	stack := make([]*graph.Graph, 0, len(s.history)+1)
	for _, e := range s.history {
		stack = append(stack, e.Graph)
	}
	stack = append(stack, s.staging.Graph)

	newIDs := graph.Rebase(incoming, stack, force)
	s.emit(Event{Kind: EventMerge, MergedIDs: newIDs})
	return newIDs
}

// NewCheckpointID generates a fresh, collision-free checkpoint
// identifier for callers that don't supply their own.
func NewCheckpointID() string {
	return uuid.NewString()
}
