package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mkarlsen/switchboard/internal/bundle"
	"github.com/mkarlsen/switchboard/internal/classifier"
	"github.com/mkarlsen/switchboard/internal/config"
	"github.com/mkarlsen/switchboard/internal/correlation"
	"github.com/mkarlsen/switchboard/internal/state"
	"github.com/mkarlsen/switchboard/pkg/models"
)

// Synthesizer receives the final accumulated bundle and every merged
// finding once a session completes. Its output is opaque to the dispatcher.
type Synthesizer interface {
	Synthesize(ctx context.Context, correlationID string, b models.ContextBundle, findings []models.Finding) error
}

// Outcome is the user-visible result of one dispatch session.
type Outcome struct {
	// CorrelationID identifies the session.
	CorrelationID string
	// Decision is the plan that was executed.
	Decision models.DispatchDecision
	// Status is complete, partial, or failed.
	Status models.DispatchStatus
	// Degraded lists specialists that contributed nothing, with reasons.
	// Empty for complete outcomes.
	Degraded []models.DegradedSpecialist
	// Findings are all merged findings in specialist-id order.
	Findings []models.Finding
	// Bundle is the final accumulated context.
	Bundle models.ContextBundle
	// Preservation is the context preservation metric for the session.
	Preservation float64
	// Session is the archived session record, event log included.
	Session models.CorrelationSession
}

// Runner executes dispatch decisions: it opens the session, fans batches
// out to specialist handlers, merges their findings, updates pattern
// confidence from the per-specialist outcomes, and archives the session.
type Runner struct {
	registry    *Registry
	selector    *Selector
	classifier  *classifier.Classifier
	generator   *correlation.Generator
	accumulator *bundle.Accumulator
	store       state.Store
	emitter     *EventEmitter
	synthesizer Synthesizer
	timeout     time.Duration
	concurrency int

	// now and newID are injectable for deterministic tests.
	now   func() time.Time
	newID func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore enables session archival and history loading.
func WithStore(s state.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithEmitter installs an event emitter for progress events.
func WithEmitter(e *EventEmitter) Option {
	return func(r *Runner) { r.emitter = e }
}

// WithSynthesizer installs the synthesis collaborator.
func WithSynthesizer(s Synthesizer) Option {
	return func(r *Runner) { r.synthesizer = s }
}

// WithGenerator injects a shared correlation id generator.
func WithGenerator(g *correlation.Generator) Option {
	return func(r *Runner) { r.generator = g }
}

// WithAccumulator injects a shared context accumulator.
func WithAccumulator(a *bundle.Accumulator) Option {
	return func(r *Runner) { r.accumulator = a }
}

// NewRunner creates a Runner over the given registry, selector, and
// classifier.
func NewRunner(reg *Registry, sel *Selector, cls *classifier.Classifier, cfg config.DispatchConfig, opts ...Option) *Runner {
	r := &Runner{
		registry:    reg,
		selector:    sel,
		classifier:  cls,
		generator:   correlation.NewGenerator(),
		accumulator: bundle.New(),
		timeout:     cfg.SpecialistTimeout,
		concurrency: cfg.ConcurrencyCeiling,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// invocationResult is what one specialist goroutine reports back at the
// batch join point.
type invocationResult struct {
	invocation models.Invocation
	findings   []models.Finding
}

// Run plans and executes a dispatch for the problem request. The returned
// error covers infrastructure failures only; specialist failures and
// timeouts degrade the outcome instead.
func (r *Runner) Run(ctx context.Context, req models.ProblemRequest) (*Outcome, error) {
	if err := r.registry.Validate(); err != nil {
		return nil, err
	}

	decision := r.selector.Decide(req)
	return r.Execute(ctx, req, decision)
}

// Execute runs an already-planned decision. Callers that want to inspect or
// adjust the plan before running use this instead of Run.
func (r *Runner) Execute(ctx context.Context, req models.ProblemRequest, decision models.DispatchDecision) (*Outcome, error) {
	id := r.generator.Generate(req.Requester, req.Text)
	debugLog("session %s: strategy=%s specialists=%d batches=%d", id, decision.Strategy, len(decision.Specialists), len(decision.Batches))

	session := models.CorrelationSession{
		ID:        id,
		Requester: req.Requester,
		CreatedAt: r.now(),
		Status:    models.SessionActive,
	}

	if req.CreatedAt.IsZero() {
		req.CreatedAt = session.CreatedAt
	}
	if err := r.accumulator.Open(id, req, decision.Strategy, r.loadHistory()); err != nil {
		r.generator.Release(id)
		return nil, fmt.Errorf("open session %s: %w", id, err)
	}
	defer r.accumulator.Close(id)

	r.record(&session, EventSessionStarted, "", fmt.Sprintf("strategy %s, %d specialists", decision.Strategy, len(decision.Specialists)))

	cancelled := false
	for batchIdx, batch := range decision.Batches {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if err := r.accumulator.SetBatch(id, batchIdx); err != nil {
			return nil, err
		}
		r.runBatch(ctx, id, batchIdx, batch, &session)
		r.record(&session, EventBatchCompleted, "", fmt.Sprintf("batch %d joined", batchIdx))
	}
	if ctx.Err() != nil {
		cancelled = true
	}

	if decision.Strategy == models.StrategyMeta && !cancelled {
		r.record(&session, EventSynthesisStarted, r.registry.Meta(), "")
		r.runBatch(ctx, id, len(decision.Batches), []models.SpecialistID{r.registry.Meta()}, &session)
	}

	r.recordOutcomes(decision, session.Invocations)

	outcome, err := r.finish(ctx, id, decision, &session, cancelled)
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// Generator returns the correlation id generator, shared with callers that
// need to inspect active sessions.
func (r *Runner) Generator() *correlation.Generator {
	return r.generator
}

// runBatch fans one batch out to its handlers and merges the joined
// results. Specialist failures never abort siblings.
func (r *Runner) runBatch(ctx context.Context, id string, batchIdx int, batch []models.SpecialistID, session *models.CorrelationSession) {
	// Every member is enriched before any member runs, so the whole batch
	// sees the same pre-batch snapshot.
	bundles := make(map[models.SpecialistID]models.ContextBundle, len(batch))
	for _, specialist := range batch {
		b, err := r.accumulator.Enrich(id, specialist)
		if err != nil {
			debugLog("session %s: enrich %s: %v", id, specialist, err)
			continue
		}
		bundles[specialist] = b
	}

	var mu sync.Mutex
	joined := make([]invocationResult, 0, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, specialist := range batch {
		g.Go(func() error {
			res := r.invoke(gctx, id, batchIdx, specialist, bundles[specialist])
			mu.Lock()
			joined = append(joined, res)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	// Deterministic join: invocations logged and findings merged in
	// specialist-id order regardless of completion order.
	sort.Slice(joined, func(i, j int) bool {
		return joined[i].invocation.SpecialistID < joined[j].invocation.SpecialistID
	})

	results := make(map[models.SpecialistID][]models.Finding)
	for _, res := range joined {
		session.Invocations = append(session.Invocations, res.invocation)
		if res.invocation.Status == models.InvocationDone {
			results[res.invocation.SpecialistID] = res.findings
		}
	}
	if err := r.accumulator.MergeBatch(id, results); err != nil {
		debugLog("session %s: merge batch %d: %v", id, batchIdx, err)
	}
}

// invoke runs one specialist under its per-invocation timeout and
// classifies the result.
func (r *Runner) invoke(ctx context.Context, id string, batchIdx int, specialist models.SpecialistID, b models.ContextBundle) invocationResult {
	inv := models.Invocation{
		SpecialistID: specialist,
		Batch:        batchIdx,
		StartedAt:    r.now(),
	}

	handler, ok := r.registry.Get(specialist)
	if !ok {
		inv.Status = models.InvocationFailed
		inv.Error = "no handler registered"
		r.emit(Event{Type: EventSpecialistFailed, CorrelationID: id, SpecialistID: specialist, Batch: batchIdx, Message: inv.Error})
		return invocationResult{invocation: inv}
	}

	r.emit(Event{Type: EventSpecialistStarted, CorrelationID: id, SpecialistID: specialist, Batch: batchIdx})
	inv.Status = models.InvocationRunning

	invCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	findings, err := handler.Invoke(invCtx, id, b)
	completed := r.now()
	inv.CompletedAt = &completed

	switch {
	case err == nil:
		inv.Status = models.InvocationDone
		r.emit(Event{Type: EventSpecialistCompleted, CorrelationID: id, SpecialistID: specialist, Batch: batchIdx})
		return invocationResult{invocation: inv, findings: findings}

	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		inv.Status = models.InvocationTimedOut
		inv.Error = fmt.Sprintf("timed out after %s", r.timeout)
		r.emit(Event{Type: EventSpecialistTimedOut, CorrelationID: id, SpecialistID: specialist, Batch: batchIdx, Error: err})

	case ctx.Err() != nil:
		inv.Status = models.InvocationCancelled
		inv.Error = "session cancelled"
		r.emit(Event{Type: EventSpecialistFailed, CorrelationID: id, SpecialistID: specialist, Batch: batchIdx, Error: err})

	default:
		inv.Status = models.InvocationFailed
		inv.Error = err.Error()
		r.emit(Event{Type: EventSpecialistFailed, CorrelationID: id, SpecialistID: specialist, Batch: batchIdx, Error: err})
	}
	return invocationResult{invocation: inv}
}

// recordOutcomes feeds per-specialist results back into the classifier. A
// pattern's dispatch counts as a success when its specialist returned
// findings. Cancelled invocations say nothing about routing quality and
// are not recorded at all.
func (r *Runner) recordOutcomes(decision models.DispatchDecision, invocations []models.Invocation) {
	status := make(map[models.SpecialistID]models.InvocationStatus)
	for _, inv := range invocations {
		status[inv.SpecialistID] = inv.Status
	}

	for _, sc := range decision.Specialists {
		if sc.PatternID == "" {
			continue
		}
		st, invoked := status[sc.SpecialistID]
		if !invoked || st == models.InvocationCancelled {
			continue
		}
		if err := r.classifier.RecordOutcome(sc.PatternID, st == models.InvocationDone); err != nil {
			debugLog("record outcome for %q: %v", sc.PatternID, err)
		}
	}
}

// finish computes the outcome, hands it to the synthesizer, and archives
// the session.
func (r *Runner) finish(ctx context.Context, id string, decision models.DispatchDecision, session *models.CorrelationSession, cancelled bool) (*Outcome, error) {
	finalBundle, err := r.accumulator.Snapshot(id)
	if err != nil {
		return nil, err
	}
	preservation, err := r.accumulator.Preservation(id)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		CorrelationID: id,
		Decision:      decision,
		Bundle:        finalBundle,
		Preservation:  preservation,
	}

	doneCount := 0
	for _, inv := range session.Invocations {
		if inv.Status == models.InvocationDone {
			doneCount++
			continue
		}
		outcome.Degraded = append(outcome.Degraded, models.DegradedSpecialist{
			SpecialistID: inv.SpecialistID,
			Reason:       inv.Error,
		})
	}
	// Specialists planned but never invoked (cancelled before their batch).
	for _, sc := range decision.Specialists {
		if !invokedIn(session.Invocations, sc.SpecialistID) {
			outcome.Degraded = append(outcome.Degraded, models.DegradedSpecialist{
				SpecialistID: sc.SpecialistID,
				Reason:       "session cancelled before dispatch",
			})
		}
	}

	switch {
	case doneCount == 0:
		outcome.Status = models.DispatchFailed
	case len(outcome.Degraded) > 0:
		outcome.Status = models.DispatchPartial
	default:
		outcome.Status = models.DispatchComplete
	}

	outcome.Findings = flattenFindings(finalBundle)

	if r.synthesizer != nil && doneCount > 0 {
		if err := r.synthesizer.Synthesize(ctx, id, finalBundle, outcome.Findings); err != nil {
			debugLog("session %s: synthesize: %v", id, err)
		}
	}

	session.Status = models.SessionCompleted
	if cancelled {
		session.Status = models.SessionCancelled
		r.record(session, EventSessionCancelled, "", "")
	} else {
		r.record(session, EventSessionCompleted, "", string(outcome.Status))
	}

	if err := r.archive(*session); err != nil {
		debugLog("session %s: archive: %v", id, err)
	}
	r.generator.Release(id)

	outcome.Session = *session
	return outcome, nil
}

// record appends to the session's event log and mirrors the event to the
// emitter. The log itself is append-only.
func (r *Runner) record(session *models.CorrelationSession, typ EventType, specialist models.SpecialistID, message string) {
	at := r.now()
	session.Events = append(session.Events, models.SessionEvent{
		ID:           r.newID(),
		Type:         string(typ),
		SpecialistID: specialist,
		Message:      message,
		Timestamp:    at,
	})
	r.emit(Event{Type: typ, CorrelationID: session.ID, SpecialistID: specialist, Message: message, Timestamp: at})
}

func (r *Runner) emit(event Event) {
	if r.emitter == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = r.now()
	}
	r.emitter.Emit(event)
}

// flattenFindings collects every finding from the domain layer in
// specialist-id order.
func flattenFindings(b models.ContextBundle) []models.Finding {
	ids := make([]models.SpecialistID, 0, len(b.Domain))
	for specialist := range b.Domain {
		ids = append(ids, specialist)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var findings []models.Finding
	for _, specialist := range ids {
		findings = append(findings, b.Domain[specialist]...)
	}
	return findings
}

func invokedIn(invocations []models.Invocation, specialist models.SpecialistID) bool {
	for _, inv := range invocations {
		if inv.SpecialistID == specialist {
			return true
		}
	}
	return false
}
