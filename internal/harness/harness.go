package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/mikhailrojo/javascript-allonge-six/decorate"
	"github.com/mikhailrojo/javascript-allonge-six/internal/compiler"
	"github.com/mikhailrojo/javascript-allonge-six/internal/journal"
	"github.com/mikhailrojo/javascript-allonge-six/mixin"
	"github.com/mikhailrojo/javascript-allonge-six/object"
)

// declPath is the top-level CUE field where behavior declarations live.
const declPath = "behavior"

// noReceiver labels journal rows for receiver-less executions. It matches
// the sentinel label used by the per-receiver run-state store.
const noReceiver = "<no-receiver>"

// SeqSource hands out trace sequence numbers. journal.Clock satisfies it,
// as does testutil.DeterministicClock.
type SeqSource interface {
	Next() int64
}

// Harness is the scenario execution engine.
// It compiles behavior declarations into live sets, runs the flow against
// real objects, and journals every application, call, and execution.
type Harness struct {
	journal  *journal.Journal
	clock    SeqSource
	registry *Registry
	logger   *slog.Logger
	scenario string

	sets    map[string]*mixin.BehaviorSet
	objects map[string]*object.Object

	// pending buffers execution records observed by operation probes.
	// The journal's executions table references the call row, so the
	// buffer flushes only after that row is written.
	pending []journal.Execution

	rowCount int
}

// Option adjusts how Run executes a scenario.
type Option func(*options)

type options struct {
	clock     SeqSource
	tagSource mixin.TagSource
	registry  *Registry
	logger    *slog.Logger
}

// WithClock substitutes the sequence source. Defaults to a fresh
// journal.Clock, which already makes runs reproducible; tests that share a
// clock across harnesses use this.
func WithClock(c SeqSource) Option {
	return func(o *options) { o.clock = c }
}

// WithTagSource substitutes the capability tag source. Defaults to
// mixin.UUIDSource. Tag display IDs land in the journal's applications
// table but never in the trace, so goldens are stable either way.
func WithTagSource(source mixin.TagSource) Option {
	return func(o *options) { o.tagSource = source }
}

// WithRegistry substitutes the builtin registry, letting callers add
// scenario-specific operation bodies.
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithLogger substitutes the logger. Defaults to a discard logger so test
// output stays quiet.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Run executes a conformance scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal for isolation.
//
// Execution flow:
//  1. Open an in-memory journal
//  2. Compile behavior declarations and build live behavior sets
//  3. Create the scenario's objects
//  4. Execute flow steps, journaling applications, calls, and executions
//  5. Read the timeline back and snapshot final object state
//  6. Evaluate assertions against the journal and the live objects
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := &options{
		clock:     journal.NewClock(),
		tagSource: mixin.UUIDSource{},
		registry:  NewRegistry(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}

	j, err := journal.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory journal: %w", err)
	}
	defer j.Close()

	h := &Harness{
		journal:  j,
		clock:    o.clock,
		registry: o.registry,
		logger:   o.logger,
		scenario: scenario.Name,
		sets:     make(map[string]*mixin.BehaviorSet),
		objects:  make(map[string]*object.Object),
	}

	ctx := context.Background()

	if err := h.loadBehaviors(scenario.Behaviors, o.tagSource); err != nil {
		return nil, err
	}
	if err := h.createObjects(scenario.Objects); err != nil {
		return nil, err
	}

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	// Read the trace back before evaluating assertions so failure
	// messages can include it.
	trace, err := j.ReadTimeline(ctx, h.scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %w", err)
	}
	result.Trace = trace

	for name, obj := range h.objects {
		result.State[name] = obj.Snapshot()
	}

	actx := &AssertionContext{
		Journal:  j,
		Ctx:      ctx,
		Scenario: scenario.Name,
		Sets:     h.sets,
		Objects:  h.objects,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// LoadBehaviorFile compiles and validates one CUE behavior declaration
// file. The declaration must live under the file's top-level "behavior"
// field.
func LoadBehaviorFile(path string) (*compiler.Decl, error) {
	cfg := &load.Config{Dir: filepath.Dir(path)}
	instances := load.Instances([]string{filepath.Base(path)}, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("%s: no CUE instance loaded", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("%s: loading CUE file: %w", path, inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("%s: building CUE value: %w", path, err)
	}

	declVal := value.LookupPath(cue.ParsePath(declPath))
	if !declVal.Exists() {
		return nil, fmt.Errorf("%s: no top-level %q field", path, declPath)
	}

	decl, err := compiler.CompileBehavior(declVal)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if verrs := compiler.Validate(decl); len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, ve := range verrs {
			msgs[i] = ve.Error()
		}
		return nil, fmt.Errorf("%s: %s", path, strings.Join(msgs, "; "))
	}
	return decl, nil
}

// loadBehaviors compiles every declared behavior file and builds its set.
func (h *Harness) loadBehaviors(paths []string, source mixin.TagSource) error {
	for _, path := range paths {
		decl, err := LoadBehaviorFile(path)
		if err != nil {
			return err
		}
		if _, dup := h.sets[decl.Name]; dup {
			return fmt.Errorf("%s: duplicate behavior %q", path, decl.Name)
		}
		set, err := h.buildSet(decl, source)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		h.sets[decl.Name] = set
	}
	return nil
}

// buildSet turns a compiled declaration into a live behavior set.
//
// Every operation body is wrapped with an execution probe before any
// decoration policy, so the journal records body runs, not call attempts:
// a call suppressed by run_at_most_once never reaches the probe.
func (h *Harness) buildSet(decl *compiler.Decl, source mixin.TagSource) (*mixin.BehaviorSet, error) {
	ops := make(map[string]*object.Operation, len(decl.Operations))
	for _, od := range decl.Operations {
		fn, err := h.registry.Resolve(od.Impl, od.With)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", od.Name, err)
		}
		op := h.probe(object.NewOperation(od.Name, od.Arity, fn))
		if od.Policy != "" {
			policy, err := decorate.ParsePolicy(od.Policy, od.PolicyN)
			if err != nil {
				return nil, fmt.Errorf("operation %s: %w", od.Name, err)
			}
			op = decorate.Decorate(op, policy)
		}
		ops[od.Name] = op
	}

	shared := make(map[string]mixin.Shared, len(decl.Shared))
	for _, sd := range decl.Shared {
		shared[sd.Name] = mixin.Shared{Value: sd.Value, Enumerable: sd.Enumerable}
	}

	return mixin.New(ops, shared, mixin.WithLabel(decl.Name), mixin.WithTagSource(source))
}

// probe wraps an operation so each body run appends an execution record to
// the pending buffer before delegating to the real body.
func (h *Harness) probe(op *object.Operation) *object.Operation {
	return object.NewOperation(op.Name(), op.Arity(), func(recv object.Value, args []object.Value) (object.Value, error) {
		h.pending = append(h.pending, journal.Execution{
			Operation: op.Name(),
			Receiver:  receiverLabel(recv),
			Seq:       h.clock.Next(),
		})
		return op.Invoke(recv, args...)
	})
}

// receiverLabel renders a receiver for journal rows.
func receiverLabel(recv object.Value) string {
	if ref, ok := recv.(object.Ref); ok && ref.Target != nil {
		return ref.Target.Label()
	}
	return noReceiver
}

// createObjects builds the scenario's cast.
func (h *Harness) createObjects(decls []ObjectDecl) error {
	for _, od := range decls {
		obj := object.NewLabeled(od.Name)
		for key, raw := range od.Fields {
			v, err := convertValue(raw)
			if err != nil {
				return fmt.Errorf("object %s: field %q: %w", od.Name, key, err)
			}
			if err := obj.Set(key, v); err != nil {
				return fmt.Errorf("object %s: field %q: %w", od.Name, key, err)
			}
		}
		if od.Sealed {
			obj.PreventExtensions()
		}
		h.objects[od.Name] = obj
	}
	return nil
}

// executeFlow runs all flow steps, dispatching on the step mode.
// A returned error is a harness failure (bad scenario, journal trouble);
// expectation mismatches land in the result instead.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		var err error
		switch {
		case step.Apply != "":
			err = h.executeApply(ctx, i, step, result)
		case step.Invoke != "":
			err = h.executeInvoke(ctx, i, step, result)
		case step.Check != "":
			err = h.executeCheck(i, step, result)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// executeApply applies a behavior to a target and journals the outcome.
func (h *Harness) executeApply(ctx context.Context, index int, step FlowStep, result *Result) error {
	set, ok := h.sets[step.Apply]
	if !ok {
		return fmt.Errorf("flow step %d: unknown behavior %q", index, step.Apply)
	}
	target, ok := h.objects[step.To]
	if !ok {
		return fmt.Errorf("flow step %d: unknown object %q", index, step.To)
	}

	// Predict the install/skip split before applying. The prediction uses
	// apply's own rule (skip only an own, truthy member), so it matches
	// what apply does unless apply rejects wholesale, and a rejected
	// application journals empty lists anyway.
	installed, skipped := installPlan(set, target)
	seq := h.clock.Next()

	_, applyErr := mixin.Apply(set, target)

	app := journal.Application{
		ID:        h.rowID("app"),
		Scenario:  h.scenario,
		Behavior:  set.Label(),
		Tag:       set.Tag().ID(),
		Target:    target.Label(),
		Installed: installed,
		Skipped:   skipped,
		Outcome:   journal.OutcomeApplied,
		Seq:       seq,
	}
	if applyErr != nil {
		app.Outcome = journal.OutcomeFailed
		app.Error = applyErr.Error()
		app.Installed = []string{}
		app.Skipped = []string{}
	}
	if err := h.journal.WriteApplication(ctx, app); err != nil {
		return fmt.Errorf("flow step %d: failed to journal application: %w", index, err)
	}

	label := fmt.Sprintf("flow[%d] apply %s to %s", index, step.Apply, step.To)
	h.checkStepOutcome(label, applyErr, step, result)

	h.logger.Info("apply step completed",
		"step", index,
		"behavior", set.Label(),
		"target", target.Label(),
		"outcome", app.Outcome,
	)
	return nil
}

// executeInvoke calls an operation, either through an object's member
// dispatch or receiver-less straight off the behavior set, and journals
// the call plus any buffered executions.
func (h *Harness) executeInvoke(ctx context.Context, index int, step FlowStep, result *Result) error {
	args := make([]object.Value, len(step.Args))
	for i, raw := range step.Args {
		v, err := convertValue(raw)
		if err != nil {
			return fmt.Errorf("flow step %d: arg %d: %w", index, i, err)
		}
		args[i] = v
	}

	// Get seq ONCE before the call so the call row precedes its
	// executions in the timeline.
	seq := h.clock.Next()
	h.pending = h.pending[:0]

	var (
		res     object.Value
		callErr error
		target  string
	)
	switch {
	case step.On != "":
		obj, ok := h.objects[step.On]
		if !ok {
			return fmt.Errorf("flow step %d: unknown object %q", index, step.On)
		}
		target = obj.Label()
		res, callErr = obj.Call(step.Invoke, args...)
	default:
		set, ok := h.sets[step.From]
		if !ok {
			return fmt.Errorf("flow step %d: unknown behavior %q", index, step.From)
		}
		op, ok := set.Operation(step.Invoke)
		if !ok {
			return fmt.Errorf("flow step %d: behavior %q has no operation %q", index, step.From, step.Invoke)
		}
		target = noReceiver
		res, callErr = op.Invoke(nil, args...)
	}

	argsJSON, err := object.MarshalCanonical(object.List(args))
	if err != nil {
		return fmt.Errorf("flow step %d: failed to marshal args: %w", index, err)
	}

	call := journal.Call{
		ID:        h.rowID("call"),
		Scenario:  h.scenario,
		Target:    target,
		Operation: step.Invoke,
		Args:      string(argsJSON),
		Outcome:   journal.OutcomeOK,
		Seq:       seq,
	}
	if callErr != nil {
		call.Outcome = journal.OutcomeError
		call.Error = callErr.Error()
	} else {
		resJSON, err := object.MarshalCanonical(res)
		if err != nil {
			return fmt.Errorf("flow step %d: failed to marshal result: %w", index, err)
		}
		call.Result = string(resJSON)
	}
	if err := h.journal.WriteCall(ctx, call); err != nil {
		return fmt.Errorf("flow step %d: failed to journal call: %w", index, err)
	}

	// Flush probe observations now that the call row they reference
	// exists. A suppressed or failed-before-body call flushes nothing.
	for _, exec := range h.pending {
		exec.CallID = call.ID
		if _, _, err := h.journal.WriteExecution(ctx, exec); err != nil {
			return fmt.Errorf("flow step %d: failed to journal execution: %w", index, err)
		}
	}
	h.pending = h.pending[:0]

	label := fmt.Sprintf("flow[%d] invoke %s", index, step.Invoke)
	h.checkStepOutcome(label, callErr, step, result)
	if callErr == nil {
		h.checkResultValue(label, res, step, result)
	}

	h.logger.Info("invoke step completed",
		"step", index,
		"operation", step.Invoke,
		"target", target,
		"outcome", call.Outcome,
	)
	return nil
}

// executeCheck runs a membership query against a live object. Membership
// is a tag lookup on the object; it neither mutates nor journals.
func (h *Harness) executeCheck(index int, step FlowStep, result *Result) error {
	set, ok := h.sets[step.Check]
	if !ok {
		return fmt.Errorf("flow step %d: unknown behavior %q", index, step.Check)
	}
	obj, ok := h.objects[step.Of]
	if !ok {
		return fmt.Errorf("flow step %d: unknown object %q", index, step.Of)
	}

	verdict := set.MembershipCheck(obj)
	if step.Expect != nil {
		want, ok := step.Expect.(bool)
		if !ok {
			return fmt.Errorf("flow step %d: check expects a bool, got %T", index, step.Expect)
		}
		if verdict != want {
			result.AddError(fmt.Sprintf("flow[%d] check %s of %s: expected %v, got %v",
				index, step.Check, step.Of, want, verdict))
		}
	}

	h.logger.Info("check step completed",
		"step", index,
		"behavior", step.Check,
		"object", step.Of,
		"member", verdict,
	)
	return nil
}

// checkStepOutcome validates a step's success or failure against its
// expect_error clause.
func (h *Harness) checkStepOutcome(label string, stepErr error, step FlowStep, result *Result) {
	if step.ExpectError == "" {
		if stepErr != nil {
			result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, stepErr))
		}
		return
	}
	if stepErr == nil {
		result.AddError(fmt.Sprintf("%s: expected error %s, got success", label, step.ExpectError))
		return
	}
	if code := errorCode(stepErr); code != step.ExpectError {
		result.AddError(fmt.Sprintf("%s: expected error %s, got %s (%v)", label, step.ExpectError, code, stepErr))
	}
}

// checkResultValue validates a successful call's result against the
// step's expect clause. Values compare by canonical JSON, so structurally
// equal records match regardless of construction order.
func (h *Harness) checkResultValue(label string, res object.Value, step FlowStep, result *Result) {
	if step.ExpectUndefined {
		if _, ok := res.(object.Undefined); !ok {
			result.AddError(fmt.Sprintf("%s: expected undefined, got %s", label, canonicalOrRaw(res)))
		}
		return
	}
	if step.Expect == nil {
		return
	}

	want, err := convertValue(step.Expect)
	if err != nil {
		result.AddError(fmt.Sprintf("%s: bad expect value: %v", label, err))
		return
	}
	wantJSON, err := object.MarshalCanonical(want)
	if err != nil {
		result.AddError(fmt.Sprintf("%s: bad expect value: %v", label, err))
		return
	}
	gotJSON, err := object.MarshalCanonical(res)
	if err != nil {
		result.AddError(fmt.Sprintf("%s: result not comparable: %v", label, err))
		return
	}
	if string(wantJSON) != string(gotJSON) {
		result.AddError(fmt.Sprintf("%s: expected %s, got %s", label, wantJSON, gotJSON))
	}
}

// canonicalOrRaw renders a value for error messages, falling back to %v
// for values canonical JSON rejects.
func canonicalOrRaw(v object.Value) string {
	data, err := object.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// errorCode extracts the structured code from composition and invocation
// errors; anything else reports as BODY_ERROR, covering operation bodies
// that fail on their own.
func errorCode(err error) string {
	var ce *mixin.CompositionError
	if errors.As(err, &ce) {
		return string(ce.Code)
	}
	var ie *decorate.InvocationError
	if errors.As(err, &ie) {
		return string(ie.Code)
	}
	return "BODY_ERROR"
}

// installPlan predicts which instance operations apply will install and
// which it will skip under first-definition-wins: a member is skipped only
// when the target already holds an own, truthy value under that name.
func installPlan(set *mixin.BehaviorSet, target *object.Object) (installed, skipped []string) {
	installed = []string{}
	skipped = []string{}
	for _, name := range set.Operations() {
		if v, ok := target.GetOwn(name); ok && object.Truthy(v) {
			skipped = append(skipped, name)
		} else {
			installed = append(installed, name)
		}
	}
	return installed, skipped
}

// rowID mints a deterministic journal row ID. Determinism keeps replays
// idempotent: re-running a scenario against the same journal hits the
// ON CONFLICT DO NOTHING path instead of duplicating rows.
func (h *Harness) rowID(kind string) string {
	h.rowCount++
	return fmt.Sprintf("%s-%s-%04d", h.scenario, kind, h.rowCount)
}

// convertValue converts a YAML-parsed value to an object value.
// Returns an error for null values since they are forbidden in canonical
// JSON and would fail later during journaling.
func convertValue(val interface{}) (object.Value, error) {
	if val == nil {
		return nil, fmt.Errorf("null values are forbidden (canonical JSON does not support null)")
	}

	switch v := val.(type) {
	case string:
		return object.String(v), nil
	case int:
		return object.Int(v), nil
	case int64:
		return object.Int(v), nil
	case float64:
		// YAML parses all numbers as float64 in untyped positions.
		// Accept exact integers; true floats are forbidden values.
		if v == float64(int64(v)) {
			return object.Int(int64(v)), nil
		}
		return nil, fmt.Errorf("floats are forbidden values: %v", v)
	case bool:
		return object.Bool(v), nil
	case []interface{}:
		list := make(object.List, len(v))
		for i, item := range v {
			converted, err := convertValue(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			list[i] = converted
		}
		return list, nil
	case map[string]interface{}:
		record := make(object.Record, len(v))
		for key, item := range v {
			converted, err := convertValue(item)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", key, err)
			}
			record[key] = converted
		}
		return record, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", val)
	}
}
