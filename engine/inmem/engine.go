// Package inmem provides an in-memory implementation of the workflow engine
// for unit tests and local development. It is not durable or replay-safe
// and must not be used for production workloads.
package inmem

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/domainkit/platform/engine"
	"github.com/domainkit/platform/telemetry"
)

type (
	eng struct {
		mu         sync.RWMutex
		workflows  map[string]engine.WorkflowDefinition
		activities map[string]inmemActivity
		runs       map[string]*wfCtx
	}

	handle struct {
		mu     sync.Mutex
		done   chan struct{}
		err    error
		result any
		wfCtx  *wfCtx
	}

	wfCtx struct {
		ctx     context.Context
		id      string
		runID   string
		logger  telemetry.Logger
		metrics telemetry.Metrics
		tracer  telemetry.Tracer
		eng     *eng

		startTime time.Time

		mu       sync.Mutex
		sigs     map[string]*signalChan
		status   engine.WorkflowStatus
		workflow string
		attrs    map[string]any
		queries  map[string]engine.QueryHandler
	}

	future struct {
		mu     sync.Mutex
		ready  chan struct{}
		result any
		err    error
	}

	signalChan struct{ ch chan any }

	inmemActivity struct {
		handler func(context.Context, any) (any, error)
		opts    engine.ActivityOptions
	}
)

// New returns a new in-memory Engine implementation.
func New() engine.Engine {
	return &eng{
		runs: make(map[string]*wfCtx),
	}
}

func (e *eng) RegisterWorkflow(_ context.Context, def engine.WorkflowDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.workflows == nil {
		e.workflows = make(map[string]engine.WorkflowDefinition)
	}
	if _, dup := e.workflows[def.Name]; dup {
		return fmt.Errorf("workflow %q already registered", def.Name)
	}
	if def.Handler == nil || def.Name == "" {
		return errors.New("invalid workflow definition")
	}
	e.workflows[def.Name] = def
	return nil
}

func (e *eng) RegisterActivity(_ context.Context, def engine.ActivityDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activities == nil {
		e.activities = make(map[string]inmemActivity)
	}
	if _, dup := e.activities[def.Name]; dup {
		return fmt.Errorf("activity %q already registered", def.Name)
	}
	if def.Handler == nil || def.Name == "" {
		return errors.New("invalid activity definition")
	}
	e.activities[def.Name] = inmemActivity{handler: def.Handler, opts: def.Options}
	return nil
}

func (e *eng) StartWorkflow(ctx context.Context, req engine.WorkflowStartRequest) (engine.WorkflowHandle, error) {
	e.mu.RLock()
	def, ok := e.workflows[req.Workflow]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("workflow %q not registered", req.Workflow)
	}
	if req.ID == "" {
		return nil, errors.New("workflow id is required")
	}

	attrs := make(map[string]any, len(req.SearchAttributes))
	for k, v := range req.SearchAttributes {
		attrs[k] = v
	}

	wctx := &wfCtx{
		ctx:       ctx,
		id:        req.ID,
		runID:     req.ID,
		logger:    telemetry.NoopLogger{},
		metrics:   telemetry.NoopMetrics{},
		tracer:    telemetry.NoopTracer{},
		eng:       e,
		sigs:      make(map[string]*signalChan),
		queries:   make(map[string]engine.QueryHandler),
		status:    engine.WorkflowStatusRunning,
		workflow:  req.Workflow,
		attrs:     attrs,
		startTime: time.Now(),
	}

	h := &handle{done: make(chan struct{}), wfCtx: wctx}

	e.mu.Lock()
	e.runs[req.ID] = wctx
	e.mu.Unlock()

	go func() {
		defer close(h.done)
		res, err := def.Handler(wctx, req.Input)
		h.mu.Lock()
		h.result = res
		h.err = err
		h.mu.Unlock()

		wctx.mu.Lock()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				wctx.status = engine.WorkflowStatusCanceled
			} else {
				wctx.status = engine.WorkflowStatusFailed
			}
		} else {
			wctx.status = engine.WorkflowStatusCompleted
		}
		wctx.mu.Unlock()
	}()

	return h, nil
}

func (e *eng) SignalWorkflow(ctx context.Context, workflowID, signalName string, payload any) error {
	e.mu.RLock()
	wctx, ok := e.runs[workflowID]
	e.mu.RUnlock()
	if !ok {
		return engine.ErrWorkflowNotFound
	}
	wctx.mu.Lock()
	status := wctx.status
	wctx.mu.Unlock()
	if status != engine.WorkflowStatusRunning {
		return engine.ErrWorkflowCompleted
	}
	ch := wctx.SignalChannel(signalName).(*signalChan)
	select {
	case ch.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *eng) Query(ctx context.Context, workflowID, queryType string, args any, result any) error {
	e.mu.RLock()
	wctx, ok := e.runs[workflowID]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("workflow %q not found", workflowID)
	}
	wctx.mu.Lock()
	handler, ok := wctx.queries[queryType]
	wctx.mu.Unlock()
	if !ok {
		return fmt.Errorf("query %q not registered on workflow %q", queryType, workflowID)
	}
	out, err := handler(args)
	if err != nil {
		return err
	}
	assignResult(result, out)
	return nil
}

func (e *eng) ListWorkflows(_ context.Context, query string) ([]engine.WorkflowSummary, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []engine.WorkflowSummary
	for _, wctx := range e.runs {
		if matchesQuery(wctx, query) {
			out = append(out, summarize(wctx))
		}
	}
	return out, nil
}

func (e *eng) Describe(_ context.Context, workflowID string) (engine.WorkflowSummary, error) {
	e.mu.RLock()
	wctx, ok := e.runs[workflowID]
	e.mu.RUnlock()
	if !ok {
		return engine.WorkflowSummary{}, fmt.Errorf("workflow %q not found", workflowID)
	}
	return summarize(wctx), nil
}

func summarize(w *wfCtx) engine.WorkflowSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	attrs := make(map[string]any, len(w.attrs))
	for k, v := range w.attrs {
		attrs[k] = v
	}
	return engine.WorkflowSummary{
		WorkflowID:       w.id,
		RunID:            w.runID,
		Workflow:         w.workflow,
		Status:           w.status,
		StartTime:        w.startTime,
		SearchAttributes: attrs,
	}
}

// matchesQuery implements the same "Attribute = \"value\" AND ..." grammar
// the Temporal adapter evaluates server-side, so tests exercise the exact
// query strings production code constructs.
func matchesQuery(w *wfCtx, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	clauses := strings.Split(query, " AND ")
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		parts := strings.SplitN(clause, "=", 2)
		if len(parts) != 2 {
			return false
		}
		key := strings.TrimSpace(parts[0])
		want := strings.Trim(strings.TrimSpace(parts[1]), `"`)
		got, ok := w.attrs[key]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

func (h *handle) Wait(ctx context.Context, result any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		assignResult(result, h.result)
		return h.err
	}
}

func (h *handle) Signal(ctx context.Context, name string, payload any) error {
	ch := h.wfCtx.SignalChannel(name).(*signalChan)
	select {
	case ch.ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return errors.New("workflow completed")
	}
}

// Cancel marks the run as canceled in its status. It does not cancel the
// workflow's context: the handler keeps running, and the status set when it
// returns replaces this one.
func (h *handle) Cancel(_ context.Context) error {
	h.wfCtx.mu.Lock()
	defer h.wfCtx.mu.Unlock()
	h.wfCtx.status = engine.WorkflowStatusCanceled
	return nil
}

func (w *wfCtx) Context() context.Context   { return w.ctx }
func (w *wfCtx) WorkflowID() string         { return w.id }
func (w *wfCtx) RunID() string              { return w.runID }
func (w *wfCtx) Logger() telemetry.Logger   { return w.logger }
func (w *wfCtx) Metrics() telemetry.Metrics { return w.metrics }
func (w *wfCtx) Tracer() telemetry.Tracer   { return w.tracer }
func (w *wfCtx) Now() time.Time             { return time.Now() }

func (w *wfCtx) SetQueryHandler(queryType string, handler engine.QueryHandler) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.queries[queryType] = handler
	return nil
}

func (w *wfCtx) UpsertSearchAttributes(attrs map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for k, v := range attrs {
		w.attrs[k] = v
	}
	return nil
}

func (w *wfCtx) NewTimer(d time.Duration) engine.Future {
	f := &future{ready: make(chan struct{})}
	go func() {
		defer close(f.ready)
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-w.ctx.Done():
			f.mu.Lock()
			f.err = w.ctx.Err()
			f.mu.Unlock()
		}
	}()
	return f
}

func (w *wfCtx) ExecuteActivity(ctx context.Context, req engine.ActivityRequest, result any) error {
	fut, err := w.ExecuteActivityAsync(ctx, req)
	if err != nil {
		return err
	}
	return fut.Get(ctx, result)
}

func (w *wfCtx) ExecuteActivityAsync(ctx context.Context, req engine.ActivityRequest) (engine.Future, error) {
	w.eng.mu.RLock()
	def, ok := w.eng.activities[req.Name]
	w.eng.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("activity %q not registered", req.Name)
	}
	f := &future{ready: make(chan struct{})}
	go func() {
		defer close(f.ready)
		res, err := def.handler(ctx, req.Input)
		f.mu.Lock()
		f.result = res
		f.err = err
		f.mu.Unlock()
	}()
	return f, nil
}

func (f *future) Get(ctx context.Context, result any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.ready:
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.err != nil {
			return f.err
		}
		assignResult(result, f.result)
		return nil
	}
}

func (f *future) IsReady() bool {
	select {
	case <-f.ready:
		return true
	default:
		return false
	}
}

func (s *signalChan) Receive(ctx context.Context, dest any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case v := <-s.ch:
		assignResult(dest, v)
		return nil
	}
}

func (s *signalChan) ReceiveAsync(dest any) bool {
	select {
	case v := <-s.ch:
		assignResult(dest, v)
		return true
	default:
		return false
	}
}

func (s *signalChan) ReceiveWithTimeout(ctx context.Context, dest any, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case v := <-s.ch:
		assignResult(dest, v)
		return true, nil
	case <-t.C:
		return false, nil
	}
}

func (w *wfCtx) SignalChannel(name string) engine.SignalChannel {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch, ok := w.sigs[name]
	if !ok {
		ch = &signalChan{ch: make(chan any, 16)}
		w.sigs[name] = ch
	}
	return ch
}

func assignResult(dst any, src any) {
	if dst == nil || src == nil {
		return
	}
	dv := reflect.ValueOf(dst)
	if dv.Kind() != reflect.Ptr || dv.IsNil() {
		return
	}
	sv := reflect.ValueOf(src)
	if sv.IsValid() && sv.Type().AssignableTo(dv.Elem().Type()) {
		dv.Elem().Set(sv)
		return
	}
	if dv.Elem().Kind() == reflect.Interface && sv.Type().Implements(dv.Elem().Type()) {
		dv.Elem().Set(sv)
		return
	}
}
