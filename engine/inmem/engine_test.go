package inmem

import (
	"context"
	"testing"
	"time"

	"github.com/domainkit/platform/engine"
)

type greetInput struct{ Name string }
type greetOutput struct{ Greeting string }

func TestActivityTypedExecution(t *testing.T) {
	eng := New()
	ctx := context.Background()

	err := eng.RegisterActivity(ctx, engine.ActivityDefinition{
		Name: "greet",
		Handler: func(_ context.Context, input any) (any, error) {
			in := input.(greetInput)
			return greetOutput{Greeting: "hello " + in.Name}, nil
		},
	})
	if err != nil {
		t.Fatalf("register activity: %v", err)
	}

	err = eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "test_workflow",
		Handler: func(wfCtx engine.WorkflowContext, input any) (any, error) {
			var out greetOutput
			err2 := wfCtx.ExecuteActivity(wfCtx.Context(), engine.ActivityRequest{
				Name:  "greet",
				Input: greetInput{Name: "domain"},
			}, &out)
			if err2 != nil {
				return nil, err2
			}
			if out.Greeting != "hello domain" {
				t.Errorf("unexpected greeting: %q", out.Greeting)
			}
			return out, nil
		},
	})
	if err != nil {
		t.Fatalf("register workflow: %v", err)
	}

	handle, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       "test-run-1",
		Workflow: "test_workflow",
	})
	if err != nil {
		t.Fatalf("start workflow: %v", err)
	}

	var result greetOutput
	if err := handle.Wait(ctx, &result); err != nil {
		t.Fatalf("workflow failed: %v", err)
	}
	if result.Greeting != "hello domain" {
		t.Errorf("unexpected final result: %+v", result)
	}
}

func TestSignalTypedDelivery(t *testing.T) {
	eng := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type feedback struct{ Comment string }

	err := eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "test_workflow",
		Handler: func(wfCtx engine.WorkflowContext, _ any) (any, error) {
			var fb feedback
			if err2 := wfCtx.SignalChannel("submit_owner_feedback").Receive(wfCtx.Context(), &fb); err2 != nil {
				return nil, err2
			}
			if fb.Comment != "looks good" {
				t.Errorf("unexpected feedback: %+v", fb)
			}
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("register workflow: %v", err)
	}

	handle, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       "test-run-1",
		Workflow: "test_workflow",
	})
	if err != nil {
		t.Fatalf("start workflow: %v", err)
	}

	if err := handle.Signal(ctx, "submit_owner_feedback", feedback{Comment: "looks good"}); err != nil {
		t.Fatalf("signal workflow: %v", err)
	}

	if err := handle.Wait(ctx, nil); err != nil {
		t.Fatalf("workflow failed: %v", err)
	}
}

func TestReceiveWithTimeoutExpires(t *testing.T) {
	eng := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})

	err := eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "timeout_workflow",
		Handler: func(wfCtx engine.WorkflowContext, _ any) (any, error) {
			defer close(done)
			var dest string
			ok, err2 := wfCtx.SignalChannel("never_sent").ReceiveWithTimeout(wfCtx.Context(), &dest, 20*time.Millisecond)
			if err2 != nil {
				return nil, err2
			}
			if ok {
				t.Error("expected timeout, got a signal")
			}
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("register workflow: %v", err)
	}

	if _, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:       "timeout-run-1",
		Workflow: "timeout_workflow",
	}); err != nil {
		t.Fatalf("start workflow: %v", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("workflow did not complete before context deadline")
	}
}

func TestQueryAndListWorkflows(t *testing.T) {
	eng := New()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ready := make(chan struct{})
	release := make(chan struct{})

	err := eng.RegisterWorkflow(ctx, engine.WorkflowDefinition{
		Name: "queryable_workflow",
		Handler: func(wfCtx engine.WorkflowContext, _ any) (any, error) {
			if err2 := wfCtx.SetQueryHandler("get_status", func(any) (any, error) {
				return "running", nil
			}); err2 != nil {
				return nil, err2
			}
			if err2 := wfCtx.UpsertSearchAttributes(map[string]any{"Status": "Researching"}); err2 != nil {
				return nil, err2
			}
			close(ready)
			<-release
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("register workflow: %v", err)
	}

	if _, err := eng.StartWorkflow(ctx, engine.WorkflowStartRequest{
		ID:               "queryable-run-1",
		Workflow:         "queryable_workflow",
		SearchAttributes: map[string]any{"Status": "Proposed"},
	}); err != nil {
		t.Fatalf("start workflow: %v", err)
	}

	<-ready

	var status string
	if err := eng.Query(ctx, "queryable-run-1", "get_status", nil, &status); err != nil {
		t.Fatalf("query workflow: %v", err)
	}
	if status != "running" {
		t.Errorf("unexpected query result: %q", status)
	}

	summaries, err := eng.ListWorkflows(ctx, `Status = "Researching"`)
	if err != nil {
		t.Fatalf("list workflows: %v", err)
	}
	if len(summaries) != 1 || summaries[0].WorkflowID != "queryable-run-1" {
		t.Fatalf("unexpected list result: %+v", summaries)
	}

	if _, err := eng.ListWorkflows(ctx, `Status = "Active"`); err != nil {
		t.Fatalf("list workflows with no match: %v", err)
	}

	close(release)
}
