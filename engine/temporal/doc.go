// Package temporal implements the platform's workflow engine adapter backed
// by Temporal (https://temporal.io). It satisfies the generic engine.Engine
// interface so domain workflows can orchestrate durable state machines
// without importing the Temporal SDK directly.
//
// # Why Temporal?
//
// Domain bootstrap and document contribution are both long-lived state
// machines: they wait on owner decisions, controller reviews, and
// multi-step activity pipelines that can span minutes to days. Temporal
// ensures this state survives process restarts, network failures, and
// crashes by replaying the workflow from its event history, producing
// deterministic execution.
//
// # Constructing an Engine
//
// Use New to create an engine with Temporal client and worker options:
//
//	eng, err := temporal.New(temporal.Options{
//	    ClientOptions: &client.Options{
//	        HostPort:  "temporal:7233",
//	        Namespace: "default",
//	    },
//	    WorkerOptions: temporal.WorkerOptions{
//	        TaskQueue: "domain-platform",
//	    },
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close()
//
// # Worker vs Client Mode
//
// The same engine can operate in two modes:
//
//   - Worker mode: polls task queues and executes workflows and activities
//     locally. Use this in processes that run the bootstrap and contribution
//     workflow handlers.
//
//   - Client mode: submits workflow starts, signals, and queries without
//     local execution. Use this in the HTTP API process.
//
// Both modes use the same Options; the difference is whether workers are
// started. Client-only processes pass DisableWorkerAutoStart.
//
// # Workflow Determinism
//
// Temporal workflows must be deterministic: given the same inputs and event
// history, they must produce the same outputs. This package provides a
// WorkflowContext that exposes only deterministic operations:
//
//   - Now() returns workflow time, not wall clock
//   - ExecuteActivity and ExecuteActivityAsync schedule activities
//   - SignalChannel returns deterministic signal receivers
//   - NewTimer returns a replay-safe durable timer
//
// Non-deterministic work (LLM calls, search indexing, database writes) runs
// inside activities, which are not constrained by determinism.
//
// # OpenTelemetry Integration
//
// The engine installs OTEL interceptors on the Temporal client and worker
// when Instrumentation tracing/metrics are enabled, propagating trace
// context through workflow and activity boundaries.
//
// # Query Handlers
//
// Workflows expose query handlers for external introspection — the HTTP
// API uses get_bootstrap_status and get_status queries to report progress
// without mutating or blocking workflow execution.
package temporal
