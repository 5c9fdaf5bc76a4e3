package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Dispatcher resolves tool names to handlers and turns every outcome into
// an InvocationResult. Nothing a handler does escapes it.
type Dispatcher struct {
	registry    *Registry
	guardrails  *Guardrails
	tracer      ports.Tracer
	logger      zerolog.Logger
	concurrency int
}

// NewDispatcher wires a dispatcher. concurrency bounds ExecuteBatch.
func NewDispatcher(registry *Registry, guardrails *Guardrails, tracer ports.Tracer, logger zerolog.Logger, concurrency int) *Dispatcher {
	if guardrails == nil {
		guardrails = NewGuardrails(nil, false)
	}
	if tracer == nil {
		tracer = &noOpTracer{}
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		registry:    registry,
		guardrails:  guardrails,
		tracer:      tracer,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Execute runs one tool. Unknown names, rejected parameters, handler
// errors and handler panics all come back as failure envelopes.
//
// params are echoed in the envelope as given and the handler's output is
// carried unmodified, nil included.
func (d *Dispatcher) Execute(ctx context.Context, name string, params map[string]any, callerID string) (result ports.InvocationResult) {
	result = ports.InvocationResult{ToolName: name, Parameters: params}

	ctx, finish := d.tracer.StartSpan(ctx, "tool.execute", map[string]any{
		"tool":   name,
		"caller": callerID,
	})
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Result = nil
			result.Error = fmt.Sprintf("tool %s panicked: %v", name, r)
			d.logger.Error().Str("tool", name).Interface("panic", r).Msg("Tool handler panicked")
		}

		var spanErr error
		if !result.Success {
			spanErr = errors.New(result.Error)
		}
		finish(spanErr)

		d.logger.Debug().
			Str("tool", name).
			Str("caller", callerID).
			Bool("success", result.Success).
			Dur("duration", time.Since(start)).
			Msg("Tool dispatched")
	}()

	tool, ok := d.registry.Get(name)
	if !ok {
		result.Error = "Tool not found: " + name
		return result
	}

	if err := d.guardrails.ValidateToolCall(tool, params); err != nil {
		result.Error = err.Error()
		return result
	}

	out, err := tool.Handler(ctx, params, callerID)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.Result = out
	return result
}

// ExecuteBatch runs calls with bounded concurrency and returns their
// envelopes in call order.
func (d *Dispatcher) ExecuteBatch(ctx context.Context, calls []ports.ToolCall, callerID string) []ports.InvocationResult {
	results := make([]ports.InvocationResult, len(calls))

	p := pool.New().WithMaxGoroutines(d.concurrency)
	for i, call := range calls {
		p.Go(func() {
			results[i] = d.Execute(ctx, call.Name, call.Parameters, callerID)
		})
	}
	p.Wait()

	return results
}

// ListToolDescriptors exposes the registry without handlers.
func (d *Dispatcher) ListToolDescriptors() []ports.ToolDescriptor {
	return d.registry.Descriptors()
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}
