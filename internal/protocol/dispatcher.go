package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"skillserv/internal/logging"
	"skillserv/internal/router"
	"skillserv/internal/skill"
)

// supportedMethods is enumerated in method-not-found errors to aid
// client recovery.
var supportedMethods = []string{"initialize", "tools/list", "tools/call"}

// UsageRecorder receives one record per completed tools/call. Recording
// is best-effort: implementations must never block for long, and errors
// must stay internal to the recorder.
type UsageRecorder interface {
	RecordCall(toolName string, isError bool, elapsed time.Duration)
}

// Dispatcher maps parsed requests to handling logic and writes one JSON
// line per response.
//
// Lines are dispatch-initiated strictly in arrival order, but each
// tools/call handler runs on its own goroutine so a slow tool never
// blocks the read loop; responses therefore may complete out of order,
// and the client correlates them by id. Writes are serialized by a
// mutex so concurrent completions never interleave bytes.
type Dispatcher struct {
	registry *skill.Registry
	info     ServerInfo
	recorder UsageRecorder

	out     io.Writer
	writeMu sync.Mutex

	stateMu sync.Mutex
	ready   bool

	inflight sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithUsageRecorder wires a recorder for tools/call accounting.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// NewDispatcher creates a dispatcher serving the given registry and
// writing responses to out.
func NewDispatcher(reg *skill.Registry, out io.Writer, info ServerInfo, opts ...Option) *Dispatcher {
	d := &Dispatcher{registry: reg, out: out, info: info}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Serve consumes the input stream until EOF or a read error, framing
// lines and dispatching each one. It returns nil on clean EOF and the
// read error otherwise, in both cases only after every in-flight
// handler has completed and its response has been written.
func (d *Dispatcher) Serve(ctx context.Context, in io.Reader) error {
	frames := NewFrameReader()
	buf := make([]byte, 4096)

	for {
		n, err := in.Read(buf)
		if n > 0 {
			for _, line := range frames.Feed(buf[:n]) {
				d.Dispatch(ctx, line)
			}
		}
		if err != nil {
			if tail := frames.Pending(); tail != "" {
				logging.Warn("discarding unterminated trailing input", "bytes", len(tail))
			}
			d.inflight.Wait()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input stream: %w", err)
		}
		if ctx.Err() != nil {
			d.inflight.Wait()
			return ctx.Err()
		}
	}
}

// Drain blocks until every in-flight handler has completed and its
// response has been written. Used by shutdown so the process never
// exits with a response half-written.
func (d *Dispatcher) Drain() {
	d.inflight.Wait()
}

// Dispatch processes one complete frame. It never panics and never
// returns an error: every failure mode becomes a protocol response,
// with an internal-error response as the outermost backstop.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Error("panic while handling request", "panic", rec)
			d.write(newError(nil, CodeInternalError, "Internal error", fmt.Sprintf("%v", rec)))
		}
	}()
	d.dispatchLine(ctx, line)
}

// rawEnvelope defers all field decoding so a structurally valid JSON
// object with a malformed field (say, a numeric method) is an invalid
// request, not a parse error.
type rawEnvelope struct {
	JSONRPC json.RawMessage `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  json.RawMessage `json:"method"`
	Params  json.RawMessage `json:"params"`
}

func (d *Dispatcher) dispatchLine(ctx context.Context, line string) {
	var envelope rawEnvelope
	if err := json.Unmarshal([]byte(line), &envelope); err != nil {
		if json.Valid([]byte(line)) {
			// Well-formed JSON that is not a request object (a bare
			// number, string, or array).
			d.write(newError(nil, CodeInvalidRequest, "Invalid Request: expected an object", nil))
			return
		}
		d.write(newError(nil, CodeParseError, "Parse error", err.Error()))
		return
	}

	var version string
	if err := json.Unmarshal(envelope.JSONRPC, &version); err != nil || version != Version {
		d.write(newError(envelope.ID, CodeInvalidRequest,
			fmt.Sprintf("Invalid Request: jsonrpc must be %q", Version), nil))
		return
	}

	var method string
	if err := json.Unmarshal(envelope.Method, &method); err != nil || method == "" {
		d.write(newError(envelope.ID, CodeInvalidRequest,
			"Invalid Request: method must be a non-empty string", nil))
		return
	}

	if !d.isReady() && method != "initialize" {
		// Lenient gating: the request is processed anyway, the client
		// just skipped the handshake.
		logging.Warn("request before initialize", "method", method)
	}

	switch method {
	case "initialize":
		d.markReady()
		d.write(newSuccess(envelope.ID, InitializeResult{
			ProtocolVersion: MCPProtocolVersion,
			Capabilities:    Capabilities{Tools: ToolsCapability{}},
			ServerInfo:      d.info,
		}))

	case "tools/list":
		tools := router.ListTools(d.registry)
		if tools == nil {
			tools = []mcp.Tool{}
		}
		d.write(newSuccess(envelope.ID, map[string]any{"tools": tools}))

	case "tools/call":
		d.dispatchCall(ctx, envelope.ID, envelope.Params)

	default:
		d.write(newError(envelope.ID, CodeMethodNotFound,
			fmt.Sprintf("Method not found: %s. Supported methods: %s",
				method, strings.Join(supportedMethods, ", ")), nil))
	}
}

// dispatchCall validates tools/call params against the live tool list,
// then hands the call to the router on its own goroutine.
func (d *Dispatcher) dispatchCall(ctx context.Context, id json.RawMessage, params json.RawMessage) {
	var call CallParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &call); err != nil {
			d.write(newError(id, CodeInvalidParams,
				fmt.Sprintf("Invalid params: %v", err), nil))
			return
		}
	}
	if call.Name == "" {
		d.write(newError(id, CodeInvalidParams,
			"Invalid params: missing tool name", nil))
		return
	}

	// The tool list is recomputed on every call rather than snapshotted
	// at initialize, so tools registered after startup are callable and
	// unregistered ones stop resolving immediately.
	if _, ok := d.registry.FindByTool(call.Name); !ok {
		available := d.registry.ToolNames()
		d.write(newError(id, CodeInvalidParams,
			fmt.Sprintf("Unknown tool: %s. Available tools: %s",
				call.Name, strings.Join(available, ", ")), nil))
		return
	}

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		defer func() {
			// The router converts all handler failures to error results
			// itself; this catches a failure of the router proper.
			if rec := recover(); rec != nil {
				logging.Error("tool routing panic", "tool", call.Name, "panic", rec)
				d.write(newError(id, CodeToolError, "Tool execution failed", map[string]any{
					"tool":  call.Name,
					"error": fmt.Sprintf("%v", rec),
				}))
			}
		}()

		start := time.Now()
		result := router.Call(ctx, d.registry, call.Name, call.Arguments)
		if d.recorder != nil {
			d.recorder.RecordCall(call.Name, result.IsError, time.Since(start))
		}
		d.write(newSuccess(id, result))
	}()
}

// write serializes one response as a single line and writes it
// atomically to the output stream.
func (d *Dispatcher) write(resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		// A response we built ourselves failed to serialize; degrade to
		// a minimal internal error rather than dropping the reply.
		logging.Error("marshaling response", "error", err)
		data = fmt.Appendf(nil,
			`{"jsonrpc":"2.0","id":null,"error":{"code":%d,"message":"Internal error"}}`,
			CodeInternalError)
	}

	d.writeMu.Lock()
	defer d.writeMu.Unlock()
	if _, err := d.out.Write(append(data, '\n')); err != nil {
		logging.Error("writing response", "error", err)
	}
}

func (d *Dispatcher) isReady() bool {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	return d.ready
}

func (d *Dispatcher) markReady() {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if !d.ready {
		d.ready = true
		logging.Debug("dispatcher ready")
	}
}
