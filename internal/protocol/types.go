// Package protocol implements the newline-delimited JSON-RPC 2.0 layer
// spoken over stdio: the envelope types, the line framer, and the method
// dispatcher.
//
// The wire format is one JSON object per line. stdout carries protocol
// JSON only; every diagnostic goes to stderr through internal/logging.
package protocol

import "encoding/json"

// Version is the JSON-RPC protocol version; requests must match exactly.
const Version = "2.0"

// MCPProtocolVersion is the Model Context Protocol revision reported by
// initialize.
const MCPProtocolVersion = "2024-11-05"

// Standard JSON-RPC 2.0 error codes, plus the implementation-defined
// tool-execution code.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeToolError      = -32000
)

// Request is an incoming JSON-RPC 2.0 request envelope.
//
// ID is kept as raw JSON so the response can echo it byte-for-byte —
// the spec allows numbers, strings, and null, and the client correlates
// responses by exact id. A nil ID means the field was absent.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is an outgoing JSON-RPC 2.0 response envelope. Exactly one
// of Result or Error is set. ID is always serialized, as null when the
// request id was absent or unparseable.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// CallParams is the params shape for tools/call.
type CallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// InitializeResult is the static payload returned by initialize.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    Capabilities `json:"capabilities"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

// Capabilities advertises what this server supports. Only tools; the
// resources/prompts/sampling surfaces of MCP are out of scope.
type Capabilities struct {
	Tools ToolsCapability `json:"tools"`
}

// ToolsCapability is the tools capability object.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ServerInfo identifies the server to the client.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// newSuccess builds a success response echoing the given raw id.
func newSuccess(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: Version, ID: normalizeID(id), Result: result}
}

// newError builds an error response echoing the given raw id.
func newError(id json.RawMessage, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: Version,
		ID:      normalizeID(id),
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

// normalizeID maps an absent id to explicit null so the "id" field is
// always present in responses.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
