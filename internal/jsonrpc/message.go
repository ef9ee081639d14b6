// Package jsonrpc implements the JSON-RPC 2.0 message model and a
// newline-delimited stream codec.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/thoreinstein/devenv/internal/errors"
)

// Version is the only protocol version accepted in the "jsonrpc" member.
const Version = "2.0"

// RawMessage is a raw JSON value that delays unmarshaling.
type RawMessage = json.RawMessage

// Message is a Request, Notification or Response.
type Message interface {
	isJSONRPC()
}

// Request expects a Response with the same ID.
type Request struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      ID         `json:"id"`
	Method  string     `json:"method"`
	Params  RawMessage `json:"params,omitempty"`
}

func (Request) isJSONRPC() {}

// Notification is a request without an ID. It is never answered.
type Notification struct {
	JSONRPC string     `json:"jsonrpc"`
	Method  string     `json:"method"`
	Params  RawMessage `json:"params,omitempty"`
}

func (Notification) isJSONRPC() {}

// Response carries either Result or Error.
type Response struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      ID         `json:"id"`
	Result  RawMessage `json:"result,omitempty"`
	Error   *Error     `json:"error,omitempty"`
}

func (Response) isJSONRPC() {}

// Error is a JSON-RPC error object. It doubles as a Go error so handlers
// can return protocol errors directly.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// Standard error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// CodeServerNotInitialized rejects requests sent before the handshake.
const CodeServerNotInitialized = -32002

// Errorf builds an *Error with a formatted message.
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ID is a request ID: an integer, a string, or absent.
type ID struct {
	value any
}

// IntID creates an integer-valued ID.
func IntID(v int64) ID { return ID{value: v} }

// StringID creates a string-valued ID.
func StringID(v string) ID { return ID{value: v} }

// IsValid reports whether the ID is set.
func (id ID) IsValid() bool { return id.value != nil }

// Value returns the int64 or string value, or nil.
func (id ID) Value() any { return id.value }

func (id ID) String() string {
	if id.value == nil {
		return "null"
	}
	return fmt.Sprint(id.value)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(id.value)
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		id.value = nil
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		id.value = n
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		id.value = s
		return nil
	}
	return &Error{Code: CodeInvalidRequest, Message: "id must be an integer, string, or null"}
}

// DecodeMessage parses one JSON value into a Request, Notification or
// Response. Invalid JSON yields a CodeParseError *Error; a well-formed
// message with an unusable id yields CodeInvalidRequest. Structurally
// invalid messages decode to whatever shape they resemble; Validate
// reports what is wrong with them.
func DecodeMessage(data []byte) (Message, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		return nil, &Error{Code: CodeInvalidRequest, Message: "batch requests are not supported"}
	}

	var raw struct {
		JSONRPC string     `json:"jsonrpc"`
		ID      *ID        `json:"id,omitempty"`
		Method  string     `json:"method,omitempty"`
		Result  RawMessage `json:"result,omitempty"`
		Error   *Error     `json:"error,omitempty"`
		Params  RawMessage `json:"params,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		var rpcErr *Error
		if errors.As(err, &rpcErr) && json.Valid(data) {
			return nil, rpcErr
		}
		return nil, &Error{Code: CodeParseError, Message: "parse error: " + err.Error()}
	}

	if raw.Method != "" {
		if raw.ID != nil && raw.ID.IsValid() {
			return &Request{
				JSONRPC: raw.JSONRPC,
				ID:      *raw.ID,
				Method:  raw.Method,
				Params:  raw.Params,
			}, nil
		}
		return &Notification{
			JSONRPC: raw.JSONRPC,
			Method:  raw.Method,
			Params:  raw.Params,
		}, nil
	}

	id := ID{}
	if raw.ID != nil {
		id = *raw.ID
	}
	return &Response{
		JSONRPC: raw.JSONRPC,
		ID:      id,
		Result:  raw.Result,
		Error:   raw.Error,
	}, nil
}

// Validate checks the version member and, for requests, the presence of
// params of the right shape. It returns a CodeInvalidRequest *Error or nil.
func Validate(msg Message) *Error {
	var version string
	var params RawMessage
	switch m := msg.(type) {
	case *Request:
		version, params = m.JSONRPC, m.Params
	case *Notification:
		version, params = m.JSONRPC, m.Params
	case *Response:
		if m.Result == nil && m.Error == nil {
			return &Error{Code: CodeInvalidRequest, Message: "invalid request: missing method"}
		}
		version = m.JSONRPC
	default:
		return &Error{Code: CodeInvalidRequest, Message: "invalid request"}
	}

	if version != Version {
		return Errorf(CodeInvalidRequest, "invalid request: jsonrpc must be %q", Version)
	}
	if p := bytes.TrimSpace(params); len(p) > 0 && p[0] != '{' && p[0] != '[' && !bytes.Equal(p, []byte("null")) {
		return &Error{Code: CodeInvalidRequest, Message: "invalid request: params must be an object or array"}
	}
	return nil
}

// NewResponse creates a response for id. A non-nil err becomes the error
// member; other errors than *Error map to CodeInternalError.
func NewResponse(id ID, result any, err error) *Response {
	resp := &Response{
		JSONRPC: Version,
		ID:      id,
	}
	if err != nil {
		if rpcErr, ok := err.(*Error); ok {
			resp.Error = rpcErr
		} else {
			resp.Error = &Error{Code: CodeInternalError, Message: err.Error()}
		}
		return resp
	}
	if result == nil {
		resp.Result = RawMessage("null")
		return resp
	}
	data, merr := json.Marshal(result)
	if merr != nil {
		resp.Error = &Error{Code: CodeInternalError, Message: merr.Error()}
		return resp
	}
	resp.Result = data
	return resp
}
