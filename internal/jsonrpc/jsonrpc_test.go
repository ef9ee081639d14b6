package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantCode int
	}{
		{name: "request int id", input: `{"jsonrpc":"2.0","id":1,"method":"ping"}`, wantType: "request"},
		{name: "request string id", input: `{"jsonrpc":"2.0","id":"a-1","method":"tools/list","params":{}}`, wantType: "request"},
		{name: "notification", input: `{"jsonrpc":"2.0","method":"notifications/initialized"}`, wantType: "notification"},
		{name: "null id is notification", input: `{"jsonrpc":"2.0","id":null,"method":"x"}`, wantType: "notification"},
		{name: "response", input: `{"jsonrpc":"2.0","id":3,"result":{}}`, wantType: "response"},
		{name: "garbage", input: `{"jsonrpc":`, wantCode: CodeParseError},
		{name: "not json", input: `hello`, wantCode: CodeParseError},
		{name: "fractional id", input: `{"jsonrpc":"2.0","id":1.5,"method":"ping"}`, wantCode: CodeInvalidRequest},
		{name: "object id", input: `{"jsonrpc":"2.0","id":{},"method":"ping"}`, wantCode: CodeInvalidRequest},
		{name: "bad id in truncated json", input: `{"jsonrpc":"2.0","id":1.5,`, wantCode: CodeParseError},
		{name: "batch", input: ` [{"jsonrpc":"2.0","id":1,"method":"ping"}]`, wantCode: CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tt.input))
			if tt.wantCode != 0 {
				var rpcErr *Error
				if !errors.As(err, &rpcErr) || rpcErr.Code != tt.wantCode {
					t.Fatalf("DecodeMessage() error = %v, want code %d", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeMessage() error = %v", err)
			}
			var got string
			switch msg.(type) {
			case *Request:
				got = "request"
			case *Notification:
				got = "notification"
			case *Response:
				got = "response"
			}
			if got != tt.wantType {
				t.Errorf("DecodeMessage() type = %s, want %s", got, tt.wantType)
			}
		})
	}
}

func TestDecodeMessage_IDTypes(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"jsonrpc":"2.0","id":42,"method":"ping"}`))
	if err != nil {
		t.Fatal(err)
	}
	if v := msg.(*Request).ID.Value(); v != int64(42) {
		t.Errorf("ID = %#v, want int64(42)", v)
	}

	msg, err = DecodeMessage([]byte(`{"jsonrpc":"2.0","id":"abc","method":"ping"}`))
	if err != nil {
		t.Fatal(err)
	}
	if v := msg.(*Request).ID.Value(); v != "abc" {
		t.Errorf("ID = %#v, want \"abc\"", v)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid request", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, false},
		{"valid with params", `{"jsonrpc":"2.0","id":1,"method":"x","params":{"a":1}}`, false},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, true},
		{"missing version", `{"id":1,"method":"ping"}`, true},
		{"missing method", `{"jsonrpc":"2.0","id":7}`, true},
		{"scalar params", `{"jsonrpc":"2.0","id":1,"method":"x","params":5}`, true},
		{"notification wrong version", `{"jsonrpc":"3","method":"x"}`, true},
		{"client response", `{"jsonrpc":"2.0","id":1,"result":null}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeMessage([]byte(tt.input))
			if err != nil {
				t.Fatalf("DecodeMessage() error = %v", err)
			}
			rpcErr := Validate(msg)
			if (rpcErr != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", rpcErr, tt.wantErr)
			}
			if rpcErr != nil && rpcErr.Code != CodeInvalidRequest {
				t.Errorf("Validate() code = %d", rpcErr.Code)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse(IntID(1), map[string]string{"ok": "yes"}, nil)
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"jsonrpc":"2.0","id":1,"result":{"ok":"yes"}}`; string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}

	resp = NewResponse(StringID("x"), nil, Errorf(CodeMethodNotFound, "method not found: %s", "nope"))
	data, _ = json.Marshal(resp)
	if want := `{"jsonrpc":"2.0","id":"x","error":{"code":-32601,"message":"method not found: nope"}}`; string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}

	resp = NewResponse(ID{}, nil, errors.New("boom"))
	data, _ = json.Marshal(resp)
	if want := `{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"boom"}}`; string(data) != want {
		t.Errorf("marshal = %s, want %s", data, want)
	}

	resp = NewResponse(IntID(2), nil, nil)
	if string(resp.Result) != "null" {
		t.Errorf("nil result = %s, want null", resp.Result)
	}
}

func TestCodec_Read(t *testing.T) {
	input := "{\"a\":1}\n\n   \n{\"b\":2}\r\n{\"c\":3}"
	c := NewCodec(strings.NewReader(input), io.Discard)

	for _, want := range []string{`{"a":1}`, `{"b":2}`, `{"c":3}`} {
		got, err := c.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if string(got) != want {
			t.Errorf("Read() = %q, want %q", got, want)
		}
	}
	if _, err := c.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("Read() at end error = %v, want io.EOF", err)
	}
}

func TestCodec_ReadTooLargeRecovers(t *testing.T) {
	big := `{"x":"` + strings.Repeat("a", MaxMessageSize) + `"}`
	input := big + "\n" + `{"ok":true}` + "\n"
	c := NewCodec(strings.NewReader(input), io.Discard)

	if _, err := c.Read(); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("Read() error = %v, want ErrMessageTooLarge", err)
	}
	got, err := c.Read()
	if err != nil {
		t.Fatalf("Read() after oversize line error = %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("Read() = %q", got)
	}
}

func TestCodec_ReadLineAtLimit(t *testing.T) {
	line := strings.Repeat("a", MaxMessageSize)
	c := NewCodec(strings.NewReader(line+"\n"), io.Discard)
	got, err := c.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != MaxMessageSize {
		t.Errorf("len = %d, want %d", len(got), MaxMessageSize)
	}
}

func TestCodec_Write(t *testing.T) {
	var buf bytes.Buffer
	c := NewCodec(strings.NewReader(""), &buf)

	if err := c.WriteMessage(NewResponse(IntID(1), "pong", nil)); err != nil {
		t.Fatal(err)
	}
	if err := c.Write([]byte(`{"raw":true}`)); err != nil {
		t.Fatal(err)
	}

	want := `{"jsonrpc":"2.0","id":1,"result":"pong"}` + "\n" + `{"raw":true}` + "\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
