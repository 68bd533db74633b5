// Package rpc implements the generator side of the line-delimited JSON-RPC
// protocol spoken by schema tooling: requests arrive one per line on stdin and
// responses are written one per line to stderr.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	MethodManifest = "getManifest"
	MethodGenerate = "generate"
)

// maxLine bounds a single request. generate carries the whole datamodel.
const maxLine = 64 << 20

// Request is one JSON-RPC request line.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Response is one JSON-RPC response line. Exactly one of Result and Error is
// set; a successful generate carries a literal null result.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the error member of a Response. Code is always 0.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Manifest describes the generator to the caller.
type Manifest struct {
	PrettyName    string `json:"prettyName"`
	DefaultOutput string `json:"defaultOutput"`
}

// EnvValue is a configuration value that may come from the environment.
type EnvValue struct {
	Value      string  `json:"value"`
	FromEnvVar *string `json:"fromEnvVar"`
}

// Resolve returns the value, reading FromEnvVar when it is set.
func (v EnvValue) Resolve() (string, error) {
	if v.FromEnvVar == nil || *v.FromEnvVar == "" {
		return v.Value, nil
	}
	s, ok := os.LookupEnv(*v.FromEnvVar)
	if !ok {
		return "", fmt.Errorf("rpc: environment variable %s is not set", *v.FromEnvVar)
	}
	return s, nil
}

// GeneratorOptions is the generator block as sent with generate.
type GeneratorOptions struct {
	Name     string         `json:"name"`
	Provider EnvValue       `json:"provider"`
	Output   *EnvValue      `json:"output"`
	Config   map[string]any `json:"config"`
}

// ConfigString returns a config entry as a string. Non-string entries are
// formatted with fmt.
func (g GeneratorOptions) ConfigString(key string) string {
	v, ok := g.Config[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GenerateParams are the params of a generate request.
type GenerateParams struct {
	Datamodel  string           `json:"datamodel"`
	Generator  GeneratorOptions `json:"generator"`
	SchemaPath string           `json:"schemaPath"`
}

// Handler answers the two protocol methods.
type Handler interface {
	Manifest() Manifest
	Generate(ctx context.Context, p GenerateParams) error
}

// Serve reads requests from r and writes responses to w until a generate
// request has been answered or r reaches EOF. name identifies the generator
// in error messages. A request line that cannot be decoded ends Serve with an
// error.
func Serve(ctx context.Context, r io.Reader, w io.Writer, name string, h Handler) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // pass through
		}
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			return fmt.Errorf("rpc: decode request: %w", err)
		}

		resp, err := dispatch(ctx, name, h, req)
		if err != nil {
			return err
		}
		if err := write(w, resp); err != nil {
			return err
		}
		if req.Method == MethodGenerate {
			return nil
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("rpc: read request: %w", err)
	}
	return nil
}

func dispatch(ctx context.Context, name string, h Handler, req Request) (Response, error) {
	resp := Response{JSONRPC: "2.0", ID: req.ID}
	switch req.Method {
	case MethodManifest:
		b, err := json.Marshal(struct {
			Manifest Manifest `json:"manifest"`
		}{h.Manifest()})
		if err != nil {
			return Response{}, fmt.Errorf("rpc: encode manifest: %w", err)
		}
		resp.Result = b
	case MethodGenerate:
		var p GenerateParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return Response{}, fmt.Errorf("rpc: decode generate params: %w", err)
		}
		if err := h.Generate(ctx, p); err != nil {
			resp.Error = &Error{Message: err.Error()}
		} else {
			resp.Result = json.RawMessage("null")
		}
	default:
		resp.Error = &Error{Message: fmt.Sprintf("%s cannot handle method %s", name, req.Method)}
	}
	return resp, nil
}

var errShortWrite = errors.New("rpc: short write")

func write(w io.Writer, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("rpc: encode response: %w", err)
	}
	b = append(b, '\n')
	n, err := w.Write(b)
	if err != nil {
		return fmt.Errorf("rpc: write response: %w", err)
	}
	if n != len(b) {
		return errShortWrite
	}
	return nil
}
