package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Gateway fronts an MCPServer on every transport. mcp-go rejects a
// tools/call naming an unregistered tool with a JSON-RPC error; the gateway
// answers those calls itself with an error-flagged tool result, so a call
// never fails at the protocol level.
type Gateway struct {
	srv      *server.MCPServer
	fallback server.ToolHandlerFunc
}

// NewGateway fronts srv. fallback handles calls to unknown tools and should
// be the dispatcher's handler wrapped in the same middleware as srv's tools.
func NewGateway(srv *server.MCPServer, fallback server.ToolHandlerFunc) *Gateway {
	return &Gateway{srv: srv, fallback: fallback}
}

// Server returns the fronted server.
func (g *Gateway) Server() *server.MCPServer {
	return g.srv
}

type callEnvelope struct {
	ID     mcp.RequestId      `json:"id"`
	Method string             `json:"method"`
	Params mcp.CallToolParams `json:"params"`
}

// unknownToolCall decodes raw when it is a tools/call request for a tool the
// server does not have. Anything else, batches included, is left to mcp-go.
func (g *Gateway) unknownToolCall(raw []byte) (mcp.RequestId, mcp.CallToolRequest, bool) {
	var msg callEnvelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		return mcp.RequestId{}, mcp.CallToolRequest{}, false
	}
	if msg.Method != string(mcp.MethodToolsCall) || msg.ID.IsNil() || g.srv.GetTool(msg.Params.Name) != nil {
		return mcp.RequestId{}, mcp.CallToolRequest{}, false
	}

	req := mcp.CallToolRequest{Params: msg.Params}
	req.Method = msg.Method
	return msg.ID, req, true
}

// Intercept answers raw when it is a call to an unknown tool. ok is false
// for every other message.
func (g *Gateway) Intercept(ctx context.Context, raw []byte) (resp mcp.JSONRPCMessage, ok bool) {
	id, req, ok := g.unknownToolCall(raw)
	if !ok {
		return nil, false
	}

	result, err := g.fallback(ctx, req)
	if err != nil {
		result = failure(err).CallToolResult()
	}
	return mcp.JSONRPCResponse{JSONRPC: mcp.JSONRPC_VERSION, ID: id, Result: result}, true
}

// --- stdio ---

// ServeStdio serves MCP on stdin/stdout until EOF, SIGINT or SIGTERM.
func (g *Gateway) ServeStdio(opts ...server.StdioOption) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return g.ListenStdio(ctx, os.Stdin, os.Stdout, opts...)
}

// ListenStdio serves newline-delimited JSON-RPC from in to out.
func (g *Gateway) ListenStdio(ctx context.Context, in io.Reader, out io.Writer, opts ...server.StdioOption) error {
	s := server.NewStdioServer(g.srv)
	for _, opt := range opts {
		opt(s)
	}

	w := &lockedWriter{w: out}
	pr, pw := io.Pipe()
	defer pr.Close()

	go g.filterStdio(ctx, in, pw, w)
	return s.Listen(ctx, pr, w)
}

// filterStdio answers unknown tool calls on out and passes every other line
// through to the stdio server.
func (g *Gateway) filterStdio(ctx context.Context, in io.Reader, pass *io.PipeWriter, out io.Writer) {
	r := bufio.NewReader(in)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			if resp, ok := g.Intercept(ctx, line); ok {
				data, mErr := json.Marshal(resp)
				if mErr == nil {
					out.Write(append(data, '\n'))
				}
			} else if _, wErr := pass.Write(line); wErr != nil {
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				pass.Close()
			} else {
				pass.CloseWithError(err)
			}
			return
		}
	}
}

// lockedWriter keeps whole-line writes from the stdio server and the filter
// from interleaving.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// --- in-process ---

// InProcessClient returns an unstarted client that talks to the gateway
// without a transport. Connect starts it.
func (g *Gateway) InProcessClient() *client.Client {
	return client.NewClient(&inProcessTransport{
		InProcessTransport: transport.NewInProcessTransport(g.srv),
		gateway:            g,
	})
}

type inProcessTransport struct {
	*transport.InProcessTransport
	gateway *Gateway
}

func (t *inProcessTransport) SendRequest(ctx context.Context, request transport.JSONRPCRequest) (*transport.JSONRPCResponse, error) {
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	resp, ok := t.gateway.Intercept(ctx, raw)
	if !ok {
		return t.InProcessTransport.SendRequest(ctx, request)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshaling response: %w", err)
	}
	var rpcResp transport.JSONRPCResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &rpcResp, nil
}
