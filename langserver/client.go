package langserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tliron/glsp/protocol_3_16"
	"go.uber.org/zap"

	"github.com/teranos/typeglyph/document"
	"github.com/teranos/typeglyph/errors"
	"github.com/teranos/typeglyph/logger"
)

// Client is the subset of LSP a collection pass uses
type Client interface {
	Initialize(ctx context.Context, rootURI string) error
	DidOpen(ctx context.Context, uri, languageID string, version int, text string) error
	DidChange(ctx context.Context, uri string, version int, text string) error
	Hover(ctx context.Context, uri string, pos document.Position) (*Hover, error)
	DocumentSymbols(ctx context.Context, uri string) ([]DocumentSymbol, error)
	DocumentHighlights(ctx context.Context, uri string, pos document.Position) ([]DocumentHighlight, error)
	Shutdown(ctx context.Context) error
}

// StdioClient implements Client over a server process's stdin and stdout
type StdioClient struct {
	name   string
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *zap.SugaredLogger

	writeMu sync.Mutex
	nextID  atomic.Int64
	pending map[int64]chan *jsonrpcMessage
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
}

// jsonrpcRequest represents a JSON-RPC 2.0 request or notification
type jsonrpcRequest struct {
	Jsonrpc string      `json:"jsonrpc"`
	ID      int64       `json:"id,omitempty"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// jsonrpcReply answers a request the server sent us
type jsonrpcReply struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
}

// jsonrpcMessage is any message read from the server: a response to one of
// our requests, a request of its own, or a notification
type jsonrpcMessage struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

// jsonrpcError represents a JSON-RPC 2.0 error
type jsonrpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewStdioClient starts command and speaks LSP over its stdio.
// command[0] must be on PATH or an absolute path.
func NewStdioClient(command []string, log *zap.SugaredLogger) (*StdioClient, error) {
	if len(command) == 0 {
		return nil, errors.NewInvalidRequestError("empty language server command")
	}
	name := command[0]
	if _, err := exec.LookPath(name); err != nil {
		return nil, errors.WithHintf(errors.Wrapf(errors.ErrNotFound, "language server %s", name),
			"install %s or point language_servers at another command", name)
	}

	cmd := exec.Command(name, command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s stdin pipe", name)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s stdout pipe", name)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create %s stderr pipe", name)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", name)
	}

	c := newClient(name, stdin, stdout, stderr, log)
	c.cmd = cmd
	return c, nil
}

// newClient wires a client to already-open streams
func newClient(name string, stdin io.WriteCloser, stdout, stderr io.Reader, log *zap.SugaredLogger) *StdioClient {
	if log == nil {
		log = logger.ComponentLogger("langserver")
	}
	c := &StdioClient{
		name:    name,
		stdin:   stdin,
		logger:  log.With(logger.FieldServer, name),
		pending: make(map[int64]chan *jsonrpcMessage),
		done:    make(chan struct{}),
	}

	go c.readLoop(stdout)
	if stderr != nil {
		go c.stderrLoop(stderr)
	}
	return c
}

// Name returns the server command name
func (c *StdioClient) Name() string {
	return c.name
}

// Initialize establishes the LSP session rooted at rootURI
func (c *StdioClient) Initialize(ctx context.Context, rootURI string) error {
	pid := protocol.Integer(os.Getpid())
	params := map[string]interface{}{
		"processId": pid,
		"rootUri":   rootURI,
		"clientInfo": map[string]interface{}{
			"name": "typeglyph",
		},
		"capabilities": map[string]interface{}{
			"textDocument": map[string]interface{}{
				"synchronization": map[string]interface{}{
					"didSave": false,
				},
				"hover": map[string]interface{}{
					"contentFormat": []protocol.MarkupKind{protocol.MarkupKindMarkdown, protocol.MarkupKindPlainText},
				},
				"documentSymbol": map[string]interface{}{
					"hierarchicalDocumentSymbolSupport": true,
				},
				"documentHighlight": map[string]interface{}{},
			},
			"workspace": map[string]interface{}{
				"configuration": true,
			},
		},
	}
	if rootURI != "" {
		params["workspaceFolders"] = []map[string]string{{"uri": rootURI, "name": "root"}}
	}

	var result json.RawMessage
	if err := c.call(ctx, "initialize", params, &result); err != nil {
		return errors.Wrapf(err, "%s initialize failed for %s", c.name, rootURI)
	}
	if err := c.notify("initialized", map[string]interface{}{}); err != nil {
		return errors.Wrapf(err, "%s initialized notification failed", c.name)
	}
	c.logger.Debugw("language server initialized", "root", rootURI)
	return nil
}

// DidOpen tells the server about a document's full text
func (c *StdioClient) DidOpen(_ context.Context, uri, languageID string, version int, text string) error {
	return c.notify("textDocument/didOpen", protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: languageID,
			Version:    protocol.Integer(version),
			Text:       text,
		},
	})
}

// DidChange replaces a document's full text
func (c *StdioClient) DidChange(_ context.Context, uri string, version int, text string) error {
	return c.notify("textDocument/didChange", protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                protocol.Integer(version),
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: text}},
	})
}

// Hover returns hover information at a position, or nil when there is none
func (c *StdioClient) Hover(ctx context.Context, uri string, pos document.Position) (*Hover, error) {
	params := protocol.HoverParams{TextDocumentPositionParams: positionParams(uri, pos)}

	var result *Hover
	if err := c.call(ctx, "textDocument/hover", params, &result); err != nil {
		return nil, errors.Wrapf(err, "%s hover at %s:%s", c.name, uri, pos)
	}
	return result, nil
}

// DocumentSymbols returns the symbol tree of a document
func (c *StdioClient) DocumentSymbols(ctx context.Context, uri string) ([]DocumentSymbol, error) {
	params := protocol.DocumentSymbolParams{TextDocument: protocol.TextDocumentIdentifier{URI: uri}}

	var raw json.RawMessage
	if err := c.call(ctx, "textDocument/documentSymbol", params, &raw); err != nil {
		return nil, errors.Wrapf(err, "%s document symbols for %s", c.name, uri)
	}
	symbols, err := decodeSymbols(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "%s document symbols for %s", c.name, uri)
	}
	return symbols, nil
}

// DocumentHighlights returns ranges highlighted together with pos
func (c *StdioClient) DocumentHighlights(ctx context.Context, uri string, pos document.Position) ([]DocumentHighlight, error) {
	params := protocol.DocumentHighlightParams{TextDocumentPositionParams: positionParams(uri, pos)}

	var result []DocumentHighlight
	if err := c.call(ctx, "textDocument/documentHighlight", params, &result); err != nil {
		return nil, errors.Wrapf(err, "%s highlights at %s:%s", c.name, uri, pos)
	}
	return result, nil
}

// Shutdown gracefully closes the LSP session and waits for the process
func (c *StdioClient) Shutdown(ctx context.Context) error {
	if err := c.call(ctx, "shutdown", nil, nil); err != nil {
		return errors.Wrapf(err, "%s shutdown RPC failed", c.name)
	}
	if err := c.notify("exit", nil); err != nil {
		return errors.Wrapf(err, "%s exit notification failed", c.name)
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	_ = c.stdin.Close()

	if c.cmd == nil {
		return nil
	}

	exited := make(chan error, 1)
	go func() {
		exited <- c.cmd.Wait()
	}()

	select {
	case err := <-exited:
		if err != nil {
			return errors.Wrapf(err, "%s exited with error", c.name)
		}
		return nil
	case <-ctx.Done():
		_ = c.cmd.Process.Kill()
		return errors.Wrapf(errors.ErrTimeout, "waiting for %s to exit", c.name)
	}
}

// Kill terminates the server without the shutdown handshake
func (c *StdioClient) Kill() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	_ = c.stdin.Close()
	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}
	if err := c.cmd.Process.Kill(); err != nil {
		return errors.Wrapf(err, "failed to kill %s (pid %d)", c.name, c.cmd.Process.Pid)
	}
	return nil
}

// call sends a JSON-RPC request and waits for its response
func (c *StdioClient) call(ctx context.Context, method string, params, result interface{}) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.Wrapf(errors.ErrServiceUnavailable, "%s client is shut down", c.name)
	}
	id := c.nextID.Add(1)
	responseChan := make(chan *jsonrpcMessage, 1)
	c.pending[id] = responseChan
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := jsonrpcRequest{
		Jsonrpc: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}
	if err := c.write(req); err != nil {
		return errors.Wrapf(err, "failed to write JSON-RPC request for method %s", method)
	}

	select {
	case resp := <-responseChan:
		if resp.Error != nil {
			return errors.Newf("JSON-RPC error %d on method %s: %s", resp.Error.Code, method, resp.Error.Message)
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return errors.Wrapf(err, "failed to unmarshal JSON-RPC response for method %s", method)
			}
		}
		return nil
	case <-c.done:
		return errors.Wrapf(errors.ErrServiceUnavailable, "%s closed its output during %s", c.name, method)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return errors.Wrapf(errors.ErrTimeout, "%s %s", c.name, method)
		}
		return ctx.Err()
	}
}

// notify sends a JSON-RPC notification (no response expected)
func (c *StdioClient) notify(method string, params interface{}) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errors.Wrapf(errors.ErrServiceUnavailable, "%s client is shut down", c.name)
	}
	return c.write(jsonrpcRequest{Jsonrpc: "2.0", Method: method, Params: params})
}

func (c *StdioClient) write(msg interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFrame(c.stdin, msg)
}

// readLoop dispatches every message the server sends until its output closes
func (c *StdioClient) readLoop(stdout io.Reader) {
	defer close(c.done)
	reader := bufio.NewReader(stdout)

	for {
		content, err := readFrame(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Debugw("language server stream ended", logger.FieldError, err)
			}
			return
		}
		if content == nil {
			continue
		}

		var msg jsonrpcMessage
		if err := json.Unmarshal(content, &msg); err != nil {
			c.logger.Warnw("unparseable message from language server", logger.FieldError, err)
			continue
		}

		switch {
		case msg.Method != "" && len(msg.ID) > 0:
			c.answerServerRequest(&msg)
		case msg.Method != "":
			c.handleNotification(&msg)
		default:
			c.dispatchResponse(&msg)
		}
	}
}

func (c *StdioClient) dispatchResponse(msg *jsonrpcMessage) {
	id, err := strconv.ParseInt(strings.Trim(string(msg.ID), `"`), 10, 64)
	if err != nil {
		c.logger.Debugw("response with foreign id", "id", string(msg.ID))
		return
	}
	c.mu.Lock()
	if ch, ok := c.pending[id]; ok {
		ch <- msg
	}
	c.mu.Unlock()
}

// answerServerRequest replies null to requests such as workspace/configuration,
// window/workDoneProgress/create and client/registerCapability
func (c *StdioClient) answerServerRequest(msg *jsonrpcMessage) {
	c.logger.Debugw("answering server request", logger.FieldMethod, msg.Method)
	reply := jsonrpcReply{Jsonrpc: "2.0", ID: msg.ID, Result: json.RawMessage("null")}
	if err := c.write(reply); err != nil {
		c.logger.Debugw("failed to answer server request", logger.FieldMethod, msg.Method, logger.FieldError, err)
	}
}

func (c *StdioClient) handleNotification(msg *jsonrpcMessage) {
	switch msg.Method {
	case "window/logMessage", "window/showMessage":
		var params struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(msg.Params, &params); err == nil {
			c.logger.Debugw("language server message", "message", params.Message)
		}
	}
}

// stderrLoop drains stderr so the server never blocks on a full pipe
func (c *StdioClient) stderrLoop(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			c.logger.Debugw("language server stderr", "line", line)
		}
	}
}

// readFrame reads one Content-Length framed message. A header block with no
// Content-Length yields (nil, nil).
func readFrame(r *bufio.Reader) ([]byte, error) {
	contentLength := -1
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, errors.Wrapf(err, "bad Content-Length %q", value)
		}
		contentLength = n
	}

	if contentLength <= 0 {
		return nil, nil
	}
	content := make([]byte, contentLength)
	if _, err := io.ReadFull(r, content); err != nil {
		return nil, err
	}
	return content, nil
}

// writeFrame writes msg as JSON with an LSP header
func writeFrame(w io.Writer, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal JSON-RPC message")
	}
	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(data))
	if _, err := io.WriteString(w, header); err != nil {
		return errors.Wrap(err, "failed to write LSP header")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write LSP message")
	}
	return nil
}
