// Package langserver talks to an external language server over stdio.
//
// StdioClient speaks JSON-RPC 2.0 with LSP Content-Length framing to any
// server command (gopls, typescript-language-server, pyright, ...). Provider
// adapts a client to the three lookups a collection pass needs: document
// symbols, hover text and document highlights. It keeps the server's view of
// each document in sync by version, rate-limits lookups and bounds each with
// a timeout.
package langserver
