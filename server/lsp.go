package server

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/minilang/compiler"
)

const lspName = "minilang-lsp"

// LspServer provides editor diagnostics and navigation for minilang
// sources. Every request re-parses the current document text.
type LspServer struct {
	opts compiler.Options
	log  commonlog.Logger

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server that checks documents with opts.
func NewLSP(opts compiler.Options) *LspServer {
	s := &LspServer{
		opts:    opts,
		log:     commonlog.GetLogger("minilang.lsp"),
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion:     s.textDocumentCompletion,
		TextDocumentHover:          s.textDocumentHover,
		TextDocumentDefinition:     s.textDocumentDefinition,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	s.log.Info("minilang LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.DocumentSymbolProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(text, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(text, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	uri := params.TextDocument.URI
	text, ok := s.document(uri)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	locs := s.definition(uri, text, word)
	if len(locs) == 0 {
		return nil, nil
	}
	return locs, nil
}

func (s *LspServer) textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	return s.symbols(text), nil
}

// --- Feature implementations ---

// declaration is a let or fn found while walking a parsed document.
type declaration struct {
	name   string
	detail string
	kind   protocol.SymbolKind
	span   compiler.Span
	body   []declaration
}

func (s *LspServer) declarations(text string) []declaration {
	prog, _ := compiler.ParseSource(text, s.opts)
	return collectDeclarations(prog.Statements)
}

func collectDeclarations(stmts []compiler.Stmt) []declaration {
	var out []declaration
	for _, st := range stmts {
		out = append(out, declarationsIn(st)...)
	}
	return out
}

func declarationsIn(st compiler.Stmt) []declaration {
	switch n := st.(type) {
	case *compiler.LetStmt:
		return []declaration{{
			name:   n.Name,
			detail: "let " + n.Name,
			kind:   protocol.SymbolKindVariable,
			span:   n.Span(),
		}}
	case *compiler.FunctionStmt:
		return []declaration{{
			name:   n.Name,
			detail: fmt.Sprintf("fn %s(%s)", n.Name, strings.Join(n.Params, ", ")),
			kind:   protocol.SymbolKindFunction,
			span:   n.Span(),
			body:   collectDeclarations(n.Body),
		}}
	case *compiler.BlockStmt:
		return collectDeclarations(n.Statements)
	case *compiler.IfStmt:
		out := declarationsIn(n.Then)
		if n.Else != nil {
			out = append(out, declarationsIn(n.Else)...)
		}
		return out
	case *compiler.WhileStmt:
		return declarationsIn(n.Body)
	}
	return nil
}

// flatten lists every declaration, nested ones included, in source order.
func flatten(decls []declaration) []declaration {
	var out []declaration
	for _, d := range decls {
		out = append(out, d)
		out = append(out, flatten(d.body)...)
	}
	return out
}

func (s *LspServer) symbols(text string) []protocol.DocumentSymbol {
	return toSymbols(s.declarations(text))
}

func toSymbols(decls []declaration) []protocol.DocumentSymbol {
	syms := make([]protocol.DocumentSymbol, 0, len(decls))
	for _, d := range decls {
		detail := d.detail
		r := spanRange(d.span)
		syms = append(syms, protocol.DocumentSymbol{
			Name:           d.name,
			Detail:         &detail,
			Kind:           d.kind,
			Range:          r,
			SelectionRange: r,
			Children:       toSymbols(d.body),
		})
	}
	return syms
}

func (s *LspServer) complete(text, prefix string) []protocol.CompletionItem {
	seen := make(map[string]bool)
	var items []protocol.CompletionItem

	for _, d := range flatten(s.declarations(text)) {
		if seen[d.name] || !strings.HasPrefix(d.name, prefix) {
			continue
		}
		seen[d.name] = true
		kind := protocol.CompletionItemKindVariable
		if d.kind == protocol.SymbolKindFunction {
			kind = protocol.CompletionItemKindFunction
		}
		detail := d.detail
		items = append(items, protocol.CompletionItem{
			Label:  d.name,
			Kind:   &kind,
			Detail: &detail,
		})
	}

	var kws []string
	for _, kw := range keywordList {
		if strings.HasPrefix(kw, prefix) && !seen[kw] {
			kws = append(kws, kw)
		}
	}
	sort.Strings(kws)
	for _, kw := range kws {
		kind := protocol.CompletionItemKindKeyword
		items = append(items, protocol.CompletionItem{
			Label: kw,
			Kind:  &kind,
		})
	}

	return items
}

var keywordList = []string{"let", "fn", "if", "else", "while", "return", "true", "false", "print"}

func (s *LspServer) hover(text, word string) *protocol.Hover {
	var value string
	switch {
	case compiler.IsKeyword(word):
		value = fmt.Sprintf("**%s** (keyword)", word)
	default:
		for _, d := range flatten(s.declarations(text)) {
			if d.name == word {
				value = fmt.Sprintf("```minilang\n%s\n```\ndeclared on line %d", d.detail, d.span.Start.Line)
				break
			}
		}
	}
	if value == "" {
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

func (s *LspServer) definition(uri protocol.DocumentUri, text, word string) []protocol.Location {
	var locs []protocol.Location
	for _, d := range flatten(s.declarations(text)) {
		if d.name == word {
			locs = append(locs, protocol.Location{URI: uri, Range: spanRange(d.span)})
		}
	}
	return locs
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := s.diagnostics(text)
	s.log.Debugf("%s: %d diagnostics", uri, len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func (s *LspServer) diagnostics(text string) []protocol.Diagnostic {
	lines := strings.Split(text, "\n")
	diagnostics := []protocol.Diagnostic{}
	for _, e := range compiler.Diagnostics(text, s.opts) {
		severity := protocol.DiagnosticSeverityError
		source := lspName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    errorRange(lines, e),
			Severity: &severity,
			Source:   &source,
			Message:  fmt.Sprintf("%s: %s", e.Kind, e.Message),
		})
	}
	for _, w := range compiler.Lint(text, s.opts) {
		severity := protocol.DiagnosticSeverityWarning
		source := lspName
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    errorRange(lines, &compiler.Error{Line: w.Line, Column: w.Column}),
			Severity: &severity,
			Source:   &source,
			Message:  w.Message,
		})
	}
	return diagnostics
}

// errorRange covers the character at the error position, or the whole line
// when the error carries no column.
func errorRange(lines []string, e *compiler.Error) protocol.Range {
	line := e.Line - 1
	if line < 0 {
		line = 0
	}
	if e.Column <= 0 {
		end := 0
		if line < len(lines) {
			end = len(lines[line])
		}
		return protocol.Range{
			Start: protocol.Position{Line: protocol.UInteger(line), Character: 0},
			End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(end)},
		}
	}
	col := e.Column - 1
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col + 1)},
	}
}

func spanRange(sp compiler.Span) protocol.Range {
	return protocol.Range{
		Start: toPosition(sp.Start),
		End:   toPosition(sp.End),
	}
}

func toPosition(p compiler.Position) protocol.Position {
	line, col := p.Line-1, p.Column-1
	if line < 0 {
		line = 0
	}
	if col < 0 {
		col = 0
	}
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

// --- Text extraction helpers ---

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}

	if start == col {
		return ""
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentChar(rune(line[end])) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
