// Package server exposes the project index over the Language Server
// Protocol on stdio. It owns no index state of its own: every event is
// translated into an Index operation and every request into a resolver
// query.
package server

import (
	"context"
	"fmt"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"
	"github.com/tliron/kutil/logging"

	"github.com/jward/fabls"
)

const lsName = "fabls"

var log = logging.GetLogger("fabls.server")

// Server wires LSP events and requests to an Index.
type Server struct {
	index   *fabls.Index
	handler protocol.Handler

	// initialRoots is captured during initialize and indexed on the
	// initialized notification, once the client is ready for traffic.
	initialRoots []string

	// OnRoots, when set, is called with every batch of workspace roots the
	// client registers. Serve mode uses it to extend the file watcher.
	OnRoots func(roots []string)
}

// New builds a Server around index.
func New(index *fabls.Index) *Server {
	s := &Server{index: index}
	s.handler = protocol.Handler{
		Initialize:                         s.initialize,
		Initialized:                        s.initialized,
		Shutdown:                           s.shutdown,
		SetTrace:                           s.setTrace,
		TextDocumentDidOpen:                s.didOpen,
		TextDocumentDidChange:              s.didChange,
		TextDocumentHover:                  s.hover,
		TextDocumentDefinition:             s.definition,
		TextDocumentCompletion:             s.completion,
		WorkspaceDidChangeWorkspaceFolders: s.didChangeWorkspaceFolders,
	}
	return s
}

// RunStdio serves LSP over stdin/stdout until the client disconnects.
func (s *Server) RunStdio() error {
	return glspserver.NewServer(&s.handler, lsName, false).RunStdio()
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	if params.WorkspaceFolders != nil {
		for _, folder := range params.WorkspaceFolders {
			if path, err := uriToPath(folder.URI); err == nil {
				s.initialRoots = append(s.initialRoots, path)
			}
		}
	}

	capabilities := s.handler.CreateServerCapabilities()
	capabilities.TextDocumentSync = protocol.TextDocumentSyncKindFull
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.CompletionProvider = &protocol.CompletionOptions{}

	return &protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name: lsName,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Info("initialized")
	if len(s.initialRoots) == 0 {
		return nil
	}
	if err := s.index.RefreshWorkspace(context.Background(), s.initialRoots, nil); err != nil {
		log.Errorf("initial workspace refresh: %s", err.Error())
	}
	if s.OnRoots != nil {
		s.OnRoots(s.initialRoots)
	}
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	log.Info("shutdown")
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) didOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}
	if err := s.index.UpdateFile(path, []byte(params.TextDocument.Text)); err != nil {
		// The file stays queryable with its previous table.
		log.Warningf("%s", err.Error())
	}
	return nil
}

func (s *Server) didChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return err
	}

	text, ok := s.index.Text(path)
	for _, change := range params.ContentChanges {
		switch c := change.(type) {
		case protocol.TextDocumentContentChangeEventWhole:
			text = c.Text
			ok = true
		case protocol.TextDocumentContentChangeEvent:
			// The server advertises full sync, but apply range edits anyway
			// for clients that send them.
			if !ok || c.Range == nil {
				continue
			}
			start, end := rangeToIndex(text, *c.Range)
			text = text[:start] + c.Text + text[end:]
		}
	}
	if !ok {
		return nil
	}

	if err := s.index.UpdateFile(path, []byte(text)); err != nil {
		log.Warningf("%s", err.Error())
	}
	return nil
}

func (s *Server) didChangeWorkspaceFolders(ctx *glsp.Context, params *protocol.DidChangeWorkspaceFoldersParams) error {
	added := folderPaths(params.Event.Added)
	removed := folderPaths(params.Event.Removed)
	if err := s.index.RefreshWorkspace(context.Background(), added, removed); err != nil {
		log.Errorf("workspace refresh: %s", err.Error())
	}
	if s.OnRoots != nil && len(added) > 0 {
		s.OnRoots(added)
	}
	return nil
}

func (s *Server) hover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	result, ok := s.index.HoverAt(path, toPoint(params.Position))
	if !ok {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: fmt.Sprintf("%s\n\n```nesfab\n%s\n```", result.Path, result.Description),
		},
	}, nil
}

func (s *Server) definition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	def, ok := s.index.DefinitionAt(path, toPoint(params.Position))
	if !ok {
		return nil, nil
	}
	return protocol.Location{
		URI:   pathToURI(def.Path),
		Range: toProtocolRange(def.Range),
	}, nil
}

func (s *Server) completion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}

	candidates := s.index.Completion(path)
	items := make([]protocol.CompletionItem, 0, len(candidates))
	for _, c := range candidates {
		kind := protocol.CompletionItemKindFunction
		if c.Kind == fabls.KindVariable {
			kind = protocol.CompletionItemKindVariable
		}
		items = append(items, protocol.CompletionItem{
			Label:         c.Name,
			Kind:          &kind,
			Documentation: c.Documentation,
		})
	}
	return items, nil
}

func folderPaths(folders []protocol.WorkspaceFolder) []string {
	var paths []string
	for _, folder := range folders {
		if path, err := uriToPath(folder.URI); err == nil {
			paths = append(paths, path)
		}
	}
	return paths
}

func toPoint(pos protocol.Position) fabls.Point {
	return fabls.Point{Row: pos.Line, Column: pos.Character}
}

func toProtocolRange(r fabls.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: r.Start.Row, Character: r.Start.Column},
		End:   protocol.Position{Line: r.End.Row, Character: r.End.Column},
	}
}
