// CLAUDE:SUMMARY Registers all dommark MCP tools — open, annotate, quote, remove, restore, clear, list, pick, digest, stats.
package annot

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/dommark/kit"
	"github.com/hazyhaar/dommark/picker"
)

// RegisterMCP registers dommark tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerOpenTool(srv)
	s.registerAnnotateTool(srv)
	s.registerAnnotateQuoteTool(srv)
	s.registerRemoveTool(srv)
	s.registerRestoreTool(srv)
	s.registerClearTool(srv)
	s.registerListTool(srv)
	s.registerPickPointTool(srv)
	s.registerPickRectTool(srv)
	s.registerDigestTool(srv)
	s.registerStatsTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// --- open ---

type openRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
	Mode string `json:"mode,omitempty"`
}

func (s *Service) registerOpenTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_open",
		Description: "Open an annotation session for a page. Supply HTML inline, navigate the live browser, or reload the latest stored snapshot.",
		InputSchema: inputSchema(map[string]any{
			"url":  map[string]any{"type": "string", "description": "Page URL; its origin and path identify the session"},
			"html": map[string]any{"type": "string", "description": "Raw HTML document (html mode)"},
			"mode": map[string]any{"type": "string", "enum": []any{"html", "live", "stored"}, "description": "Open mode (default: inferred)"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*openRequest)
		sess, err := s.openByMode(ctx, r.URL, r.HTML, r.Mode)
		if err != nil {
			return nil, err
		}
		return sess.Info(), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r openRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- annotate ---

type annotateRequest struct {
	Session     string `json:"session"`
	StartPath   string `json:"start_path"`
	StartOffset int    `json:"start_offset"`
	EndPath     string `json:"end_path"`
	EndOffset   int    `json:"end_offset"`
	Kind        string `json:"kind,omitempty"`
	Note        string `json:"note,omitempty"`
}

func (s *Service) registerAnnotateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_annotate",
		Description: "Annotate a text range given structural paths and character offsets. Returns the stored annotation and how many marker fragments were written.",
		InputSchema: inputSchema(map[string]any{
			"session":      map[string]any{"type": "string", "description": "Session id, page key or URL"},
			"start_path":   map[string]any{"type": "string", "description": "Structural path of the start element (e.g. /html/body/div[1]/p[2])"},
			"start_offset": map[string]any{"type": "integer", "description": "Character offset inside the start element's text"},
			"end_path":     map[string]any{"type": "string", "description": "Structural path of the end element"},
			"end_offset":   map[string]any{"type": "integer", "description": "Character offset inside the end element's text"},
			"kind":         map[string]any{"type": "string", "enum": []any{"highlight", "note"}, "description": "Marker kind (default: highlight)"},
			"note":         map[string]any{"type": "string", "description": "Free-form note attached to the annotation"},
		}, []string{"session", "start_path", "start_offset", "end_path", "end_offset"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*annotateRequest)
		sess, err := s.Session(r.Session)
		if err != nil {
			return nil, err
		}
		return s.Annotate(ctx, sess, Selection{
			StartPath:   r.StartPath,
			StartOffset: r.StartOffset,
			EndPath:     r.EndPath,
			EndOffset:   r.EndOffset,
			Kind:        Kind(r.Kind),
			Note:        r.Note,
		})
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r annotateRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- annotate_quote ---

type annotateQuoteRequest struct {
	Session string `json:"session"`
	Quote   string `json:"quote"`
	Kind    string `json:"kind,omitempty"`
	Note    string `json:"note,omitempty"`
}

func (s *Service) registerAnnotateQuoteTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_annotate_quote",
		Description: "Annotate the first occurrence of a quoted text in the page, without needing paths or offsets.",
		InputSchema: inputSchema(map[string]any{
			"session": map[string]any{"type": "string", "description": "Session id, page key or URL"},
			"quote":   map[string]any{"type": "string", "description": "Exact text to find and mark"},
			"kind":    map[string]any{"type": "string", "enum": []any{"highlight", "note"}, "description": "Marker kind (default: highlight)"},
			"note":    map[string]any{"type": "string", "description": "Free-form note attached to the annotation"},
		}, []string{"session", "quote"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*annotateQuoteRequest)
		sess, err := s.Session(r.Session)
		if err != nil {
			return nil, err
		}
		return s.AnnotateQuote(ctx, sess, r.Quote, Kind(r.Kind), r.Note)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r annotateQuoteRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- remove ---

type removeRequest struct {
	Session string `json:"session"`
	ID      string `json:"id"`
}

func (s *Service) registerRemoveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_remove",
		Description: "Remove one annotation: unwraps its markers and deletes the stored entry.",
		InputSchema: inputSchema(map[string]any{
			"session": map[string]any{"type": "string", "description": "Session id, page key or URL"},
			"id":      map[string]any{"type": "string", "description": "Annotation id"},
		}, []string{"session", "id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*removeRequest)
		sess, err := s.Session(r.Session)
		if err != nil {
			return nil, err
		}
		if err := s.Remove(ctx, sess, r.ID); err != nil {
			return nil, err
		}
		return map[string]any{"removed": true, "id": r.ID}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r removeRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- restore ---

type restoreRequest struct {
	Session string `json:"session"`
}

func (s *Service) registerRestoreTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_restore",
		Description: "Re-apply every stored annotation to the session document, polling until each resolves or times out.",
		InputSchema: inputSchema(map[string]any{
			"session": map[string]any{"type": "string", "description": "Session id, page key or URL"},
		}, []string{"session"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*restoreRequest)
		sess, err := s.Session(r.Session)
		if err != nil {
			return nil, err
		}
		return s.Restore(ctx, sess)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r restoreRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- clear ---

type clearRequest struct {
	Session string `json:"session"`
}

func (s *Service) registerClearTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_clear",
		Description: "Strip every marker from the session document. Stored annotations stay, so restore can bring them back.",
		InputSchema: inputSchema(map[string]any{
			"session": map[string]any{"type": "string", "description": "Session id, page key or URL"},
		}, []string{"session"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*clearRequest)
		sess, err := s.Session(r.Session)
		if err != nil {
			return nil, err
		}
		return map[string]int{"cleared": s.Clear(ctx, sess)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r clearRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- list ---

type listRequest struct {
	Session string `json:"session"`
}

func (s *Service) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_list",
		Description: "List the stored annotations for a page.",
		InputSchema: inputSchema(map[string]any{
			"session": map[string]any{"type": "string", "description": "Session id, page key or URL"},
		}, []string{"session"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*listRequest)
		sess, err := s.Session(r.Session)
		if err != nil {
			return nil, err
		}
		return s.List(ctx, sess)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r listRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- pick_point ---

type pickPointRequest struct {
	Session string  `json:"session"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

func (s *Service) registerPickPointTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_pick_point",
		Description: "Hit-test a click against the session's layout geometry and record the picked element.",
		InputSchema: inputSchema(map[string]any{
			"session": map[string]any{"type": "string", "description": "Session id, page key or URL"},
			"x":       map[string]any{"type": "number", "description": "Viewport x coordinate in px"},
			"y":       map[string]any{"type": "number", "description": "Viewport y coordinate in px"},
		}, []string{"session", "x", "y"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*pickPointRequest)
		sess, err := s.Session(r.Session)
		if err != nil {
			return nil, err
		}
		return s.PickPoint(ctx, sess, picker.SelectionRect{
			StartX: r.X, StartY: r.Y, EndX: r.X, EndY: r.Y,
		})
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r pickPointRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- pick_rect ---

type pickRectRequest struct {
	Session string  `json:"session"`
	StartX  float64 `json:"start_x"`
	StartY  float64 `json:"start_y"`
	EndX    float64 `json:"end_x"`
	EndY    float64 `json:"end_y"`
}

func (s *Service) registerPickRectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_pick_rect",
		Description: "Hit-test a drag rectangle, collapse contained elements to a sensible container, and record the pick.",
		InputSchema: inputSchema(map[string]any{
			"session": map[string]any{"type": "string", "description": "Session id, page key or URL"},
			"start_x": map[string]any{"type": "number", "description": "Drag start x in px"},
			"start_y": map[string]any{"type": "number", "description": "Drag start y in px"},
			"end_x":   map[string]any{"type": "number", "description": "Drag end x in px"},
			"end_y":   map[string]any{"type": "number", "description": "Drag end y in px"},
		}, []string{"session", "start_x", "start_y", "end_x", "end_y"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*pickRectRequest)
		sess, err := s.Session(r.Session)
		if err != nil {
			return nil, err
		}
		return s.PickRect(ctx, sess, picker.SelectionRect{
			StartX: r.StartX, StartY: r.StartY, EndX: r.EndX, EndY: r.EndY,
		})
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r pickRectRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- digest ---

type digestRequest struct {
	Session string `json:"session"`
}

func (s *Service) registerDigestTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_digest",
		Description: "Render the page's annotations as a Markdown report with quotes, notes and surrounding fragments.",
		InputSchema: inputSchema(map[string]any{
			"session": map[string]any{"type": "string", "description": "Session id, page key or URL"},
		}, []string{"session"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*digestRequest)
		sess, err := s.Session(r.Session)
		if err != nil {
			return nil, err
		}
		md, err := s.Digest(ctx, sess)
		if err != nil {
			return nil, err
		}
		return map[string]string{"markdown": md}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r digestRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- stats ---

type statsRequest struct{}

func (s *Service) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dommark_stats",
		Description: "Service counters: open sessions, annotations created/removed/restored, picks, store totals.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.Stats(ctx)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r statsRequest
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
