package server

import (
	"context"
	"net/http"

	lsmcp "github.com/claude/liftscore/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// MCPHandler serves srv over streamable HTTP. Each request is scoped to the
// user that BearerAuth authenticated.
func MCPHandler(srv *mcpserver.MCPServer) http.Handler {
	return mcpserver.NewStreamableHTTPServer(srv,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if uid, ok := userIDFromContext(r); ok {
				return lsmcp.WithUserID(ctx, uid)
			}
			return ctx
		}),
	)
}
