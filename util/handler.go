package util

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

var logger = func() *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	return l
}()

// LegacyToolHandler is the argument-map handler form used by handlers that
// do not need the request context.
type LegacyToolHandler func(arguments map[string]interface{}) (*mcp.CallToolResult, error)

// AdaptLegacyHandler lifts a LegacyToolHandler into the server handler
// signature.
func AdaptLegacyHandler(handler LegacyToolHandler) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handler(request.Params.Arguments)
	}
}

// ErrorGuard converts handler panics into tool error results so one bad
// request cannot take the server down.
func ErrorGuard(handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{
					"tool":  request.Params.Name,
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				}).Error("Tool handler panicked")
				result = mcp.NewToolResultError(fmt.Sprintf("%v", r))
				err = nil
			}
		}()
		return handler(ctx, request)
	}
}
