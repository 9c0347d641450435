package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// maxResultLen bounds the result text kept per entry.
const maxResultLen = 16 * 1024

// Middleware logs every tool call and, when store or feed are non-nil,
// records it there. Recording failures are logged and never affect the
// response.
func Middleware(store Store, feed *Feed, logger zerolog.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			result, err := next(ctx, request)
			elapsed := time.Since(start)

			entry := Entry{
				ID:         uuid.NewString(),
				Tool:       request.Params.Name,
				Arguments:  request.GetArguments(),
				StartedAt:  start.UTC(),
				DurationMS: elapsed.Milliseconds(),
			}
			switch {
			case err != nil:
				entry.Result = err.Error()
				entry.IsError = true
			case result != nil:
				entry.Result = resultText(result)
				entry.IsError = result.IsError
			}

			event := logger.Info()
			if entry.IsError {
				event = logger.Warn()
			}
			event.Str("id", entry.ID).
				Str("tool", entry.Tool).
				Bool("is_error", entry.IsError).
				Dur("duration", elapsed).
				Msg("tool_call")

			if store != nil {
				// The request context may already be cancelled.
				if recErr := store.Record(context.WithoutCancel(ctx), &entry); recErr != nil {
					logger.Error().Err(recErr).Str("id", entry.ID).Msg("recording tool call")
				}
			}
			if feed != nil {
				feed.Publish(entry)
			}

			return result, err
		}
	}
}

func resultText(result *mcp.CallToolResult) string {
	var text string
	for _, c := range result.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			if text != "" {
				text += "\n"
			}
			text += tc.Text
		}
	}
	if len(text) > maxResultLen {
		text = text[:maxResultLen] + "\n... (truncated)"
	}
	return text
}
