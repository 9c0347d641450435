package tools

import "github.com/mark3labs/mcp-go/mcp"

// Outcome is the result of one tool invocation: either text or an error.
// It always renders to a well-formed CallToolResult.
type Outcome struct {
	Text string
	Err  error
}

func success(text string) Outcome {
	return Outcome{Text: text}
}

func failure(err error) Outcome {
	return Outcome{Err: err}
}

// IsError reports whether the invocation failed.
func (o Outcome) IsError() bool {
	return o.Err != nil
}

// Message is the text shown to the caller.
func (o Outcome) Message() string {
	if o.Err != nil {
		return "Error: " + o.Err.Error()
	}
	return o.Text
}

// CallToolResult renders the outcome as a single text content block.
func (o Outcome) CallToolResult() *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: o.Message()}},
		IsError: o.IsError(),
	}
}
