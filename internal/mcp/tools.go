package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kjourdan1/azcli-mcp/internal/azure"
)

const (
	ToolExecute     = "execute-azure-cli-command"
	ToolLoginStatus = "azure-login-status"
)

// executeDescription is shown to the agent and carries the usage rules the
// server itself does not enforce.
const executeDescription = `Your job is to answer questions about an Azure environment by executing Azure CLI commands. You have the following rules:

- You should use the Azure CLI to manage Azure resources and services. Do not use any other tool.
- You should provide a valid Azure CLI command starting with 'az'. For example: 'az vm list'.
- Whenever a command fails, retry it 3 times before giving up with an improved version of the code based on the returned feedback.
- When listing resources, ensure pagination is handled correctly so that all resources are returned.
- When deleting resources, ALWAYS request user confirmation.
- This tool can ONLY write code that interacts with Azure. It CANNOT generate charts, tables, graphs, etc.
- Use only non interactive commands. Do not use commands that require user input or deactivate user input using appropriate flags.
- If you need to use the az login command, use the --use-device-code option to authenticate.

Be concise, professional and to the point. Do not give generic advice, always reply with detailed & contextual data sourced from the current Azure environment.`

const loginStatusDescription = `Report the state of the most recent az login device-code session: whether the sign-in is still pending, has completed, or has failed, together with the URL and code that were handed out.`

// Executor is the part of azure.Service the tools need.
type Executor interface {
	Execute(ctx context.Context, command string) string
	LoginStatus() azure.LoginStatus
}

type tool struct {
	description toolDescription
	call        func(ctx context.Context, arguments json.RawMessage) (toolsCallResult, error)
}

// argumentError marks a tools/call whose arguments could not be decoded. It
// becomes a JSON-RPC invalid-params error instead of a tool result.
type argumentError struct {
	err error
}

func (e *argumentError) Error() string {
	return "invalid arguments: " + e.err.Error()
}

func (e *argumentError) Unwrap() error {
	return e.err
}

type executeArguments struct {
	Command string `json:"command"`
}

func newTools(exec Executor) []tool {
	return []tool{
		{
			description: toolDescription{
				Name:        ToolExecute,
				Title:       "Execute Azure CLI command",
				Description: executeDescription,
				InputSchema: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"command": map[string]any{
							"type":        "string",
							"description": "Azure CLI command",
						},
					},
					"required": []string{"command"},
				},
				Annotations: &toolAnnotations{
					ReadOnlyHint:    boolPtr(false),
					DestructiveHint: boolPtr(true),
					OpenWorldHint:   boolPtr(true),
				},
			},
			call: func(ctx context.Context, arguments json.RawMessage) (toolsCallResult, error) {
				var args executeArguments
				if len(arguments) > 0 {
					if err := json.Unmarshal(arguments, &args); err != nil {
						return toolsCallResult{}, &argumentError{err: err}
					}
				}
				out := exec.Execute(ctx, args.Command)
				return textResult(out, strings.HasPrefix(out, azure.ErrorMarker)), nil
			},
		},
		{
			description: toolDescription{
				Name:        ToolLoginStatus,
				Title:       "Azure login status",
				Description: loginStatusDescription,
				InputSchema: map[string]any{
					"type":       "object",
					"properties": map[string]any{},
				},
				Annotations: &toolAnnotations{
					ReadOnlyHint:   boolPtr(true),
					IdempotentHint: boolPtr(true),
					OpenWorldHint:  boolPtr(false),
				},
			},
			call: func(_ context.Context, _ json.RawMessage) (toolsCallResult, error) {
				status := exec.LoginStatus()
				data, err := json.Marshal(status)
				if err != nil {
					return toolsCallResult{}, fmt.Errorf("encoding login status: %w", err)
				}
				result := textResult(string(data), status.State == azure.LoginStateFailed)
				result.StructuredContent = status
				return result, nil
			},
		},
	}
}
