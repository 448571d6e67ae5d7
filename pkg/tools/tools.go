// Package tools implements the expert.ToolExecutor boundary (spec.md §6
// step 4: experts act "with full access to collaborator tools"),
// dispatching by tool name to the blob workspace, docs lookup, and
// datetime collaborators.
//
// Grounded on the now-deleted teacher pkg/mcp's name-dispatch executor
// shape (see DESIGN.md "Dropped teacher dependencies" / deleted packages)
// — a flat switch over a tool name rather than a registry, since the tool
// set here is small and fixed, unlike the teacher's configurable MCP
// server fleet. Blob reads are passed through pkg/masking before the
// content reaches an expert's context, mirroring the teacher's
// MaskToolResult call on the MCP result path.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codeready-toolchain/aks-migrator/pkg/clock"
	"github.com/codeready-toolchain/aks-migrator/pkg/docslookup"
	"github.com/codeready-toolchain/aks-migrator/pkg/llmsvc"
	"github.com/codeready-toolchain/aks-migrator/pkg/masking"
	"github.com/codeready-toolchain/aks-migrator/pkg/workspace"
)

// Tool name constants. These double as the Name field of the
// llmsvc.ToolDefinition values returned by Definitions.
const (
	ToolListBlobs   = "list_blobs"
	ToolFindBlobs   = "find_blobs"
	ToolReadBlob    = "read_blob"
	ToolSaveBlob    = "save_blob"
	ToolSearchDocs  = "search_azure_docs"
	ToolCurrentTime = "current_time"
)

// Executor routes llmsvc.ToolCall invocations to the blob workspace, docs
// lookup, and clock collaborators. Container/folder defaults come from
// the owning phase's ProcessContext; individual calls may override folder
// via their arguments.
type Executor struct {
	Blobs     workspace.Blobs
	Docs      docslookup.Client
	Clock     clock.Clock
	Container string
	Masking   *masking.Service
}

func (e *Executor) mask(content string) string {
	if e.Masking == nil {
		return content
	}
	return e.Masking.Mask(content)
}

// Definitions returns the tool set every expert is offered (spec.md §6:
// "full access to collaborator tools" — the roster, not per-role, decides
// which tools get exercised through prompt guidance, not through a
// narrower tool list).
func Definitions() []llmsvc.ToolDefinition {
	return []llmsvc.ToolDefinition{
		{Name: ToolListBlobs, Description: "List blobs in a folder", ParametersSchema: `{"type":"object","properties":{"folder":{"type":"string"},"recursive":{"type":"boolean"}},"required":["folder"]}`},
		{Name: ToolFindBlobs, Description: "Find blobs matching a glob pattern in a folder", ParametersSchema: `{"type":"object","properties":{"pattern":{"type":"string"},"folder":{"type":"string"}},"required":["pattern","folder"]}`},
		{Name: ToolReadBlob, Description: "Read the content of one blob", ParametersSchema: `{"type":"object","properties":{"name":{"type":"string"},"folder":{"type":"string"}},"required":["name","folder"]}`},
		{Name: ToolSaveBlob, Description: "Save content to a blob", ParametersSchema: `{"type":"object","properties":{"name":{"type":"string"},"content":{"type":"string"},"folder":{"type":"string"}},"required":["name","content","folder"]}`},
		{Name: ToolSearchDocs, Description: "Search Azure documentation", ParametersSchema: `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`},
		{Name: ToolCurrentTime, Description: "Get the current report timestamp", ParametersSchema: `{"type":"object","properties":{}}`},
	}
}

// Execute implements expert.ToolExecutor.
func (e *Executor) Execute(ctx context.Context, call llmsvc.ToolCall) (string, bool, error) {
	var args map[string]any
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return fmt.Sprintf("invalid tool arguments: %v", err), true, nil
		}
	}

	switch call.Name {
	case ToolListBlobs:
		folder, _ := args["folder"].(string)
		recursive, _ := args["recursive"].(bool)
		infos, err := e.Blobs.ListBlobs(ctx, e.Container, folder, recursive)
		return toolResult(infos, err)
	case ToolFindBlobs:
		pattern, _ := args["pattern"].(string)
		folder, _ := args["folder"].(string)
		infos, err := e.Blobs.FindBlobs(ctx, pattern, e.Container, folder)
		return toolResult(infos, err)
	case ToolReadBlob:
		name, _ := args["name"].(string)
		folder, _ := args["folder"].(string)
		content, err := e.Blobs.ReadBlobContent(ctx, name, e.Container, folder)
		if err != nil {
			return err.Error(), true, nil
		}
		return e.mask(content), false, nil
	case ToolSaveBlob:
		name, _ := args["name"].(string)
		content, _ := args["content"].(string)
		folder, _ := args["folder"].(string)
		if err := e.Blobs.SaveContentToBlob(ctx, name, content, e.Container, folder); err != nil {
			return err.Error(), true, nil
		}
		return "saved", false, nil
	case ToolSearchDocs:
		query, _ := args["query"].(string)
		results, err := e.Docs.Search(ctx, query)
		return toolResult(results, err)
	case ToolCurrentTime:
		return e.Clock.FormatReportTimestamp(e.Clock.Now()), false, nil
	default:
		return fmt.Sprintf("unknown tool %q", call.Name), true, nil
	}
}

func toolResult(v any, err error) (string, bool, error) {
	if err != nil {
		return err.Error(), true, nil
	}
	encoded, marshalErr := json.Marshal(v)
	if marshalErr != nil {
		return marshalErr.Error(), true, nil
	}
	return string(encoded), false, nil
}
