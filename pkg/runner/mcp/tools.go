package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/wordsmith/pkg/backend"
)

func registerTools(srv *server.MCPServer, svc *Service) {
	registerConvertTextTool(srv, svc)
	registerGetUsageTool(srv, svc)
	registerGetSubscriptionTool(srv, svc)
	registerListPlansTool(srv, svc)
	registerSetConvertTypeTool(srv, svc)
}

func convertTypeNames() []string {
	types := backend.ConvertTypes()
	out := make([]string, len(types))
	for i, ct := range types {
		out[i] = string(ct)
	}
	return out
}

func registerConvertTextTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"convert_text",
		mcp.WithDescription("Rewrite text with a transformation. Counts against the daily limit on the free plan."),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to transform, at most 5000 characters."),
		),
		mcp.WithString("type",
			mcp.Description("Transformation. Defaults to the stored preference."),
			mcp.Enum(convertTypeNames()...),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Text string `json:"text"`
			Type string `json:"type"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		dto, err := svc.ConvertText(ctx, args.Text, args.Type)
		if err != nil {
			return mcp.NewToolResultError(errorText(err)), nil
		}
		return toJSONResult(dto)
	})
}

func registerGetUsageTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_usage",
		mcp.WithDescription("Report today's conversion count, the daily limit and the per day history."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dto, err := svc.UsageSummary(ctx)
		if err != nil {
			return mcp.NewToolResultError(errorText(err)), nil
		}
		return toJSONResult(dto)
	})
}

func registerGetSubscriptionTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_subscription",
		mcp.WithDescription("Report the current plan and how long it stays active."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toJSONResult(svc.SubscriptionSummary())
	})
}

func registerListPlansTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_plans",
		mcp.WithDescription("List the purchasable plans with price and duration."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		plans := svc.Plans()
		return toJSONResult(map[string]any{
			"plans": plans,
			"count": len(plans),
		})
	})
}

func registerSetConvertTypeTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"set_convert_type",
		mcp.WithDescription("Store the transformation used when none is given."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Transformation to store."),
			mcp.Enum(convertTypeNames()...),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := request.RequireString("type")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ct, err := svc.SetConvertType(ctx, name)
		if err != nil {
			return mcp.NewToolResultError(errorText(err)), nil
		}
		return toJSONResult(map[string]any{"type": ct})
	})
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return result, nil
}
