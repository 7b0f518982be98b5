package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerResources(srv *server.MCPServer, svc *Service) {
	registerUsageResource(srv, svc)
	registerSubscriptionResource(srv, svc)
	registerPlansResource(srv, svc)
}

func registerUsageResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"wordsmith://usage",
		"Usage",
		mcp.WithResourceDescription("Daily conversion counts and the remaining allowance."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dto, err := svc.UsageSummary(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, dto)
	})
}

func registerSubscriptionResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"wordsmith://subscription",
		"Subscription",
		mcp.WithResourceDescription("The current plan and its expiry."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return encodeResourceJSON(request.Params.URI, svc.SubscriptionSummary())
	})
}

func registerPlansResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"wordsmith://plans",
		"Plans",
		mcp.WithResourceDescription("Purchasable plans."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		plans := svc.Plans()
		return encodeResourceJSON(request.Params.URI, map[string]any{
			"plans": plans,
			"count": len(plans),
		})
	})
}

func encodeResourceJSON(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
