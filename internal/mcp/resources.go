package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"cryptobot-signal/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, catalog *domain.Catalog, signals SignalProducer) {
	server.AddResource(&mcp.Resource{
		URI:         "market://instruments",
		Name:        "instruments",
		Description: "Monitored trading pairs",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		_ = ctx
		return jsonResource(req.Params.URI, instrumentsListOutput{Instruments: catalog.Strings()})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "prompt://{base}/{quote}",
		Name:        "prompt-by-instrument",
		Description: "Analysis prompt built from live market data for one pair",
		MIMEType:    "text/plain",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if signals == nil {
			return nil, fmt.Errorf("signal service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil || parsed.Scheme != "prompt" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		quote := strings.Trim(strings.TrimSpace(parsed.Path), "/")
		inst, err := normalizeInstrument(catalog, parsed.Host+"/"+quote)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		text, err := signals.BuildPrompt(ctx, inst)
		if err != nil {
			return nil, err
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "text/plain",
				Text:     text,
			}},
		}, nil
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
