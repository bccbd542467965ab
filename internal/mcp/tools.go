package mcp

import (
	"context"
	"fmt"

	"cryptobot-signal/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, catalog *domain.Catalog, signals SignalProducer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "instruments_list",
		Description: "List the monitored trading pairs",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ instrumentsListInput) (*mcp.CallToolResult, instrumentsListOutput, error) {
		_ = ctx
		return nil, instrumentsListOutput{Instruments: catalog.Strings()}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "signal_produce",
		Description: "Generate AI trading signals for monitored pairs, one outcome per pair in request order",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in signalProduceInput) (*mcp.CallToolResult, signalProduceOutput, error) {
		if signals == nil {
			return nil, signalProduceOutput{}, fmt.Errorf("signal service unavailable")
		}
		insts, err := normalizeInstruments(catalog, in.Instruments)
		if err != nil {
			return nil, signalProduceOutput{}, err
		}
		return nil, toSignalOutput(signals.ProduceSignals(ctx, insts)), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "prompt_preview",
		Description: "Fetch live market data for one pair and return the analysis prompt without calling the model",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in promptPreviewInput) (*mcp.CallToolResult, promptPreviewOutput, error) {
		if signals == nil {
			return nil, promptPreviewOutput{}, fmt.Errorf("signal service unavailable")
		}
		inst, err := normalizeInstrument(catalog, in.Instrument)
		if err != nil {
			return nil, promptPreviewOutput{}, err
		}
		text, err := signals.BuildPrompt(ctx, inst)
		if err != nil {
			return nil, promptPreviewOutput{}, err
		}
		return nil, promptPreviewOutput{Instrument: inst.String(), Prompt: text}, nil
	})
}
