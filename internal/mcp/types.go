package mcp

import (
	"fmt"
	"strings"

	"cryptobot-signal/internal/domain"
)

const maxInstrumentsPerCall = 20

type instrumentsListInput struct{}

type instrumentsListOutput struct {
	Instruments []string `json:"instruments"`
}

type signalProduceInput struct {
	Instruments []string `json:"instruments,omitempty" jsonschema:"pairs such as BTC/USDT; empty means the whole monitored catalog"`
}

type signalOutcome struct {
	Instrument string `json:"instrument"`
	Message    string `json:"message,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Notice     string `json:"notice,omitempty"`
}

type signalProduceOutput struct {
	Outcomes  []signalOutcome `json:"outcomes"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
}

type promptPreviewInput struct {
	Instrument string `json:"instrument" jsonschema:"pair such as BTC/USDT"`
}

type promptPreviewOutput struct {
	Instrument string `json:"instrument"`
	Prompt     string `json:"prompt"`
}

func normalizeInstrument(catalog *domain.Catalog, raw string) (domain.Instrument, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("instrument is required")
	}
	inst, err := domain.ParseInstrument(raw)
	if err != nil {
		return "", err
	}
	if !catalog.Contains(inst) {
		return "", fmt.Errorf("unsupported instrument: %s", inst)
	}
	return inst, nil
}

// normalizeInstruments validates and de-duplicates the request, keeping input order.
// An empty request selects the whole catalog.
func normalizeInstruments(catalog *domain.Catalog, raw []string) ([]domain.Instrument, error) {
	if len(raw) == 0 {
		return catalog.Instruments(), nil
	}
	if len(raw) > maxInstrumentsPerCall {
		return nil, fmt.Errorf("at most %d instruments per call", maxInstrumentsPerCall)
	}

	seen := make(map[domain.Instrument]struct{}, len(raw))
	out := make([]domain.Instrument, 0, len(raw))
	for _, r := range raw {
		inst, err := normalizeInstrument(catalog, r)
		if err != nil {
			return nil, err
		}
		if _, exists := seen[inst]; exists {
			continue
		}
		seen[inst] = struct{}{}
		out = append(out, inst)
	}
	return out, nil
}

func toSignalOutput(outcomes []domain.Outcome) signalProduceOutput {
	out := signalProduceOutput{Outcomes: make([]signalOutcome, 0, len(outcomes))}
	for _, o := range outcomes {
		item := signalOutcome{Instrument: o.Instrument.String(), Message: o.Message}
		if o.Err != nil {
			item.ErrorKind = string(domain.KindOf(o.Err))
			item.Notice = fmt.Sprintf("Could not generate signal for %s", o.Instrument)
			out.Failed++
		} else {
			out.Succeeded++
		}
		out.Outcomes = append(out.Outcomes, item)
	}
	return out
}
