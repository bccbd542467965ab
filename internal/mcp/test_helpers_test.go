package mcp

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"cryptobot-signal/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubSignalService struct {
	mu          sync.Mutex
	produced    [][]domain.Instrument
	prompted    []domain.Instrument
	failures    map[domain.Instrument]error
	promptError error
}

func (s *stubSignalService) ProduceSignals(_ context.Context, insts []domain.Instrument) []domain.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.produced = append(s.produced, append([]domain.Instrument(nil), insts...))

	out := make([]domain.Outcome, 0, len(insts))
	for _, inst := range insts {
		if err := s.failures[inst]; err != nil {
			out = append(out, domain.Outcome{Instrument: inst, Err: err})
			continue
		}
		out = append(out, domain.Outcome{Instrument: inst, Message: "signal for " + inst.String()})
	}
	return out
}

func (s *stubSignalService) BuildPrompt(_ context.Context, inst domain.Instrument) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompted = append(s.prompted, inst)
	if s.promptError != nil {
		return "", s.promptError
	}
	return "Symbol: " + inst.String(), nil
}

func testServer() (*sdkmcp.Server, *stubSignalService) {
	signals := &stubSignalService{
		failures: map[domain.Instrument]error{
			"XRP/USDT": domain.NewFailure(domain.KindProviderError, "XRP/USDT", errors.New("suspended")),
		},
	}
	srv := NewServer(nil, domain.MustCatalog(domain.DefaultInstruments...), signals, ServerConfig{RequestTimeout: time.Second})
	return srv, signals
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

type authRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.token != "" {
		clone.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
