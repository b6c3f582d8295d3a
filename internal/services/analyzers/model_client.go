package analyzers

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	xhttp "TradePilot/pkg/http"
)

// ModelRequest is the payload sent to the model inference service.
type ModelRequest struct {
	Symbol       string    `json:"symbol"`
	CurrentPrice float64   `json:"current_price"`
	Closes       []float64 `json:"closes"`
}

// ModelResponse is the model service's verdict for a symbol.
type ModelResponse struct {
	Action      string  `json:"action"`
	Confidence  float64 `json:"confidence"`
	TargetPrice float64 `json:"target_price"`
	StopLoss    float64 `json:"stop_loss"`
	Reasoning   string  `json:"reasoning"`
}

// ModelClient abstracts the AI model back-end so the analyzer can run
// against the real inference service or an offline simulator.
type ModelClient interface {
	Analyze(ctx context.Context, req ModelRequest) (ModelResponse, error)
}

// HTTPModelClient calls the external model inference service.
type HTTPModelClient struct {
	baseURL string
	client  *xhttp.Client
	retries int
}

func NewHTTPModelClient(baseURL string, timeout time.Duration) *HTTPModelClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPModelClient{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		retries: 2,
	}
}

func (c *HTTPModelClient) Analyze(ctx context.Context, req ModelRequest) (ModelResponse, error) {
	var resp ModelResponse
	if c.baseURL == "" {
		return resp, fmt.Errorf("model client not configured")
	}
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodPost,
			URL:     c.baseURL + "/model/analyze",
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    req,
		}, &resp)
		if err == nil {
			return resp, nil
		}
		select {
		case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
		case <-ctx.Done():
			return resp, ctx.Err()
		}
	}
	return resp, fmt.Errorf("post model analyze: %w", err)
}

// SimModelClient is the offline stand-in used when no inference service is
// configured. Its verdicts are random but confident, mirroring the demo
// behaviour of the model back-end.
type SimModelClient struct {
	seed func(symbol string) int64
}

func NewSimModelClient() *SimModelClient {
	return &SimModelClient{seed: dailySeed}
}

func (c *SimModelClient) Analyze(_ context.Context, req ModelRequest) (ModelResponse, error) {
	rng := rand.New(rand.NewSource(c.seed(req.Symbol) ^ 0xa1))
	action := "SELL"
	if rng.Float64() > 0.5 {
		action = "BUY"
	}
	return ModelResponse{
		Action:      action,
		Confidence:  0.6 + rng.Float64()*0.3,
		TargetPrice: req.CurrentPrice * (0.9 + rng.Float64()*0.2),
		StopLoss:    req.CurrentPrice * (0.85 + rng.Float64()*0.13),
		Reasoning:   "model ensemble recommendation",
	}, nil
}

var (
	_ ModelClient = (*HTTPModelClient)(nil)
	_ ModelClient = (*SimModelClient)(nil)
)
