package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/platform/envutil"
	"github.com/peakline/aeo-backend/internal/services"
)

// GatewayClient talks to the answer-engine gateway, the sidecar
// service that owns browser sessions and vendor API credentials. This
// process only sees the analyzed answer, never raw engine traffic.
type GatewayClient struct {
	log     *logger.Logger
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewGatewayClient(log *logger.Logger) (*GatewayClient, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("ENGINE_GATEWAY_URL")), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("missing ENGINE_GATEWAY_URL")
	}
	return &GatewayClient{
		log:     log.With("service", "EngineGatewayClient"),
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(os.Getenv("ENGINE_GATEWAY_API_KEY")),
		http: &http.Client{
			Timeout: envutil.Duration("ENGINE_GATEWAY_TIMEOUT", 60*time.Second),
		},
	}, nil
}

type queryRequest struct {
	Engine string `json:"engine"`
	Prompt string `json:"prompt"`
}

type queryResponse struct {
	Mentioned            bool     `json:"mentioned"`
	Position             *int     `json:"position"`
	CitationCount        int      `json:"citation_count"`
	BrandCitations       int      `json:"brand_citations"`
	CitationURLs         []string `json:"citation_urls"`
	Sentiment            string   `json:"sentiment"`
	SentimentScore       float64  `json:"sentiment_score"`
	CompetitorsMentioned int      `json:"competitors_mentioned"`
}

func (c *GatewayClient) Query(ctx context.Context, engine, prompt string) (*services.EngineAnswer, error) {
	body, err := json.Marshal(queryRequest{Engine: engine, Prompt: prompt})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine gateway: %w", err)
	}
	defer resp.Body.Close()
	elapsed := int(time.Since(start).Milliseconds())

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("engine gateway %s: status %d: %s", engine, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var qr queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&qr); err != nil {
		return nil, fmt.Errorf("engine gateway %s: decode: %w", engine, err)
	}
	return &services.EngineAnswer{
		Engine:               engine,
		Mentioned:            qr.Mentioned,
		Position:             qr.Position,
		CitationCount:        qr.CitationCount,
		BrandCitations:       qr.BrandCitations,
		CitationURLs:         qr.CitationURLs,
		Sentiment:            qr.Sentiment,
		SentimentScore:       qr.SentimentScore,
		CompetitorsMentioned: qr.CompetitorsMentioned,
		ResponseTimeMs:       &elapsed,
	}, nil
}

func (c *GatewayClient) VerifyCitation(ctx context.Context, citationURL string) (bool, error) {
	endpoint := c.baseURL + "/v1/verify?url=" + url.QueryEscape(citationURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("engine gateway verify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return false, fmt.Errorf("engine gateway verify: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	var vr struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return false, fmt.Errorf("engine gateway verify: decode: %w", err)
	}
	return vr.Verified, nil
}
