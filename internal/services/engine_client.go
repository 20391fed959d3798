package services

import (
	"context"
)

// EngineAnswer is one answer-engine response to a brand prompt, already
// reduced to the signals scoring cares about.
type EngineAnswer struct {
	Engine               string
	Mentioned            bool
	Position             *int
	CitationCount        int
	BrandCitations       int
	CitationURLs         []string
	Sentiment            string
	SentimentScore       float64
	CompetitorsMentioned int
	ResponseTimeMs       *int
}

// EngineClient queries a single answer engine. Implementations wrap
// the upstream API or scraper for one engine; job handlers stay
// ignorant of transport details.
type EngineClient interface {
	Query(ctx context.Context, engine, prompt string) (*EngineAnswer, error)
	// VerifyCitation checks that url still resolves and still cites the
	// brand. ok=false with nil error means a clean negative.
	VerifyCitation(ctx context.Context, url string) (ok bool, err error)
}
