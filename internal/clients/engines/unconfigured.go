package engines

import (
	"context"
	"fmt"

	"github.com/peakline/aeo-backend/internal/services"
)

// Unconfigured stands in when ENGINE_GATEWAY_URL is unset. Every call
// fails as transient, so queued scrape jobs retry and succeed once the
// gateway comes up.
type Unconfigured struct{}

func (Unconfigured) Query(ctx context.Context, engine, prompt string) (*services.EngineAnswer, error) {
	return nil, fmt.Errorf("engine gateway not configured (ENGINE_GATEWAY_URL)")
}

func (Unconfigured) VerifyCitation(ctx context.Context, url string) (bool, error) {
	return false, fmt.Errorf("engine gateway not configured (ENGINE_GATEWAY_URL)")
}
