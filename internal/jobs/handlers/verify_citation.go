package handlers

import (
	"context"
	"fmt"
	"net/url"

	types "github.com/peakline/aeo-backend/internal/domain"
	apperr "github.com/peakline/aeo-backend/internal/pkg/errors"
	"github.com/peakline/aeo-backend/internal/pkg/logger"
	"github.com/peakline/aeo-backend/internal/services"
)

// VerifyCitation re-checks that a previously observed citation URL
// still resolves and still cites the brand. A URL that cannot parse is
// a permanent failure; an unreachable host is transient and retried.
type VerifyCitation struct {
	log    *logger.Logger
	client services.EngineClient
}

func NewVerifyCitation(baseLog *logger.Logger, client services.EngineClient) *VerifyCitation {
	return &VerifyCitation{
		log:    baseLog.With("handler", "VerifyCitation"),
		client: client,
	}
}

func (h *VerifyCitation) Type() string { return types.JobTypeVerifyCitation }

type verifyCitationPayload struct {
	URL string `json:"url"`
}

func (h *VerifyCitation) Run(ctx context.Context, job *types.Job) (map[string]any, error) {
	var p verifyCitationPayload
	if err := parsePayload(job, &p); err != nil {
		return nil, err
	}
	u, err := url.Parse(p.URL)
	if err != nil {
		return nil, apperr.Permanent(fmt.Errorf("citation url %q: %w", p.URL, err))
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, apperr.Permanent(fmt.Errorf("citation url %q is not an absolute http(s) url", p.URL))
	}

	ok, err := h.client.VerifyCitation(ctx, p.URL)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", p.URL, err)
	}
	if !ok {
		h.log.Info("Citation no longer present", "url", p.URL)
	}
	return map[string]any{
		"url":      p.URL,
		"verified": ok,
	}, nil
}
