package handlers

import (
	"encoding/json"
	"fmt"

	types "github.com/peakline/aeo-backend/internal/domain"
	apperr "github.com/peakline/aeo-backend/internal/pkg/errors"
)

// parsePayload unmarshals the job payload into v. A payload that does
// not parse will never parse, so the error is permanent.
func parsePayload(job *types.Job, v any) error {
	if len(job.Payload) == 0 {
		return apperr.Permanent(fmt.Errorf("empty payload for job_type=%s", job.JobType))
	}
	if err := json.Unmarshal(job.Payload, v); err != nil {
		return apperr.Permanent(fmt.Errorf("malformed payload for job_type=%s: %w", job.JobType, err))
	}
	return nil
}

// payloadEngine extracts the engine field without failing the job; the
// processor uses it for rate limiting before the payload is validated.
func payloadEngine(job *types.Job) string {
	var p struct {
		Engine string `json:"engine"`
	}
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		return ""
	}
	return p.Engine
}
