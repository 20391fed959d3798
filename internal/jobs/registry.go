package jobs

import (
	"context"
	"fmt"
	"sync"

	types "github.com/peakline/aeo-backend/internal/domain"
)

// Handler executes one job type. Run returns the result document to
// store on the job row; a PermanentError return dead-letters the job
// without consuming retries.
type Handler interface {
	Type() string
	Run(ctx context.Context, job *types.Job) (map[string]any, error)
}

// EngineBound is implemented by handlers whose work targets a single
// answer engine. The processor uses it to enforce per-engine inflight
// limits; an empty engine opts the job out of limiting.
type EngineBound interface {
	Engine(job *types.Job) string
}

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("nil handler")
	}
	t := h.Type()
	if t == "" {
		return fmt.Errorf("handler Type() is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[t]; exists {
		return fmt.Errorf("handler already registered for job_type=%s", t)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}
