package jobs

import (
	"context"
	"log/slog"

	"github.com/corpus-kb/corpus/internal/config"
	"github.com/corpus-kb/corpus/internal/entities"
	"github.com/corpus-kb/corpus/internal/extsvc"
	"github.com/corpus-kb/corpus/internal/notify"
	"github.com/corpus-kb/corpus/internal/store"
)

// Processor handles one or more job types. Process consumes the
// worker-attached result of a processed job, performs its side
// effects, and may enqueue follow-up jobs via the dependencies.
//
// Process must validate the job's payload and result and fail fast on
// anything malformed or referencing deleted records — a returned error
// marks the job failed, which is how problems become visible.
type Processor interface {
	// CanProcess reports whether this processor handles the job type.
	CanProcess(jobType string) bool

	// Process applies the job's result. The returned summary is stored
	// on the completed job.
	Process(ctx context.Context, job *store.Job) (map[string]any, error)
}

// Dependencies provides access to shared resources for processors.
type Dependencies struct {
	Store     *store.Store
	Entities  *entities.Service
	Generator extsvc.Generator
	Notifier  notify.Notifier
	Config    *config.Config
	Logger    *slog.Logger
}

// depsKey is the context key for Dependencies.
type depsKey struct{}

// ContextWithDeps returns a new context with Dependencies attached.
func ContextWithDeps(ctx context.Context, deps Dependencies) context.Context {
	return context.WithValue(ctx, depsKey{}, deps)
}

// DepsFromContext retrieves Dependencies from the context.
// Returns a Dependencies with nil fields if not found.
func DepsFromContext(ctx context.Context) Dependencies {
	deps, ok := ctx.Value(depsKey{}).(Dependencies)
	if !ok {
		return Dependencies{}
	}
	return deps
}

// Registry resolves processors by job type. Processors are enumerated
// explicitly at startup; there is no discovery.
type Registry struct {
	processors []Processor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a processor. Registration order is match order.
func (r *Registry) Register(p Processor) {
	r.processors = append(r.processors, p)
}

// Get returns the first processor that handles the job type, or false
// when none does.
func (r *Registry) Get(jobType string) (Processor, bool) {
	for _, p := range r.processors {
		if p.CanProcess(jobType) {
			return p, true
		}
	}
	return nil, false
}
