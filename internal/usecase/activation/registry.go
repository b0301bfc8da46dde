package activation

import (
	"sync"

	"github.com/google/uuid"

	appErrors "vltd-dashboard/pkg/errors"
)

// MaxOpenDialogs bounds how many activation dialogs one session may hold.
const MaxOpenDialogs = 16

// Factory builds the options for a new dialog of the given variant.
type Factory func(Variant) (Options, error)

// Registry holds the open dialogs of one operator session.
type Registry struct {
	mu        sync.Mutex
	workflows map[string]*Workflow
	factory   Factory
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		workflows: make(map[string]*Workflow),
		factory:   factory,
	}
}

// Open starts a new dialog in the Search state.
func (r *Registry) Open(v Variant) (*Workflow, error) {
	variant, ok := ParseVariant(string(v))
	if !ok {
		return nil, appErrors.Validation("Unknown activation variant")
	}
	opts, err := r.factory(variant)
	if err != nil {
		return nil, err
	}
	opts.Variant = variant
	// A completed dialog closes itself once it has reset.
	opts.OnDone = func(id string) { r.Close(id) }

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.workflows) >= MaxOpenDialogs {
		return nil, appErrors.Conflict("TOO_MANY_DIALOGS", "Close an open activation dialog first", nil)
	}

	w, err := New(uuid.NewString(), opts)
	if err != nil {
		return nil, err
	}
	r.workflows[w.ID()] = w
	return w, nil
}

func (r *Registry) Get(id string) (*Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.workflows[id]
	if !ok {
		return nil, appErrors.NotFound("DIALOG_NOT_FOUND", "Activation dialog not found", appErrors.ErrNotFound)
	}
	return w, nil
}

// Close discards the dialog and reports whether it existed.
func (r *Registry) Close(id string) bool {
	r.mu.Lock()
	w, ok := r.workflows[id]
	delete(r.workflows, id)
	r.mu.Unlock()

	if ok {
		w.Close()
	}
	return ok
}

func (r *Registry) CloseAll() {
	r.mu.Lock()
	open := r.workflows
	r.workflows = make(map[string]*Workflow)
	r.mu.Unlock()

	for _, w := range open {
		w.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workflows)
}
