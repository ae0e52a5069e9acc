package skill

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for registry operations. Callers match with errors.Is.
var (
	ErrDuplicateSkillID  = errors.New("duplicate skill id")
	ErrDuplicateToolName = errors.New("duplicate tool name")
	ErrSkillNotFound     = errors.New("skill not found")
)

// Registry is the live mapping from tool name to owning skill, plus the
// set of registered skills in registration order.
//
// Invariant: tool name → skill id is a bijection onto the currently
// registered tools. Conflicts are rejected at registration time; a
// rejected skill leaves the registry completely unchanged.
//
// All methods are safe for concurrent use. The mutex makes each
// validate-then-mutate sequence atomic, so a Register racing a
// concurrent lookup from an in-flight tools/call can never observe a
// half-registered skill.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]*Skill // skill id → skill
	byTool map[string]string // tool name → owning skill id
	order  []string          // skill ids in registration order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		skills: make(map[string]*Skill),
		byTool: make(map[string]string),
	}
}

// Register adds a skill and all of its tools. It fails with
// ErrDuplicateSkillID if the id is taken, or ErrDuplicateToolName if any
// tool name is already owned by another skill. All conflict checks run
// before any mutation, so a failed registration inserts nothing.
func (r *Registry) Register(s *Skill) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid skill: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.skills[s.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSkillID, s.ID)
	}
	for _, reg := range s.Tools {
		if owner, taken := r.byTool[reg.Tool.Name]; taken {
			return fmt.Errorf("%w: %s (already provided by skill %s)",
				ErrDuplicateToolName, reg.Tool.Name, owner)
		}
	}

	r.skills[s.ID] = s
	r.order = append(r.order, s.ID)
	for _, reg := range s.Tools {
		r.byTool[reg.Tool.Name] = s.ID
	}
	return nil
}

// Unregister removes a skill and every tool-name mapping it owned,
// atomically. Fails with ErrSkillNotFound if the id is not registered.
// The caller is responsible for running the skill's Cleanup hook.
func (r *Registry) Unregister(skillID string) (*Skill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.skills[skillID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrSkillNotFound, skillID)
	}

	delete(r.skills, skillID)
	for _, reg := range s.Tools {
		delete(r.byTool, reg.Tool.Name)
	}
	for i, id := range r.order {
		if id == skillID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return s, nil
}

// Get returns the skill with the given id, if registered.
func (r *Registry) Get(skillID string) (*Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[skillID]
	return s, ok
}

// GetAll returns every registered skill in registration order.
func (r *Registry) GetAll() []*Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Skill, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.skills[id])
	}
	return out
}

// FindByTool returns the skill that owns the named tool, if any.
func (r *Registry) FindByTool(toolName string) (*Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byTool[toolName]
	if !ok {
		return nil, false
	}
	return r.skills[id], true
}

// ToolNames returns every registered tool name, following skill
// registration order and each skill's declaration order.
func (r *Registry) ToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byTool))
	for _, id := range r.order {
		for _, reg := range r.skills[id].Tools {
			out = append(out, reg.Tool.Name)
		}
	}
	return out
}

// Size returns the number of registered skills.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}

// ToolCount returns the number of registered tools across all skills.
func (r *Registry) ToolCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTool)
}
