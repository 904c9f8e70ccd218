// Package actor implements the Actor Directory: a YAML-loaded, eagerly
// validated set of principals eligible for document-controller assignment,
// replacing the dynamic-dispatch-on-actor-type pattern flagged in the
// design notes with an explicit tagged variant.
package actor

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Kind discriminates the tagged Actor variant.
type Kind string

const (
	KindAIAgent     Kind = "ai_agent"
	KindHuman       Kind = "human"
	KindExternalAPI Kind = "external_api"
)

// Actor is one principal eligible for controller or owner assignment.
// Exactly one of the Kind-specific fields is meaningful for a given Kind;
// validation at load time rejects actors whose Kind field is unset or
// unrecognized rather than guessing.
type Actor struct {
	ID   string `yaml:"id"`
	Kind Kind   `yaml:"kind"`
	// Name is a human-readable label shown in UIs and notifications.
	Name string `yaml:"name"`
	// Endpoint is meaningful only for KindExternalAPI.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Email is meaningful only for KindHuman.
	Email string `yaml:"email,omitempty"`
}

type directoryFile struct {
	Actors []Actor `yaml:"actors"`
}

// Directory is the eagerly validated, load-time-immutable set of actors.
// Build one with Load; Resolve and AssignController/ReleaseController are
// safe for concurrent use by multiple contribution workflows sharing one
// Directory.
type Directory struct {
	actors map[string]Actor

	mu   sync.Mutex
	load map[string]int
}

// Load parses actor directory YAML and validates it, collecting every
// violation rather than returning on the first one (design note §9).
func Load(data []byte) (*Directory, error) {
	var file directoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("actor: parse directory: %w", err)
	}

	var violations []string
	seen := make(map[string]struct{}, len(file.Actors))
	actors := make(map[string]Actor, len(file.Actors))
	for i, a := range file.Actors {
		if a.ID == "" {
			violations = append(violations, fmt.Sprintf("actors[%d]: missing id", i))
			continue
		}
		if _, dup := seen[a.ID]; dup {
			violations = append(violations, fmt.Sprintf("actors[%d]: duplicate id %q", i, a.ID))
			continue
		}
		seen[a.ID] = struct{}{}
		switch a.Kind {
		case KindAIAgent, KindHuman, KindExternalAPI:
		default:
			violations = append(violations, fmt.Sprintf("actor %q: unknown kind %q", a.ID, a.Kind))
			continue
		}
		if a.Kind == KindExternalAPI && a.Endpoint == "" {
			violations = append(violations, fmt.Sprintf("actor %q: external_api actor missing endpoint", a.ID))
		}
		if a.Kind == KindHuman && a.Email == "" {
			violations = append(violations, fmt.Sprintf("actor %q: human actor missing email", a.ID))
		}
		actors[a.ID] = a
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	load := make(map[string]int, len(actors))
	for id := range actors {
		load[id] = 0
	}
	return &Directory{actors: actors, load: load}, nil
}

// ValidationError reports every violation found while loading a directory.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	msg := "actor: invalid directory:"
	for _, v := range e.Violations {
		msg += "\n  - " + v
	}
	return msg
}

// Resolve validates that every id in ids names a defined actor, collecting
// all unresolved ids rather than failing on the first one. Used to
// eagerly validate a domain's controller_pool at bootstrap time.
func (d *Directory) Resolve(ids []string) ([]Actor, error) {
	var missing []string
	actors := make([]Actor, 0, len(ids))
	for _, id := range ids {
		a, ok := d.actors[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		actors = append(actors, a)
	}
	if len(missing) > 0 {
		violations := make([]string, len(missing))
		for i, id := range missing {
			violations[i] = fmt.Sprintf("controller_pool references undefined actor %q", id)
		}
		return nil, &ValidationError{Violations: violations}
	}
	return actors, nil
}

// AssignController picks the pool member with the lowest current open
// assignment count, tie-broken by ascending actor id, so the choice is
// deterministic across workflow replay. AssignController increments the
// chosen actor's load; callers release it via ReleaseController once the
// review concludes.
func (d *Directory) AssignController(pool []string) (string, error) {
	if len(pool) == 0 {
		return "", fmt.Errorf("actor: empty controller pool")
	}
	candidates := make([]string, len(pool))
	copy(candidates, pool)
	sort.Strings(candidates)

	d.mu.Lock()
	defer d.mu.Unlock()

	best := candidates[0]
	bestLoad := d.load[best]
	for _, id := range candidates[1:] {
		if d.load[id] < bestLoad {
			best = id
			bestLoad = d.load[id]
		}
	}
	d.load[best]++
	return best, nil
}

// ReleaseController decrements id's open assignment count, never below
// zero.
func (d *Directory) ReleaseController(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.load[id] > 0 {
		d.load[id]--
	}
}
