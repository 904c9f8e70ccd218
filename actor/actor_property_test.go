package actor

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

const poolYAML = `
actors:
  - id: c-1
    kind: human
    name: Controller One
    email: c1@example.com
  - id: c-2
    kind: human
    name: Controller Two
    email: c2@example.com
  - id: c-3
    kind: ai_agent
    name: Review Bot
  - id: c-4
    kind: external_api
    name: Partner Review Service
    endpoint: https://partner.example.com/review
`

func genPool() gopter.Gen {
	return gen.SliceOfN(3, gen.OneConstOf("c-1", "c-2", "c-3", "c-4")).
		Map(func(ids []string) []string {
			seen := make(map[string]bool, len(ids))
			pool := make([]string, 0, len(ids))
			for _, id := range ids {
				if !seen[id] {
					seen[id] = true
					pool = append(pool, id)
				}
			}
			if len(pool) == 0 {
				return []string{"c-1"}
			}
			return pool
		})
}

// TestAssignControllerAlwaysPicksPoolMember verifies that, for any
// non-empty subset of the directory, AssignController always returns a
// member of the pool it was given, never an actor outside it.
func TestAssignControllerAlwaysPicksPoolMember(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("assigned controller is always in the requested pool", prop.ForAll(
		func(pool []string) bool {
			dir, err := Load([]byte(poolYAML))
			if err != nil {
				return false
			}
			assigned, err := dir.AssignController(pool)
			if err != nil {
				return false
			}
			for _, id := range pool {
				if id == assigned {
					return true
				}
			}
			return false
		},
		genPool(),
	))

	properties.TestingRun(t)
}

// TestControllerLoadNeverGoesNegative verifies ReleaseController's floor at
// zero holds regardless of how many times it is called relative to
// AssignController.
func TestControllerLoadNeverGoesNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("releasing more than assigned never underflows", prop.ForAll(
		func(releases int) bool {
			dir, err := Load([]byte(poolYAML))
			if err != nil {
				return false
			}
			if _, err := dir.AssignController([]string{"c-1"}); err != nil {
				return false
			}
			for i := 0; i < releases; i++ {
				dir.ReleaseController("c-1")
			}
			// A subsequent assignment must still succeed and pick c-1, the
			// only candidate, proving its load never went negative and
			// broke the comparison in AssignController.
			next, err := dir.AssignController([]string{"c-1"})
			return err == nil && next == "c-1"
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
