package actor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const validYAML = `
actors:
  - id: c-1
    kind: human
    name: Alice
    email: alice@example.com
  - id: c-2
    kind: ai_agent
    name: Review Bot
  - id: c-3
    kind: external_api
    name: Partner Review Service
    endpoint: https://partner.example.com/review
`

func TestLoadValidDirectory(t *testing.T) {
	dir, err := Load([]byte(validYAML))
	require.NoError(t, err)

	actors, err := dir.Resolve([]string{"c-1", "c-2", "c-3"})
	require.NoError(t, err)
	require.Len(t, actors, 3)
}

func TestLoadCollectsAllViolations(t *testing.T) {
	data := []byte(`
actors:
  - id: c-1
    kind: bogus
  - id: ""
    kind: human
  - id: c-3
    kind: external_api
`)
	_, err := Load(data)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 3)
}

func TestResolveReportsAllUndefinedActors(t *testing.T) {
	dir, err := Load([]byte(validYAML))
	require.NoError(t, err)

	_, err = dir.Resolve([]string{"c-1", "missing-1", "missing-2"})
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 2)
}

func TestAssignControllerIsDeterministicAndLoadAware(t *testing.T) {
	dir, err := Load([]byte(validYAML))
	require.NoError(t, err)

	pool := []string{"c-2", "c-1", "c-3"}
	first, err := dir.AssignController(pool)
	require.NoError(t, err)
	require.Equal(t, "c-1", first)

	second, err := dir.AssignController(pool)
	require.NoError(t, err)
	require.Equal(t, "c-2", second)

	dir.ReleaseController("c-1")
	third, err := dir.AssignController(pool)
	require.NoError(t, err)
	require.Equal(t, "c-1", third)
}

func TestAssignControllerEmptyPool(t *testing.T) {
	dir, err := Load([]byte(validYAML))
	require.NoError(t, err)
	_, err = dir.AssignController(nil)
	require.Error(t, err)
}
