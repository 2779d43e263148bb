package definition

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
component: "50100"
tables:
  users:
    fields:
      name: string
      plan: string
      active: bool
  accounts:
    fields:
      display_name: string
      tier: string
      status: string
phases:
  - id: users-to-accounts
    name: Copy users into accounts
    order: 1
    tag: 50100-UsersToAccounts-20250120
    rollback_required: true
    batch_size: 50
    source: users
    target: accounts
    filter:
      field: active
      op: eq
      value: true
    mappings:
      - source: name
        target: display_name
        kind: transform
        transform: upper
      - source: plan
        target: tier
        kind: direct
      - target: status
        kind: constant
        value: migrated
`

func TestParse_FullDefinition(t *testing.T) {
	def, err := Parse([]byte(sampleYAML))

	require.NoError(t, err)
	assert.Equal(t, "50100", def.Component)
	assert.Len(t, def.Tables, 2)
	assert.Equal(t, "string", def.Tables["users"].Fields["name"])

	require.Len(t, def.Phases, 1)
	phase := def.Phases[0]
	assert.Equal(t, "users-to-accounts", phase.ID)
	assert.Equal(t, 1, phase.Order)
	assert.Equal(t, "50100-UsersToAccounts-20250120", phase.Tag)
	assert.True(t, phase.RollbackRequired)
	assert.Equal(t, 50, phase.BatchSize)
	require.NotNil(t, phase.Filter)
	assert.Equal(t, "active", phase.Filter.Field)
	assert.Equal(t, "eq", phase.Filter.Op)
	assert.Len(t, phase.Mappings, 3)
}

func TestParse_RejectsMissingComponent(t *testing.T) {
	_, err := Parse([]byte(`
phases:
  - id: p-1
`))

	assert.ErrorContains(t, err, "no component")
}

func TestParse_RejectsNoPhases(t *testing.T) {
	_, err := Parse([]byte(`component: c`))

	assert.ErrorContains(t, err, "no phases")
}

func TestParse_RejectsInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("component: [unclosed"))

	assert.ErrorContains(t, err, "failed to parse")
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "migration.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	def, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "50100", def.Component)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.ErrorContains(t, err, "failed to read")
}
