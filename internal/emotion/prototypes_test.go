package emotion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emostream-io/emostream/pkg/models"
)

func TestBuiltinPrototypes_CatalogShape(t *testing.T) {
	protos := BuiltinPrototypes()
	require.Len(t, protos, 20)

	seen := make(map[string]bool, len(protos))
	for _, p := range protos {
		assert.False(t, seen[p.Name], "duplicate prototype %s", p.Name)
		seen[p.Name] = true
		for name, val := range p.Vector {
			assert.GreaterOrEqual(t, val, 0.0, "%s/%s", p.Name, name)
			assert.LessOrEqual(t, val, 1.0, "%s/%s", p.Name, name)
		}
	}

	assert.Equal(t, "excited", protos[0].Name)
	assert.True(t, seen[EmotionNeutral])
}

func TestIsNegative(t *testing.T) {
	assert.True(t, IsNegative("stressed"))
	assert.True(t, IsNegative("hopeless"))
	assert.False(t, IsNegative("calm"))
	assert.False(t, IsNegative(EmotionNeutral))
	assert.False(t, IsNegative("bored"))
}

func TestLoadPrototypes_OverridesAndAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prototypes.yaml")
	yaml := `
prototypes:
  - name: calm
    description: custom calm
    metrics:
      engagement: 0.3
      relaxation: 1.5
  - name: flow
    description: deep absorption
    metrics:
      engagement: 0.95
      attention: 0.95
      stress: 0.1
  - name: ""
    metrics:
      stress: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0600))

	protos, err := LoadPrototypes(path)
	require.NoError(t, err)
	require.Len(t, protos, 21)

	byName := make(map[string]Prototype, len(protos))
	for _, p := range protos {
		byName[p.Name] = p
	}

	// Override replaces in place, preserving declaration order.
	calm := byName["calm"]
	assert.Equal(t, "custom calm", calm.Description)
	assert.Equal(t, 0.3, calm.Vector.Get(models.MetricEngagement))
	assert.Equal(t, 1.0, calm.Vector.Get(models.MetricRelaxation), "values are clamped")
	assert.Equal(t, "calm", protos[2].Name)

	// New names append after the built-ins.
	assert.Equal(t, "flow", protos[20].Name)
}

func TestLoadPrototypes_MissingFile(t *testing.T) {
	_, err := LoadPrototypes(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
