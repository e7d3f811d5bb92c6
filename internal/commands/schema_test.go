package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchemaDoc = `{
  "create_node": {
    "description": "Create a node.",
    "params": {
      "type": "object",
      "required": ["node_type"],
      "properties": {
        "node_type": {"type": "string"},
        "parent_path": {"type": "string"}
      }
    }
  },
  "get_scene_info": {
    "description": "Scene summary."
  }
}`

func writeTestSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "commands.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSchemaStoreLoad(t *testing.T) {
	store := NewSchemaStore(writeTestSchema(t, testSchemaDoc))

	doc, err := store.Document()
	require.NoError(t, err)
	assert.Len(t, doc, 2)
	assert.Equal(t, "Create a node.", doc["create_node"].Description)
}

func TestSchemaStoreMissingFile(t *testing.T) {
	store := NewSchemaStore(filepath.Join(t.TempDir(), "nope.json"))

	_, err := store.Document()
	assert.Error(t, err)

	_, _, err = store.Command("create_node")
	assert.Error(t, err)
}

func TestSchemaStoreCommandLookup(t *testing.T) {
	store := NewSchemaStore(writeTestSchema(t, testSchemaDoc))

	entry, ok, err := store.Command("create_node")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEmpty(t, entry.Params)

	_, ok, err = store.Command("no_such_command")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidateParams(t *testing.T) {
	store := NewSchemaStore(writeTestSchema(t, testSchemaDoc))

	err := store.ValidateParams("create_node", map[string]any{"node_type": "geo"})
	assert.NoError(t, err)

	err = store.ValidateParams("create_node", map[string]any{"node_type": 42})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create_node")

	// Commands without a params schema pass through unchecked.
	assert.NoError(t, store.ValidateParams("get_scene_info", map[string]any{"anything": true}))
	assert.NoError(t, store.ValidateParams("unknown_command", nil))
}

func TestValidateParamsThroughExecutor(t *testing.T) {
	store := NewSchemaStore(writeTestSchema(t, testSchemaDoc))
	e := NewExecutor(DefaultHandlers(nil, store))

	resp := e.Execute("create_node", map[string]any{"node_type": 42})
	assert.Equal(t, "error", resp["status"])
	assert.Contains(t, resp["message"], "invalid parameters")
}

func TestSchemaStoreReload(t *testing.T) {
	path := writeTestSchema(t, testSchemaDoc)
	store := NewSchemaStore(path)

	require.NoError(t, os.WriteFile(path, []byte(`{"only_one": {"description": "x"}}`), 0o644))
	require.NoError(t, store.Load())

	doc, err := store.Document()
	require.NoError(t, err)
	assert.Len(t, doc, 1)
	assert.Contains(t, doc, "only_one")
}
