package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelations(t *testing.T) {
	content := `{"relationships": [
		{"source": "Alice", "target": "Hiking", "relation": "enjoys"},
		{"source": "Alice", "target": "Bob", "relation": "knows"}
	]}`

	relations, err := parseRelations(content)
	require.NoError(t, err)
	require.Len(t, relations, 2)
	assert.Equal(t, "Alice", relations[0].Source)
	assert.Equal(t, "Hiking", relations[0].Target)
	assert.Equal(t, "enjoys", relations[0].Relation)
}

func TestParseRelations_FiltersMalformed(t *testing.T) {
	content := `{"relationships": [
		{"source": "Alice", "target": "Hiking", "relation": "enjoys"},
		{"source": "", "target": "Bob", "relation": "knows"},
		{"source": "Bob", "target": "  ", "relation": "plays"}
	]}`

	relations, err := parseRelations(content)
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, "Alice", relations[0].Source)
}

func TestParseRelations_NotJSON(t *testing.T) {
	relations, err := parseRelations("Sure! Here are the relationships: Alice knows Bob")
	assert.Error(t, err)
	assert.Nil(t, relations)
}

func TestParseRelations_EmptyObject(t *testing.T) {
	relations, err := parseRelations(`{}`)
	require.NoError(t, err)
	assert.Empty(t, relations)
}

func TestTrimAdvice(t *testing.T) {
	assert.Equal(t, "Ask about her trip", trimAdvice("  Ask about her trip \n"))
	assert.Equal(t, AdviceWaiting, trimAdvice("   "))
	assert.Equal(t, AdviceWaiting, trimAdvice(""))
	assert.Equal(t, AdviceWaiting, trimAdvice("WAITING"))
}

func TestNewBrain_Models(t *testing.T) {
	b := NewBrain("http://localhost:1234/v1", "", "fast-model", "big-model")
	assert.Equal(t, "fast-model", b.WingmanModel())
	assert.Equal(t, "big-model", b.ConsultantModel())
}
