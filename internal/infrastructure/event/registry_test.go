package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_MatchesTypesAndWildcards(t *testing.T) {
	registry := NewHandlerRegistry()
	rec := &recorder{}
	specific := rec.handler("specific", nil, "A")
	wildcard := rec.handler("wildcard", nil)

	registry.Register(specific, "A", "B")
	registry.Register(wildcard)

	assert.Len(t, registry.GetHandlers("A"), 2)
	assert.Len(t, registry.GetHandlers("B"), 2)
	assert.Len(t, registry.GetHandlers("C"), 1)
	assert.Equal(t, 2, registry.Len())

	registry.Unregister(specific)
	assert.Len(t, registry.GetHandlers("A"), 1)
	assert.Equal(t, 1, registry.Len())
}
