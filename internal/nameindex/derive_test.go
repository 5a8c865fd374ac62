package nameindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerive_Deterministic(t *testing.T) {
	a := Derive(NamespaceUsername, "alice")
	b := Derive(NamespaceUsername, "alice")
	assert.Equal(t, a, b)
	assert.Len(t, a.String(), 64)
}

func TestDerive_NamespacesPartition(t *testing.T) {
	assert.NotEqual(t,
		Derive(NamespaceUsername, "alice"),
		Derive(NamespaceVendorName, "alice"))
}

func TestDerive_SeparatorPreventsAmbiguity(t *testing.T) {
	// ("ab", "c") and ("a", "bc") concatenate identically without a separator
	assert.NotEqual(t, Derive("ab", "c"), Derive("a", "bc"))
}

func TestDerive_DistinctNames(t *testing.T) {
	assert.NotEqual(t,
		Derive(NamespaceUsername, "alice"),
		Derive(NamespaceUsername, "alicia"))
}
