package models

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bazaar/pkg/domain"
	dErrors "bazaar/pkg/domain-errors"
)

func testProfile(t *testing.T) *Profile {
	t.Helper()
	p, err := NewProfile("addr-1", domain.AccountID(uuid.New()), "corner shop", "fresh goods", time.Now())
	require.NoError(t, err)
	return p
}

func TestValidateName(t *testing.T) {
	assert.Error(t, ValidateName(""))
	assert.Error(t, ValidateName(NormalizeName("   ")))
	assert.NoError(t, ValidateName(NormalizeName("  The Corner Shop  ")))
	// No upper bound on vendor names.
	assert.NoError(t, ValidateName(strings.Repeat("x", 1024)))
}

func TestValidateDescription(t *testing.T) {
	assert.NoError(t, ValidateDescription(strings.Repeat("d", MaxDescriptionLen)))
	err := ValidateDescription(strings.Repeat("d", MaxDescriptionLen+1))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestAddProduct(t *testing.T) {
	p := testProfile(t)
	now := time.Now()

	require.NoError(t, p.AddProduct("sku1", 500, "widget", now))
	require.Len(t, p.Products, 1)

	t.Run("duplicate id conflicts", func(t *testing.T) {
		err := p.AddProduct("sku1", 900, "other widget", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		assert.Len(t, p.Products, 1)
	})

	t.Run("empty id rejected", func(t *testing.T) {
		err := p.AddProduct("  ", 1, "", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("capacity enforced", func(t *testing.T) {
		for i := len(p.Products); i < MaxProducts; i++ {
			require.NoError(t, p.AddProduct(fmt.Sprintf("sku-%d", i), 1, "", now))
		}
		err := p.AddProduct("one-too-many", 1, "", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Len(t, p.Products, MaxProducts)
	})
}

func TestRemoveProduct(t *testing.T) {
	p := testProfile(t)
	now := time.Now()
	require.NoError(t, p.AddProduct("sku1", 500, "", now))
	require.NoError(t, p.AddProduct("sku2", 600, "", now))
	require.NoError(t, p.AddProduct("sku3", 700, "", now))

	require.NoError(t, p.RemoveProduct("sku2", now))

	t.Run("order preserved", func(t *testing.T) {
		require.Len(t, p.Products, 2)
		assert.Equal(t, "sku1", p.Products[0].ID)
		assert.Equal(t, "sku3", p.Products[1].ID)
	})

	t.Run("double remove is not found", func(t *testing.T) {
		err := p.RemoveProduct("sku2", now)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("removed id can be re-added", func(t *testing.T) {
		require.NoError(t, p.AddProduct("sku2", 650, "", now))
		_, ok := p.Product("sku2")
		assert.True(t, ok)
	})
}

func TestNewProfileValidatesInvariants(t *testing.T) {
	now := time.Now()
	owner := domain.AccountID(uuid.New())

	_, err := NewProfile("", owner, "shop", "", now)
	assert.Error(t, err)

	_, err = NewProfile("addr", owner, "", "", now)
	assert.Error(t, err)

	_, err = NewProfile("addr", owner, "shop", strings.Repeat("d", MaxDescriptionLen+1), now)
	assert.Error(t, err)
}

func TestFactoryStatePauseDefaultsOff(t *testing.T) {
	state, err := NewFactoryState(domain.AccountID(uuid.New()), domain.AccountID(uuid.New()), 100, time.Now())
	require.NoError(t, err)
	assert.False(t, state.Paused)
}
