package iogroup

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// nilFactory satisfies the factory signature without building anything
func nilFactory() (IOGroup, error) {
	return nil, nil
}

func TestRegistryRegister(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register("PAPI", nilFactory))
	assert.True(t, reg.IsRegistered("PAPI"))

	err := reg.Register("PAPI", nilFactory)
	assert.Error(t, err, "duplicate registration must fail")

	assert.Error(t, reg.Register("", nilFactory))
	assert.Error(t, reg.Register("MSR", nil))
	assert.False(t, reg.IsRegistered("MSR"))
}

func TestRegistryCreate(t *testing.T) {
	reg := NewRegistry()
	calls := 0
	require.NoError(t, reg.Register("counting", func() (IOGroup, error) {
		calls++
		return nil, nil
	}))
	require.NoError(t, reg.Register("broken", func() (IOGroup, error) {
		return nil, errors.New("no hardware")
	}))

	_, err := reg.Create("counting")
	require.NoError(t, err)
	_, err = reg.Create("counting")
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "every Create calls the factory")

	_, err = reg.Create("broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no hardware")

	_, err = reg.Create("missing")
	assert.Error(t, err)
	_, err = reg.Create("")
	assert.Error(t, err)
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry()
	assert.Empty(t, reg.List())

	for _, name := range []string{"PAPI", "CPUINFO", "MSR"} {
		require.NoError(t, reg.Register(name, nilFactory))
	}
	assert.Equal(t, []string{"CPUINFO", "MSR", "PAPI"}, reg.List())
}

func TestRegisterBuiltins(t *testing.T) {
	reg := NewRegistry()
	logger := zaptest.NewLogger(t)

	ok := func(r *Registry, l *zap.Logger) {
		if err := r.Register("PAPI", nilFactory); err != nil {
			l.Error("register failed", zap.Error(err))
		}
	}
	panicking := func(r *Registry, l *zap.Logger) {
		panic("boom")
	}
	duplicate := ok

	assert.NotPanics(t, func() {
		RegisterBuiltins(reg, logger, panicking, ok, duplicate)
	})
	assert.Equal(t, []string{"PAPI"}, reg.List())

	assert.NotPanics(t, func() {
		RegisterBuiltins(NewRegistry(), nil)
	})
}
