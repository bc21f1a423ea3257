package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnhealthyStatus(t *testing.T) {
	hs := NewUnhealthyStatus("read failed", errors.New("boom"))
	assert.Equal(t, HealthUnhealthy, hs.Status)
	assert.False(t, hs.IsHealthy())
	assert.Equal(t, "boom", hs.LastErrorText)
	assert.Equal(t, int64(1), hs.ErrorCount)

	hs = NewUnhealthyStatus("not started", nil)
	assert.Empty(t, hs.LastErrorText)
	assert.Zero(t, hs.ErrorCount)
}

func TestHealthStatusJSON(t *testing.T) {
	hs := NewHealthyStatus("ok")
	hs.Component = "counters"
	hs.LastError = errors.New("hidden")
	hs.SetDetail("cores", 4)

	data, err := json.Marshal(hs)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "healthy", decoded["status"])
	assert.Equal(t, "counters", decoded["component"])
	assert.NotContains(t, decoded, "LastError")
	assert.Equal(t, float64(4), decoded["details"].(map[string]interface{})["cores"])
}

func TestSetDetailOnZeroValue(t *testing.T) {
	var hs HealthStatus
	hs.SetDetail("k", "v")
	assert.Equal(t, "v", hs.Details["k"])
}
