package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yairfalse/perfio/internal/counter"
	"github.com/yairfalse/perfio/internal/counter/countertest"
	"github.com/yairfalse/perfio/internal/iogroup"
	"github.com/yairfalse/perfio/pkg/domain"
)

func newFake() *countertest.Library {
	return countertest.NewLibrary(countertest.Machine(1, 2), "cycles", "instructions")
}

func run(t *testing.T, lib counter.Library, args ...string) (string, error) {
	t.Helper()
	t.Setenv("GEOPM_PAPI_EVENTS", "")

	var out bytes.Buffer
	cmd := NewRootCommand(
		WithLibrary(func(string) counter.Library { return lib }),
		WithRegistry(iogroup.NewRegistry()),
		WithLogger(zaptest.NewLogger(t)),
		WithOutput(&out),
	)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, newFake(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "perfio vdev")
	assert.Contains(t, out, "Counter API: 7.0")
}

func TestSignalsCommand(t *testing.T) {
	lib := newFake()
	out, err := run(t, lib, "--events", "cycles instructions", "signals")
	require.NoError(t, err)

	assert.Regexp(t, `cycles\s+core\s+sum`, out)
	assert.Regexp(t, `instructions\s+core\s+sum`, out)
	assert.Equal(t, 0, lib.Calls("Read"), "listing signals does not read counters")
}

func TestSignalsCommandNoEvents(t *testing.T) {
	out, err := run(t, newFake(), "signals")
	require.NoError(t, err)
	assert.Contains(t, out, "No signals")
}

func TestReadCommand(t *testing.T) {
	out, err := run(t, newFake(), "--events", "cycles instructions", "read", "instructions", "1")
	require.NoError(t, err)
	// One read of cpu 1, code 2
	assert.Equal(t, "6\n", out)
}

func TestReadCommandErrors(t *testing.T) {
	_, err := run(t, newFake(), "--events", "cycles", "read", "cycles", "one")
	assert.Error(t, err)

	_, err = run(t, newFake(), "--events", "cycles", "read", "branches", "0")
	assert.True(t, errors.Is(err, domain.ErrInvalidSignal))

	_, err = run(t, newFake(), "--events", "cycles", "read", "cycles", "2")
	assert.True(t, errors.Is(err, domain.ErrInvalidDomain))
}

func TestSampleCommand(t *testing.T) {
	lib := newFake()
	out, err := run(t, lib, "--events", "cycles instructions", "sample", "--delay", "0")
	require.NoError(t, err)

	assert.Regexp(t, `SIGNAL\s+core0\s+core1\s+TOTAL`, out)
	assert.Regexp(t, `cycles\s+2\s+4\s+6`, out)
	assert.Regexp(t, `instructions\s+3\s+6\s+9`, out)

	for es := 0; es < lib.EventSets(); es++ {
		state, ok := lib.EventSet(counter.EventSet(es))
		require.True(t, ok)
		assert.True(t, state.Closed, "event set %d left open", es)
	}
}

func TestSampleCommandUnknownEvent(t *testing.T) {
	_, err := run(t, newFake(), "--events", "cycles branches", "sample", "--delay", "0")
	require.Error(t, err)
	assert.True(t, domain.IsFatal(err))
	assert.Contains(t, err.Error(), "branches")
}

func TestPluginsCommand(t *testing.T) {
	lib := newFake()
	out, err := run(t, lib, "--events", "cycles", "plugins")
	require.NoError(t, err)
	assert.Equal(t, "* PAPI\n", out)

	// Listing plugins never constructs one
	assert.Zero(t, lib.Calls("Init"))
	assert.Zero(t, lib.Calls("CreateEventSet"))
	assert.Zero(t, lib.EventSets())
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perfio.yaml")
	require.NoError(t, os.WriteFile(path, []byte("events:\n  - instructions\n"), 0o600))

	out, err := run(t, newFake(), "--config", path, "signals")
	require.NoError(t, err)
	assert.Contains(t, out, "instructions")
	assert.NotContains(t, out, "cycles")
}

func TestEventsFromEnvironment(t *testing.T) {
	lib := newFake()
	var out bytes.Buffer
	cmd := NewRootCommand(
		WithLibrary(func(string) counter.Library { return lib }),
		WithRegistry(iogroup.NewRegistry()),
		WithLogger(zaptest.NewLogger(t)),
		WithOutput(&out),
	)
	t.Setenv("GEOPM_PAPI_EVENTS", "  cycles\n")
	cmd.SetArgs([]string{"signals"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "cycles")
	assert.NotContains(t, out.String(), "instructions")
}

func TestInvalidConfig(t *testing.T) {
	_, err := run(t, newFake(), "--log-level", "loud", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")

	_, err = run(t, newFake(), "--events", "cycles cycles", "signals")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	t.Setenv("GEOPM_PAPI_EVENTS", "")
	lib := newFake()

	cmd := NewRootCommand(
		WithLibrary(func(string) counter.Library { return lib }),
		WithRegistry(iogroup.NewRegistry()),
		WithLogger(zaptest.NewLogger(t)),
		WithOutput(&bytes.Buffer{}),
	)
	cmd.SetArgs([]string{"--events", "cycles", "serve", "--listen-address", "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, cmd.ExecuteContext(ctx))

	state, ok := lib.EventSet(0)
	require.True(t, ok)
	assert.True(t, state.Closed)
}
