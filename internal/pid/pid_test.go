package pid

import (
	"os"
	"strconv"
	"testing"

	"codeberg.org/mutker/envirotel/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndRemove(t *testing.T) {
	f := New(t.TempDir())

	require.NoError(t, f.Write())
	data, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(data))

	require.NoError(t, f.Remove())
	_, err = os.Stat(f.Path())
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, f.Remove(), "removing a missing file is fine")
}

func TestWriteRefusesLiveProcess(t *testing.T) {
	f := New(t.TempDir())

	// Our own pid is certainly running.
	require.NoError(t, os.WriteFile(f.Path(), []byte(strconv.Itoa(os.Getpid())), 0o600))

	err := f.Write()
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestWriteRejectsGarbage(t *testing.T) {
	f := New(t.TempDir())
	require.NoError(t, os.WriteFile(f.Path(), []byte("not a pid"), 0o600))

	err := f.Write()
	assert.True(t, errors.HasCode(err, errors.ErrInternal))
}
