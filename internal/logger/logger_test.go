package logger

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesFile(t *testing.T) {
	dir := t.TempDir()

	log, err := NewLogger(dir, true)
	require.NoError(t, err)
	log.LogCheck("smoke/products_list", "PASS", 10*time.Millisecond, nil)
	log.LogCheck("smoke/brands_list", "FAIL", time.Millisecond, errors.New("status 500"))
	require.NoError(t, log.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "qa_"))

	data, err := os.ReadFile(dir + "/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"check":"smoke/products_list"`)
	assert.Contains(t, string(data), "status 500")
}

func TestNewLoggerConsoleOnly(t *testing.T) {
	log, err := NewLogger("", false)
	require.NoError(t, err)
	assert.Nil(t, log.file)
	assert.NoError(t, log.Close())
}
