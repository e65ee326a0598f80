package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, int64(60*1000+1000+120), parseDuration("00:01:01.12"))
	assert.Equal(t, int64(60*60*1000+60*1000+1000+120), parseDuration("01:01:01.12"))
	assert.Equal(t, int64(60*1000+1000+120), parseDuration("1:01.12"))
	assert.Equal(t, int64(120), parseDuration("0:00.12"))
	assert.Equal(t, int64(120), parseDuration("00:00:00.12"))
}

func TestParseTimeReport(t *testing.T) {
	assert.Equal(t, int64(2500), parseDurationLine("\tElapsed (wall clock) time (h:mm:ss or m:ss): 0:02.50"))
	assert.Equal(t, float32(50), parseMemoryLine("\tMaximum resident set size (kbytes): 51200"))
	assert.Equal(t, int64(99), parseCpuPercentageLine("\tPercent of CPU this job got: 99%"))
}

func TestCountScheduled(t *testing.T) {
	//** Arrange
	path := filepath.Join(t.TempDir(), "schedule.csv")
	require.NoError(t, os.WriteFile(path, []byte("Day,Start\nMon,09:00\nTue,10:00\n"), 0o644))

	//** Act
	scheduled := countScheduled(path)

	//** Assert
	assert.Equal(t, 2, scheduled)
}
