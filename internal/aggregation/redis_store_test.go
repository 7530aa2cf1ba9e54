package aggregation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScriptReplyOpenMinute(t *testing.T) {
	res, err := parseScriptReply([]interface{}{int64(0)})
	require.NoError(t, err)
	assert.False(t, res.MinuteClosed)
	assert.False(t, res.HourClosed)
}

func TestParseScriptReplyClosedMinute(t *testing.T) {
	res, err := parseScriptReply([]interface{}{int64(1)})
	require.NoError(t, err)
	assert.True(t, res.MinuteClosed)
	assert.False(t, res.HourClosed)
}

func TestParseScriptReplyClosedHour(t *testing.T) {
	res, err := parseScriptReply([]interface{}{
		int64(2), int64(6), int64(60),
		"f:gas", "36000.5",
		"f:temperature", "1230",
	})
	require.NoError(t, err)
	assert.True(t, res.HourClosed)
	assert.Equal(t, 6, res.MinuteCount)
	assert.Equal(t, 60, res.HourCount)
	assert.InDelta(t, 36000.5, res.HourSums["gas"], 1e-9)
	assert.InDelta(t, 1230.0, res.HourSums["temperature"], 1e-9)
}

func TestParseScriptReplyMalformed(t *testing.T) {
	_, err := parseScriptReply("nope")
	assert.Error(t, err)

	_, err = parseScriptReply([]interface{}{int64(7)})
	assert.Error(t, err)

	_, err = parseScriptReply([]interface{}{int64(2), int64(6)})
	assert.Error(t, err)
}
