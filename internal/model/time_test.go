package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalTime(t *testing.T) {
	pkt := time.FixedZone("PKT", 5*3600)
	ts := LocalTime(time.Date(2025, 11, 2, 14, 5, 9, 0, pkt))

	assert.Equal(t, "2025-11-02 09:05:09", ts.String())

	b, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2025-11-02 09:05:09"`, string(b))
}
