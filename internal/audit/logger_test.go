package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRecord_EmitsMarkedEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(zerolog.New(&buf))

	logger.Record(context.Background(), Entry{
		Action:     "user.blocked",
		ActorID:    "admin-1",
		TargetType: "user",
		TargetID:   "u1",
		Details:    map[string]string{"email": "marie@univ-amu.fr"},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, true, line["audit"])
	require.Equal(t, "user.blocked", line["action"])
	require.Equal(t, "admin-1", line["actor_id"])
	require.Equal(t, "u1", line["target_id"])
	require.Equal(t, "marie@univ-amu.fr", line["detail_email"])
	require.NotEmpty(t, line["at"])
}
