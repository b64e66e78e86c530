package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/NetPo4ki/go-coop/coop"
)

func newTestLogger(level logrus.Level) (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(level)
	return l, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestChannelEventsLogged(t *testing.T) {
	t.Parallel()
	l, buf := newTestLogger(logrus.DebugLevel)
	ch := coop.NewChannel[int](coop.WithName("jobs"), coop.WithObserver(New(l)))
	require.NoError(t, ch.Send(1))
	ch.Close()

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	require.Equal(t, "sent", lines[0]["msg"])
	require.Equal(t, "channel", lines[0]["primitive"])
	require.Equal(t, "jobs", lines[0]["name"])
	require.Equal(t, false, lines[0]["handoff"])
	require.Equal(t, "closed", lines[1]["msg"])
}

func TestMisuseLoggedAtWarn(t *testing.T) {
	t.Parallel()
	l, buf := newTestLogger(logrus.WarnLevel)
	m := coop.NewMutex(coop.WithName("db"), coop.WithObserver(New(l)))
	g, ok := m.TryAcquire()
	require.True(t, ok)
	require.NoError(t, g.Release())
	require.ErrorIs(t, g.Release(), coop.ErrGuardReleased)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	require.Equal(t, "warning", lines[0]["level"])
	require.Equal(t, "db", lines[0]["name"])
	require.Equal(t, "mutex", lines[0]["primitive"])
	require.Equal(t, coop.ErrGuardReleased.Error(), lines[0]["error"])
}

func TestChannelMisuseCarriesPrimitive(t *testing.T) {
	t.Parallel()
	l, buf := newTestLogger(logrus.WarnLevel)
	ch := coop.NewChannel[int](coop.WithName("db"), coop.WithObserver(New(l)))
	ch.Close()
	require.ErrorIs(t, ch.Send(1), coop.ErrSendOnClosed)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	require.Equal(t, "channel", lines[0]["primitive"])
	require.Equal(t, "db", lines[0]["name"])
	require.Equal(t, coop.ErrSendOnClosed.Error(), lines[0]["error"])
}
