package cgi

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestSpawnEchoRoundTrip exercises the real pipe wiring against /bin/cat,
// used here as a stand-in CGI script that echoes stdin to stdout. The
// reactor normally drives WriteStdin/ReadStdout from readiness
// notifications; this test drives them from a tight poll loop instead.
func TestSpawnEchoRoundTrip(t *testing.T) {
	if _, err := os.Stat("/bin/cat"); err != nil {
		t.Skip("/bin/cat not available")
	}

	body := []byte("ping")
	p, err := Spawn("/bin/cat", "/tmp", os.Environ(), body, 5*time.Second)
	require.NoError(t, err)
	defer p.Close()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.WantsStdinWrite() {
			require.NoError(t, p.WriteStdin())
		}
		done, rerr := p.ReadStdout()
		require.NoError(t, rerr)
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	p.Close()
	_, reaped, err := p.Reap(true)
	require.NoError(t, err)
	require.True(t, reaped)
	require.Equal(t, "ping", string(p.Output))
}

func TestReapIsIdempotent(t *testing.T) {
	p, err := Spawn("/bin/true", "/tmp", os.Environ(), nil, time.Second)
	if err != nil {
		t.Skip("/bin/true not available")
	}
	defer p.Close()

	time.Sleep(50 * time.Millisecond)
	_, reaped1, err1 := p.Reap(true)
	require.NoError(t, err1)
	require.True(t, reaped1)

	code, reaped2, err2 := p.Reap(false)
	require.NoError(t, err2)
	require.True(t, reaped2)
	require.Equal(t, 0, code)
}
