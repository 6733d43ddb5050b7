package output_storage

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, ch <-chan []byte) string {
	t.Helper()
	var out []byte
	deadline := time.After(2 * time.Second)
	for {
		select {
		case b, ok := <-ch:
			if !ok {
				return string(out)
			}
			out = append(out, b...)
		case <-deadline:
			require.FailNow(t, "subscription did not close", "got so far %q", out)
		}
	}
}

func TestOutputStorage_EmptyStorage(t *testing.T) {
	s := RunNewOutputStorage(0)
	defer s.Stop()

	s.ForEach(func([]byte) bool {
		t.Fatal("iterator called on empty storage")
		return true
	})
	assert.Empty(t, s.Bytes())
	assert.Zero(t, s.Len())
}

func TestOutputStorage_ForEachOrderAndEarlyStop(t *testing.T) {
	s := RunNewOutputStorage(0)
	defer s.Stop()
	for _, line := range []string{"frame 1\n", "frame 2\n", "frame 3\n"} {
		s.Append([]byte(line))
	}

	var seen []string
	s.ForEach(func(b []byte) bool {
		seen = append(seen, string(b))
		return len(seen) < 2
	})
	assert.Equal(t, []string{"frame 1\n", "frame 2\n"}, seen)
	assert.Equal(t, "frame 1\nframe 2\nframe 3\n", s.String())
}

func TestOutputStorage_NilReceiver(t *testing.T) {
	var s *OutputStorage

	assert.NotPanics(t, func() {
		s.ForEach(nil)
		s.Append([]byte("x"))
		s.Stop()
	})
	n, err := s.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, s.Bytes())
	assert.Zero(t, s.Len())
}

func TestOutputStorage_WriteCopiesAppendDoesNot(t *testing.T) {
	s := RunNewOutputStorage(0)
	defer s.Stop()

	shared := []byte("abc")
	s.Append(shared)
	shared[0] = 'z'

	buf := []byte("def")
	_, err := s.Write(buf)
	require.NoError(t, err)
	buf[0] = 'x'

	assert.Equal(t, "zbcdef", s.String())

	n, err := s.Write(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, s.Len())
}

func TestOutputStorage_SubscribeReplaysThenFollows(t *testing.T) {
	s := RunNewOutputStorage(0)
	s.Append([]byte("background started\n"))

	ch := s.Subscribe(context.Background(), 1)
	assert.Equal(t, "background started\n", string(recv(t, ch)))
	requireSilent(t, ch, 30*time.Millisecond)

	s.Append([]byte("tick\n"))
	assert.Equal(t, "tick\n", string(recv(t, ch)))

	s.Stop()
	assert.Empty(t, collect(t, ch))
}

func TestOutputStorage_SubscribeClosesOnCancel(t *testing.T) {
	s := RunNewOutputStorage(0)
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx, 1)
	cancel()

	assert.Empty(t, collect(t, ch))
}

func TestOutputStorage_SubscribeAfterStopReplays(t *testing.T) {
	s := RunNewOutputStorage(0)
	s.Append([]byte("exit "))
	s.Append([]byte("code 7"))
	s.Stop()
	<-s.broadcaster.Done()

	assert.Equal(t, "exit code 7", collect(t, s.Subscribe(context.Background(), 4)))
}

func TestOutputStorage_RetentionKeepsNewest(t *testing.T) {
	s := RunNewOutputStorage(3)
	for i := 1; i <= 5; i++ {
		s.Append([]byte(strconv.Itoa(i)))
	}

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, "345", s.String())

	ch := s.Subscribe(context.Background(), 3)
	s.Stop()
	assert.Equal(t, "345", collect(t, ch))
}
