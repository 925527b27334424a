package responder

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/hpungsan/weatheragent/internal/observability"
	"github.com/hpungsan/weatheragent/internal/router"
)

func TestMain(m *testing.M) {
	// genai pulls in opencensus, whose view worker starts in init.
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

var (
	_ router.Responder = Canned{}
	_ router.Responder = (*Fallback)(nil)
	_ router.Responder = (*Cached)(nil)
	_ router.Responder = (*Gemini)(nil)
)

// stubResponder counts calls and answers with reply or err. With a gate it
// blocks until the gate closes or ctx is done.
type stubResponder struct {
	calls   atomic.Int32
	reply   string
	err     error
	gate    chan struct{}
	started chan struct{}
}

func (s *stubResponder) Respond(ctx context.Context, text string) (string, error) {
	s.calls.Add(1)
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestCannedReply(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "weather and temperature", text: "Weather and TEMPERATURE please", want: cannedRules[0].reply},
		{name: "weather", text: "how's the weather", want: cannedRules[1].reply},
		{name: "temperature", text: "temperature?", want: cannedRules[2].reply},
		{name: "rain", text: "Will it rain", want: cannedRules[3].reply},
		{name: "hello", text: "Hello, how are you?", want: cannedRules[4].reply},
		{name: "hi", text: "hi", want: cannedRules[4].reply},
		{name: "hi inside a word", text: "nothing much", want: cannedRules[4].reply},
		{name: "default", text: "thanks", want: defaultCannedReply},
		{name: "empty", text: "", want: defaultCannedReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CannedReply(tt.text))
		})
	}
}

func TestCanned_Respond(t *testing.T) {
	reply, err := Canned{}.Respond(context.Background(), "Hello!")
	require.NoError(t, err)
	assert.Contains(t, reply, "weather assistant")
}

func TestFallback_Demo(t *testing.T) {
	m := observability.NewMetricsForTesting()
	f := NewFallback(nil, zaptest.NewLogger(t), m)

	assert.True(t, f.Demo())
	reply, err := f.Respond(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, CannedReply("hi"), reply)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues("demo")))
}

func TestFallback_PrimaryReply(t *testing.T) {
	primary := &stubResponder{reply: "It's lovely out."}
	f := NewFallback(primary, nil, nil)

	reply, err := f.Respond(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "It's lovely out.", reply)
	assert.False(t, f.Demo())
}

func TestFallback_PrimaryFailure(t *testing.T) {
	tests := []struct {
		name    string
		primary *stubResponder
		reason  string
	}{
		{name: "error", primary: &stubResponder{err: stderrors.New("quota")}, reason: "error"},
		{name: "empty", primary: &stubResponder{reply: "  \n"}, reason: "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := observability.NewMetricsForTesting()
			f := NewFallback(tt.primary, zaptest.NewLogger(t), m)

			reply, err := f.Respond(context.Background(), "tell me about rain")
			require.NoError(t, err)
			assert.Equal(t, cannedRules[3].reply, reply)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks.WithLabelValues(tt.reason)))
		})
	}
}

func TestCached_HitAndMiss(t *testing.T) {
	inner := &stubResponder{reply: "sunny"}
	m := observability.NewMetricsForTesting()
	c := NewCached(inner, 10, m)
	ctx := context.Background()

	r1, err := c.Respond(ctx, "Hello there")
	require.NoError(t, err)
	r2, err := c.Respond(ctx, "  hello   THERE ")
	require.NoError(t, err)

	assert.Equal(t, "sunny", r1)
	assert.Equal(t, r1, r2)
	assert.EqualValues(t, 1, inner.calls.Load(), "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResponderCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResponderCache.WithLabelValues("miss")))
}

func TestCached_ErrorsAndEmptyNotCached(t *testing.T) {
	ctx := context.Background()

	failing := &stubResponder{err: stderrors.New("down")}
	c := NewCached(failing, 10, nil)
	_, err := c.Respond(ctx, "hi")
	require.Error(t, err)
	_, err = c.Respond(ctx, "hi")
	require.Error(t, err)
	assert.EqualValues(t, 2, failing.calls.Load())
	assert.Zero(t, c.Len())

	empty := &stubResponder{reply: ""}
	c = NewCached(empty, 10, nil)
	_, _ = c.Respond(ctx, "hi")
	_, _ = c.Respond(ctx, "hi")
	assert.EqualValues(t, 2, empty.calls.Load())
}

func TestCached_ZeroSizeDisables(t *testing.T) {
	inner := &stubResponder{reply: "ok"}
	c := NewCached(inner, 0, nil)

	_, _ = c.Respond(context.Background(), "hi")
	_, _ = c.Respond(context.Background(), "hi")

	assert.EqualValues(t, 2, inner.calls.Load())
	assert.Zero(t, c.Len())
}

func TestCached_ConcurrentMissesShareCall(t *testing.T) {
	inner := &stubResponder{reply: "shared", gate: make(chan struct{})}
	c := NewCached(inner, 10, nil)

	var wg sync.WaitGroup
	replies := make([]string, 8)
	for i := range replies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i], _ = c.Respond(context.Background(), "hello")
		}(i)
	}
	close(inner.gate)
	wg.Wait()

	for _, r := range replies {
		assert.Equal(t, "shared", r)
	}
	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestCached_CancelledCallerDoesNotFailOthers(t *testing.T) {
	inner := &stubResponder{reply: "shared", gate: make(chan struct{}), started: make(chan struct{}, 1)}
	c := NewCached(inner, 10, nil)

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Respond(first, "hello")
		firstErr <- err
	}()
	<-inner.started

	secondReply := make(chan string, 1)
	go func() {
		reply, err := c.Respond(context.Background(), "hello")
		assert.NoError(t, err)
		secondReply <- reply
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(inner.gate)
	assert.Equal(t, "shared", <-secondReply)
	assert.EqualValues(t, 1, inner.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", "1")
	c.put("b", "2")
	_, _ = c.get("a") // a becomes most recent
	c.put("c", "3")   // evicts b

	_, ok := c.get("b")
	assert.False(t, ok)
	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	v, ok = c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "3", v)
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", "1")
	c.put("a", "2")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, 1, c.size())
}
