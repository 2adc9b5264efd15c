package sequence

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/funtimes-cutscene/internal/timeline"
)

func TestLoopRunsPostedWorkInOrder(t *testing.T) {
	l := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	var snapshot []int
	require.True(t, l.Call(func() { snapshot = append(snapshot, got...) }))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, snapshot)

	cancel()
	<-l.Done()
	assert.False(t, l.Post(func() {}))
	assert.False(t, l.Call(func() {}))
}

func TestLoopTimerStops(t *testing.T) {
	l := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	ticks := 0
	var tm Timer
	require.True(t, l.Call(func() {
		tm = l.Every(0, func() {
			ticks++
			if ticks == 3 {
				tm.Stop()
			}
		})
	}))
	require.Eventually(t, func() bool {
		n := 0
		l.Call(func() { n = ticks })
		return n == 3
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	var n int
	l.Call(func() { n = ticks })
	assert.Equal(t, 3, n)
}

func TestPlayerOnLoopWithZeroDelay(t *testing.T) {
	l := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	r := newRecorder()
	var p *Player
	require.True(t, l.Call(func() {
		p = NewPlayer(r.hooks(), l, WithTypingDelay(0), WithLogger(zerolog.Nop()))
		require.NoError(t, p.Start(timeline.Timeline{timeline.Dialog{Text: "quick"}}))
	}))

	require.Eventually(t, func() bool {
		done := false
		l.Call(func() { done = !p.Typing() && r.text == "quick" })
		return done
	}, time.Second, 5*time.Millisecond)
}

func TestLoopStopTearsDownTimers(t *testing.T) {
	l := NewLoop(1)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)

	fired := make(chan struct{}, 100)
	require.True(t, l.Call(func() {
		l.Every(time.Millisecond, func() { fired <- struct{}{} })
	}))
	<-fired
	cancel()
	<-l.Done()
	// drain anything that raced with shutdown, then nothing more arrives
	time.Sleep(10 * time.Millisecond)
	for len(fired) > 0 {
		<-fired
	}
	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, len(fired))
}
