package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_RunsTasksInOrder(t *testing.T) {
	sut := NewLoop()
	defer sut.Close()

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, sut.Do(context.Background(), func() {
			got = append(got, i)
		}))
	}

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestDo_WaitsForCompletion(t *testing.T) {
	sut := NewLoop()
	defer sut.Close()

	done := false
	require.NoError(t, sut.Do(context.Background(), func() {
		time.Sleep(10 * time.Millisecond)
		done = true
	}))
	assert.True(t, done)
}

func TestDo_ContextExpiryAbandonsWaitOnly(t *testing.T) {
	sut := NewLoop()
	defer sut.Close()

	block := make(chan struct{})
	ran := make(chan struct{})

	// occupy the loop so the next task queues behind it
	go sut.Do(context.Background(), func() { <-block })
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := sut.Do(ctx, func() { close(ran) })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// the abandoned task still runs in its turn
	close(block)
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("queued task never ran")
	}
}

func TestDo_AfterClose(t *testing.T) {
	sut := NewLoop()
	sut.Close()

	err := sut.Do(context.Background(), func() {})
	require.ErrorIs(t, err, ErrLoopClosed)
}

func TestSchedule_RunsOnTheLoop(t *testing.T) {
	sut := NewLoop()
	defer sut.Close()

	fired := make(chan struct{})
	sut.Schedule(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("scheduled task never fired")
	}
}

func TestSchedule_DroppedAfterClose(t *testing.T) {
	sut := NewLoop()
	sut.Schedule(10*time.Millisecond, func() {
		t.Error("task ran after close")
	})
	sut.Close()

	time.Sleep(50 * time.Millisecond)
}

func TestClose_DrainsQueuedTasks(t *testing.T) {
	sut := NewLoop()

	ran := 0
	for i := 0; i < 5; i++ {
		require.NoError(t, sut.Do(context.Background(), func() { ran++ }))
	}
	sut.Close()

	assert.Equal(t, 5, ran)
}

func TestClose_Idempotent(t *testing.T) {
	sut := NewLoop()
	sut.Close()
	sut.Close()
}
