package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemNowIsUTC(t *testing.T) {
	s := NewSystem()
	assert.Equal(t, time.UTC, s.Now().Location())
}

func TestFakeSetAndAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	assert.Equal(t, start, f.Now())

	f.Advance(time.Hour)
	assert.Equal(t, start.Add(time.Hour), f.Now())

	later := start.Add(24 * time.Hour)
	f.Set(later)
	assert.Equal(t, later, f.Now())
}

func TestFakeSleepAdvancesClock(t *testing.T) {
	start := time.Now().UTC()
	f := NewFake(start)

	f.Sleep(5 * time.Minute)
	assert.Equal(t, start.Add(5*time.Minute), f.Now())
}

func TestFakeAfterFiresImmediatelyAndAdvances(t *testing.T) {
	start := time.Now().UTC()
	f := NewFake(start)

	ch := f.After(time.Second)
	select {
	case fired := <-ch:
		assert.Equal(t, start.Add(time.Second), fired)
	default:
		t.Fatal("After channel should have fired immediately")
	}
	assert.Equal(t, start.Add(time.Second), f.Now())
}
