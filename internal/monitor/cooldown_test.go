package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownTrackerBegin(t *testing.T) {
	tracker := NewCooldownTracker(time.Hour)

	assert.True(t, tracker.Begin("Bob"))
	assert.True(t, tracker.Active("Bob"))
	// Second attempt inside the window is suppressed.
	assert.False(t, tracker.Begin("Bob"))
	// Other keys are independent.
	assert.True(t, tracker.Begin("Alice"))
}

func TestCooldownTrackerExpiry(t *testing.T) {
	tracker := NewCooldownTracker(20 * time.Millisecond)

	assert.True(t, tracker.Begin("Bob"))
	time.Sleep(40 * time.Millisecond)
	assert.False(t, tracker.Active("Bob"))
	assert.True(t, tracker.Begin("Bob"))
}

func TestRecentSpeakers(t *testing.T) {
	speakers := NewRecentSpeakers(time.Hour)

	_, found := speakers.Last("chan-1")
	assert.False(t, found)

	speakers.Note("chan-1", "42", "bob")
	speakers.Note("chan-1", "43", "alice")

	last, found := speakers.Last("chan-1")
	assert.True(t, found)
	assert.Equal(t, Speaker{UserID: "43", Username: "alice"}, last)

	_, found = speakers.Last("chan-2")
	assert.False(t, found)
}

func TestRecentSpeakersExpiry(t *testing.T) {
	speakers := NewRecentSpeakers(20 * time.Millisecond)
	speakers.Note("chan-1", "42", "bob")
	time.Sleep(40 * time.Millisecond)

	_, found := speakers.Last("chan-1")
	assert.False(t, found)
}
