package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildTimelineEmpty(t *testing.T) {
	timeline := BuildTimeline(nil)

	assert.Len(t, timeline, 1)
	assert.Nil(t, timeline[0].Time)
	assert.Equal(t, 0, timeline[0].Score)
}

func TestBuildTimelineCumulative(t *testing.T) {
	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	events := []SolveEvent{
		{Time: base, Points: 100},
		{Time: base.Add(30 * time.Minute), Points: 250},
		{Time: base.Add(time.Hour), Points: 50},
	}

	timeline := BuildTimeline(events)

	assert.Len(t, timeline, 4)
	assert.Nil(t, timeline[0].Time)
	assert.Equal(t, 0, timeline[0].Score)
	assert.Equal(t, 100, timeline[1].Score)
	assert.Equal(t, 350, timeline[2].Score)
	assert.Equal(t, 400, timeline[3].Score)
	assert.Equal(t, base.Add(time.Hour), *timeline[3].Time)

	// Scores never decrease during a replay.
	for i := 1; i < len(timeline); i++ {
		assert.GreaterOrEqual(t, timeline[i].Score, timeline[i-1].Score)
	}
}
