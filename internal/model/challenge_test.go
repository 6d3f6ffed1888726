package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChallenge_InWindow(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	c := Challenge{StartDate: start, EndDate: start.Add(7 * 24 * time.Hour)}

	assert.True(t, c.InWindow(start))
	assert.True(t, c.InWindow(c.EndDate))
	assert.False(t, c.InWindow(start.Add(-time.Second)))
	assert.False(t, c.InWindow(c.EndDate.Add(time.Second)))
}

func TestChallenge_AcceptsItem(t *testing.T) {
	open := Challenge{}
	assert.True(t, open.AcceptsItem(nil))
	assert.True(t, open.AcceptsItem(&ItemRef{ItemID: "1", ItemType: "video"}))

	specific := Challenge{SpecificItems: []ItemRef{{ItemID: "1", ItemType: "video"}}}
	assert.False(t, specific.AcceptsItem(nil))
	assert.False(t, specific.AcceptsItem(&ItemRef{ItemID: "1", ItemType: "course"}))
	assert.True(t, specific.AcceptsItem(&ItemRef{ItemID: "1", ItemType: "video"}))
}
