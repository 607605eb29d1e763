package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPicnicUpdateApply(t *testing.T) {
	start := time.Date(2026, 11, 1, 10, 0, 0, 0, time.UTC)
	p := Picnic{ID: "p1", Title: "Lake day", Price: 300, MaxPeople: 10, StartDate: start}

	title := "River day"
	max := 25
	got := PicnicUpdate{Title: &title, MaxPeople: &max}.Apply(p)

	assert.Equal(t, "River day", got.Title)
	assert.Equal(t, 25, got.MaxPeople)
	assert.Equal(t, 300, got.Price)
	assert.Equal(t, start, got.StartDate)
	assert.Equal(t, "Lake day", p.Title, "original must be untouched")
}

func TestPicnicUpdateEmpty(t *testing.T) {
	assert.True(t, PicnicUpdate{}.Empty())
	zero := 0
	assert.False(t, PicnicUpdate{Price: &zero}.Empty())
}
