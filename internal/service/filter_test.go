package service

import (
	"context"
	"testing"

	"lifelog/internal/domain/models"
)

// seedCard creates a card directly through the catalog and requires success.
func seedCard(t *testing.T, e *testEngine, req models.CreateCardRequest) {
	t.Helper()
	if err := e.catalog.Create(context.Background(), &req); err != nil {
		t.Fatalf("seed card %q: %v", req.Title, err)
	}
}

func titlesOf(cards []models.Card) map[string]bool {
	set := make(map[string]bool, len(cards))
	for _, c := range cards {
		set[c.Title] = true
	}
	return set
}

func TestFilterEngine_CategorySubtree(t *testing.T) {
	e := newTestEngine(t)
	work := e.mustCreateCategory(t, "Work", nil)
	projects := e.mustCreateCategory(t, "Projects", &work)
	personal := e.mustCreateCategory(t, "Personal", nil)

	seedCard(t, e, models.CreateCardRequest{Type: models.CardText, Title: "Standup", CategoryID: &work})
	seedCard(t, e, models.CreateCardRequest{Type: models.CardText, Title: "Roadmap", CategoryID: &projects})
	seedCard(t, e, models.CreateCardRequest{Type: models.CardText, Title: "Groceries", CategoryID: &personal})
	seedCard(t, e, models.CreateCardRequest{Type: models.CardText, Title: "Loose note"})

	got := titlesOf(e.filter.Apply(models.CardFilter{CategoryID: &work}))
	want := map[string]bool{"Standup": true, "Roadmap": true}
	if len(got) != len(want) {
		t.Fatalf("titles = %v, want %v", got, want)
	}
	for title := range want {
		if !got[title] {
			t.Errorf("missing %q from subtree result", title)
		}
	}

	// No category selected: everything, including the uncategorized card.
	if all := e.filter.Apply(models.CardFilter{}); len(all) != 4 {
		t.Errorf("unfiltered = %d cards, want 4", len(all))
	}

	// A leaf category matches only its own cards.
	if leaf := e.filter.Apply(models.CardFilter{CategoryID: &projects}); len(leaf) != 1 || leaf[0].Title != "Roadmap" {
		t.Errorf("leaf result = %+v, want just Roadmap", leaf)
	}
}

func TestFilterEngine_Search(t *testing.T) {
	e := newTestEngine(t)
	seedCard(t, e, models.CreateCardRequest{Type: models.CardText, Title: "Meeting notes", Content: "discuss budget"})
	seedCard(t, e, models.CreateCardRequest{Type: models.CardVideo, Title: "Budget talk", VideoURL: "https://example.com/v"})
	seedCard(t, e, models.CreateCardRequest{Type: models.CardText, Title: "Recipes"})

	tests := []struct {
		name   string
		search string
		want   map[string]bool
	}{
		{"matches title and content, case-insensitive", "BUDGET", map[string]bool{"Meeting notes": true, "Budget talk": true}},
		{"content-less variants still match on title", "talk", map[string]bool{"Budget talk": true}},
		{"empty search matches everything", "", map[string]bool{"Meeting notes": true, "Budget talk": true, "Recipes": true}},
		{"no hits", "zzz", map[string]bool{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := titlesOf(e.filter.Apply(models.CardFilter{Search: tc.search}))
			if len(got) != len(tc.want) {
				t.Fatalf("titles = %v, want %v", got, tc.want)
			}
			for title := range tc.want {
				if !got[title] {
					t.Errorf("missing %q", title)
				}
			}
		})
	}
}

func TestFilterEngine_TypeAndStatus(t *testing.T) {
	e := newTestEngine(t)
	seedCard(t, e, models.CreateCardRequest{Type: models.CardText, Title: "Note"})
	seedCard(t, e, models.CreateCardRequest{Type: models.CardVideo, Title: "Clip", VideoURL: "https://example.com/v"})

	// Complete the video card.
	var videoID string
	for _, c := range e.view.Cards() {
		if c.Type == models.CardVideo {
			videoID = c.ID
		}
	}
	if err := e.catalog.ToggleCompletion(context.Background(), videoID); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	if got := e.filter.Apply(models.CardFilter{Type: "video"}); len(got) != 1 || got[0].Title != "Clip" {
		t.Errorf("type=video: %+v, want just Clip", got)
	}
	if got := e.filter.Apply(models.CardFilter{Type: models.FilterAll}); len(got) != 2 {
		t.Errorf("type=all: %d cards, want 2", len(got))
	}
	if got := e.filter.Apply(models.CardFilter{Status: models.StatusCompleted}); len(got) != 1 || got[0].Title != "Clip" {
		t.Errorf("status=completed: %+v, want just Clip", got)
	}
	if got := e.filter.Apply(models.CardFilter{Status: models.StatusPending}); len(got) != 1 || got[0].Title != "Note" {
		t.Errorf("status=pending: %+v, want just Note", got)
	}

	// Predicates conjoin: completed AND video AND matching search.
	got := e.filter.Apply(models.CardFilter{Search: "clip", Type: "video", Status: models.StatusCompleted})
	if len(got) != 1 || got[0].Title != "Clip" {
		t.Errorf("conjunction: %+v, want just Clip", got)
	}
	got = e.filter.Apply(models.CardFilter{Search: "clip", Type: "video", Status: models.StatusPending})
	if len(got) != 0 {
		t.Errorf("conjunction: %+v, want empty", got)
	}
}

func TestFilterEngine_Memoization(t *testing.T) {
	e := newTestEngine(t)
	seedCard(t, e, models.CreateCardRequest{Type: models.CardText, Title: "Note"})

	filter := models.CardFilter{Search: "note"}
	first := e.filter.Apply(filter)
	second := e.filter.Apply(filter)
	if len(first) == 0 || &first[0] != &second[0] {
		t.Error("repeated Apply with unchanged view did not return the memoized slice")
	}

	// A different filter invalidates the memo even though the view is unchanged.
	e.filter.Apply(models.CardFilter{Search: "other"})
	third := e.filter.Apply(filter)
	if len(third) != 1 {
		t.Fatalf("re-evaluated result = %+v, want just Note", third)
	}

	// A write bumps the view revision and forces re-evaluation.
	seedCard(t, e, models.CreateCardRequest{Type: models.CardText, Title: "Second note"})
	after := e.filter.Apply(filter)
	if len(after) != 2 {
		t.Errorf("after write = %d cards, want 2", len(after))
	}
}
