package excerpt

import (
	"strings"
	"testing"
)

func TestBuild_Empty(t *testing.T) {
	if got := Build("", "question", 3, 1000); got != "" {
		t.Errorf("empty text should yield empty excerpt, got %q", got)
	}
}

func TestBuild_ShortTextPassesThrough(t *testing.T) {
	text := "Photosynthesis converts light into chemical energy."
	got := Build(text, "photosynthesis energy", 3, 1000)
	if got != text {
		t.Errorf("short matching text should come back whole, got %q", got)
	}
}

func TestBuild_FallbackTruncation(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 100)
	got := Build(text, "unrelated query terms", 3, 200)
	if len(got) > 200 {
		t.Errorf("fallback must respect maxTotalChars, got %d chars", len(got))
	}
	if !strings.HasPrefix(text, got[:50]) {
		t.Error("fallback should be the head of the text")
	}
}

func TestBuild_PicksMatchingWindow(t *testing.T) {
	filler := strings.Repeat("irrelevant padding text goes here and here. ", 30)
	nugget := "The Eiffel Tower was completed in 1889 for the World Fair."
	text := filler + nugget + filler
	got := Build(text, "eiffel tower completed", 2, 1200)
	if !strings.Contains(got, "1889") {
		t.Errorf("excerpt should contain the matching window, got %q", got)
	}
}

func TestBuild_RespectsMaxTotal(t *testing.T) {
	text := strings.Repeat("eiffel tower paris landmark. ", 200)
	got := Build(text, "eiffel tower", 5, 800)
	if len(got) > 800 {
		t.Errorf("excerpt exceeds maxTotalChars: %d", len(got))
	}
}

func TestBuild_WindowOrderPreserved(t *testing.T) {
	pad := strings.Repeat("x ", 300)
	text := "alpha marker one. " + pad + " beta marker two. " + pad + " gamma marker three."
	got := Build(text, "marker", 3, 5000)
	alpha := strings.Index(got, "alpha")
	gamma := strings.Index(got, "gamma")
	if alpha >= 0 && gamma >= 0 && gamma < alpha {
		t.Error("selected windows must keep original order")
	}
}
