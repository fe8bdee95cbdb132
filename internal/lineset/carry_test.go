package lineset

import (
	"reflect"
	"strings"
	"testing"
)

func TestCarryAttribution_Unchanged(t *testing.T) {
	content := "a\nb\nc"
	attr := []string{"", "p1", "p1"}
	got := CarryAttribution(content, content, attr, "")
	if !reflect.DeepEqual(got, attr) {
		t.Errorf("unchanged content carry = %v, want %v", got, attr)
	}
}

func TestCarryAttribution_InsertShifts(t *testing.T) {
	oldContent := "a\nb\nc"
	newContent := "a\nX\nb\nc"
	attr := []string{"", "p1", "p1"}

	got := CarryAttribution(oldContent, newContent, attr, "")
	want := []string{"", "", "p1", "p1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("carry = %v, want %v", got, want)
	}
}

func TestCarryAttribution_ChangedLineLosesAttribution(t *testing.T) {
	oldContent := "a\nb\nc"
	newContent := "a\nb2\nc"
	attr := []string{"", "p1", ""}

	got := CarryAttribution(oldContent, newContent, attr, "")
	want := []string{"", "", ""}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("carry = %v, want %v", got, want)
	}
}

func TestCarryAttribution_ActorOwnsNewLines(t *testing.T) {
	got := CarryAttribution("a", "a\nnew", []string{""}, "p2")
	want := []string{"", "p2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("carry = %v, want %v", got, want)
	}
}

func TestCarryAttribution_EmptyOld(t *testing.T) {
	got := CarryAttribution("", "a\nb", nil, "p1")
	want := []string{"p1", "p1"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("carry = %v, want %v", got, want)
	}
}

func TestCarryAttribution_Deletion(t *testing.T) {
	oldContent := "a\nb\nc"
	newContent := "a\nc"
	attr := []string{"", "p1", "p2"}

	got := CarryAttribution(oldContent, newContent, attr, "")
	want := []string{"", "p2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("carry = %v, want %v", got, want)
	}

	if got := CarryAttribution(oldContent, "", attr, ""); got != nil {
		t.Errorf("deleting all content should yield nil, got %v", got)
	}
}

func TestSplitLines(t *testing.T) {
	if got := SplitLines(""); got != nil {
		t.Errorf("SplitLines(\"\") = %v, want nil", got)
	}
	got := SplitLines("a\nb\n")
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("trailing newline: got %v", got)
	}
}

func TestCarryAttribution_LargeFileFallback(t *testing.T) {
	// Above the LCS size guard everything is attributed to the actor.
	oldContent := strings.Repeat("x\n", 6000)
	newContent := strings.Repeat("y\n", 6000)
	got := CarryAttribution(oldContent, newContent, make([]string, 6000), "p9")
	if len(got) != 6000 || got[0] != "p9" || got[5999] != "p9" {
		t.Errorf("large-file fallback not applied: len=%d first=%q", len(got), got[0])
	}
}
