//go:build flatpak && !windows && !android && !ios && !wasm && !js

package mediabrowser

import "testing"

func TestFormatFilterName(t *testing.T) {
	if got := formatFilterName([]string{".jpg", ".png"}, 3); got != ".jpg, .png" {
		t.Fatalf("unexpected name %q", got)
	}
	if got := formatFilterName(importExtensions, 3); got != ".jpg, .jpeg, .png…" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestMediaFilterForPortal(t *testing.T) {
	f := mediaFilterForPortal()
	if len(f.Rules) != 2*len(importExtensions) {
		t.Fatalf("expected upper and lower case rules, got %d", len(f.Rules))
	}
	if f.Rules[0].Pattern != "*.jpg" || f.Rules[1].Pattern != "*.JPG" {
		t.Fatalf("unexpected first rules %v", f.Rules[:2])
	}
}
