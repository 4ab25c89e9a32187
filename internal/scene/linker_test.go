package scene

import (
	"reflect"
	"testing"
)

func TestLinker_AutoLinkFillsTrailingAnchor(t *testing.T) {
	l := &Linker{AutoLink: true}

	scenes := []Scene{
		{Index: 0, Prompt: "wide shot"},
		{Index: 1, Prompt: "close up", LeadingAnchor: &ImageRef{Path: "/img/b.png"}},
		{Index: 2, Prompt: "finale"},
	}

	resolved, warnings := l.Resolve(scenes)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	got := resolved[0].TrailingAnchor
	if got == nil || got.Path != "/img/b.png" {
		t.Fatalf("scene 0 trailing anchor = %v, want /img/b.png", got)
	}
	if !got.AutoLinked {
		t.Error("copied anchor must be marked auto-linked")
	}
	// Scene 1 has no explicit trailing anchor and scene 2 has no leading
	// anchor to borrow.
	if resolved[1].TrailingAnchor != nil {
		t.Errorf("scene 1 trailing anchor = %v, want nil", resolved[1].TrailingAnchor)
	}
}

func TestLinker_ExplicitAnchorNotOverwritten(t *testing.T) {
	l := &Linker{AutoLink: true}

	scenes := []Scene{
		{Index: 0, TrailingAnchor: &ImageRef{Path: "/img/mine.png"}},
		{Index: 1, LeadingAnchor: &ImageRef{Path: "/img/other.png"}},
	}

	resolved, _ := l.Resolve(scenes)
	if resolved[0].TrailingAnchor.Path != "/img/mine.png" {
		t.Errorf("explicit trailing anchor was overwritten: %v", resolved[0].TrailingAnchor)
	}
	if resolved[0].TrailingAnchor.AutoLinked {
		t.Error("explicit anchor must not be marked auto-linked")
	}
}

func TestLinker_AutoLinkedAnchorsDoNotChain(t *testing.T) {
	l := &Linker{AutoLink: true}

	// Scene 1's leading anchor is itself auto-linked; it must not propagate.
	scenes := []Scene{
		{Index: 0},
		{Index: 1, LeadingAnchor: &ImageRef{Path: "/img/derived.png", AutoLinked: true}},
	}

	resolved, _ := l.Resolve(scenes)
	if resolved[0].TrailingAnchor != nil {
		t.Errorf("scene 0 trailing anchor = %v, want nil", resolved[0].TrailingAnchor)
	}
}

func TestLinker_AutoLinkDisabled(t *testing.T) {
	l := &Linker{AutoLink: false}

	scenes := []Scene{
		{Index: 0},
		{Index: 1, LeadingAnchor: &ImageRef{Path: "/img/b.png"}},
	}

	resolved, _ := l.Resolve(scenes)
	if resolved[0].TrailingAnchor != nil {
		t.Errorf("scene 0 trailing anchor = %v, want nil with auto-link off", resolved[0].TrailingAnchor)
	}
}

func TestLinker_ResolveIsIdempotent(t *testing.T) {
	l := &Linker{
		AutoLink:         true,
		GlobalReferences: []ImageRef{{Path: "/img/style.png"}},
		MaxReferences:    3,
	}

	scenes := []Scene{
		{Index: 0},
		{Index: 1, LeadingAnchor: &ImageRef{Path: "/img/b.png"}},
	}

	once, _ := l.Resolve(scenes)
	twice, _ := l.Resolve(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second resolve differs:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestLinker_GlobalReferencesApplied(t *testing.T) {
	globals := []ImageRef{{Path: "/img/hero.png"}, {Path: "/img/style.png"}}
	l := &Linker{GlobalReferences: globals, MaxReferences: 3}

	scenes := []Scene{
		{Index: 0},
		{Index: 1, SkipGlobalReferences: true, ReferenceImages: []ImageRef{{Path: "/img/own.png"}}},
	}

	resolved, warnings := l.Resolve(scenes)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if !reflect.DeepEqual(resolved[0].ReferenceImages, globals) {
		t.Errorf("scene 0 references = %v, want globals", resolved[0].ReferenceImages)
	}
	if len(resolved[1].ReferenceImages) != 1 || resolved[1].ReferenceImages[0].Path != "/img/own.png" {
		t.Errorf("scene 1 references = %v, want its own list", resolved[1].ReferenceImages)
	}
}

func TestLinker_TruncatesWithWarning(t *testing.T) {
	l := &Linker{MaxReferences: 2}

	scenes := []Scene{
		{Index: 0, ReferenceImages: []ImageRef{
			{Path: "/img/1.png"},
			{Path: "/img/2.png"},
			{Path: "/img/3.png"},
			{Path: "/img/4.png"},
		}},
	}

	resolved, warnings := l.Resolve(scenes)
	if len(resolved[0].ReferenceImages) != 2 {
		t.Errorf("got %d references, want 2", len(resolved[0].ReferenceImages))
	}
	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1", len(warnings))
	}
	if warnings[0].SceneIndex != 0 {
		t.Errorf("warning scene = %d, want 0", warnings[0].SceneIndex)
	}
	if len(warnings[0].Dropped) != 2 {
		t.Errorf("got %d dropped references, want 2", len(warnings[0].Dropped))
	}
	if warnings[0].Dropped[0].Path != "/img/3.png" {
		t.Errorf("first dropped = %q, want /img/3.png", warnings[0].Dropped[0].Path)
	}
}

func TestLinker_InputNotMutated(t *testing.T) {
	l := &Linker{AutoLink: true}

	scenes := []Scene{
		{Index: 0},
		{Index: 1, LeadingAnchor: &ImageRef{Path: "/img/b.png"}},
	}

	_, _ = l.Resolve(scenes)
	if scenes[0].TrailingAnchor != nil {
		t.Error("Resolve mutated its input")
	}
}
