// Package scene defines the Scene planning model and the continuity linker
// that resolves anchor and reference imagery before dispatch.
package scene

// ImageRef is an ownership-free handle to an image on disk. AutoLinked marks
// references derived from a neighboring scene rather than explicitly authored.
type ImageRef struct {
	Path       string `json:"path"`
	AutoLinked bool   `json:"auto_linked"`
}

// Window is a scene's target time range in the final timeline.
type Window struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Span returns the window length in seconds.
func (w Window) Span() float64 {
	return w.End - w.Start
}

// Scene is one unit of video to be generated. Index defines output order.
// Duration is the aligned duration actually requested from the provider and
// equals Window.Span() after alignment.
type Scene struct {
	Index    int     `json:"index"`
	Prompt   string  `json:"prompt"`
	Window   Window  `json:"window"`
	Duration float64 `json:"duration"`

	// LeadingAnchor and TrailingAnchor fix the first and last frame of the
	// generated clip. Either may be auto-linked from a neighboring scene.
	LeadingAnchor  *ImageRef `json:"leading_anchor,omitempty"`
	TrailingAnchor *ImageRef `json:"trailing_anchor,omitempty"`

	// ReferenceImages guide the provider's subject/style consistency.
	// The linker truncates this to the provider limit.
	ReferenceImages []ImageRef `json:"reference_images,omitempty"`
	// SkipGlobalReferences opts the scene out of the project-global
	// reference list when it carries its own.
	SkipGlobalReferences bool `json:"skip_global_references,omitempty"`

	LipSyncEnabled   bool   `json:"lip_sync_enabled,omitempty"`
	AudioSegmentPath string `json:"audio_segment_path,omitempty"`
}

// Clone returns a deep copy of the scene.
func (s Scene) Clone() Scene {
	out := s
	if s.LeadingAnchor != nil {
		la := *s.LeadingAnchor
		out.LeadingAnchor = &la
	}
	if s.TrailingAnchor != nil {
		ta := *s.TrailingAnchor
		out.TrailingAnchor = &ta
	}
	if s.ReferenceImages != nil {
		out.ReferenceImages = make([]ImageRef, len(s.ReferenceImages))
		copy(out.ReferenceImages, s.ReferenceImages)
	}
	return out
}
