package scene

// Linker resolves each scene's anchors and reference images before dispatch.
// It has no remote side effects and is idempotent: resolving an already
// resolved scene list again yields identical results.
type Linker struct {
	// AutoLink copies a scene's missing trailing anchor from the next
	// scene's leading anchor so adjacent clips share a boundary frame.
	AutoLink bool
	// GlobalReferences is the project-wide reference image list applied to
	// scenes without their own.
	GlobalReferences []ImageRef
	// MaxReferences is the provider's reference image limit.
	MaxReferences int
}

// Warning reports a non-fatal resolution event, such as reference images
// dropped by truncation.
type Warning struct {
	SceneIndex int
	Message    string
	Dropped    []ImageRef
}

// Resolve fills in anchors and reference images for every scene, in order.
// Explicit anchors are never overwritten. Auto-linking reads only explicit
// anchors on neighboring scenes, never generated output, so resolution is a
// pure function of the input list. The returned warnings list truncated
// references; it is empty on a clean pass.
func (l *Linker) Resolve(scenes []Scene) ([]Scene, []Warning) {
	resolved := make([]Scene, len(scenes))
	for i := range scenes {
		resolved[i] = scenes[i].Clone()
	}

	if l.AutoLink {
		for i := 0; i < len(resolved)-1; i++ {
			if resolved[i].TrailingAnchor != nil {
				continue
			}
			next := scenes[i+1].LeadingAnchor
			if next == nil || next.AutoLinked {
				// Only explicitly authored anchors propagate; chaining
				// auto-linked ones would manufacture continuity that no
				// one drew.
				continue
			}
			resolved[i].TrailingAnchor = &ImageRef{Path: next.Path, AutoLinked: true}
		}
	}

	var warnings []Warning
	for i := range resolved {
		refs := l.referencesFor(resolved[i])
		if l.MaxReferences > 0 && len(refs) > l.MaxReferences {
			dropped := make([]ImageRef, len(refs)-l.MaxReferences)
			copy(dropped, refs[l.MaxReferences:])
			warnings = append(warnings, Warning{
				SceneIndex: resolved[i].Index,
				Message:    "reference images truncated to provider limit",
				Dropped:    dropped,
			})
			refs = refs[:l.MaxReferences]
		}
		resolved[i].ReferenceImages = refs
	}

	return resolved, warnings
}

// referencesFor picks the scene-specific list when the scene opts out of
// globals and carries its own, otherwise the project-global list.
func (l *Linker) referencesFor(s Scene) []ImageRef {
	if s.SkipGlobalReferences && len(s.ReferenceImages) > 0 {
		return append([]ImageRef(nil), s.ReferenceImages...)
	}
	if len(l.GlobalReferences) > 0 {
		return append([]ImageRef(nil), l.GlobalReferences...)
	}
	return append([]ImageRef(nil), s.ReferenceImages...)
}
