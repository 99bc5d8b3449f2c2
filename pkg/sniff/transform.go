package sniff

// MultiFrameCapable reports whether the format's container can encode more
// than one frame.
func (f Format) MultiFrameCapable() bool {
	return f == FormatGif || f == FormatWebp
}

// TransformDecision is derived once per ingestion from the payload's
// container metadata and drives whether the optimizer runs.
type TransformDecision struct {
	IsAnimated   bool
	FrameCount   int
	SourceFormat string
}

// DecideTransform determines whether an image-category payload is a
// multi-frame animated raster image. Animated payloads must bypass the
// optimizer entirely: a single-frame re-encode would bake frame one in as a
// static image and destroy the animation while still reporting success.
func DecideTransform(detected DetectedType) TransformDecision {
	frames := detected.Frames
	if frames == 0 {
		frames = 1
	}
	return TransformDecision{
		IsAnimated:   detected.Format.MultiFrameCapable() && frames > 1,
		FrameCount:   frames,
		SourceFormat: detected.Format.String(),
	}
}
