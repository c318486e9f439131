package field

// BuildPaddedSeek builds an integration field over a region twice the
// chunk size (half-chunk padding on every side) so that targets just
// outside the chunk can still pull agents, then extracts the flow field
// over the centered Tw×Th subregion (§4.4 "Enemy-seek / entity-seek
// fields"). padCtx and targets address the padded region directly: (0,0)
// is the top-left of the padded region, and row (padCtx.H-chunkH)/2,
// column (padCtx.W-chunkW)/2 is the chunk's own top-left corner.
func BuildPaddedSeek(padCtx *BuildContext, chunkW, chunkH int32, targets []struct{ R, C int32 }) *FlowField {
	padded := BuildIntegration(padCtx, targets)
	paddedFlow := ExtractFlow(padded)

	offR := (padCtx.H - chunkH) / 2
	offC := (padCtx.W - chunkW) / 2

	center := NewFlowField(chunkW, chunkH)
	for r := int32(0); r < chunkH; r++ {
		for c := int32(0); c < chunkW; c++ {
			center.Set(r, c, paddedFlow.At(r+offR, c+offC))
		}
	}
	return center
}
