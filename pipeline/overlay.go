// Copyright 2020 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package pipeline

import "github.com/windrose/povcore/rendercontext"

// statsOverlayPixels is how much of the virtual-pixel ring the overlay
// claims: the hub pixel plus the innermost row, so it reads as a small
// badge near the center rather than competing with the active effect for
// the bulk of the display.
const statsOverlayPixels = 4

// overlayStats paints a coarse health badge over the innermost virtual
// pixels, in the same red/amber/green colors statssink.StatusLight shows
// through a physical indicator LED, for installations running with no
// separate diagnostics hardware: red while not rotating, amber once skipped
// frames exceed a quarter of rendered frames, green otherwise. Called by
// OutputWorker.Step on the acquired buffer before Translate, so it always
// has the last word on those pixels.
func overlayStats(ctx *rendercontext.Context, rendered, skipped, notRotating uint64) {
	ctx.FillVirtual(0, statsOverlayPixels, overlayColor(rendered, skipped, notRotating))
}

func overlayColor(rendered, skipped, notRotating uint64) rendercontext.Color {
	if notRotating > 0 {
		return rendercontext.Color{R: 0xff}
	}
	if skipped > 0 && skipped*4 > rendered {
		return rendercontext.Color{R: 0xff, G: 0x80}
	}
	return rendercontext.Color{G: 0xff}
}
