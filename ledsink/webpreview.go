// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ledsink

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"mime"
	"net/http"
	"net/textproto"
	"sync"
	"time"

	"golang.org/x/image/vector"

	"github.com/windrose/povcore/rendercontext"
)

const (
	webPreviewDefaultSize      = 240
	webPreviewDotRadius        = 3.5
	webPreviewJPEGQuality      = 92
	webPreviewMinFrameInterval = time.Second / 20
	webPreviewKeepAliveInterval = time.Minute
)

// WebPreview is a Sink that renders the spinning display as a flat polar
// image and serves it to browsers as an MJPEG stream, the same
// request/response shape as the teacher's videosink.Display: "the primary
// use case is the development of display outputs on a host machine."
// Unlike videosink, which receives an already-rasterized image.Image, this
// backend performs its own polar-to-Cartesian placement of each physical
// LED using its current arm angle, then rasterizes an anti-aliased dot per
// LED with golang.org/x/image/vector.
type WebPreview struct {
	size        int
	center      float64
	maxRadius   float64
	jpegOptions jpeg.Options

	minFrameInterval  time.Duration
	keepAliveInterval time.Duration

	armOfIndex    []int8   // per physical index, which arm (0-2), or -1
	radiusFrac    []float64 // per physical index, 0 (hub) .. 1 (tip)

	mu        sync.Mutex
	armAngles [3]int
	pixels    []rendercontext.Color
	buffer    *image.RGBA
	snapshot  []byte
	clients   map[*previewClient]struct{}
}

// NewWebPreview builds a preview sink for the given pixel Map. size is the
// square canvas side in pixels; 0 selects a reasonable default.
func NewWebPreview(m Map, size int) *WebPreview {
	if size <= 0 {
		size = webPreviewDefaultSize
	}
	w := &WebPreview{
		size:              size,
		center:            float64(size) / 2,
		maxRadius:         float64(size)/2 - webPreviewDotRadius - 1,
		jpegOptions:       jpeg.Options{Quality: webPreviewJPEGQuality},
		minFrameInterval:  webPreviewMinFrameInterval,
		keepAliveInterval: webPreviewKeepAliveInterval,
		pixels:            make([]rendercontext.Color, PhysicalCount),
		buffer:            image.NewRGBA(image.Rect(0, 0, size, size)),
		clients:           map[*previewClient]struct{}{},
	}
	w.armOfIndex, w.radiusFrac = reverseMap(m)
	return w
}

// armLens mirrors rendercontext's per-arm LED counts, used to turn a
// within-arm offset into a 0..1 radius fraction.
var armLens = [3]int{rendercontext.LedsArm0, rendercontext.LedsArm1, rendercontext.LedsArm2}

func reverseMap(m Map) ([]int8, []float64) {
	armOf := make([]int8, PhysicalCount)
	radius := make([]float64, PhysicalCount)
	for i := range armOf {
		armOf[i] = -1
	}
	for arm := 0; arm < 3; arm++ {
		for led := 0; led < m.Len[arm]; led++ {
			idx := m.PhysicalIndex(arm, led)
			if idx < 0 || idx >= PhysicalCount {
				continue
			}
			armOf[idx] = int8(arm)
			if armLens[arm] > 1 {
				radius[idx] = float64(led) / float64(armLens[arm]-1)
			}
		}
	}
	return armOf, radius
}

// String implements conn.Resource.
func (w *WebPreview) String() string { return "ledsink.WebPreview" }

// Halt implements conn.Resource.
func (w *WebPreview) Halt() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for c := range w.clients {
		select {
		case c.terminate <- struct{}{}:
		default:
		}
	}
	return nil
}

// SetArmAngles implements the optional ArmAwareSink extension Translate
// looks for: without current arm angles, a polar preview has nothing to
// place pixels by.
func (w *WebPreview) SetArmAngles(angles [3]int) {
	w.mu.Lock()
	w.armAngles = angles
	w.mu.Unlock()
}

// SetPixel implements Sink.
func (w *WebPreview) SetPixel(physicalIndex int, c rendercontext.Color) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if physicalIndex < 0 || physicalIndex >= len(w.pixels) {
		return nil
	}
	w.pixels[physicalIndex] = c
	return nil
}

// Show implements Sink: rebuilds the canvas from the latest pixel colors
// and arm angles, encodes it as JPEG, and wakes any connected clients.
func (w *WebPreview) Show() error {
	w.mu.Lock()
	draw.Draw(w.buffer, w.buffer.Bounds(), image.Black, image.Point{}, draw.Src)
	for i, c := range w.pixels {
		arm := w.armOfIndex[i]
		if arm < 0 {
			continue
		}
		angleUnits := w.armAngles[arm]
		theta := float64(angleUnits) / 10 * math.Pi / 180
		radius := w.radiusFrac[i] * w.maxRadius
		cx := w.center + radius*math.Cos(theta)
		cy := w.center + radius*math.Sin(theta)
		drawDot(w.buffer, cx, cy, c.NRGBA())
	}
	buf := &bytes.Buffer{}
	err := jpeg.Encode(buf, w.buffer, &w.jpegOptions)
	w.snapshot = buf.Bytes()
	for c := range w.clients {
		select {
		case c.refresh <- struct{}{}:
		default:
		}
	}
	w.mu.Unlock()
	return err
}

// drawDot rasterizes a filled anti-aliased circle centered at (cx, cy) in
// the given color, using a vector.Rasterizer sized to the dot's own
// bounding box so the cost is independent of the canvas size.
func drawDot(dst *image.RGBA, cx, cy float64, col color.NRGBA) {
	const segments = 16
	r := float32(webPreviewDotRadius)
	minX := int(math.Floor(cx - webPreviewDotRadius - 1))
	minY := int(math.Floor(cy - webPreviewDotRadius - 1))
	side := int(2*webPreviewDotRadius) + 3

	rast := vector.NewRasterizer(side, side)
	lcx := float32(cx) - float32(minX)
	lcy := float32(cy) - float32(minY)
	rast.MoveTo(lcx+r, lcy)
	for i := 1; i <= segments; i++ {
		theta := 2 * math.Pi * float64(i) / segments
		rast.LineTo(lcx+r*float32(math.Cos(theta)), lcy+r*float32(math.Sin(theta)))
	}
	rast.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, side, side))
	rast.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	dstRect := image.Rect(minX, minY, minX+side, minY+side)
	draw.DrawMask(dst, dstRect, &image.Uniform{C: col}, image.Point{}, mask, image.Point{}, draw.Over)
}

type previewClient struct {
	refresh   chan struct{}
	terminate chan struct{}
}

// ServeHTTP streams the preview as an MJPEG multipart response, the same
// shape as the teacher's videosink.Display.ServeHTTP, trimmed to a single
// fixed JPEG format since this backend owns its own encoding.
func (w *WebPreview) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(resp, "", http.StatusMethodNotAllowed)
		return
	}
	const boundary = "povcoreframe"
	resp.Header().Set("Content-Type", mime.FormatMediaType(
		"multipart/x-mixed-replace", map[string]string{"boundary": boundary}))

	c := &previewClient{refresh: make(chan struct{}, 1), terminate: make(chan struct{}, 1)}
	w.mu.Lock()
	w.clients[c] = struct{}{}
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		delete(w.clients, c)
		w.mu.Unlock()
	}()

	flusher, _ := resp.(http.Flusher)
	ctx := req.Context()
	ticker := time.NewTicker(w.keepAliveInterval)
	defer ticker.Stop()

	for {
		if err := w.writeFrame(resp, boundary); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
		select {
		case <-ctx.Done():
			return
		case <-c.terminate:
			return
		case <-c.refresh:
			time.Sleep(w.minFrameInterval)
		case <-ticker.C:
		}
	}
}

func (w *WebPreview) writeFrame(resp http.ResponseWriter, boundary string) error {
	w.mu.Lock()
	frame := w.snapshot
	w.mu.Unlock()
	if frame == nil {
		return nil
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Type", "image/jpeg")
	if _, err := resp.Write([]byte("--" + boundary + "\r\n")); err != nil {
		return err
	}
	for k, vs := range header {
		for _, v := range vs {
			if _, err := resp.Write([]byte(k + ": " + v + "\r\n")); err != nil {
				return err
			}
		}
	}
	if _, err := resp.Write([]byte("\r\n")); err != nil {
		return err
	}
	if _, err := resp.Write(frame); err != nil {
		return err
	}
	_, err := resp.Write([]byte("\r\n"))
	return err
}

var (
	_ Sink         = (*WebPreview)(nil)
	_ http.Handler = (*WebPreview)(nil)
	_ ArmAwareSink = (*WebPreview)(nil)
)
