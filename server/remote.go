package server

import (
	"github.com/go-gl/mathgl/mgl64"

	"windglobe/selection"
	"windglobe/wind"
)

// remoteRenderer turns scene calls into messages for one client. Messages
// queue up during a frame and are written together by flush.
type remoteRenderer struct {
	ready  bool
	nextID int
	queue  []Message
	leaf   *remoteLeaf
}

func newRemoteRenderer() *remoteRenderer {
	return &remoteRenderer{ready: true}
}

func (r *remoteRenderer) push(m Message) {
	r.queue = append(r.queue, m)
}

func (r *remoteRenderer) id() int {
	r.nextID++
	return r.nextID
}

// flush returns the queued messages, followed by the leaf state if it moved.
func (r *remoteRenderer) flush() []Message {
	if l := r.leaf; l != nil && l.dirty {
		pos, fwd, op := vec3(l.position), vec3(l.forward), l.opacity
		r.push(Message{Type: msgLeaf, ID: l.id, Position: &pos, Forward: &fwd, Opacity: &op})
		l.dirty = false
	}
	out := r.queue
	r.queue = nil
	return out
}

func (r *remoteRenderer) ParticleReady() bool { return r.ready }

func (r *remoteRenderer) ShowGlyphs(level int, field *wind.GlyphField) {
	r.push(glyphsMessage(level, field))
}

func (r *remoteRenderer) ShowStreamline(s *wind.Streamline, colors wind.Palette) selection.Handle {
	id := r.id()
	r.push(streamlineMessage(id, s, colors))
	return &remoteHandle{r: r, id: id}
}

func (r *remoteRenderer) SpawnParticle() selection.Particle {
	l := &remoteLeaf{remoteHandle: remoteHandle{r: r, id: r.id()}, opacity: 1}
	r.leaf = l
	return l
}

type remoteHandle struct {
	r  *remoteRenderer
	id int
}

func (h *remoteHandle) Release() {
	h.r.push(Message{Type: msgRelease, ID: h.id})
}

type remoteLeaf struct {
	remoteHandle
	position, forward mgl64.Vec3
	opacity           float64
	dirty             bool
}

func (l *remoteLeaf) SetTransform(position, forward mgl64.Vec3) {
	l.position, l.forward = position, forward
	l.dirty = true
}

func (l *remoteLeaf) SetOpacity(opacity float64) {
	if opacity != l.opacity {
		l.dirty = true
	}
	l.opacity = opacity
}

func (l *remoteLeaf) Release() {
	if l.r.leaf == l {
		l.r.leaf = nil
	}
	l.remoteHandle.Release()
}
