package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rcrowley/go-metrics"

	"windglobe/picking"
	"windglobe/scene"
	"windglobe/selection"
)

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	connMutex := &sync.Mutex{}
	s.clientsMutex.Lock()
	s.clients[conn] = connMutex
	metrics.GetOrRegisterGauge("ws.clients", s.metrics).Update(int64(len(s.clients)))
	s.clientsMutex.Unlock()
	defer func() {
		s.clientsMutex.Lock()
		delete(s.clients, conn)
		metrics.GetOrRegisterGauge("ws.clients", s.metrics).Update(int64(len(s.clients)))
		s.clientsMutex.Unlock()
	}()

	s.log.Info("client connected", "remote", r.RemoteAddr)
	c := &client{server: s, conn: conn, mutex: connMutex, render: newRemoteRenderer()}
	c.run(r.Context())
	s.log.Info("client disconnected", "remote", r.RemoteAddr)
}

// client is one websocket connection and the session it drives. Only run's
// goroutine touches the session; the reader goroutine just decodes commands.
type client struct {
	server  *Server
	conn    *websocket.Conn
	mutex   *sync.Mutex
	render  *remoteRenderer
	session *scene.Session
}

func (c *client) run(ctx context.Context) {
	s := c.server
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.session = scene.NewSession(scene.Options{
		Settings:  s.settings,
		Levels:    s.store,
		Renderer:  c.render,
		Describer: s.describer,
		Logger:    s.log,
		Aspect:    1,
	})
	defer c.session.Close()

	c.session.Subscribe(selection.ObserverFuncs{
		OnLocation: func(e selection.Event) {
			c.render.push(Message{Type: msgSelection, Event: &e})
		},
		OnCleared: func() {
			c.render.push(Message{Type: msgCleared})
		},
	})
	c.session.OnLoadError(func(level int, err error) {
		c.render.push(Message{Type: msgError, Error: err.Error()})
	})

	if err := c.session.LoadLevel(ctx, s.settings.Data.InitialLevel); err != nil {
		s.log.Error("initial level failed", "level", s.settings.Data.InitialLevel, "err", err)
		c.write([]Message{{Type: msgError, Error: err.Error()}})
		return
	}
	if !c.write(c.render.flush()) {
		return
	}

	commands := make(chan Command)
	go c.readLoop(ctx, commands)

	interval := time.Duration(s.settings.Server.UpdateIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-commands:
			if !ok {
				return
			}
			metrics.GetOrRegisterCounter("ws.messages.in", s.metrics).Inc(1)
			c.handle(cmd)
		case now := <-ticker.C:
			c.session.Tick(now.Sub(last).Seconds())
			last = now
		}
		if !c.write(c.render.flush()) {
			return
		}
	}
}

func (c *client) readLoop(ctx context.Context, commands chan<- Command) {
	defer close(commands)
	for {
		var cmd Command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.server.log.Warn("websocket read error", "err", err)
			}
			return
		}
		select {
		case commands <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

func (c *client) handle(cmd Command) {
	s := c.server
	switch cmd.Type {
	case "click":
		err := c.click(cmd)
		switch {
		case errors.Is(err, selection.ErrNotReady):
			c.render.push(Message{Type: msgError, Error: "leaf asset not ready, click ignored"})
		case err != nil:
			c.render.push(Message{Type: msgError, Error: err.Error()})
		}
	case "level":
		if !s.store.Has(cmd.Level) {
			c.render.push(Message{Type: msgError, Error: "unknown level"})
			return
		}
		metrics.GetOrRegisterCounter("levels.switch", s.metrics).Inc(1)
		c.session.RequestLevel(cmd.Level)
	case "close":
		c.session.Controller().Deselect()
	case "ready":
		if cmd.Particle != nil {
			c.render.ready = *cmd.Particle
		}
	default:
		c.render.push(Message{Type: msgError, Error: "unknown command " + cmd.Type})
	}
}

func (c *client) click(cmd Command) error {
	r, ok := c.ray(cmd)
	if !ok {
		return errors.New("camera matrices cannot be inverted")
	}
	err := c.session.PickRay(r)
	if err == nil {
		name := "picks.miss"
		if c.session.Controller().State() == selection.Selected {
			name = "picks.hit"
		}
		metrics.GetOrRegisterCounter(name, c.server.metrics).Inc(1)
	}
	return err
}

// ray uses the client camera when both matrices are sent, the session camera
// otherwise.
func (c *client) ray(cmd Command) (picking.Ray, bool) {
	view, okView := mat4(cmd.View)
	proj, okProj := mat4(cmd.Proj)
	if okView && okProj {
		return picking.RayFromNDC(cmd.X, cmd.Y, view, proj)
	}
	return c.session.Camera.Ray(cmd.X, cmd.Y)
}

// write sends messages under the connection mutex. It reports false once the
// connection is unusable.
func (c *client) write(msgs []Message) bool {
	if len(msgs) == 0 {
		return true
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for _, m := range msgs {
		if err := c.conn.WriteJSON(m); err != nil {
			c.server.log.Warn("websocket write failed", "err", err)
			return false
		}
	}
	metrics.GetOrRegisterCounter("ws.messages.out", c.server.metrics).Inc(int64(len(msgs)))
	return true
}
