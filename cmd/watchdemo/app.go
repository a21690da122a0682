package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/watchable"
	"github.com/dshills/watchable/dispatch"
	"github.com/dshills/watchable/loop"
	"github.com/dshills/watchable/metrics"
)

// sensor is an observable temperature reading.
type sensor struct {
	watchable.Base

	Name    string
	Reading float64
}

var readingPath = watchable.NewPath("reading",
	func(s *sensor) float64 { return s.Reading })

func newSensor(name string, reading float64, opts ...watchable.EmitterOption) *sensor {
	s := &sensor{Name: name, Reading: reading}
	s.Bind(s, opts...)
	return s
}

func (s *sensor) setReading(v float64) {
	old := s.Reading
	s.Reading = v
	watchable.EmitPropertyChange(s.Emitter(), s, readingPath, &old)
}

// status is the footer line, held behind a proxy so writes to it are
// observable without the struct knowing.
type status struct {
	Message string
}

var messagePath = watchable.NewPath("message",
	func(st *status) string { return st.Message }).
	WithSetter(func(st *status, v string) { st.Message = v })

// demoApp wires observable sensors, a fleet slice, a status proxy, and
// a metrics observer to a tcell dashboard. All model state is touched
// on the coordination loop only.
type demoApp struct {
	screen  tcell.Screen
	lp      *loop.Loop
	disp    dispatch.Dispatcher
	log     *slog.Logger
	metrics *metrics.Observer
	addr    string

	fleet     *watchable.Slice[*sensor]
	footer    *watchable.Proxy[status]
	telemetry *watchable.Emitter
	steps     int

	// tokens pins the observations for the life of the app; a dropped
	// token unregisters its observer at the next collection.
	tokens []*watchable.Token

	done     chan struct{}
	quitOnce sync.Once
}

func newDemoApp(screen tcell.Screen, lp *loop.Loop, disp dispatch.Dispatcher, log *slog.Logger, addr string) *demoApp {
	return &demoApp{
		screen:  screen,
		lp:      lp,
		disp:    disp,
		log:     log,
		metrics: metrics.NewObserver(),
		addr:    addr,
		done:    make(chan struct{}),
	}
}

// setup builds the model and registers the observers. It runs as the
// first task on the loop; the initial registration events paint the
// first frame.
func (a *demoApp) setup() {
	onLoop := watchable.WithLoop(a.lp)

	a.fleet = watchable.NewSlice([]*sensor{
		newSensor("core-a", 42, onLoop),
		newSensor("core-b", 55, onLoop),
		newSensor("ambient", 21, onLoop),
	}, onLoop)
	a.footer = watchable.NewProxy(status{Message: "warming up"}, onLoop)

	// Telemetry events bypass the loop and run under the configured
	// strategy; only the metrics observer listens there.
	a.telemetry = watchable.NewEmitter(nil,
		watchable.WithDefaultDispatcher(a.disp),
		watchable.WithLogger(a.log),
	)

	// Every property change is followed by an object-change, so
	// redrawing on the coarse events covers the fine-grained ones.
	a.tokens = append(a.tokens,
		a.fleet.Emitter().ObserveObjectChange(func(*watchable.ObjectChangeEvent) { a.render() }),
		a.footer.Emitter().ObserveObjectChange(func(*watchable.ObjectChangeEvent) { a.render() }),
	)

	a.tokens = append(a.tokens, watchable.ObserveElementPath(a.fleet, readingPath,
		func(ev *watchable.PropertyChangeEvent[float64], s *sensor, _ int) {
			watchable.Set(a.footer, messagePath, fmt.Sprintf("%s now %.1f", s.Name, ev.NewValue()))
		}))

	a.tokens = append(a.tokens, watchable.ObserveArrayChange(a.fleet,
		func(ev *watchable.ArrayChangeEvent[*sensor]) {
			a.footer.Emplace(status{Message: fmt.Sprintf(
				"fleet resized %d to %d", len(ev.OldValues()), len(ev.NewValues()))})
		}))

	a.fleet.Emitter().Register(a.metrics)
	a.telemetry.Register(a.metrics)
}

// step advances one random sensor and emits a telemetry tick.
func (a *demoApp) step() {
	a.steps++
	sensors := a.fleet.Values()
	if len(sensors) > 0 {
		s := sensors[rand.IntN(len(sensors))]
		next := s.Reading + (rand.Float64()-0.5)*6
		s.setReading(min(max(next, 0), 100))
	}
	watchable.EmitValueChange(a.telemetry, "demo.step", a.steps)
}

func (a *demoApp) addSensor() {
	name := fmt.Sprintf("aux-%d", a.fleet.Len())
	s := newSensor(name, 50, watchable.WithLoop(a.lp))
	a.fleet.Assign(func(sensors []*sensor) []*sensor {
		return append(sensors, s)
	})
}

func (a *demoApp) dropSensor() {
	a.fleet.Assign(func(sensors []*sensor) []*sensor {
		if len(sensors) <= 1 {
			return sensors
		}
		return sensors[:len(sensors)-1]
	})
}

func (a *demoApp) render() {
	s := a.screen
	s.Clear()

	head := tcell.StyleDefault.Bold(true)
	normal := tcell.StyleDefault
	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)

	drawText(s, 0, 0, head, "watchable demo")
	drawText(s, 0, 1, dim, "q quit  a add sensor  x drop sensor")

	row := 3
	for _, sn := range a.fleet.Values() {
		bar := int(sn.Reading / 2)
		bar = min(max(bar, 0), 50)
		drawText(s, 0, row, normal, fmt.Sprintf("%-10s %6.1f", sn.Name, sn.Reading))
		drawText(s, 19, row, normal, strings.Repeat("|", bar))
		row++
	}

	drawText(s, 0, row+1, normal, a.footer.Value().Message)

	stats := a.lp.Stats()
	drawText(s, 0, row+3, dim, fmt.Sprintf("loop posted=%d executed=%d dropped=%d",
		stats.Posted, stats.Executed, stats.Dropped))
	if a.addr != "" {
		drawText(s, 0, row+4, dim, "metrics on "+a.addr+"/metrics")
	}

	s.Show()
}

// poll translates terminal events into loop tasks. It exits when the
// screen is finalized.
func (a *demoApp) poll() {
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				a.quit()
				return
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'q':
					a.quit()
					return
				case 'a':
					_ = a.lp.Post(a.addSensor)
				case 'x':
					_ = a.lp.Post(a.dropSensor)
				}
			}
		case *tcell.EventResize:
			a.screen.Sync()
			_ = a.lp.Post(a.render)
		}
	}
}

func (a *demoApp) tick(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-a.done:
			return
		case <-t.C:
			if err := a.lp.Post(a.step); err != nil {
				return
			}
		}
	}
}

func (a *demoApp) quit() {
	a.quitOnce.Do(func() {
		close(a.done)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.lp.Stop(ctx); err != nil {
			a.log.Warn("loop stop", slog.String("error", err.Error()))
		}
	})
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	col := x
	for _, r := range text {
		s.SetContent(col, y, r, nil, style)
		col++
	}
}
