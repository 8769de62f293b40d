package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/lumos/internal/config"
	"github.com/dokzlo13/lumos/internal/eventbus"
	"github.com/dokzlo13/lumos/internal/mode"
	"github.com/dokzlo13/lumos/internal/ui"
)

type message struct {
	topic string
	body  string
}

type fakeBroker struct {
	mu   sync.Mutex
	sent []message
}

func (b *fakeBroker) Publish(ctx context.Context, topic string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, message{topic: topic, body: string(body)})
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(`
topics:
  room: room/color
lamp:
  room_color: {r: 0, g: 0, b: 0}
`))
	if err != nil {
		t.Fatalf("config.Parse: %v", err)
	}
	return cfg
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHealthService_Ready(t *testing.T) {
	connected := false
	h := NewHealthService(testConfig(t), func() bool { return connected }).handler()

	get := func(path string) int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code
	}

	if code := get("/health"); code != http.StatusOK {
		t.Errorf("/health = %d", code)
	}
	if code := get("/ready"); code != http.StatusServiceUnavailable {
		t.Errorf("/ready while disconnected = %d, want 503", code)
	}
	connected = true
	if code := get("/ready"); code != http.StatusOK {
		t.Errorf("/ready while connected = %d", code)
	}
}

// The panel publishes a command, the lamp answers with its color and the
// panel paints it, with a loopback standing in for the broker.
func TestPanelAndLampOverBus(t *testing.T) {
	cfg := testConfig(t)
	bus := eventbus.NewWithConfig(2, 10)
	defer bus.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := &loopback{bus: bus, routes: map[string]eventbus.EventType{
		cfg.Topics.Command: eventbus.EventTypeCommand,
		cfg.Topics.Display: eventbus.EventTypeDisplay,
		cfg.Topics.Room:    eventbus.EventTypeRoom,
	}}

	panelSvc, err := NewPanelService(cfg, loop, nil)
	if err != nil {
		t.Fatalf("NewPanelService: %v", err)
	}
	defer panelSvc.Close()
	panelSvc.Subscribe(bus)

	lampSvc, err := NewLampService(cfg, loop, nil, nil)
	if err != nil {
		t.Fatalf("NewLampService: %v", err)
	}
	defer lampSvc.Close()
	lampSvc.Subscribe(ctx, bus)

	p := panelSvc.Panel
	p.CheckChanged(mode.Manual, true)
	p.Input(ui.ManualLumos, "100")
	p.Input(ui.ManualTemp, "100")
	if _, err := p.Submit(ctx, mode.Manual); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	eventually(t, func() bool { return p.Form().Background().Hex() == "#FFB300" })

	loop.Publish(ctx, cfg.Topics.Room, []byte(`{"r":10,"g":20,"b":30}`))
	eventually(t, func() bool { return lampSvc.Room.Color().Hex() == "#0A141E" })
}

// loopback delivers published messages straight back to the bus.
type loopback struct {
	fakeBroker
	bus    *eventbus.Bus
	routes map[string]eventbus.EventType
}

func (l *loopback) Publish(ctx context.Context, topic string, body []byte) error {
	l.fakeBroker.Publish(ctx, topic, body)
	if eventType, ok := l.routes[topic]; ok {
		l.bus.Publish(eventbus.Event{Type: eventType, Topic: topic, Payload: body, ReceivedAt: time.Now()})
	}
	return nil
}

func TestLampAppliesCommandsInOrder(t *testing.T) {
	cfg := testConfig(t)

	for run := 0; run < 50; run++ {
		bus := eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())

		lampSvc, err := NewLampService(cfg, &fakeBroker{}, nil, nil)
		if err != nil {
			t.Fatalf("NewLampService: %v", err)
		}
		lampSvc.Subscribe(context.Background(), bus)

		const n = 20
		for i := 0; i < n; i++ {
			body := fmt.Sprintf(`{"mode":"manual","brightness":%d,"temperature":50}`, i)
			bus.Publish(eventbus.Event{Type: eventbus.EventTypeCommand, Topic: cfg.Topics.Command, Payload: []byte(body)})
		}
		bus.Close(context.Background())
		lampSvc.Close()

		settings, ok := lampSvc.Lamp.Settings()
		if !ok || settings.Brightness != n-1 {
			t.Fatalf("run %d: final settings = %+v, want brightness %d", run, settings, n-1)
		}
	}
}

func TestServicesWireRoutesBusToPanelAndLamp(t *testing.T) {
	cfg := testConfig(t)
	bus := eventbus.NewWithConfig(2, 10)
	defer bus.Close(context.Background())

	s := &Services{cfg: cfg, Bus: bus, Broker: NewBrokerService(cfg, bus)}

	var err error
	if s.Panel, err = NewPanelService(cfg, &fakeBroker{}, nil); err != nil {
		t.Fatalf("NewPanelService: %v", err)
	}
	defer s.Panel.Close()
	if s.Lamp, err = NewLampService(cfg, &fakeBroker{}, nil, nil); err != nil {
		t.Fatalf("NewLampService: %v", err)
	}
	defer s.Lamp.Close()

	// Routes are only remembered until the broker connects
	if err := s.Wire(context.Background()); err != nil {
		t.Fatalf("Wire: %v", err)
	}

	bus.Publish(eventbus.Event{Type: eventbus.EventTypeCommand, Payload: []byte(`{"mode":"automatic","brightness":40,"temperature":60}`)})
	bus.Publish(eventbus.Event{Type: eventbus.EventTypeDisplay, Payload: []byte(`{"average_color":{"r":1,"g":2,"b":3}}`)})
	bus.Publish(eventbus.Event{Type: eventbus.EventTypeRoom, Payload: []byte(`{"r":255,"g":255,"b":255}`)})

	eventually(t, func() bool {
		settings, ok := s.Lamp.Lamp.Settings()
		return ok && settings.Mode == "automatic" && settings.Brightness == 40
	})
	eventually(t, func() bool { return s.Panel.Panel.Form().Background().Hex() == "#010203" })
	eventually(t, func() bool { return s.Lamp.Room.Color().Hex() == "#FFFFFF" })
}
