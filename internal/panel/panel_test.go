package panel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dokzlo13/lumos/internal/command"
	"github.com/dokzlo13/lumos/internal/display"
	"github.com/dokzlo13/lumos/internal/ledger"
	"github.com/dokzlo13/lumos/internal/middleware"
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
	err  error
}

func (b *fakeBroker) Publish(ctx context.Context, topic string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, message{topic: topic, body: string(body)})
	return nil
}

func (b *fakeBroker) messages() []message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]message(nil), b.sent...)
}

type fakeRecorder struct {
	mu     sync.Mutex
	events []ledger.EventType
}

func (r *fakeRecorder) Append(eventType ledger.EventType, source, topic string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	return nil
}

func newTestPanel(t *testing.T, broker *fakeBroker, opts Options) *Panel {
	t.Helper()
	if opts.DefaultValue == 0 {
		opts.DefaultValue = mode.DefaultValue
	}
	p, err := New(command.NewPublisher(broker, "paso"), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Close)
	return p
}

func TestPanel_ManualSubmitScenario(t *testing.T) {
	broker := &fakeBroker{}
	rec := &fakeRecorder{}
	p := newTestPanel(t, broker, Options{})
	p.WithRecorder(rec)

	p.CheckChanged(mode.Manual, true)
	if _, err := p.Input(ui.ManualLumos, "80"); err != nil {
		t.Fatalf("Input brightness: %v", err)
	}
	if _, err := p.Input(ui.ManualTemp, "20"); err != nil {
		t.Fatalf("Input temperature: %v", err)
	}

	payload, err := p.Submit(context.Background(), mode.Manual)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if payload != (command.Payload{Mode: "manual", Brightness: 80, Temperature: 20}) {
		t.Errorf("payload = %+v", payload)
	}

	sent := broker.messages()
	if len(sent) != 1 {
		t.Fatalf("broker received %d messages, want exactly 1", len(sent))
	}
	if sent[0].topic != "paso" || sent[0].body != `{"mode":"manual","brightness":80,"temperature":20}` {
		t.Errorf("sent = %+v", sent[0])
	}

	n := p.Form().Notification()
	if !n.Visible || n.Kind != ui.NotifyInfo {
		t.Errorf("success notification expected, got %+v", n)
	}
	if len(rec.events) != 1 || rec.events[0] != ledger.EventCommandPublished {
		t.Errorf("recorded events = %v", rec.events)
	}
}

func TestPanel_SubmitInactiveModeRefused(t *testing.T) {
	broker := &fakeBroker{}
	p := newTestPanel(t, broker, Options{})

	if _, err := p.Submit(context.Background(), mode.Manual); !errors.Is(err, ErrModeInactive) {
		t.Errorf("idle submit error = %v, want ErrModeInactive", err)
	}

	p.CheckChanged(mode.Automatic, true)
	if _, err := p.Submit(context.Background(), mode.Manual); !errors.Is(err, ErrModeInactive) {
		t.Errorf("manual submit while automatic error = %v, want ErrModeInactive", err)
	}
	if len(broker.messages()) != 0 {
		t.Error("nothing should be published for an inactive mode")
	}
}

func TestPanel_BrokerFailureKeepsForm(t *testing.T) {
	broker := &fakeBroker{err: errors.New("connection lost")}
	p := newTestPanel(t, broker, Options{})

	p.CheckChanged(mode.Automatic, true)
	p.Input(ui.AutoLumos, "65")

	if _, err := p.Submit(context.Background(), mode.Automatic); err == nil {
		t.Fatal("Submit should report the broker failure")
	}

	form := p.Form()
	if p.State() != mode.StateAutomatic || !form.Enabled(ui.AutoButton) {
		t.Error("form should stay in its last enabled state")
	}
	if form.Value(ui.AutoLumos) != "65" {
		t.Errorf("brightness = %q, want 65", form.Value(ui.AutoLumos))
	}
	if n := form.Notification(); n.Kind != ui.NotifyError || !n.Visible {
		t.Errorf("error notification expected, got %+v", n)
	}
}

func TestPanel_InputClampsAndValidates(t *testing.T) {
	p := newTestPanel(t, &fakeBroker{}, Options{})

	if _, err := p.Input(ui.ManualLumos, "10"); !errors.Is(err, ErrDisabled) {
		t.Errorf("input on disabled field error = %v, want ErrDisabled", err)
	}
	if _, err := p.Input(ui.ManualButton, "10"); !errors.Is(err, ErrUnknownElement) {
		t.Errorf("input on button error = %v, want ErrUnknownElement", err)
	}

	p.CheckChanged(mode.Manual, true)

	v, err := p.Input(ui.ManualLumos, "250")
	if err != nil || v != 100 {
		t.Errorf("Input(250) = %d, %v; want 100", v, err)
	}
	if got := p.Form().Value(ui.ManualLumos); got != "100" {
		t.Errorf("stored value = %q, want 100", got)
	}

	if _, err := p.Input(ui.ManualTemp, "warm"); !errors.Is(err, command.ErrInvalidReading) {
		t.Errorf("non-numeric input error = %v, want ErrInvalidReading", err)
	}
	if got := p.Form().Value(ui.ManualTemp); got != "50" {
		t.Errorf("rejected input changed the value to %q", got)
	}
}

func TestPanel_SubmitRejectsCorruptedValue(t *testing.T) {
	broker := &fakeBroker{}
	p := newTestPanel(t, broker, Options{})

	p.CheckChanged(mode.Manual, true)
	// A value written around Input, e.g. by a stale page
	p.Form().SetValue(ui.ManualTemp, "NaN")

	if _, err := p.Submit(context.Background(), mode.Manual); !errors.Is(err, command.ErrInvalidReading) {
		t.Errorf("Submit error = %v, want ErrInvalidReading", err)
	}
	if len(broker.messages()) != 0 {
		t.Error("malformed reading must not be published")
	}
}

func TestPanel_LiveImmediatePublishesOnInput(t *testing.T) {
	broker := &fakeBroker{}
	p := newTestPanel(t, broker, Options{Live: true, LiveStrategy: middleware.StrategyImmediate})

	p.CheckChanged(mode.Automatic, true)
	if _, err := p.Input(ui.AutoTemp, "42"); err != nil {
		t.Fatalf("Input: %v", err)
	}

	sent := broker.messages()
	if len(sent) != 1 || sent[0].body != `{"mode":"automatic","brightness":50,"temperature":42}` {
		t.Errorf("sent = %+v", sent)
	}
}

func TestPanel_SendValidates(t *testing.T) {
	broker := &fakeBroker{}
	p := newTestPanel(t, broker, Options{Limits: command.Limits{Min: 0, Max: 100, Policy: command.PolicyReject}})

	if _, err := p.Send(context.Background(), command.Payload{Mode: "disco"}); !errors.Is(err, command.ErrInvalidReading) {
		t.Errorf("unknown mode error = %v", err)
	}
	if _, err := p.Send(context.Background(), command.Payload{Mode: "manual", Brightness: 101}); !errors.Is(err, command.ErrInvalidReading) {
		t.Errorf("out of range error = %v", err)
	}

	got, err := p.Send(context.Background(), command.Payload{Mode: "automatic", Brightness: 30, Temperature: 70})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got.Mode != "automatic" || len(broker.messages()) != 1 {
		t.Errorf("Send = %+v, sent %d", got, len(broker.messages()))
	}
}

func TestPanel_HandleDisplay(t *testing.T) {
	p := newTestPanel(t, &fakeBroker{}, Options{})

	if err := p.HandleDisplay(display.DefaultTopic, []byte(`{"average_color":{"r":0,"g":0,"b":255}}`)); err != nil {
		t.Fatalf("HandleDisplay: %v", err)
	}
	if got := p.Form().Background().Hex(); got != "#0000FF" {
		t.Errorf("background = %s, want #0000FF", got)
	}

	if err := p.HandleDisplay(display.DefaultTopic, []byte(`{}`)); !errors.Is(err, display.ErrMalformedMessage) {
		t.Errorf("malformed error = %v", err)
	}
	if got := p.Form().Background().Hex(); got != "#0000FF" {
		t.Errorf("malformed message changed background to %s", got)
	}
}

func TestPanel_SendRejectionNotifies(t *testing.T) {
	rec := &fakeRecorder{}
	p := newTestPanel(t, &fakeBroker{}, Options{Limits: command.Limits{Min: 0, Max: 100, Policy: command.PolicyReject}})
	p.WithRecorder(rec)

	for _, payload := range []command.Payload{
		{Mode: "disco", Brightness: 10, Temperature: 10},
		{Mode: "manual", Brightness: 10, Temperature: 300},
	} {
		p.Form().SetNotification("", ui.NotifyInfo, false)

		if _, err := p.Send(context.Background(), payload); err == nil {
			t.Fatalf("Send(%+v) should be rejected", payload)
		}
		if n := p.Form().Notification(); !n.Visible || n.Kind != ui.NotifyError {
			t.Errorf("Send(%+v): error notification expected, got %+v", payload, n)
		}
	}

	if len(rec.events) != 2 || rec.events[0] != ledger.EventCommandRejected || rec.events[1] != ledger.EventCommandRejected {
		t.Errorf("recorded events = %v", rec.events)
	}
}

type slowBroker struct {
	entered chan struct{}
	release chan struct{}
}

func (b *slowBroker) Publish(ctx context.Context, topic string, body []byte) error {
	b.entered <- struct{}{}
	<-b.release
	return nil
}

func TestPanel_FormRespondsDuringSlowPublish(t *testing.T) {
	broker := &slowBroker{entered: make(chan struct{}), release: make(chan struct{})}
	p, err := New(command.NewPublisher(broker, "paso"), Options{DefaultValue: mode.DefaultValue})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	p.CheckChanged(mode.Manual, true)

	submitted := make(chan error, 1)
	go func() {
		_, err := p.Submit(context.Background(), mode.Manual)
		submitted <- err
	}()

	select {
	case <-broker.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("publish never reached the broker")
	}

	handled := make(chan struct{})
	go func() {
		p.Input(ui.ManualLumos, "70")
		p.CheckChanged(mode.Automatic, true)
		close(handled)
	}()

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("form handlers blocked behind the broker")
	}
	if p.State() != mode.StateAutomatic {
		t.Errorf("state = %v, want automatic", p.State())
	}

	close(broker.release)
	if err := <-submitted; err != nil {
		t.Errorf("Submit: %v", err)
	}
}
