package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestEventChannelDeliversInOrder(t *testing.T) {
	ch := NewEventChannel()
	ch.Publish("phase", map[string]string{"phase": "scanning"})
	ch.Publish("progress", map[string]int{"processed": 1})
	ch.Publish("done", map[string]string{})

	ctx := context.Background()
	var names []string
	for {
		ev, ok, err := ch.Next(ctx)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !ok {
			break
		}
		names = append(names, ev.Name)
	}

	want := []string{"phase", "progress", "done"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestEventChannelClosesAfterTerminal(t *testing.T) {
	ch := NewEventChannel()
	ch.Publish("error", map[string]string{"error": "boom"})
	ch.Publish("progress", map[string]int{"processed": 99})

	ev, ok, err := ch.Next(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected terminal event, got ok=%v err=%v", ok, err)
	}
	if ev.Name != "error" {
		t.Errorf("event = %q, want error", ev.Name)
	}

	if _, ok, _ := ch.Next(context.Background()); ok {
		t.Error("events delivered after terminal event")
	}
	if !ch.Closed() {
		t.Error("channel should report closed")
	}
}

func TestEventChannelCloseInjectsDone(t *testing.T) {
	ch := NewEventChannel()
	ch.Publish("phase", map[string]string{"phase": "scanning"})
	ch.Close()

	var names []string
	for {
		ev, ok, err := ch.Next(context.Background())
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !ok {
			break
		}
		names = append(names, ev.Name)
	}
	if len(names) != 2 || names[1] != "done" {
		t.Errorf("expected injected done event, got %v", names)
	}
}

func TestEventChannelCloseAfterTerminalIsNoop(t *testing.T) {
	ch := NewEventChannel()
	ch.Publish("done", map[string]string{})
	ch.Close()

	count := 0
	for {
		_, ok, _ := ch.Next(context.Background())
		if !ok {
			break
		}
		count++
	}
	if count != 1 {
		t.Errorf("expected exactly one terminal event, got %d", count)
	}
}

func TestEventChannelNextBlocksUntilPublish(t *testing.T) {
	ch := NewEventChannel()

	go func() {
		time.Sleep(20 * time.Millisecond)
		ch.Publish("progress", map[string]int{"processed": 1})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, ok, err := ch.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("expected event, got ok=%v err=%v", ok, err)
	}
	if ev.Name != "progress" {
		t.Errorf("event = %q, want progress", ev.Name)
	}
}

func TestEventChannelNextContextCancel(t *testing.T) {
	ch := NewEventChannel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := ch.Next(ctx); err == nil {
		t.Error("expected context error")
	}
}

func TestEventFrame(t *testing.T) {
	ev := Event{Name: "phase", Data: map[string]string{"phase": "scanning"}}
	frame, err := ev.Frame()
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	want := "event: phase\ndata: {\"phase\":\"scanning\"}\n\n"
	if string(frame) != want {
		t.Errorf("frame = %q, want %q", frame, want)
	}
}
