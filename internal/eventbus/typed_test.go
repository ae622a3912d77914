package eventbus

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"
)

func TestTypedEnvelopeKeepsMetadata(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	sub := Subscribe[testPacket](bus, TopicRoomData)
	defer sub.Close()

	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bus.Publish(context.Background(), Envelope{
		Topic:     TopicRoomData,
		Timestamp: ts,
		Source:    SourceRTCClient,
		Payload:   testPacket{ID: 7, Body: "latte"},
	})

	select {
	case got := <-sub.C():
		if got.Timestamp != ts {
			t.Errorf("Timestamp: got %v, want %v", got.Timestamp, ts)
		}
		if got.Source != SourceRTCClient {
			t.Errorf("Source: got %v, want %v", got.Source, SourceRTCClient)
		}
		if got.Payload.Body != "latte" {
			t.Errorf("Payload: got %+v", got.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for typed event")
	}
}

func TestTypedSubscriptionSkipsForeignPayloads(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	sub := Subscribe[testPacket](bus, TopicRoomData)
	defer sub.Close()

	bus.Publish(context.Background(), Envelope{Topic: TopicRoomData, Payload: "not a packet"})
	bus.Publish(context.Background(), Envelope{Topic: TopicRoomData, Payload: testPacket{ID: 2}})

	select {
	case got := <-sub.C():
		if got.Payload.ID != 2 {
			t.Fatalf("expected the matching event, got %+v", got.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out, foreign payload may have blocked delivery")
	}
}

func TestTypedCloseWithUnreadEvent(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	sub := Subscribe[testPacket](bus, TopicRoomData)
	bus.Publish(context.Background(), Envelope{Topic: TopicRoomData, Payload: testPacket{ID: 1}})
	time.Sleep(50 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		sub.Close()
		sub.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked while the pump held an unread event")
	}
	if n := bus.SubscriberCount(TopicRoomData); n != 0 {
		t.Fatalf("expected subscription to be removed, %d remain", n)
	}
}

func TestTypedSubscriptionOnNilBus(t *testing.T) {
	sub := SubscribeTo(nil, testTopic)
	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected channel to be closed for nil bus")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for closed channel on nil bus")
	}
	sub.Close()

	Publish(context.Background(), nil, testTopic, SourceRoom, testPacket{})
}

func TestTypedSubscriptionEndsOnShutdown(t *testing.T) {
	bus := New()
	sub := Subscribe[testPacket](bus, TopicRoomData)
	bus.Shutdown()

	select {
	case _, ok := <-sub.C():
		if ok {
			t.Fatal("expected channel to be closed after bus shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close after shutdown")
	}
	select {
	case <-sub.done:
	case <-time.After(time.Second):
		t.Fatal("pump did not exit after bus shutdown")
	}
}

func TestPublishThroughTopicDef(t *testing.T) {
	bus := New()
	defer bus.Shutdown()

	sub := SubscribeTo(bus, testTopic, WithSubscriptionName("test"))
	defer sub.Close()

	ts := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	Publish(context.Background(), bus, testTopic, SourceProjector, testPacket{ID: 3, Body: "mocha"},
		WithTimestamp(ts))

	select {
	case env := <-sub.C():
		if env.Topic != testTopic.Topic() {
			t.Fatalf("expected topic %s, got %s", testTopic.Topic(), env.Topic)
		}
		if env.Source != SourceProjector || env.Payload.Body != "mocha" {
			t.Fatalf("unexpected envelope %+v", env)
		}
		if !env.Timestamp.Equal(ts) {
			t.Fatalf("options not applied: %+v", env)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestOverflowDefaults(t *testing.T) {
	bus := New()
	cases := map[Topic]Overflow{
		TopicRoomData:      KeepLatest,
		TopicOrderSnapshot: KeepLatest,
		TopicProjectorDrop: KeepEarliest,
		Topic("unknown"):   KeepLatest,
	}
	for topic, want := range cases {
		if got := bus.spec(topic).overflow; got != want {
			t.Fatalf("topic %s: expected %s, got %s", topic, want, got)
		}
	}
}

func TestWithOverflowOverridesTopic(t *testing.T) {
	bus := New(
		WithOverflow(TopicRoomData, KeepEarliest),
		WithTopicBuffer(TopicRoomData, 1),
		WithLogger(log.New(&bytes.Buffer{}, "", 0)),
	)
	sub := SubscribeTo(bus, testTopic)
	defer sub.Close()

	ctx := context.Background()
	// The pump holds one event while blocked on send; the queue holds the next.
	for i := 1; i <= 4; i++ {
		Publish(ctx, bus, testTopic, SourceRoom, testPacket{ID: i})
		time.Sleep(10 * time.Millisecond)
	}

	first := <-sub.C()
	if first.Payload.ID != 1 {
		t.Fatalf("expected the earliest packet first, got %d", first.Payload.ID)
	}
	if sub.Dropped() == 0 {
		t.Fatal("expected later packets to be refused")
	}
}
