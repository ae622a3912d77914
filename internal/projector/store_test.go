package projector

import (
	"context"
	"testing"
	"time"

	"github.com/brewbean/livecup/internal/eventbus"
	"github.com/brewbean/livecup/internal/order"
)

func TestStoreStartsEmpty(t *testing.T) {
	store := NewStore(nil)
	view := store.View()
	if !view.Snapshot.IsEmpty() || view.SizeClass != order.SizeMedium || view.HasWhippedTopping || view.HasMilkAdded {
		t.Fatalf("unexpected initial view: %+v", view)
	}
}

func TestStoreReplaceNotifiesObservers(t *testing.T) {
	bus := eventbus.New()
	defer bus.Shutdown()

	store := NewStore(bus)
	updates := store.Updates()
	defer updates.Close()

	store.replace(context.Background(), order.Snapshot{CustomerName: "Sam", RawSize: "tall"})

	select {
	case env := <-updates.C():
		if env.Payload.CustomerName != "Sam" || env.Payload.SizeClass != order.SizeSmall {
			t.Fatalf("unexpected notification: %+v", env.Payload)
		}
		if env.Source != eventbus.SourceProjector {
			t.Fatalf("unexpected source %s", env.Source)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot notification")
	}
}

func TestStoreReadsAreCopies(t *testing.T) {
	store := NewStore(nil)
	extras := []string{"caramel"}
	store.replace(context.Background(), order.Snapshot{Extras: extras})

	extras[0] = "whip"
	if store.View().HasWhippedTopping {
		t.Fatal("store shares the writer's extras slice")
	}

	snap := store.Snapshot()
	snap.Extras[0] = "whip"
	if store.View().HasWhippedTopping {
		t.Fatal("store shares the reader's extras slice")
	}
}
