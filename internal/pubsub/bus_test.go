package pubsub

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPublishSubscribeOrdering(t *testing.T) {
	b := New(8, zerolog.Nop())
	ch, cancel := b.Subscribe(MeetingChannel("m1"))
	defer cancel()

	b.Publish(MeetingChannel("m1"), []byte("first"))
	b.Publish(MeetingChannel("m1"), []byte("second"))

	select {
	case got := <-ch:
		if string(got) != "first" {
			t.Fatalf("got %q, want first", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for first message")
	}
	select {
	case got := <-ch:
		if string(got) != "second" {
			t.Fatalf("got %q, want second", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for second message")
	}
}

func TestPublishNoSubscribersIsNoop(t *testing.T) {
	b := New(8, zerolog.Nop())
	// Should not panic or block.
	b.Publish(MeetingChannel("ghost"), []byte("nobody home"))
}

func TestCancelUnsubscribes(t *testing.T) {
	b := New(8, zerolog.Nop())
	ch, cancel := b.Subscribe(MeetingChannel("m1"))
	cancel()

	b.Publish(MeetingChannel("m1"), []byte("should not be delivered"))

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("received message after cancel")
		}
	case <-time.After(50 * time.Millisecond):
		// no delivery, as expected
	}

	if n := b.SubscriberCount(MeetingChannel("m1")); n != 0 {
		t.Errorf("SubscriberCount = %d, want 0 after cancel", n)
	}
}

func TestPublishDropsOldestOnFullQueue(t *testing.T) {
	b := New(2, zerolog.Nop())
	ch, cancel := b.Subscribe(MeetingChannel("m1"))
	defer cancel()

	b.Publish(MeetingChannel("m1"), []byte("1"))
	b.Publish(MeetingChannel("m1"), []byte("2"))
	b.Publish(MeetingChannel("m1"), []byte("3")) // queue full at 2 -> drops "1"

	first := <-ch
	second := <-ch
	if string(first) != "2" || string(second) != "3" {
		t.Errorf("got %q, %q; want 2, 3 (oldest dropped)", first, second)
	}
}

func TestMultipleSubscribersEachReceive(t *testing.T) {
	b := New(8, zerolog.Nop())
	ch1, cancel1 := b.Subscribe(MeetingChannel("m1"))
	defer cancel1()
	ch2, cancel2 := b.Subscribe(MeetingChannel("m1"))
	defer cancel2()

	b.Publish(MeetingChannel("m1"), []byte("broadcast"))

	for _, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case got := <-ch:
			if string(got) != "broadcast" {
				t.Errorf("got %q, want broadcast", got)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for broadcast")
		}
	}
}
