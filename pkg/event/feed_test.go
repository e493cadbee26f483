package event

import (
	"reflect"
	"testing"
)

func TestFeedDeliversInSubscriptionOrder(t *testing.T) {
	var feed Feed[int]
	var got []string

	feed.Subscribe(func(v int) { got = append(got, "first") })
	feed.Subscribe(func(v int) { got = append(got, "second") })
	feed.Subscribe(func(v int) { got = append(got, "third") })

	feed.Publish(1)

	want := []string{"first", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("delivery order = %v, want %v", got, want)
	}
}

func TestFeedDeliversValueToEveryHandler(t *testing.T) {
	var feed Feed[string]
	var got []string

	feed.Subscribe(func(v string) { got = append(got, v) })
	feed.Subscribe(func(v string) { got = append(got, v) })

	feed.Publish("hello")

	if len(got) != 2 {
		t.Fatalf("handler invocations = %d, want 2", len(got))
	}
	for i, v := range got {
		if v != "hello" {
			t.Errorf("handler %d received %q, want %q", i, v, "hello")
		}
	}
}

func TestFeedPublishWithNoHandlers(t *testing.T) {
	var feed Feed[int]
	feed.Publish(42) // must not panic
}

func TestFeedSubscribeDuringPublish(t *testing.T) {
	var feed Feed[int]
	calls := 0

	feed.Subscribe(func(v int) {
		feed.Subscribe(func(v int) { calls += 100 })
	})

	feed.Publish(1)
	if calls != 0 {
		t.Errorf("late subscriber ran during the publish that added it: calls = %d", calls)
	}

	feed.Publish(2)
	if calls != 100 {
		t.Errorf("late subscriber missed the next publish: calls = %d, want 100", calls)
	}
}

func TestFeedReentrantPublish(t *testing.T) {
	var feed Feed[int]
	var got []int

	feed.Subscribe(func(v int) {
		got = append(got, v)
		if v == 1 {
			feed.Publish(2)
		}
	})

	feed.Publish(1)

	want := []int{1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reentrant publish order = %v, want %v", got, want)
	}
}
