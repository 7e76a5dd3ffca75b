// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus_test

import (
	"sync"
	"testing"
	"time"

	"github.com/represtati3/bitcoin-net/messagebus"
)

func TestQueue(t *testing.T) {
	bus := messagebus.New()

	items := []string{"c1", "c2", "c3"}

	queue := bus.Chan("test", len(items))
	for _, cmd := range items {
		bus.Send("test", cmd)
	}

	for _, cmd := range items {
		received := <-queue
		if received.Command != cmd {
			t.Errorf("actual: %q  expected: %q", received.Command, cmd)
		}
	}
}

func TestBroadcast(t *testing.T) {
	bus := messagebus.New()

	items := []string{"c1", "c2", "c3"}

	// nothing listening yet, these sends have no effect on any listener
	for _, cmd := range items {
		bus.Send("broadcast", "ignored:"+cmd)
	}

	const listeners = 5

	var l [listeners]int
	var wg sync.WaitGroup

	chans := make([]<-chan messagebus.Message, listeners)
	for i := 0; i < listeners; i++ {
		chans[i] = bus.Chan("broadcast", len(items))
	}

	for i := 0; i < listeners; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for _, cmd := range items {
				received := <-chans[n]
				if received.Command != cmd {
					t.Errorf("actual: %q  expected: %q", received.Command, cmd)
				} else {
					l[n]++
				}
			}
		}(i)
	}

	for _, cmd := range items {
		bus.Send("broadcast", cmd)
	}

	wg.Wait()
	for i, n := range l {
		if n != len(items) {
			t.Errorf("listener[%d] received: %d  expected: %d", i, n, len(items))
		}
	}
}

func TestTopicIsolation(t *testing.T) {
	bus := messagebus.New()

	a := bus.Chan("topic:a", 1)
	b := bus.Chan("topic:b", 1)

	bus.Send("topic:a", "only-a")

	select {
	case msg := <-a:
		if msg.Command != "only-a" {
			t.Errorf("actual: %q  expected: %q", msg.Command, "only-a")
		}
	case <-time.After(time.Second):
		t.Fatal("topic a received nothing")
	}

	select {
	case msg := <-b:
		t.Fatalf("topic b unexpectedly received: %v", msg)
	default:
	}
}
