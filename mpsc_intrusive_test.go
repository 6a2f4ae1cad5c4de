// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched_test

import (
	"errors"
	"sync"
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/ksched"
)

// job is the intrusive element type used across the queue tests.
type job struct {
	link ksched.Link[job]
	seq  int
}

func jobLink(j *job) *ksched.Link[job] { return &j.link }

// =============================================================================
// Intrusive MPSC - Basic Operations
// =============================================================================

// TestIntrusiveMPSCBasic tests FIFO order and the empty condition.
func TestIntrusiveMPSCBasic(t *testing.T) {
	q := ksched.NewIntrusiveMPSC(jobLink)

	for i := range 3 {
		q.Enqueue(&job{seq: i + 1})
	}

	for i := range 3 {
		j, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if j.seq != i+1 {
			t.Fatalf("Dequeue(%d): got seq %d, want %d", i, j.seq, i+1)
		}
	}

	if _, err := q.Dequeue(); !errors.Is(err, ksched.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestIntrusiveMPSCInterleaved tests alternating enqueue and dequeue, which
// exercises the internal stub recycling on every near-empty transition.
func TestIntrusiveMPSCInterleaved(t *testing.T) {
	q := ksched.NewIntrusiveMPSC(jobLink)

	q.Enqueue(&job{seq: 1})
	q.Enqueue(&job{seq: 2})

	j, err := q.Dequeue()
	if err != nil || j.seq != 1 {
		t.Fatalf("Dequeue: got (%v, %v), want (seq 1, nil)", j, err)
	}

	q.Enqueue(&job{seq: 3})

	for want := 2; want <= 3; want++ {
		j, err := q.Dequeue()
		if err != nil || j.seq != want {
			t.Fatalf("Dequeue: got (%v, %v), want (seq %d, nil)", j, err, want)
		}
	}

	if _, err := q.Dequeue(); !errors.Is(err, ksched.ErrWouldBlock) {
		t.Fatalf("Dequeue on empty: got %v, want ErrWouldBlock", err)
	}
}

// TestIntrusiveMPSCReuse tests that an element may be enqueued again after
// the consumer captured it. A single element round-trips repeatedly, so
// every cycle crosses the single-element path.
func TestIntrusiveMPSCReuse(t *testing.T) {
	q := ksched.NewIntrusiveMPSC(jobLink)
	elem := &job{}

	for i := range 50 {
		elem.seq = i
		q.Enqueue(elem)
		j, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue(%d): %v", i, err)
		}
		if j != elem || j.seq != i {
			t.Fatalf("Dequeue(%d): got %+v, want the enqueued element", i, j)
		}
	}
}

// TestIntrusiveMPSCPanics tests construction and enqueue contract
// violations.
func TestIntrusiveMPSCPanics(t *testing.T) {
	t.Run("NilAccessor", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic for nil link accessor")
			}
		}()
		ksched.NewIntrusiveMPSC[job](nil)
	})

	t.Run("NilElement", func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic for nil element")
			}
		}()
		q := ksched.NewIntrusiveMPSC(jobLink)
		q.Enqueue(nil)
	})
}

// =============================================================================
// Intrusive MPSC - Consumer Exclusivity
// =============================================================================

// TestIntrusiveMPSCBusy tests that a second concurrent consumer gets
// ErrBusy instead of corrupting the chain. The first consumer is parked
// deterministically inside its drain callback.
func TestIntrusiveMPSCBusy(t *testing.T) {
	q := ksched.NewIntrusiveMPSC(jobLink)
	q.Enqueue(&job{seq: 1})

	inside := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err := q.Drain(func(*job) {
			close(inside)
			<-release
		})
		if err != nil || n != 1 {
			t.Errorf("Drain: got (%d, %v), want (1, nil)", n, err)
		}
	}()

	<-inside

	if _, err := q.Dequeue(); !errors.Is(err, ksched.ErrBusy) {
		t.Fatalf("Dequeue while busy: got %v, want ErrBusy", err)
	}
	if _, err := q.Drain(nil); !errors.Is(err, ksched.ErrBusy) {
		t.Fatalf("Drain while busy: got %v, want ErrBusy", err)
	}

	close(release)
	wg.Wait()

	if _, err := q.Dequeue(); !errors.Is(err, ksched.ErrWouldBlock) {
		t.Fatalf("Dequeue after drain: got %v, want ErrWouldBlock", err)
	}
}

// TestIntrusiveMPSCDrain tests whole-queue draining in order.
func TestIntrusiveMPSCDrain(t *testing.T) {
	q := ksched.NewIntrusiveMPSC(jobLink)
	for i := range 5 {
		q.Enqueue(&job{seq: i + 1})
	}

	var got []int
	n, err := q.Drain(func(j *job) { got = append(got, j.seq) })
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if n != 5 || len(got) != 5 {
		t.Fatalf("Drain: got n=%d items=%v, want 5 items", n, got)
	}
	for i := range 5 {
		if got[i] != i+1 {
			t.Fatalf("Drain order: got %v, want [1 2 3 4 5]", got)
		}
	}

	// Draining an empty queue is a successful no-op, not an error.
	n, err = q.Drain(func(*job) {})
	if n != 0 || err != nil {
		t.Fatalf("Drain on empty: got (%d, %v), want (0, nil)", n, err)
	}
}

// TestIntrusiveMPSCDrainNilFn tests that a nil callback discards elements.
func TestIntrusiveMPSCDrainNilFn(t *testing.T) {
	q := ksched.NewIntrusiveMPSC(jobLink)
	for i := range 3 {
		q.Enqueue(&job{seq: i})
	}

	n, err := q.Drain(nil)
	if n != 3 || err != nil {
		t.Fatalf("Drain(nil): got (%d, %v), want (3, nil)", n, err)
	}
	if _, err := q.Dequeue(); !errors.Is(err, ksched.ErrWouldBlock) {
		t.Fatalf("Dequeue after drain: got %v, want ErrWouldBlock", err)
	}
}

// =============================================================================
// Intrusive MPSC - Concurrent Producers
// =============================================================================

// TestIntrusiveMPSCMultiProducer tests exactly-once delivery and
// per-producer ordering with 8 concurrent producers.
func TestIntrusiveMPSCMultiProducer(t *testing.T) {
	if ksched.RaceEnabled {
		t.Skip("skip: lock-free publish uses cross-variable memory ordering")
	}
	const producers = 8
	const perProducer = 500
	const total = producers * perProducer

	q := ksched.NewIntrusiveMPSC(jobLink)
	var wg sync.WaitGroup

	for p := range producers {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := range perProducer {
				q.Enqueue(&job{seq: p*100000 + i})
			}
		}(p)
	}

	seen := make(map[int]bool, total)
	lastSeen := make([]int, producers)
	for i := range lastSeen {
		lastSeen[i] = -1
	}

	backoff := iox.Backoff{}
	for len(seen) < total {
		j, err := q.Dequeue()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		if seen[j.seq] {
			t.Fatalf("duplicate delivery of %d", j.seq)
		}
		seen[j.seq] = true
		p, i := j.seq/100000, j.seq%100000
		if i <= lastSeen[p] {
			t.Fatalf("producer %d order violation: %d after %d", p, i, lastSeen[p])
		}
		lastSeen[p] = i
	}
	wg.Wait()

	if _, err := q.Dequeue(); !errors.Is(err, ksched.ErrWouldBlock) {
		t.Fatalf("Dequeue after all consumed: got %v, want ErrWouldBlock", err)
	}
}
