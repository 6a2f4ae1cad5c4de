// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/ksched"
)

// =============================================================================
// Thread Construction
// =============================================================================

// TestThreadConstruction tests kernel thread creation and field wiring.
func TestThreadConstruction(t *testing.T) {
	s := ksched.New().Build()

	th := s.NewThread(0x401000, ksched.PriorityHigh, 8192)

	if th.ID() != 1 {
		t.Fatalf("ID: got %d, want 1", th.ID())
	}
	if th.State() != ksched.StateReady {
		t.Fatalf("State: got %v, want ready", th.State())
	}
	if th.Priority() != ksched.PriorityHigh {
		t.Fatalf("Priority: got %d, want %d", th.Priority(), ksched.PriorityHigh)
	}
	if th.Entry() != 0x401000 {
		t.Fatalf("Entry: got %#x, want 0x401000", th.Entry())
	}
	if th.SP() == 0 {
		t.Fatal("SP: got 0, want a mapped stack top")
	}
	if th.SP()%16 != 0 {
		t.Fatalf("SP: got %#x, want 16-byte aligned", th.SP())
	}
	if th.Process() != nil {
		t.Fatalf("Process: got %v, want nil for kernel thread", th.Process())
	}
}

// TestThreadIDsMonotonic tests that IDs are assigned in increasing order
// and never reused, including across the bootstrap thread.
func TestThreadIDsMonotonic(t *testing.T) {
	s := ksched.New().Build()

	boot := s.Boot(ksched.PriorityNormal)
	if boot.ID() != 1 {
		t.Fatalf("boot ID: got %d, want 1", boot.ID())
	}

	prev := boot.ID()
	for i := range 3 {
		th := s.NewThread(0, ksched.PriorityNormal, 4096)
		if th.ID() <= prev {
			t.Fatalf("thread %d: got ID %d, want > %d", i, th.ID(), prev)
		}
		prev = th.ID()
	}
}

// TestThreadPanics tests construction contract violations.
func TestThreadPanics(t *testing.T) {
	tests := []struct {
		name string
		op   func(s *ksched.Scheduler)
	}{
		{"PriorityOutOfRange", func(s *ksched.Scheduler) {
			s.NewThread(0, ksched.NumPriorities, 4096)
		}},
		{"ZeroStack", func(s *ksched.Scheduler) {
			s.NewThread(0, ksched.PriorityNormal, 0)
		}},
		{"NegativeStack", func(s *ksched.Scheduler) {
			s.NewThread(0, ksched.PriorityNormal, -4096)
		}},
		{"NilProcess", func(s *ksched.Scheduler) {
			s.NewProcessThread(nil, 0, ksched.PriorityNormal, 4096)
		}},
		{"NilSpawn", func(s *ksched.Scheduler) {
			s.Spawn(nil)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected panic")
				}
			}()
			tt.op(ksched.New().Build())
		})
	}
}

// TestStateString tests the lifecycle state names.
func TestStateString(t *testing.T) {
	tests := []struct {
		state ksched.State
		want  string
	}{
		{ksched.StateReady, "ready"},
		{ksched.StateRunning, "running"},
		{ksched.StateSleeping, "sleeping"},
		{ksched.State(99), "invalid"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Fatalf("State(%d).String: got %q, want %q", tt.state, got, tt.want)
		}
	}
}

// =============================================================================
// Processes
// =============================================================================

// TestProcessThreads tests process registration and process thread wiring.
func TestProcessThreads(t *testing.T) {
	s := ksched.New().Build()

	p := s.NewProcess("init", 0x1000, 256)
	if p.ID() != 1 {
		t.Fatalf("process ID: got %d, want 1", p.ID())
	}
	if p.Name() != "init" {
		t.Fatalf("Name: got %q, want %q", p.Name(), "init")
	}
	if p.PageRoot() != 0x1000 {
		t.Fatalf("PageRoot: got %#x, want 0x1000", p.PageRoot())
	}

	th := s.NewProcessThread(p, 0x400000, ksched.PriorityNormal, 8192)
	if th.Process() != p {
		t.Fatalf("Process: got %v, want the owning process", th.Process())
	}

	p2 := s.NewProcess("shell", 0x2000, 0)
	if p2.ID() != 2 {
		t.Fatalf("second process ID: got %d, want 2", p2.ID())
	}
}

// TestProcessNegativeTLSPanic tests the TLS size contract.
func TestProcessNegativeTLSPanic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for negative tls size")
		}
	}()
	ksched.New().Build().NewProcess("bad", 0, -1)
}

// =============================================================================
// Stack Mapper Seam
// =============================================================================

// countingStacks records MapStack calls and hands out a fixed top.
type countingStacks struct {
	calls int
	sizes []int
}

func (m *countingStacks) MapStack(size int) ([]byte, uintptr, error) {
	m.calls++
	m.sizes = append(m.sizes, size)
	return make([]byte, size), 0x20000, nil
}

// failStacks always refuses to map.
type failStacks struct{}

func (failStacks) MapStack(int) ([]byte, uintptr, error) {
	return nil, 0, errors.New("out of pages")
}

// TestStackMapperSeam tests that thread construction goes through the
// configured mapper, including the TLS block for process threads.
func TestStackMapperSeam(t *testing.T) {
	m := &countingStacks{}
	s := ksched.New().Stacks(m).Build()

	th := s.NewThread(0, ksched.PriorityNormal, 4096)
	if th.SP() != 0x20000 {
		t.Fatalf("SP: got %#x, want the mapper's top 0x20000", th.SP())
	}
	if m.calls != 1 || m.sizes[0] != 4096 {
		t.Fatalf("mapper calls: got %d %v, want 1 [4096]", m.calls, m.sizes)
	}

	p := s.NewProcess("svc", 0x3000, 512)
	s.NewProcessThread(p, 0, ksched.PriorityNormal, 4096)
	if m.calls != 3 {
		t.Fatalf("mapper calls with TLS: got %d, want 3 (stack + stack + tls)", m.calls)
	}
	if m.sizes[2] != 512 {
		t.Fatalf("tls size: got %d, want 512", m.sizes[2])
	}
}

// TestStackMapperFailure tests that mapping failure is fatal to thread
// construction.
func TestStackMapperFailure(t *testing.T) {
	s := ksched.New().Stacks(failStacks{}).Build()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for stack mapping failure")
		}
	}()
	s.NewThread(0, ksched.PriorityNormal, 4096)
}
