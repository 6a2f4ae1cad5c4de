// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import (
	"runtime"
	"time"
)

// hostedTicks drives preemption off a wall-clock ticker on a dedicated
// OS thread. The thread is locked and optionally pinned to a CPU so tick
// jitter does not track Go's goroutine migration.
type hostedTicks struct {
	interval time.Duration
	pin      int
	stop     chan struct{}
}

func newHostedTicks(interval time.Duration, pin int) *hostedTicks {
	return &hostedTicks{interval: interval, pin: pin}
}

// Start launches the tick thread. Calls to Start and Stop are serialized
// by the scheduler's arming flag and must alternate.
func (h *hostedTicks) Start(tick func()) {
	stop := make(chan struct{})
	h.stop = stop
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if h.pin >= 0 {
			// Best effort. A missing CPU only costs locality.
			_ = pinThread(h.pin)
		}
		t := time.NewTicker(h.interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				tick()
			}
		}
	}()
}

// Stop ends tick delivery. It does not wait for an in-flight tick.
func (h *hostedTicks) Stop() {
	if h.stop != nil {
		close(h.stop)
		h.stop = nil
	}
}
