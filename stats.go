// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import (
	"github.com/sugawarayuuta/sonnet"

	"code.hybscloud.com/atomix"
)

// schedCounters are the scheduler's event counters. Producers bump them
// with plain atomic adds; Stats snapshots them without stopping anything.
type schedCounters struct {
	reschedules atomix.Int64
	preemptions atomix.Int64
	switches    atomix.Int64
	spawns      atomix.Int64
	sleeps      atomix.Int64
	wakes       atomix.Int64
	exits       atomix.Int64
	reaps       atomix.Int64
}

// SchedStats is a point-in-time view of the scheduler, the debug surface
// a monitor or kernel console reads. Counters are monotonic; Runnable and
// Sleeping are instantaneous and may be stale by the time the caller
// looks, since nothing pauses for a snapshot.
type SchedStats struct {
	Reschedules int64 `json:"reschedules"`
	Preemptions int64 `json:"preemptions"`
	Switches    int64 `json:"switches"`
	Spawns      int64 `json:"spawns"`
	Sleeps      int64 `json:"sleeps"`
	Wakes       int64 `json:"wakes"`
	Exits       int64 `json:"exits"`
	Reaps       int64 `json:"reaps"`
	Runnable    int64 `json:"runnable"`
	Sleeping    int   `json:"sleeping"`
	Booted      bool  `json:"booted"`
}

// Stats snapshots the scheduler's counters and occupancy.
func (s *Scheduler) Stats() SchedStats {
	return SchedStats{
		Reschedules: s.counters.reschedules.Load(),
		Preemptions: s.counters.preemptions.Load(),
		Switches:    s.counters.switches.Load(),
		Spawns:      s.counters.spawns.Load(),
		Sleeps:      s.counters.sleeps.Load(),
		Wakes:       s.counters.wakes.Load(),
		Exits:       s.counters.exits.Load(),
		Reaps:       s.counters.reaps.Load(),
		Runnable:    s.ready.runnable(),
		Sleeping:    s.sleepers.count(),
		Booted:      s.Booted(),
	}
}

// SleepingIDs returns the IDs of currently sleeping threads in ascending
// order. Snapshot semantics, same staleness caveat as Stats.
func (s *Scheduler) SleepingIDs() []ThreadID {
	return s.sleepers.ids()
}

// JSON encodes the snapshot for a debug consumer.
func (st SchedStats) JSON() ([]byte, error) {
	return sonnet.Marshal(st)
}
