// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

// ProcessID identifies a process. Scheduler-assigned, monotonic.
type ProcessID uint64

// Process is the bookkeeping record threads attach to: an address-space
// root shared by the process's threads plus the per-thread TLS size its
// binary requested. The scheduler never manipulates processes beyond
// reading these fields during thread construction and switching.
type Process struct {
	id       ProcessID
	name     string
	pageRoot uintptr
	tlsSize  int
}

// NewProcess registers a process with its address-space root. tlsSize is
// the thread-local block size each of its threads receives, 0 for none.
func (s *Scheduler) NewProcess(name string, pageRoot uintptr, tlsSize int) *Process {
	if tlsSize < 0 {
		panic("ksched: negative tls size")
	}
	return &Process{
		id:       ProcessID(s.nextProcID.AddAcqRel(1)),
		name:     name,
		pageRoot: pageRoot,
		tlsSize:  tlsSize,
	}
}

// ID returns the process identifier.
func (p *Process) ID() ProcessID { return p.id }

// Name returns the process name.
func (p *Process) Name() string { return p.name }

// PageRoot returns the process's address-space root.
func (p *Process) PageRoot() uintptr { return p.pageRoot }
