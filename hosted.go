// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import (
	"runtime"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// pageSize is the stack mapping granularity of the hosted mapper.
const pageSize = 4096

// heapStacks is the hosted StackMapper: stacks live on the Go heap.
// Sizes round up to the next power of two, one page minimum. Mapping
// never fails here; the fallible contract exists for page-allocator
// integrations.
type heapStacks struct{}

func (heapStacks) MapStack(size int) ([]byte, uintptr, error) {
	n := roundToPow2(size)
	if n < pageSize {
		n = pageSize
	}
	region := make([]byte, n)
	top := uintptr(unsafe.Pointer(unsafe.SliceData(region))) + uintptr(n)
	top &^= 15
	return region, top, nil
}

// hostedIRQ is the hosted interrupt mask. A process has no interrupt
// delivery to suppress, so only the nesting depth is tracked; the token
// protocol matches what a real interrupt-flag implementation needs.
type hostedIRQ struct {
	depth atomix.Int64
}

func (h *hostedIRQ) Disable() uintptr {
	return uintptr(h.depth.AddAcqRel(1) - 1)
}

func (h *hostedIRQ) Restore(state uintptr) {
	h.depth.Store(int64(state))
}

// nopSwitcher is the hosted Switcher. Scheduling decisions are pure
// bookkeeping in a process; there is no register state to swap, so Apply
// deliberately touches nothing.
type nopSwitcher struct{}

func (nopSwitcher) Apply(Switch) {}

// hostedHalt surrenders the processor slice, the closest a process gets
// to halting a core until the next interrupt.
func hostedHalt() {
	runtime.Gosched()
}
