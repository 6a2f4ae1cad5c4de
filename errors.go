// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For IntrusiveMPSC.Dequeue: the queue is empty (no element available).
//
// ErrWouldBlock is a control flow signal, not a failure. The caller should
// retry the operation later (with backoff or yield) rather than propagating
// the error.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    t, err := q.Dequeue()
//	    if err == nil {
//	        backoff.Reset()
//	        return t
//	    }
//	    if ksched.IsWouldBlock(err) {
//	        backoff.Wait()  // Nothing queued yet
//	        continue
//	    }
//	    return nil  // ErrBusy: another consumer holds the queue
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// ErrBusy indicates the single-consumer side of a queue is held by another
// caller.
//
// IntrusiveMPSC enforces its single-consumer constraint with a flag rather
// than by blocking: a dequeue that loses the flag race returns ErrBusy
// immediately. Like ErrWouldBlock it is a backoff signal, not a failure;
// exactly one concurrent caller always makes progress.
var ErrBusy = errors.New("ksched: consumer busy")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsBusy reports whether err indicates the consumer side was held by
// another caller.
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic]; ErrBusy is also semantic.
func IsSemantic(err error) bool {
	return errors.Is(err, ErrBusy) || iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrWouldBlock, or ErrBusy.
func IsNonFailure(err error) bool {
	return err == nil || errors.Is(err, ErrBusy) || iox.IsNonFailure(err)
}
