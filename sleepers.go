// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ksched

import "slices"

// sleeperTable maps thread IDs to voluntarily sleeping threads.
//
// Wakes are by explicit ID only, so the table is a plain map behind its
// own QLock; it never shares a lock with the rest of the scheduler, which
// lets wake_up run concurrently with an in-flight reschedule. Ordered
// observation goes through ids(), which snapshots and sorts.
type sleeperTable struct {
	lock QLock[map[ThreadID]*Thread]
}

func (st *sleeperTable) init() *sleeperTable {
	st.lock.data = make(map[ThreadID]*Thread)
	return st
}

// insert files t under its ID. The thread must not already be present.
func (st *sleeperTable) insert(t *Thread) {
	var node QNode
	g := st.lock.Lock(&node)
	(*g.Get())[t.id] = t
	g.Unlock()
}

// remove takes the thread with the given ID out of the table, returning
// nil when it is not sleeping.
func (st *sleeperTable) remove(id ThreadID) *Thread {
	var node QNode
	g := st.lock.Lock(&node)
	m := *g.Get()
	t := m[id]
	if t != nil {
		delete(m, id)
	}
	g.Unlock()
	return t
}

// count returns the number of sleeping threads.
func (st *sleeperTable) count() int {
	var node QNode
	g := st.lock.Lock(&node)
	n := len(*g.Get())
	g.Unlock()
	return n
}

// ids returns the sleeping thread IDs in ascending order.
func (st *sleeperTable) ids() []ThreadID {
	var node QNode
	g := st.lock.Lock(&node)
	m := *g.Get()
	out := make([]ThreadID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	g.Unlock()
	slices.Sort(out)
	return out
}
