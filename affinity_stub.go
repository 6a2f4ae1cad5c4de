// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux

package ksched

// pinThread is a no-op on platforms without per-thread CPU affinity.
func pinThread(int) error { return nil }
