// Copyright 2026 go-depthwise Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build amd64

package dw

import "golang.org/x/sys/cpu"

// NativeAvailable reports whether the JIT backend can run on this CPU.
func NativeAvailable() bool {
	return cpu.X86.HasAVX2
}

// defaultManager selects the backend for the process-wide cache. The
// JIT is opt-in: set DW_NATIVE on an AVX2-capable CPU to enable it, and
// DW_PORTABLE to override back to the interpreter.
func defaultManager() CodeManager {
	if envFlag("DW_NATIVE") && !envFlag("DW_PORTABLE") && NativeAvailable() {
		return newNativeManager(portableManager{})
	}
	return portableManager{}
}
