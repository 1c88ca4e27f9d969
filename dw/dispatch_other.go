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

//go:build !amd64

package dw

// NativeAvailable reports whether the JIT backend can run on this CPU.
// Only amd64 has a code generator; everything else interprets.
func NativeAvailable() bool {
	return false
}

func defaultManager() CodeManager {
	return portableManager{}
}
