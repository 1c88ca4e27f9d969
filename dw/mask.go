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

package dw

// vecBytes is the byte width of one vector register, and therefore the
// channel count of one full processing group.
const vecBytes = 32

// maskTable is a sliding mask window: vecBytes set bytes followed by
// vecBytes clear bytes. The 32-byte view starting at byte offset
// (32-r)%32 enables exactly the first r byte lanes; the view at offset
// 32-4*n enables the first n int32 lanes. Generated kernels index it for
// masked remainder loads and partial stores.
var maskTable = buildMaskTable()

func buildMaskTable() []uint8 {
	t := make([]uint8, 2*vecBytes)
	for i := 0; i < vecBytes; i++ {
		t[i] = 0xFF
	}
	return t
}

// MaskTable returns the remainder-mask table the kernel ABI expects in
// Args.Mask. The returned slice is shared and must not be modified.
func MaskTable() []uint8 {
	return maskTable
}

// loadMaskOffset is the table offset of the byte mask enabling the first
// r lanes.
func loadMaskOffset(r int) int32 {
	return int32((vecBytes - r) % vecBytes)
}

// storeMaskOffset is the table offset of the mask enabling the first n
// int32 lanes.
func storeMaskOffset(n int) int32 {
	return int32(vecBytes - 4*n)
}
