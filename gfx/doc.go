// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gfx defines the explicit graphics capability set that rlgl
// renders through.
//
// The interfaces mirror an explicit GPU API: a [Device] creates resources
// and command lists, a [CommandQueue] executes closed command lists and
// signals a [Fence], a [SwapChain] owns the presentable back buffers, and
// shaders see textures and constants through a shader-visible
// [DescriptorHeap] laid out by a [RootSignature].
//
// # Resource states
//
// Resources carry an explicit [ResourceState]. Callers move them between
// states with [CommandList.ResourceBarrier]; backends that track usage
// implicitly may treat barriers as hints, but callers must always issue
// them.
//
// # Backends
//
// Backends register a [Factory] under a name and priority:
//
//	func init() {
//	    gfx.Register("vulkan", 100, openVulkan, vulkanAvailable)
//	}
//
// and are opened through [Open] or [OpenByName]. Two backends ship with
// the module:
//
//   - gfx/halgfx: gogpu/wgpu HAL (Vulkan; noop for tests)
//   - gfx/recording: an in-memory device that records every command
//
// # Ownership
//
// Every object returned by a Device has a Destroy method. Objects must be
// destroyed before the Device that created them.
package gfx
