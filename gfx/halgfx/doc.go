// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package halgfx implements gfx on top of the gogpu/wgpu hardware
// abstraction layer.
//
// Importing the package registers the "hal" backend with priority 100.
// The device opens a Vulkan adapter, preferring discrete GPUs, and skips
// CPU adapters unless [gfx.OpenOptions].AllowSoftware is set.
//
// Explicit-API concepts map onto hal as follows:
//
//   - A root signature becomes a pipeline layout with one bind group per
//     root parameter. The static sampler lives next to the texture in the
//     first SRV group.
//   - Descriptor heap slots are turned into bind groups the first time a
//     table points at them.
//   - Render passes are opened lazily by the first draw after a target
//     change. A pending ClearRenderTarget becomes the pass load op.
//   - Swap chains are offscreen: back buffers are textures handed to the
//     surface's [gfx.Presenter], if it has one.
//
// An application that already owns a hal device can share it through
// [NewFromProvider].
package halgfx
