// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package halgfx

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan hal backend

	"github.com/gogpu/rlgl/gfx"
)

func init() {
	gfx.Register(BackendName, 100, func(opts gfx.OpenOptions) (gfx.Device, error) {
		d, err := Open(opts)
		if err != nil {
			return nil, err
		}
		return d, nil
	}, func() bool {
		_, ok := hal.GetBackend(gputypes.BackendVulkan)
		return ok
	})
}
