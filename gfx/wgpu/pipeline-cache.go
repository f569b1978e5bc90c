package wgpu

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/oliverbestmann/prism/gfx"
	"github.com/oliverbestmann/webgpu/wgpu"
)

const maxVertexBuffers = 4

// pipelineConfig is everything a render pipeline is specialized for. The
// immediate context derives one from its bound state for every draw.
type pipelineConfig struct {
	vertex   *module
	vsEntry  string
	pixel    *module
	psEntry  string
	layout   *InputLayout
	strides  [maxVertexBuffers]uint32
	topology gfx.Topology

	// only set for strip topologies
	stripIndexFormat wgpu.IndexFormat

	raster gfx.RasterizerDesc

	depthEnabled bool
	depth        gfx.DepthStencilDesc

	colorFormat wgpu.TextureFormat
	depthFormat wgpu.TextureFormat
	samples     uint32
}

func (conf pipelineConfig) Specialize(dev *wgpu.Device) (*wgpu.RenderPipeline, error) {
	topology, ok := primitiveTopology(conf.topology)
	if !ok {
		return nil, fmt.Errorf("topology %s: %w", conf.topology, gfx.ErrUnsupported)
	}

	var buffers []wgpu.VertexBufferLayout

	if conf.layout != nil {
		for idx, buffer := range conf.layout.buffers {
			if stride := conf.strides[conf.layout.slots[idx]]; stride != 0 {
				buffer.ArrayStride = uint64(stride)
			}

			buffers = append(buffers, buffer)
		}
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label: "prism pipeline",
		Vertex: wgpu.VertexState{
			Module:     conf.vertex.module,
			EntryPoint: conf.vsEntry,
			Buffers:    buffers,
		},

		Primitive: wgpu.PrimitiveState{
			Topology:         topology,
			StripIndexFormat: conf.stripIndexFormat,
			FrontFace:        frontFace(conf.raster),
			CullMode:         cullMode(conf.raster.Cull),
		},

		Multisample: wgpu.MultisampleState{
			Count: max(conf.samples, 1),
			Mask:  0xFFFFFFFF,
		},
	}

	if conf.pixel != nil {
		desc.Fragment = &wgpu.FragmentState{
			Module:     conf.pixel.module,
			EntryPoint: conf.psEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    conf.colorFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		}
	}

	if conf.depthFormat != wgpu.TextureFormatUndefined {
		desc.DepthStencil = conf.depthStencilState()
	}

	return dev.CreateRenderPipeline(desc)
}

func (conf pipelineConfig) depthStencilState() *wgpu.DepthStencilState {
	state := &wgpu.DepthStencilState{
		Format:            conf.depthFormat,
		DepthWriteEnabled: wgpu.OptionalBoolFalse,
		DepthCompare:      wgpu.CompareFunctionAlways,
		StencilFront:      stencilKeep,
		StencilBack:       stencilKeep,
	}

	if conf.depthEnabled && conf.depth.DepthEnable {
		state.DepthWriteEnabled = optionalBool(conf.depth.DepthWrite)
		state.DepthCompare = compareFunction(conf.depth.DepthFunc)
	}

	return state
}

type cachedPipeline struct {
	Pipeline   *wgpu.RenderPipeline
	bindGroups *lru.Cache[uint32, *wgpu.BindGroupLayout]
}

func (pc *cachedPipeline) GetBindGroupLayout(idx uint32) *wgpu.BindGroupLayout {
	layout, ok := pc.bindGroups.Get(idx)
	if ok {
		return layout
	}

	layout = pc.Pipeline.GetBindGroupLayout(idx)
	pc.bindGroups.Add(idx, layout)

	return layout
}

type pipelineCache struct {
	device *wgpu.Device
	cache  *lru.Cache[pipelineConfig, *cachedPipeline]
}

func newPipelineCache(device *wgpu.Device) (*pipelineCache, error) {
	cache, err := lru.NewWithEvict[pipelineConfig, *cachedPipeline](32, releasePipelineOnEviction)
	if err != nil {
		return nil, fmt.Errorf("create pipeline cache: %w", err)
	}

	return &pipelineCache{device: device, cache: cache}, nil
}

func (p *pipelineCache) Get(conf pipelineConfig) (*cachedPipeline, error) {
	cached, ok := p.cache.Get(conf)
	if ok {
		return cached, nil
	}

	pipeline, err := conf.Specialize(p.device)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}

	bindGroups, _ := lru.NewWithEvict[uint32, *wgpu.BindGroupLayout](4, releaseBindGroupLayoutOnEviction)

	// keep the modules alive as long as the pipeline is cached
	conf.vertex.retain()
	if conf.pixel != nil {
		conf.pixel.retain()
	}

	pc := &cachedPipeline{Pipeline: pipeline, bindGroups: bindGroups}
	p.cache.Add(conf, pc)

	return pc, nil
}

// Purge releases all cached pipelines.
func (p *pipelineCache) Purge() {
	p.cache.Purge()
}

func (p *pipelineCache) Len() int {
	return p.cache.Len()
}

func releasePipelineOnEviction(conf pipelineConfig, pipe *cachedPipeline) {
	pipe.bindGroups.Purge()
	pipe.Pipeline.Release()

	conf.vertex.release()
	if conf.pixel != nil {
		conf.pixel.release()
	}
}

func releaseBindGroupLayoutOnEviction(_ uint32, layout *wgpu.BindGroupLayout) {
	layout.Release()
}
