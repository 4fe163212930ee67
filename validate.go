package fastgltf

// Validate re-checks cross-references captured in the output aggregate: every
// index must land inside the slice it refers to. It never touches the
// document tree, checks a reference only when its target category was
// actually parsed, and stops at the first violation. The result is sticky
// like a parse error.
func (g *Gltf) Validate() Error {
	if g.err != ErrorNone {
		return g.err
	}
	a := g.asset
	if a == nil {
		return ErrorNone
	}

	inRange := func(idx, length int) bool { return idx >= 0 && idx < length }
	optional := func(idx, length int) bool { return idx == noIndex || inRange(idx, length) }

	for _, view := range a.BufferViews {
		if !inRange(view.BufferIndex, len(a.Buffers)) {
			return g.fail(ErrorInvalidGltf, nil)
		}
		buf := a.Buffers[view.BufferIndex]
		if view.ByteOffset+view.ByteLength > buf.ByteLength {
			return g.fail(ErrorInvalidGltf, nil)
		}
	}

	for _, acc := range a.Accessors {
		if !optional(acc.BufferViewIndex, len(a.BufferViews)) {
			return g.fail(ErrorInvalidGltf, nil)
		}
		if acc.BufferViewIndex != noIndex {
			view := a.BufferViews[acc.BufferViewIndex]
			if acc.ByteOffset >= view.ByteLength {
				return g.fail(ErrorInvalidGltf, nil)
			}
		}
	}

	for _, img := range a.Images {
		if src, ok := img.Data.(BufferViewSource); ok {
			if !inRange(src.BufferViewIndex, len(a.BufferViews)) {
				return g.fail(ErrorInvalidGltf, nil)
			}
		}
	}

	for _, tex := range a.Textures {
		if !optional(tex.ImageIndex, len(a.Images)) ||
			!optional(tex.BasisuImageIndex, len(a.Images)) ||
			!optional(tex.DDSImageIndex, len(a.Images)) {
			return g.fail(ErrorInvalidGltf, nil)
		}
		if !optional(tex.SamplerIndex, len(a.Samplers)) {
			return g.fail(ErrorInvalidGltf, nil)
		}
	}

	checkTexInfo := func(info *TextureInfo) bool {
		return info == nil || inRange(info.TextureIndex, len(a.Textures))
	}
	for _, mat := range a.Materials {
		ok := checkTexInfo(mat.NormalTexture) &&
			checkTexInfo(mat.OcclusionTexture) &&
			checkTexInfo(mat.EmissiveTexture)
		if ok && mat.PBR != nil {
			ok = checkTexInfo(mat.PBR.BaseColorTexture) &&
				checkTexInfo(mat.PBR.MetallicRoughnessTexture)
		}
		if !ok {
			return g.fail(ErrorInvalidGltf, nil)
		}
	}

	for _, mesh := range a.Meshes {
		for _, prim := range mesh.Primitives {
			for _, accIdx := range prim.Attributes {
				if !inRange(accIdx, len(a.Accessors)) {
					return g.fail(ErrorInvalidGltf, nil)
				}
			}
			if !optional(prim.IndicesAccessor, len(a.Accessors)) {
				return g.fail(ErrorInvalidGltf, nil)
			}
			if g.parsed.Has(CategoryMaterials) && !optional(prim.MaterialIndex, len(a.Materials)) {
				return g.fail(ErrorInvalidGltf, nil)
			}
		}
	}

	nodesParsed := g.parsed.Has(CategoryNodes)
	for _, skin := range a.Skins {
		if !optional(skin.InverseBindMatrices, len(a.Accessors)) {
			return g.fail(ErrorInvalidGltf, nil)
		}
		if nodesParsed {
			if !optional(skin.Skeleton, len(a.Nodes)) {
				return g.fail(ErrorInvalidGltf, nil)
			}
			for _, joint := range skin.Joints {
				if !inRange(joint, len(a.Nodes)) {
					return g.fail(ErrorInvalidGltf, nil)
				}
			}
		}
	}

	for _, anim := range a.Animations {
		for _, ch := range anim.Channels {
			if !inRange(ch.SamplerIndex, len(anim.Samplers)) {
				return g.fail(ErrorInvalidGltf, nil)
			}
			if nodesParsed && !optional(ch.NodeIndex, len(a.Nodes)) {
				return g.fail(ErrorInvalidGltf, nil)
			}
		}
		for _, s := range anim.Samplers {
			if !inRange(s.InputAccessor, len(a.Accessors)) ||
				!inRange(s.OutputAccessor, len(a.Accessors)) {
				return g.fail(ErrorInvalidGltf, nil)
			}
		}
	}

	for _, node := range a.Nodes {
		if !optional(node.MeshIndex, len(a.Meshes)) ||
			!optional(node.CameraIndex, len(a.Cameras)) ||
			!optional(node.SkinIndex, len(a.Skins)) {
			return g.fail(ErrorInvalidGltf, nil)
		}
		for _, child := range node.Children {
			if !inRange(child, len(a.Nodes)) {
				return g.fail(ErrorInvalidGltf, nil)
			}
		}
	}

	for _, scene := range a.Scenes {
		for _, idx := range scene.NodeIndices {
			if !inRange(idx, len(a.Nodes)) {
				return g.fail(ErrorInvalidGltf, nil)
			}
		}
	}
	if g.parsed.Has(CategoryScenes) && !optional(a.DefaultScene, len(a.Scenes)) {
		return g.fail(ErrorInvalidGltf, nil)
	}

	return ErrorNone
}
