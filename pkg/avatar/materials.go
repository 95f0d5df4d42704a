package avatar

import "github.com/Faultbox/midgard-avatar/pkg/glb"

// Materials resolves each glTF material to its base color factor and the
// document image behind its base color texture. References that do not
// resolve leave BaseColorImage at -1.
func Materials(doc *glb.Document) []Material {
	materials := make([]Material, len(doc.Materials))
	for i, m := range doc.Materials {
		out := Material{
			Name:           m.Name,
			BaseColor:      [4]float32{1, 1, 1, 1},
			BaseColorImage: -1,
			DoubleSided:    m.DoubleSided,
			AlphaMode:      m.AlphaMode,
		}
		if out.AlphaMode == "" {
			out.AlphaMode = "OPAQUE"
		}
		if pbr := m.PBRMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				out.BaseColor = *pbr.BaseColorFactor
			}
			if info := pbr.BaseColorTexture; info != nil {
				if tex, err := doc.Texture(info.Index); err == nil && tex.Source != nil {
					if _, err := doc.Image(*tex.Source); err == nil {
						out.BaseColorImage = *tex.Source
					}
				}
			}
		}
		materials[i] = out
	}
	return materials
}
