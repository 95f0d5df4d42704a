package glb

import (
	"encoding/json"
	"fmt"
	"sort"
)

// VRM root extension names.
const (
	ExtVRM0 = "VRM"      // VRM 0.x
	ExtVRM1 = "VRMC_vrm" // VRM 1.0
)

// VRMMeta is the avatar metadata carried by the VRM root extension.
type VRMMeta struct {
	Extension   string // ExtVRM0 or ExtVRM1
	SpecVersion string
	Name        string
	Version     string
	Authors     []string
	License     string

	// HumanBones maps humanoid bone names (e.g. "hips") to node indices.
	HumanBones map[string]int
}

// BoneNames returns the humanoid bone names in sorted order.
func (m *VRMMeta) BoneNames() []string {
	names := make([]string, 0, len(m.HumanBones))
	for name := range m.HumanBones {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type vrm0Extension struct {
	SpecVersion string `json:"specVersion"`
	Meta        struct {
		Title       string `json:"title"`
		Version     string `json:"version"`
		Author      string `json:"author"`
		LicenseName string `json:"licenseName"`
	} `json:"meta"`
	Humanoid struct {
		HumanBones []struct {
			Bone string `json:"bone"`
			Node int    `json:"node"`
		} `json:"humanBones"`
	} `json:"humanoid"`
}

type vrm1Extension struct {
	SpecVersion string `json:"specVersion"`
	Meta        struct {
		Name       string   `json:"name"`
		Version    string   `json:"version"`
		Authors    []string `json:"authors"`
		LicenseURL string   `json:"licenseUrl"`
	} `json:"meta"`
	Humanoid struct {
		HumanBones map[string]struct {
			Node int `json:"node"`
		} `json:"humanBones"`
	} `json:"humanoid"`
}

// ParseVRMMeta extracts VRM metadata from the document's root extensions.
// It returns nil, nil when the document carries no VRM extension. VRM 1.0 wins
// when both are present.
func ParseVRMMeta(doc *Document) (*VRMMeta, error) {
	if raw, ok := doc.Extensions[ExtVRM1]; ok {
		var ext vrm1Extension
		if err := json.Unmarshal(raw, &ext); err != nil {
			return nil, schemaErrorf("extensions.%s: %v", ExtVRM1, err)
		}
		meta := &VRMMeta{
			Extension:   ExtVRM1,
			SpecVersion: ext.SpecVersion,
			Name:        ext.Meta.Name,
			Version:     ext.Meta.Version,
			Authors:     ext.Meta.Authors,
			License:     ext.Meta.LicenseURL,
			HumanBones:  make(map[string]int, len(ext.Humanoid.HumanBones)),
		}
		for name, b := range ext.Humanoid.HumanBones {
			meta.HumanBones[name] = b.Node
		}
		if err := checkBones(doc, ExtVRM1, meta.HumanBones); err != nil {
			return nil, err
		}
		return meta, nil
	}

	if raw, ok := doc.Extensions[ExtVRM0]; ok {
		var ext vrm0Extension
		if err := json.Unmarshal(raw, &ext); err != nil {
			return nil, schemaErrorf("extensions.%s: %v", ExtVRM0, err)
		}
		meta := &VRMMeta{
			Extension:   ExtVRM0,
			SpecVersion: ext.SpecVersion,
			Name:        ext.Meta.Title,
			Version:     ext.Meta.Version,
			License:     ext.Meta.LicenseName,
			HumanBones:  make(map[string]int, len(ext.Humanoid.HumanBones)),
		}
		if meta.SpecVersion == "" {
			meta.SpecVersion = "0.0"
		}
		if ext.Meta.Author != "" {
			meta.Authors = []string{ext.Meta.Author}
		}
		for _, b := range ext.Humanoid.HumanBones {
			meta.HumanBones[b.Bone] = b.Node
		}
		if err := checkBones(doc, ExtVRM0, meta.HumanBones); err != nil {
			return nil, err
		}
		return meta, nil
	}

	return nil, nil
}

func checkBones(doc *Document, ext string, bones map[string]int) error {
	for name, node := range bones {
		if err := checkIndex("nodes", node, len(doc.Nodes)); err != nil {
			return fmt.Errorf("extensions.%s humanoid bone %q: %w", ext, name, err)
		}
	}
	return nil
}
