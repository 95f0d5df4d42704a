package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/Faultbox/midgard-avatar/pkg/glb"
)

// readDocument reads path and parses its container and scene document
// without decoding any geometry.
func readDocument(path string) (*glb.Container, *glb.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	c, err := glb.ReadContainer(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	doc, err := glb.ParseDocument(c.JSON)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, doc, nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vrmtool info <file.vrm>")
	}

	c, doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("File:       %s\n", args[0])
	fmt.Printf("Version:    %d\n", c.Header.Version)
	fmt.Printf("Length:     %d bytes\n", c.Header.Length)
	for _, ch := range c.Chunks {
		fmt.Printf("  %-4s      %d bytes at %d\n", ch.TypeName(), ch.Length, ch.Offset)
	}
	fmt.Println()

	fmt.Printf("Generator:  %s\n", doc.Asset.Generator)
	fmt.Printf("glTF:       %s\n", doc.Asset.Version)
	if len(doc.ExtensionsUsed) > 0 {
		fmt.Printf("Extensions: %s\n", strings.Join(doc.ExtensionsUsed, ", "))
	}
	fmt.Printf("Buffers:    %d (%d views)\n", len(doc.Buffers), len(doc.BufferViews))
	fmt.Printf("Accessors:  %d\n", len(doc.Accessors))
	fmt.Printf("Meshes:     %d (%d primitives)\n", len(doc.Meshes), doc.PrimitiveCount())
	fmt.Printf("Materials:  %d\n", len(doc.Materials))
	fmt.Printf("Textures:   %d (%d images)\n", len(doc.Textures), len(doc.Images))
	fmt.Printf("Nodes:      %d\n", len(doc.Nodes))

	meta, err := glb.ParseVRMMeta(doc)
	if err != nil {
		fmt.Printf("\nVRM:        invalid: %v\n", err)
		return nil
	}
	if meta == nil {
		return nil
	}
	fmt.Println()
	printMeta(meta)
	for _, name := range meta.BoneNames() {
		node := meta.HumanBones[name]
		fmt.Printf("  %-24s node %d %s\n", name, node, doc.Nodes[node].Name)
	}
	return nil
}

func printMeta(meta *glb.VRMMeta) {
	fmt.Printf("VRM:        %s (spec %s)\n", meta.Extension, meta.SpecVersion)
	fmt.Printf("Name:       %s\n", meta.Name)
	if meta.Version != "" {
		fmt.Printf("Version:    %s\n", meta.Version)
	}
	if len(meta.Authors) > 0 {
		fmt.Printf("Authors:    %s\n", strings.Join(meta.Authors, ", "))
	}
	if meta.License != "" {
		fmt.Printf("License:    %s\n", meta.License)
	}
	fmt.Printf("Bones:      %d humanoid\n", len(meta.HumanBones))
}

func cmdDump(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vrmtool dump <file.vrm>")
	}

	_, doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	// Raw extension JSON is dumped as text rather than a byte listing.
	extensions := make(map[string]string, len(doc.Extensions))
	names := make([]string, 0, len(doc.Extensions))
	for name, raw := range doc.Extensions {
		extensions[name] = string(raw)
		names = append(names, name)
	}
	sort.Strings(names)
	doc.Extensions = nil

	cfg := spew.ConfigState{
		Indent:                  "  ",
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	cfg.Fdump(os.Stdout, doc)
	for _, name := range names {
		fmt.Printf("extension %s: %s\n", name, extensions[name])
	}
	return nil
}
