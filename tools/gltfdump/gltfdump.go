package main

import (
	"flag"
	"log"
	"path/filepath"
	"strings"

	fastgltf "github.com/FishOfTheNorthStar/fastgltf-add-ext"
)

func main() {
	var glbBuffers, extBuffers, decompose bool
	flag.BoolVar(&glbBuffers, "glb-buffers", false, "Load GLB binary chunk into memory")
	flag.BoolVar(&extBuffers, "ext-buffers", false, "Load external .bin buffers into memory")
	flag.BoolVar(&decompose, "decompose", false, "Decompose node matrices into TRS")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.PrintDefaults()
		log.Fatal("usage: gltfdump [flags] <file.gltf|file.glb>")
	}
	path := flag.Arg(0)

	options := fastgltf.OptionsNone
	if glbBuffers {
		options |= fastgltf.LoadGLBBuffers
	}
	if extBuffers {
		options |= fastgltf.LoadExternalBuffers
	}
	if decompose {
		options |= fastgltf.DecomposeNodeMatrices
	}

	parser := fastgltf.NewParser(fastgltf.ExtensionsAll)

	var g *fastgltf.Gltf
	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb":
		g = parser.LoadBinaryGltf(path, options)
	default:
		g = parser.LoadGltf(path, options)
	}
	if g == nil {
		log.Fatalf("%s: %v (%v)", path, parser.Error(), parser.Diagnostic())
	}

	if code := g.Parse(fastgltf.CategoryAll); code != fastgltf.ErrorNone {
		log.Fatalf("%s: parse: %v (%v)", path, code, g.Diagnostic())
	}
	if code := g.Validate(); code != fastgltf.ErrorNone {
		log.Fatalf("%s: validate: %v (%v)", path, code, g.Diagnostic())
	}

	a := g.GetParsedAsset()
	log.Printf("version %q generator %q", a.Info.Version, a.Info.Generator)
	log.Printf("%d buffers, %d views, %d accessors", len(a.Buffers), len(a.BufferViews), len(a.Accessors))
	log.Printf("%d images, %d samplers, %d textures, %d materials", len(a.Images), len(a.Samplers), len(a.Textures), len(a.Materials))
	log.Printf("%d meshes, %d cameras, %d skins, %d animations", len(a.Meshes), len(a.Cameras), len(a.Skins), len(a.Animations))
	log.Printf("%d nodes in %d scenes (default %d)", len(a.Nodes), len(a.Scenes), a.DefaultScene)

	for i, mesh := range a.Meshes {
		for j, prim := range mesh.Primitives {
			log.Printf("mesh[%d] %q primitive[%d]: %d attributes, indices accessor %d",
				i, mesh.Name, j, len(prim.Attributes), prim.IndicesAccessor)
		}
	}
}
