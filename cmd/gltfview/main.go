package main

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	stdmath "math"
	"os"
	"strconv"

	"vkgltfscene/asset"
	"vkgltfscene/gpu"
	vmath "vkgltfscene/math"
	"vkgltfscene/pathtrace"
	"vkgltfscene/scene"
	"vkgltfscene/vulkan"
)

// gltfview loads a glTF/GLB file, builds the render graph, and path
// traces one frame with the CPU reference integrator, writing out.png.
// With -gpu it additionally uploads the scene to a Vulkan device and
// builds its acceleration structures. Usage:
//
//	gltfview [-gpu] scene.gltf [width height] [spp]
func main() {
	args := os.Args[1:]
	useGPU := false
	for i, a := range args {
		if a == "-gpu" || a == "--gpu" {
			useGPU = true
			args = append(args[:i:i], args[i+1:]...)
			break
		}
	}
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-gpu] scene.gltf [width height] [spp]\n", os.Args[0])
		os.Exit(2)
	}
	path := args[0]
	width, height, spp := 512, 512, 16
	if len(args) >= 3 {
		width = atoiOr(args[1], width)
		height = atoiOr(args[2], height)
	}
	if len(args) >= 4 {
		spp = atoiOr(args[3], spp)
	}

	sc, err := scene.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gltfview: %v\n", err)
		os.Exit(1)
	}
	model := sc.Model()
	fmt.Printf("gltfview: %s: %d render nodes, %d render primitives, %d lights\n",
		path, len(sc.GetRenderNodes()), len(sc.GetRenderPrimitives()), len(sc.GetRenderLights()))

	if useGPU {
		if err := commitGPU(sc, width, height); err != nil {
			fmt.Fprintf(os.Stderr, "gltfview: gpu: %v\n", err)
			os.Exit(1)
		}
	}

	accel := pathtrace.BuildAccel(sc, model, func(m asset.Material) bool {
		return m.AlphaMode == asset.AlphaOpaque &&
			m.TransmissionFactor == 0 &&
			m.DiffuseTransmission.Factor == 0
	})

	lightTable := gpu.NewLightTable(sc.GetRenderLights(), model)
	var env pathtrace.Environment = pathtrace.SkyGradient{
		Horizon: vmath.Vec3{X: 0.8, Y: 0.85, Z: 0.95},
		Zenith:  vmath.Vec3{X: 0.25, Y: 0.45, Z: 0.85},
	}

	cfg := pathtrace.DefaultConfig()
	cfg.SamplesPerPixel = spp
	mix := pathtrace.NewLightMix(lightTable.Rows, env)
	it := pathtrace.NewIntegrator(accel, model, mix, env, nil, cfg)

	cam, ok := sc.SceneCamera()
	if !ok {
		fmt.Fprintln(os.Stderr, "gltfview: no scene camera")
		os.Exit(1)
	}
	view := sc.ViewMatrix(cam)
	proj := sc.ProjectionMatrix(cam, float32(width)/float32(height))
	camera := pathtrace.NewCamera(view, proj, width, height, cfg.Aperture, cfg.FocalDistance)

	frame := it.Render(camera, width, height, 0)
	if err := writePNG("out.png", frame); err != nil {
		fmt.Fprintf(os.Stderr, "gltfview: write out.png: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("gltfview: wrote out.png")
}

// commitGPU uploads the scene to a ray-tracing-capable Vulkan device:
// vertex/index buffers, the mirror tables and scene descriptor, the
// texture set, and the BLAS/TLAS pipeline, then reports the resulting
// device memory use. Rendering output still comes from the CPU
// integrator; this path exercises the device-side scene commit.
func commitGPU(sc *scene.Scene, width, height int) error {
	inst, err := vulkan.NewInstance(vulkan.DefaultInstanceConfig())
	if err != nil {
		return err
	}
	defer inst.Destroy()

	dev, err := vulkan.PickHeadlessDevice(inst)
	if err != nil {
		return err
	}
	if err := dev.CreateHeadlessDevice(); err != nil {
		return err
	}
	defer dev.Destroy()
	vulkan.LoadRayTracingFunctions(dev)

	cfg := vulkan.DefaultBuildConfig()
	cfg.AllowBLASUpdate = len(sc.Model().Animations) > 0
	sd := vulkan.NewSceneDevice(dev, cfg)
	defer sd.Destroy()

	mirror := gpu.NewMirror(sc)
	if err := sd.Commit(sc, mirror, nil); err != nil {
		return err
	}
	if err := sd.CreateSceneSet(width, height); err != nil {
		return err
	}

	fmt.Printf("gltfview: gpu: %s, %d BLAS, %d visible instances\n",
		dev.GetGPUName(), len(sd.Builder.BLAS), sd.Builder.VisibleCount)
	for _, use := range sd.Tracker.Snapshot() {
		fmt.Printf("gltfview: gpu: %-16s %d bytes\n", use.Category, use.Bytes)
	}
	return nil
}

func atoiOr(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// writePNG applies a simple Reinhard tonemap and sRGB encode; the real
// viewer hands the radiance image to its dedicated tonemap stage instead.
func writePNG(path string, frame *pathtrace.Frame) error {
	img := image.NewNRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			p := frame.Radiance[y*frame.Width+x]
			img.SetNRGBA(x, y, color.NRGBA{
				R: encode(p.X),
				G: encode(p.Y),
				B: encode(p.Z),
				A: uint8(clamp01(p.W)*255 + 0.5),
			})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func encode(v float32) uint8 {
	v = v / (1 + v)
	v = float32(stdmath.Pow(float64(clamp01(v)), 1/2.2))
	return uint8(v*255 + 0.5)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
