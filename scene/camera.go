package scene

import "vkgltfscene/math"

// discoverCameras populates s.cameras from every node in the active scene
// that references a camera, in depth-first order; the first one found is
// the initial scene camera. If none do, it synthesizes a single camera
// framing the scene bounds.
func (s *Scene) discoverCameras() {
	s.cameras = nil
	for _, nodeIndex := range s.graph.orderedNodes() {
		n := s.model.Nodes[nodeIndex]
		if n.Camera == nil {
			continue
		}
		s.cameras = append(s.cameras, RenderCamera{
			RefNodeID:   nodeIndex,
			CameraIndex: *n.Camera,
		})
	}
	if len(s.cameras) == 0 {
		s.cameras = append(s.cameras, RenderCamera{RefNodeID: -1, CameraIndex: -1, Synthesized: true})
	}
	if s.sceneCameraIdx < 0 || s.sceneCameraIdx >= len(s.cameras) {
		s.sceneCameraIdx = 0
	}
}

// ViewMatrix returns the camera's look-at view matrix. An authored
// camera's frame comes from its node's world matrix unless the node
// carries camera::eye/center/up extras, which take precedence; a
// synthesized camera looks at the scene bounds center from along +Z.
func (s *Scene) ViewMatrix(cam RenderCamera) math.Mat4 {
	eye, target, up := s.cameraFrame(cam)
	return math.Mat4LookAt(eye, target, up)
}

// ProjectionMatrix returns cam's perspective or orthographic projection.
// A synthesized camera gets a 45-degree vertical FOV with near/far planes
// scaled to the scene radius.
func (s *Scene) ProjectionMatrix(cam RenderCamera, aspect float32) math.Mat4 {
	if cam.CameraIndex < 0 || cam.CameraIndex >= len(s.model.Cameras) {
		r := s.boundsRadius()
		return math.Mat4Perspective(0.7853982, aspect, 0.1*r, 10*r)
	}
	c := s.model.Cameras[cam.CameraIndex]
	if c.Orthographic {
		return math.Mat4Orthographic(-c.XMag, c.XMag, -c.YMag, c.YMag, c.ZNear, c.ZFar)
	}
	fovy := c.YFov
	if fovy == 0 {
		fovy = 0.7853982
	}
	a := aspect
	if c.AspectRatio != 0 {
		a = c.AspectRatio
	}
	zfar := c.ZFar
	if zfar == 0 {
		zfar = c.ZNear * 10000
	}
	return math.Mat4Perspective(fovy, a, c.ZNear, zfar)
}

func (s *Scene) boundsRadius() float32 {
	min, max := s.Bounds()
	r := max.Sub(min).Length() * 0.5
	if r < 1e-4 {
		r = 1
	}
	return r
}

func (s *Scene) cameraFrame(cam RenderCamera) (eye, target, up math.Vec3) {
	up = math.Vec3Up
	if !cam.Synthesized && cam.RefNodeID >= 0 {
		n := s.model.Nodes[cam.RefNodeID]
		world := s.graph.worldMatrix(cam.RefNodeID)
		eye = math.Vec3{X: world[3][0], Y: world[3][1], Z: world[3][2]}
		forward := math.Vec3{X: -world[2][0], Y: -world[2][1], Z: -world[2][2]}
		target = eye.Add(forward)
		up = math.Vec3{X: world[1][0], Y: world[1][1], Z: world[1][2]}
		if n.CameraEye != nil {
			eye = *n.CameraEye
		}
		if n.CameraCenter != nil {
			target = *n.CameraCenter
		}
		if n.CameraUp != nil {
			up = *n.CameraUp
		}
		return eye, target, up
	}
	min, max := s.Bounds()
	center := min.Add(max).Mul(0.5)
	r := s.boundsRadius()
	// 2.414 = 1/tan(45deg/2): the distance at which an extent of +-1
	// around the target exactly fills a 45-degree vertical FOV.
	eye = center.Add(math.Vec3{X: 0, Y: 0, Z: 2.414 * r})
	return eye, center, up
}
