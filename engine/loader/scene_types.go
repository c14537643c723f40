package loader

// SceneFile is the decoded form of a JSON scene description. Omitted fields take the
// defaults of the component they configure.
type SceneFile struct {
	Name   string      `json:"name"`
	Camera CameraFile  `json:"camera"`
	Lights []LightFile `json:"lights"`
	Nodes  []NodeFile  `json:"nodes"`
}

// CameraFile configures the scene camera. Fov is in degrees.
type CameraFile struct {
	Position []float32 `json:"position"`
	Target   []float32 `json:"target"`
	Up       []float32 `json:"up"`
	Fov      float32   `json:"fov"`
	Aspect   float32   `json:"aspect"`
	Near     float32   `json:"near"`
	Far      float32   `json:"far"`
	Layers   *uint32   `json:"layers"`
	Viewport []int     `json:"viewport"`
}

// LightFile configures one scene light. Type is "directional" or "point".
type LightFile struct {
	Type      string    `json:"type"`
	Position  []float32 `json:"position"`
	Target    []float32 `json:"target"`
	Color     []float32 `json:"color"`
	Intensity *float32  `json:"intensity"`
	Layers    *uint32   `json:"layers"`
	Visible   *bool     `json:"visible"`
}

// NodeFile configures one raymarcher node and its layers.
// EnvMap is an OpenEXR path resolved against the scene file's directory.
type NodeFile struct {
	Resolution      *float32       `json:"resolution"`
	Blending        *float32       `json:"blending"`
	Conetracing     bool           `json:"conetracing"`
	Metalness       *float32       `json:"metalness"`
	Roughness       *float32       `json:"roughness"`
	EnvMap          string         `json:"envMap"`
	EnvMapIntensity *float32       `json:"envMapIntensity"`
	Layers          [][]EntityFile `json:"layers"`
}

// EntityFile configures one entity. Shape and Operation use the entity enum names and
// Rotation is XYZ Euler angles in degrees.
type EntityFile struct {
	Shape     string    `json:"shape"`
	Operation string    `json:"operation"`
	Position  []float32 `json:"position"`
	Rotation  []float32 `json:"rotation"`
	Scale     []float32 `json:"scale"`
	Color     []float32 `json:"color"`
}
