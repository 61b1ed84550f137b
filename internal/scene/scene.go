// Package scene defines the authored scene document and its YAML codec.
//
// A Doc is an ordered list of entities; each entity carries an ordered list of
// components and the scripts attached to it. Components form a closed sum type
// keyed by kind (Transform, Mesh3d, Material3d, PointLight, Camera3d), with an
// Opaque variant that preserves kinds the editor does not understand.
package scene

// Vec3 is a 3-component vector.
type Vec3 [3]float32

// RGBA is a linear color with alpha.
type RGBA [4]float32

// Doc is the root scene aggregate.
type Doc struct {
	Entities []Entity `yaml:"entities"`
}

// Entity is one authored entity. IDs are expected to be unique but this is not enforced.
type Entity struct {
	ID         string           `yaml:"id"`
	Components ComponentList    `yaml:"components"`
	Scripts    []AttachedScript `yaml:"scripts,omitempty"`
}

// AttachedScript references a script from the project schema by name.
type AttachedScript struct {
	Name   string            `yaml:"name"`
	Params map[string]string `yaml:"params,omitempty"`
}

// ComponentList is the ordered component list of an entity.
type ComponentList []Component

// Component is implemented by every component variant.
type Component interface {
	// TypeID returns the wire kind of the component.
	TypeID() string
}

// Known component kinds.
const (
	KindTransform  = "Transform"
	KindMesh3d     = "Mesh3d"
	KindMaterial3d = "Material3d"
	KindPointLight = "PointLight"
	KindCamera3d   = "Camera3d"
)

// MeshShape selects the primitive of a Mesh3d.
type MeshShape string

// Supported mesh shapes.
const (
	ShapeCircle MeshShape = "Circle"
	ShapeCuboid MeshShape = "Cuboid"
)

// Transform positions an entity.
type Transform struct {
	Translation *Vec3    `yaml:"translation,flow,omitempty"`
	LookAt      *Vec3    `yaml:"look_at,flow,omitempty"`
	RotXDeg     *float32 `yaml:"rot_x_deg,omitempty"`
}

// Mesh3d is a primitive mesh. Radius applies to circles, X/Y/Z to cuboids.
type Mesh3d struct {
	Shape  *MeshShape `yaml:"shape,omitempty"`
	Radius *float32   `yaml:"radius,omitempty"`
	X      *float32   `yaml:"x,omitempty"`
	Y      *float32   `yaml:"y,omitempty"`
	Z      *float32   `yaml:"z,omitempty"`
}

// Material3d is a flat colored material.
type Material3d struct {
	Color *RGBA `yaml:"color,flow,omitempty"`
}

// PointLight is an omnidirectional light.
type PointLight struct {
	ShadowsEnabled *bool `yaml:"shadows_enabled,omitempty"`
}

// Camera3d marks the scene camera. It has no fields.
type Camera3d struct{}

// Opaque preserves a component of a kind the editor does not know.
type Opaque struct {
	ID     string
	Fields map[string]any
}

func (Transform) TypeID() string  { return KindTransform }
func (Mesh3d) TypeID() string     { return KindMesh3d }
func (Material3d) TypeID() string { return KindMaterial3d }
func (PointLight) TypeID() string { return KindPointLight }
func (Camera3d) TypeID() string   { return KindCamera3d }
func (o Opaque) TypeID() string   { return o.ID }

// KnownKinds lists the component kinds the editor can construct, in menu order.
func KnownKinds() []string {
	return []string{KindTransform, KindMesh3d, KindMaterial3d, KindPointLight, KindCamera3d}
}

// NewComponent returns an empty component of the given kind.
// Unknown kinds yield an Opaque component.
func NewComponent(kind string) Component {
	switch kind {
	case KindTransform:
		return Transform{}
	case KindMesh3d:
		return Mesh3d{}
	case KindMaterial3d:
		return Material3d{}
	case KindPointLight:
		return PointLight{}
	case KindCamera3d:
		return Camera3d{}
	default:
		return Opaque{ID: kind}
	}
}
