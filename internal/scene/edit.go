package scene

// HasScript reports whether a script with the given name is attached.
func (e *Entity) HasScript(name string) bool {
	for _, s := range e.Scripts {
		if s.Name == name {
			return true
		}
	}
	return false
}

// AttachScript appends a script with empty params unless one with the same
// name is already attached. Reports whether the entity changed.
func (e *Entity) AttachScript(name string) bool {
	if name == "" || e.HasScript(name) {
		return false
	}
	e.Scripts = append(e.Scripts, AttachedScript{Name: name})
	return true
}

// DetachScript removes the script at index i. Reports whether the entity changed.
func (e *Entity) DetachScript(i int) bool {
	if i < 0 || i >= len(e.Scripts) {
		return false
	}
	e.Scripts = append(e.Scripts[:i], e.Scripts[i+1:]...)
	if len(e.Scripts) == 0 {
		e.Scripts = nil
	}
	return true
}

// Component returns the first component of the given kind.
func (e *Entity) Component(kind string) (Component, bool) {
	for _, c := range e.Components {
		if c.TypeID() == kind {
			return c, true
		}
	}
	return nil, false
}

// SetComponent replaces the first component of the same kind, or appends it.
func (e *Entity) SetComponent(c Component) {
	for i, existing := range e.Components {
		if existing.TypeID() == c.TypeID() {
			e.Components[i] = c
			return
		}
	}
	e.Components = append(e.Components, c)
}

// DuplicateIDs returns every entity id used by more than one entity, in
// first-occurrence order. Duplicates are legal; callers may warn about them.
func (d *Doc) DuplicateIDs() []string {
	seen := make(map[string]int, len(d.Entities))
	var dups []string
	for _, e := range d.Entities {
		seen[e.ID]++
		if seen[e.ID] == 2 {
			dups = append(dups, e.ID)
		}
	}
	return dups
}

// Starter returns the document written for a freshly initialized scene:
// a camera, a light and a ground disc.
func Starter() *Doc {
	return &Doc{Entities: []Entity{
		{
			ID: "camera",
			Components: ComponentList{
				Transform{Translation: &Vec3{-2.5, 4.5, 9}, LookAt: &Vec3{0, 0, 0}},
				Camera3d{},
			},
		},
		{
			ID: "light",
			Components: ComponentList{
				Transform{Translation: &Vec3{4, 8, 4}},
				PointLight{ShadowsEnabled: ptr(true)},
			},
		},
		{
			ID: "ground",
			Components: ComponentList{
				Transform{RotXDeg: ptr(float32(-90))},
				Mesh3d{Shape: ptr(ShapeCircle), Radius: ptr(float32(4))},
				Material3d{Color: &RGBA{1, 1, 1, 1}},
			},
		},
	}}
}

func ptr[T any](v T) *T { return &v }
