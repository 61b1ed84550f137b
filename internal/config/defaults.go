package config

// Fixed project layout, relative to the project root.
const (
	ConfigFileName = "project.yaml"
	SourceDir      = "src"
	DesignDir      = "design"
	SceneFile      = "design/initial.scene.yaml"
	SchemaFile     = "design/.schema.yaml"
	ManifestFile   = "Cargo.toml"
	EnvFile        = ".env"
	StateDir       = ".sceneforge"
)
