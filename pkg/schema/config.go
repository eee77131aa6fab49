package schema

// version is stamped into every generated ConfigConfig's Labels. It stays
// "dev" unless a caller invokes SetVersion; nothing in this module does.
var version = "dev"

// SetVersion overrides the version string recorded in generated image
// configuration labels. Intended to be set once at program startup (e.g.
// from a linker-injected build var), never mid-build.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Config is the OCI/Docker image configuration document: architecture,
// os, the default container config, the rootfs diff_id chain, and a
// history entry per layer.
type Config struct {
	Architecture    string          `json:"architecture"`
	OS              string          `json:"os"`
	Config          ConfigConfig    `json:"config"`
	ContainerConfig ConfigConfig    `json:"container_config"`
	Created         string          `json:"created"`
	DockerVersion   string          `json:"docker_version,omitempty"`
	Author          string          `json:"author,omitempty"`
	History         []ConfigHistory `json:"history"`
	RootFS          ConfigRootFS    `json:"rootfs"`
}

// ConfigConfig is the per-layer/per-image container runtime configuration.
type ConfigConfig struct {
	User         string            `json:"User"`
	Env          []string          `json:"Env"`
	Cmd          []string          `json:"Cmd"`
	Entrypoint   []string          `json:"Entrypoint"`
	WorkingDir   string            `json:"WorkingDir"`
	ArgsEscaped  bool              `json:"ArgsEscaped"`
	AttachStdin  bool              `json:"AttachStdin"`
	AttachStdout bool              `json:"AttachStdout"`
	AttachStderr bool              `json:"AttachStderr"`
	Tty          bool              `json:"Tty"`
	OpenStdin    bool              `json:"OpenStdin"`
	StdinOnce    bool              `json:"StdinOnce"`
	Labels       map[string]string `json:"Labels"`
}

// DefaultConfigConfig returns the baseline ConfigConfig a freshly built
// image starts from.
func DefaultConfigConfig() ConfigConfig {
	return ConfigConfig{
		User:        "0:0",
		Env:         []string{"PATH=/opt/conda/bin:/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"},
		Cmd:         []string{"/bin/sh"},
		Entrypoint:  []string{"/bin/sh", "-c"},
		WorkingDir:  "/",
		ArgsEscaped: true,
		Labels: map[string]string{
			"io.ociclient.version": version,
		},
	}
}

// ConfigRootFS carries the ordered diffID chain, base layer first.
type ConfigRootFS struct {
	Type    string   `json:"type"`
	DiffIDs []string `json:"diff_ids"`
}

// NewConfigRootFS returns a ConfigRootFS with Type set to the only
// supported value, "layers".
func NewConfigRootFS() ConfigRootFS {
	return ConfigRootFS{Type: "layers"}
}

// ConfigHistory is one entry per layer. CreatedBy is left blank — no
// build-instruction convention is established here, and inventing one
// would assert behavior nobody has specified.
type ConfigHistory struct {
	Created   string `json:"created"`
	CreatedBy string `json:"created_by,omitempty"`
}
