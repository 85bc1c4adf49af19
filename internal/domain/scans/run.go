package scans

// Mount binds a host directory into the container.
type Mount struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// RunSpec describes one container execution. Cmd is a structured argv so
// target data never passes through a shell.
type RunSpec struct {
	Image       string
	Cmd         []string
	Mounts      []Mount
	Env         map[string]string
	NetworkMode string            // "", "bridge", "host"
	Tmpfs       map[string]string // container path -> mount options
}

// RunOutput is the captured result of a container execution. A non-zero
// exit code is not an error at this layer; several tools exit non-zero
// when they find issues.
type RunOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}
