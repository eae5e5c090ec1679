package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/muikit/muikit"
)

// ContainerAPI is the slice of the Docker Engine client this package uses.
// *client.Client implements it; tests substitute a fake.
type ContainerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
}

var _ ContainerAPI = (*client.Client)(nil)

// newDockerClient connects using DOCKER_HOST and friends, negotiating the API version.
func newDockerClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("%w: docker client: %w", muikit.ErrConfig, err)
	}
	return cli, nil
}

func dialDocker() (ContainerAPI, func() error, error) {
	cli, err := newDockerClient()
	if err != nil {
		return nil, nil, err
	}
	return cli, cli.Close, nil
}

// Container is a created (not necessarily running) browser container.
type Container struct {
	ID       string
	Name     string
	Warnings []string

	api ContainerAPI
}

// Start starts the container.
func (c *Container) Start(ctx context.Context) error {
	if err := c.api.ContainerStart(ctx, c.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("browser: start container %s: %w", c.Name, err)
	}
	return nil
}

// Stop stops the container; with auto-remove set the engine then deletes it.
func (c *Container) Stop(ctx context.Context) error {
	if err := c.api.ContainerStop(ctx, c.ID, container.StopOptions{}); err != nil {
		return fmt.Errorf("browser: stop container %s: %w", c.Name, err)
	}
	return nil
}

// createRequest is the full argument set of one ContainerCreate call.
type createRequest struct {
	Config     *container.Config
	HostConfig *container.HostConfig
	Networking *network.NetworkingConfig
	Name       string
}

func tcpPort(p int) nat.Port {
	return nat.Port(strconv.Itoa(p) + "/tcp")
}

// buildCreateRequest maps a launcher snapshot onto Docker create options.
func buildCreateRequest(s state) (createRequest, error) {
	bindDir, err := filepath.Abs(s.cfg.BindDir)
	if err != nil {
		return createRequest{}, fmt.Errorf("browser: resolve bind_dir %q: %w", s.cfg.BindDir, err)
	}
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, p := range []int{s.cfg.PlaywrightPort, s.cfg.NoVNCPort} {
		port := tcpPort(p)
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostPort: strconv.Itoa(p)}}
	}

	req := createRequest{
		Config: &container.Config{
			Image:        s.cfg.Image,
			ExposedPorts: exposed,
			Env: []string{
				"PLAYWRIGHT_WS_PATH=" + s.cfg.WebsocketPath,
				"PLAYWRIGHT_PORT=" + strconv.Itoa(s.cfg.PlaywrightPort),
				"NO_VNC_PORT=" + strconv.Itoa(s.cfg.NoVNCPort),
			},
		},
		HostConfig: &container.HostConfig{
			AutoRemove:   true,
			PortBindings: bindings,
			Binds:        []string{bindDir + ":" + WorkspacePath + ":rw"},
		},
		Name: s.name,
	}
	if s.cfg.InDocker() {
		req.HostConfig.NetworkMode = container.NetworkMode(s.cfg.NetworkName)
		req.Networking = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{s.cfg.NetworkName: {}},
		}
	}
	return req, nil
}
