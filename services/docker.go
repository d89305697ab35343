package services

import (
	"context"
	"fmt"
	"io"

	"clara-keeper/internal/logger"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// DockerControl is the local Docker capability consumed by the dispatcher
// and the health monitor. Tests substitute a fake.
type DockerControl interface {
	Ping(ctx context.Context) error
	State(ctx context.Context, name string) (string, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Pull(ctx context.Context, ref string) error
	Run(ctx context.Context, name, ref string, hostPort, containerPort int, labels map[string]string) error
	Remove(ctx context.Context, name string) error
}

// dockerUnavailable stands in for the engine when no connection could be
// made. Three of four services default to docker mode, so the monitor and
// the dispatcher still call this surface; every call reports the original
// connection error instead of dereferencing a nil interface.
type dockerUnavailable struct {
	err error
}

func (d dockerUnavailable) Ping(ctx context.Context) error { return d.err }

func (d dockerUnavailable) State(ctx context.Context, name string) (string, error) {
	return "", d.err
}

func (d dockerUnavailable) Start(ctx context.Context, name string) error { return d.err }

func (d dockerUnavailable) Stop(ctx context.Context, name string) error { return d.err }

func (d dockerUnavailable) Restart(ctx context.Context, name string) error { return d.err }

func (d dockerUnavailable) Pull(ctx context.Context, ref string) error { return d.err }

func (d dockerUnavailable) Run(ctx context.Context, name, ref string, hostPort, containerPort int, labels map[string]string) error {
	return d.err
}

func (d dockerUnavailable) Remove(ctx context.Context, name string) error { return d.err }

// DockerManager drives the local Docker Engine API.
type DockerManager struct {
	cli *client.Client
}

var dockerManager *DockerManager

/**
 * Get the docker manager singleton
 * @returns {(*DockerManager, error)} Manager bound to the local engine, or
 * the connection error when no engine is reachable
 */
func GetDockerManager() (*DockerManager, error) {
	if dockerManager != nil {
		return dockerManager, nil
	}
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connect docker engine: %w", err)
	}
	dockerManager = &DockerManager{cli: cli}
	return dockerManager, nil
}

func (d *DockerManager) Ping(ctx context.Context) error {
	_, err := d.cli.Ping(ctx)
	return err
}

func (d *DockerManager) findContainer(ctx context.Context, name string) (string, string, error) {
	containers, err := d.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("name", name)),
	})
	if err != nil {
		return "", "", err
	}
	for _, c := range containers {
		for _, n := range c.Names {
			if n == "/"+name {
				return c.ID, c.State, nil
			}
		}
	}
	return "", "", nil
}

/**
 * Get the state of a named container
 * @param {string} name - Container name
 * @returns {(string, error)} Docker state string ("running", "exited", ...)
 * or "" when no such container exists
 */
func (d *DockerManager) State(ctx context.Context, name string) (string, error) {
	_, state, err := d.findContainer(ctx, name)
	return state, err
}

func (d *DockerManager) Start(ctx context.Context, name string) error {
	id, _, err := d.findContainer(ctx, name)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("container %s not found", name)
	}
	return d.cli.ContainerStart(ctx, id, container.StartOptions{})
}

func (d *DockerManager) Stop(ctx context.Context, name string) error {
	id, _, err := d.findContainer(ctx, name)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	return d.cli.ContainerStop(ctx, id, container.StopOptions{})
}

func (d *DockerManager) Restart(ctx context.Context, name string) error {
	id, _, err := d.findContainer(ctx, name)
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("container %s not found", name)
	}
	return d.cli.ContainerRestart(ctx, id, container.StopOptions{})
}

func (d *DockerManager) Pull(ctx context.Context, ref string) error {
	reader, err := d.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	defer reader.Close()
	// Pull progress must be drained for the pull to complete.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	logger.Infof("Image %s pulled", ref)
	return nil
}

/**
 * Run a detached container, replacing any same-named one
 * @description Stop+recreate rather than reuse, for determinism: a stale
 * container may carry an outdated image or port mapping.
 */
func (d *DockerManager) Run(ctx context.Context, name, ref string, hostPort, containerPort int, labels map[string]string) error {
	if err := d.Remove(ctx, name); err != nil {
		return err
	}

	port, err := nat.NewPort("tcp", fmt.Sprintf("%d", containerPort))
	if err != nil {
		return err
	}
	resp, err := d.cli.ContainerCreate(ctx,
		&container.Config{
			Image:        ref,
			Labels:       labels,
			ExposedPorts: nat.PortSet{port: struct{}{}},
		},
		&container.HostConfig{
			PortBindings: nat.PortMap{
				port: []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: fmt.Sprintf("%d", hostPort)}},
			},
			RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
		},
		nil, nil, name)
	if err != nil {
		return fmt.Errorf("create container %s: %w", name, err)
	}
	if err := d.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", name, err)
	}
	logger.Infof("Container %s started from %s (port %d -> %d)", name, ref, hostPort, containerPort)
	return nil
}

func (d *DockerManager) Remove(ctx context.Context, name string) error {
	id, state, err := d.findContainer(ctx, name)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}
	if state == "running" {
		if err := d.cli.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
			return fmt.Errorf("stop container %s: %w", name, err)
		}
	}
	if err := d.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		if client.IsErrNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove container %s: %w", name, err)
	}
	return nil
}
