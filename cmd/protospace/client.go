package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/exec"
	"time"

	"protospace/internal/api"
	"protospace/internal/config"
)

const (
	reachTimeout       = 500 * time.Millisecond
	serverStartTimeout = 3 * time.Second
	serverPollInterval = 100 * time.Millisecond
)

// withClient runs fn against the server at listen_url. When nothing answers
// there, a `protospace srv` child is started for the duration of fn.
func withClient(cfg *config.Config, fn func(*api.Client) error) error {
	client := api.NewClient(cfg.ListenURL)
	if !reachable(client, reachTimeout) {
		child, err := spawnServer(cfg, client)
		if err != nil {
			return err
		}
		defer child.stop()
	}
	return fn(client)
}

func reachable(client *api.Client, timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return client.Ping(ctx) == nil
}

type childServer struct {
	cmd *exec.Cmd
}

func (c *childServer) stop() {
	_ = c.cmd.Process.Kill()
	_ = c.cmd.Wait()
}

// spawnServer starts this binary's srv command against the same database
// and waits until it answers health checks.
func spawnServer(cfg *config.Config, client *api.Client) (*childServer, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(exe, "srv")
	cmd.Env = append(os.Environ(),
		"PROTOSPACE_DB="+cfg.DBPath,
		"PROTOSPACE_LISTEN_URL="+cfg.ListenURL,
	)
	cmd.Stdout, cmd.Stderr = io.Discard, io.Discard
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	child := &childServer{cmd: cmd}
	if err := awaitHealthy(client, serverStartTimeout); err != nil {
		child.stop()
		return nil, err
	}
	return child, nil
}

func awaitHealthy(client *api.Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		err := client.Ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		// Anything other than a dial failure means the port belongs to
		// something that is not a protospace server.
		var opErr *net.OpError
		if !errors.As(err, &opErr) {
			return err
		}
		time.Sleep(serverPollInterval)
	}
	return errors.New("server did not start in time")
}
