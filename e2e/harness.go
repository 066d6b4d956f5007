//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/encodeous/sospf/state"
	"github.com/goccy/go-yaml"
	"github.com/testcontainers/testcontainers-go"
	tcnetwork "github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	ImageName   = "sospf-debug:latest"
	WaitTimeout = 2 * time.Minute
)

// subnets hands every harness its own /24 so parallel tests do not collide
type subnets struct {
	mu   sync.Mutex
	next int
}

func (s *subnets) Allocate() (subnet, gateway string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.next
	s.next++
	return fmt.Sprintf("172.31.%d.0/24", n), fmt.Sprintf("172.31.%d.1", n)
}

var networks = &subnets{}

type Harness struct {
	t          *testing.T
	mu         sync.Mutex
	ctx        context.Context
	Network    *testcontainers.DockerNetwork
	Nodes      map[string]testcontainers.Container
	LogManager *LogManager
	RootDir    string
	Subnet     string
	Gateway    string
}

func NewHarness(t *testing.T) *Harness {
	ctx := context.Background()
	rootDir, err := findRoot()
	if err != nil {
		t.Fatal(err)
	}

	subnet, gateway := networks.Allocate()
	t.Logf("Allocated subnet: %s, gateway: %s", subnet, gateway)

	newNetwork, err := tcnetwork.New(ctx,
		tcnetwork.WithAttachable(),
		tcnetwork.WithDriver("bridge"),
		tcnetwork.WithIPAM(&network.IPAM{
			Driver: "default",
			Config: []network.IPAMConfig{
				{
					Subnet:  subnet,
					Gateway: gateway,
				},
			},
		}))
	if err != nil {
		t.Fatal(err)
	}
	h := &Harness{
		t:          t,
		ctx:        ctx,
		Network:    newNetwork,
		Nodes:      make(map[string]testcontainers.Container),
		LogManager: NewLogManager(),
		RootDir:    rootDir,
		Subnet:     subnet,
		Gateway:    gateway,
	}
	t.Cleanup(h.Cleanup)
	return h
}

// IP returns the n-th host address of the harness subnet
func (h *Harness) IP(n int) string {
	var a, b, c int
	fmt.Sscanf(h.Subnet, "%d.%d.%d.0/24", &a, &b, &c)
	return fmt.Sprintf("%d.%d.%d.%d", a, b, c, n)
}

type NodeSpec struct {
	Name           string
	IP             string
	NodeConfigPath string
}

func (h *Harness) StartNodes(specs ...NodeSpec) {
	var wg sync.WaitGroup
	for _, spec := range specs {
		wg.Go(func() {
			h.StartNode(spec.Name, spec.IP, spec.NodeConfigPath)
		})
	}
	wg.Wait()
}

func (h *Harness) StartNode(name string, ip string, nodeConfigPath string) testcontainers.Container {
	h.t.Logf("Starting node %s at %s", name, ip)
	req := testcontainers.ContainerRequest{
		Image:    ImageName,
		Networks: []string{h.Network.Name},
		NetworkAliases: map[string][]string{
			h.Network.Name: {name},
		},
		Files: []testcontainers.ContainerFile{
			{
				HostFilePath:      nodeConfigPath,
				ContainerFilePath: "/app/config/node.yaml",
				FileMode:          0644,
			},
		},
		WaitingFor: wait.ForLog("sospf has been initialized").WithStartupTimeout(30 * time.Second),
		EndpointSettingsModifier: func(m map[string]*network.EndpointSettings) {
			if s, ok := m[h.Network.Name]; ok && ip != "" {
				s.IPAMConfig = &network.EndpointIPAMConfig{
					IPv4Address: ip,
				}
			}
		},
		LogConsumerCfg: &testcontainers.LogConsumerConfig{
			Consumers: []testcontainers.LogConsumer{
				&UnifiedLogConsumer{Node: name, Manager: h.LogManager},
			},
		},
		Name: h.t.Name() + "-" + name,
	}
	cont, err := testcontainers.GenericContainer(h.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		h.t.Fatalf("failed to start container %s: %v", name, err)
	}
	h.mu.Lock()
	h.Nodes[name] = cont
	h.mu.Unlock()
	return cont
}

func (h *Harness) node(name string) (testcontainers.Container, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.Nodes[name]
	return c, ok
}

// WaitForLog blocks until the node logs pattern, the router logs to stderr
func (h *Harness) WaitForLog(nodeName string, pattern string) {
	h.waitFor(nodeName, SourceStderr, pattern, false)
}

func (h *Harness) WaitForMatch(nodeName string, pattern string) {
	h.waitFor(nodeName, SourceStderr, pattern, true)
}

func (h *Harness) waitFor(nodeName string, source LogSource, pattern string, isRegex bool) {
	sub, err := h.LogManager.Subscribe(nodeName, source, pattern, isRegex)
	if err != nil {
		h.t.Fatalf("failed to subscribe: %v", err)
	}
	defer h.LogManager.Unsubscribe(sub)

	select {
	case <-sub.MatchCh:
	case <-time.After(WaitTimeout):
		h.PrintLogs(nodeName)
		h.t.Fatalf("timed out waiting for %s pattern %q in node %s", source, pattern, nodeName)
	case <-h.ctx.Done():
		h.t.Fatal("context canceled")
	}
}

// Stop kills the router process without a graceful quit
func (h *Harness) Stop(nodeName string) {
	c, ok := h.node(nodeName)
	if !ok {
		h.t.Fatalf("node %s not found", nodeName)
	}
	timeout := time.Duration(0)
	if err := c.Stop(h.ctx, &timeout); err != nil {
		h.t.Fatalf("failed to stop %s: %v", nodeName, err)
	}
}

func (h *Harness) Exec(nodeName string, cmd []string) (string, string, error) {
	c, ok := h.node(nodeName)
	if !ok {
		return "", "", fmt.Errorf("node %s not found", nodeName)
	}

	code, r, err := c.Exec(h.ctx, cmd)
	if err != nil {
		return "", "", err
	}

	stdoutBuf := new(bytes.Buffer)
	stderrBuf := new(bytes.Buffer)
	if _, err = stdcopy.StdCopy(stdoutBuf, stderrBuf, r); err != nil {
		return "", "", fmt.Errorf("failed to copy output: %w", err)
	}

	stdout := StripAnsi(stdoutBuf.String())
	stderr := StripAnsi(stderrBuf.String())
	if code != 0 {
		return stdout, stderr, fmt.Errorf("command exited with code %d: %s\nStderr: %s", code, stdout, stderr)
	}
	return stdout, stderr, nil
}

func (h *Harness) PrintLogs(nodeName string) {
	c, ok := h.node(nodeName)
	if !ok {
		h.t.Logf("node %s not found for logging", nodeName)
		return
	}
	r, err := c.Logs(h.ctx)
	if err != nil {
		h.t.Logf("failed to get logs for %s: %v", nodeName, err)
		return
	}
	defer r.Close()
	buf := new(bytes.Buffer)
	_, _ = io.Copy(buf, r)
	h.t.Logf("Logs for %s:\n%s", nodeName, buf.String())
}

func (h *Harness) Cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, c := range h.Nodes {
		if err := c.Terminate(h.ctx); err != nil {
			h.t.Logf("failed to terminate container %s: %v", name, err)
		}
	}
	if err := h.Network.Remove(context.Background()); err != nil {
		h.t.Logf("failed to remove network: %v", err)
	}
}

// SetupTestDir creates a clean directory for the current test run
func (h *Harness) SetupTestDir() string {
	dir := filepath.Join(h.RootDir, "e2e", "runs", h.t.Name())
	os.RemoveAll(dir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		h.t.Fatal(err)
	}
	return dir
}

// WriteConfig writes cfg as yaml under dir
func (h *Harness) WriteConfig(dir, filename string, cfg state.LocalCfg) string {
	path := filepath.Join(dir, filename)
	data, err := yaml.Marshal(cfg)
	if err != nil {
		h.t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		h.t.Fatal(err)
	}
	return path
}
