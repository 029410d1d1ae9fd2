package enginectl

import (
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	m, err := NewManager(Config{ModelFile: "model.gguf"})
	if err != nil {
		t.Skipf("docker client unavailable: %v", err)
	}
	defer m.Close()

	if m.containerName != DefaultContainerName {
		t.Errorf("unexpected default container name: %s", m.containerName)
	}
	if m.imageName != DefaultImage {
		t.Errorf("unexpected default image: %s", m.imageName)
	}
	if m.hostPort != DefaultPort {
		t.Errorf("unexpected default port: %s", m.hostPort)
	}
	if m.ctxSize != DefaultCtxSize {
		t.Errorf("unexpected default ctx size: %d", m.ctxSize)
	}
	if m.URL() != "http://localhost:8080" {
		t.Errorf("unexpected URL: %s", m.URL())
	}
}

func TestConfigOverrides(t *testing.T) {
	m, err := NewManager(Config{
		ContainerName: "custom-llama",
		Image:         "custom/image:tag",
		HostPort:      "9090",
		CtxSize:       16384,
		ModelFile:     "model.gguf",
		Labels:        map[string]string{"test": "true"},
	})
	if err != nil {
		t.Skipf("docker client unavailable: %v", err)
	}
	defer m.Close()

	if m.containerName != "custom-llama" {
		t.Errorf("container name not applied: %s", m.containerName)
	}
	if m.URL() != "http://localhost:9090" {
		t.Errorf("unexpected URL: %s", m.URL())
	}
	if m.labels[Label] != "true" || m.labels["test"] != "true" {
		t.Errorf("labels not merged: %v", m.labels)
	}
}
