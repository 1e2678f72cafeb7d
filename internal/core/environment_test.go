package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func writeEnvFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	return path
}

func TestRenderEnvironmentEmptyPath(t *testing.T) {
	pairs, err := RenderEnvironment("")
	if err != nil {
		t.Fatalf("RenderEnvironment failed: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("Expected empty sequence, got %d pairs", len(pairs))
	}
}

func TestRenderEnvironmentBadExtension(t *testing.T) {
	// The path does not exist; the extension check must fire before any read.
	_, err := RenderEnvironment("/nonexistent/overrides.yaml")
	if !errors.Is(err, ErrEnvFileExtension) {
		t.Fatalf("Expected ErrEnvFileExtension, got %v", err)
	}
}

func TestRenderEnvironmentKeyOrderAndCoercion(t *testing.T) {
	path := writeEnvFile(t, "env.json", `{"A":"1","B":true,"PORT":8080,"MSG":"hello"}`)
	pairs, err := RenderEnvironment(path)
	if err != nil {
		t.Fatalf("RenderEnvironment failed: %v", err)
	}
	want := [][2]string{{"A", "1"}, {"B", "true"}, {"PORT", "8080"}, {"MSG", "hello"}}
	if len(pairs) != len(want) {
		t.Fatalf("Expected %d pairs, got %d", len(want), len(pairs))
	}
	for i, w := range want {
		if aws.ToString(pairs[i].Name) != w[0] || aws.ToString(pairs[i].Value) != w[1] {
			t.Errorf("pair %d: expected %s=%s, got %s=%s",
				i, w[0], w[1], aws.ToString(pairs[i].Name), aws.ToString(pairs[i].Value))
		}
	}
}

func TestRenderEnvironmentMissingFile(t *testing.T) {
	_, err := RenderEnvironment(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestRenderEnvironmentMalformedJSON(t *testing.T) {
	path := writeEnvFile(t, "bad.json", `{"A": `)
	if _, err := RenderEnvironment(path); err == nil {
		t.Fatal("Expected parse error for malformed JSON")
	}
}

func TestRenderEnvironmentNotAnObject(t *testing.T) {
	path := writeEnvFile(t, "list.json", `["A","B"]`)
	if _, err := RenderEnvironment(path); err == nil {
		t.Fatal("Expected error for non-object JSON")
	}
}
