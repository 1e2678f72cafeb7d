package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// RenderEnvironment loads an environment override file and returns one
// name/value pair per key, in the file's key order. An empty path means "no
// override": the empty result tells the renderer to keep whatever environment
// the fetched task definition already carries.
//
// The extension is checked before the file is touched; anything but .json is a
// configuration error.
func RenderEnvironment(path string) ([]ecstypes.KeyValuePair, error) {
	if path == "" {
		return nil, nil
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, fmt.Errorf("%w: %s", ErrEnvFileExtension, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read environment file: %w", err)
	}
	pairs, err := parseEnvObject(raw)
	if err != nil {
		return nil, fmt.Errorf("parse environment file %s: %w", path, err)
	}
	return pairs, nil
}

// parseEnvObject walks the JSON token stream instead of unmarshalling into a
// map so the file's key order survives into the rendered pairs.
func parseEnvObject(raw []byte) ([]ecstypes.KeyValuePair, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected a JSON object, got %v", tok)
	}
	var pairs []ecstypes.KeyValuePair
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key := keyTok.(string)
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		pairs = append(pairs, ecstypes.KeyValuePair{
			Name:  aws.String(key),
			Value: aws.String(coerceString(val)),
		})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// coerceString renders a JSON value the way it reads in the file: strings are
// unquoted, everything else (numbers, booleans, null, nested values) keeps its
// literal JSON text.
func coerceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
