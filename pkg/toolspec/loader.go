package toolspec

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

func loadFile(path string) (*ToolSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tool spec: %w", err)
	}
	defer f.Close()
	return loadReader(f)
}

func loadReader(r io.Reader) (*ToolSpec, error) {
	var ts ToolSpec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ts); err != nil {
		return nil, fmt.Errorf("structural decode: %w", err)
	}
	if ts.Meta.Transport == "" {
		ts.Meta.Transport = TransportStdio
	}
	if err := ts.Meta.validateTransport(); err != nil {
		return nil, err
	}
	return &ts, nil
}

func bytesReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}
