// Package artifact stores versioned, immutable blobs such as trained
// predictors and saved matchup lists.
package artifact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Artifact kinds.
const (
	KindPredictor = "predictor"
	KindMatchups  = "matchups"
)

// VersionLayout renders a UTC instant as a fixed-width stamp whose lexical
// order is chronological.
const VersionLayout = "20060102T150405.000000000Z"

var (
	ErrNotFound = errors.New("artifact not found")
	ErrExists   = errors.New("artifact version already exists")
)

// Store keeps immutable blobs per kind. Put never replaces an existing
// version; Latest returns the lexicographically greatest version.
type Store interface {
	Put(ctx context.Context, kind, version string, blob []byte) error
	Latest(ctx context.Context, kind string) (version string, blob []byte, err error)
	Versions(ctx context.Context, kind string) ([]string, error)
}

// NewVersion returns the version stamp for t.
func NewVersion(t time.Time) string {
	return t.UTC().Format(VersionLayout)
}

// Encode serialises v as zstd-compressed JSON.
func Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode into v.
func Decode(blob []byte, v any) error {
	dec, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	defer dec.Close()
	if err := json.NewDecoder(dec).Decode(v); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// Save encodes v and stores it under kind/version.
func Save(ctx context.Context, s Store, kind, version string, v any) error {
	blob, err := Encode(v)
	if err != nil {
		return err
	}
	return s.Put(ctx, kind, version, blob)
}

// LoadLatest decodes the newest artifact of kind into v and returns its version.
func LoadLatest(ctx context.Context, s Store, kind string, v any) (string, error) {
	version, blob, err := s.Latest(ctx, kind)
	if err != nil {
		return "", err
	}
	if err := Decode(blob, v); err != nil {
		return "", fmt.Errorf("%s %s: %w", kind, version, err)
	}
	return version, nil
}
