package modules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ChecksumHeader carries the hex sha256 of a manifest served by a package registry.
const ChecksumHeader = "X-Checksum-Sha256"

// maxManifestSize bounds the manifest body read from a registry.
const maxManifestSize = 1 << 20

// ErrNoRegistry is returned by installs when no package registry is configured.
var ErrNoRegistry = errors.New("no package registry configured")

// Installer installs the latest version of a package into a cache directory.
type Installer interface {
	Install(ctx context.Context, packageName, cacheDir string) error
}

// InstallerFunc adapts a function to the Installer interface.
type InstallerFunc func(ctx context.Context, packageName, cacheDir string) error

// Install calls f.
func (f InstallerFunc) Install(ctx context.Context, packageName, cacheDir string) error {
	return f(ctx, packageName, cacheDir)
}

// HTTPInstaller fetches package manifests from an HTTP package registry,
// at <RegistryURL>/<package>/manifest.yaml.
type HTTPInstaller struct {
	// RegistryURL is the base URL of the package registry.
	RegistryURL string

	// Client is the HTTP client used for downloads.
	Client *http.Client
}

// NewHTTPInstaller creates an installer for the given registry.
func NewHTTPInstaller(registryURL string, timeout time.Duration) *HTTPInstaller {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPInstaller{
		RegistryURL: strings.TrimRight(registryURL, "/"),
		Client:      &http.Client{Timeout: timeout},
	}
}

// Install downloads, verifies and writes the package manifest.
func (i *HTTPInstaller) Install(ctx context.Context, packageName, cacheDir string) error {
	if i.RegistryURL == "" {
		return ErrNoRegistry
	}

	dir, err := PackageDir(cacheDir, packageName)
	if err != nil {
		return err
	}

	url := i.RegistryURL + "/" + packageName + "/" + ManifestFile
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := i.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	if checksum := resp.Header.Get(ChecksumHeader); checksum != "" {
		if err := VerifyChecksum(data, checksum); err != nil {
			return err
		}
	}

	manifest, err := NewManifestLoader(cacheDir).LoadFromBytes(data)
	if err != nil {
		return err
	}
	if manifest.Name != packageName {
		return fmt.Errorf("registry returned manifest for %s, expected %s", manifest.Name, packageName)
	}

	return writeFileAtomic(filepath.Join(dir, ManifestFile), data)
}

// writeFileAtomic writes data next to path and renames it into place, so a
// concurrent reader never sees a partial manifest.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create package directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".manifest-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to install manifest: %w", err)
	}
	return nil
}
