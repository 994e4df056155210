package modules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ManifestFile is the file name of an installed package manifest.
const ManifestFile = "manifest.yaml"

// packagesDir is the directory under the cache root holding installed packages.
const packagesDir = "node_modules"

// Manifest describes a package installed into the writable cache.
type Manifest struct {
	// Name is the client package name.
	Name string `yaml:"name" validate:"required,startswith=@"`

	// Version is the installed package version.
	Version string `yaml:"version" validate:"required"`

	// Binding is the compiled-in implementation backing the package.
	// Defaults to Name.
	Binding string `yaml:"binding,omitempty"`

	// Description is free-form text shown by the packages command.
	Description string `yaml:"description,omitempty"`

	// Path is the file path where the manifest was loaded from.
	Path string `yaml:"-"`
}

// BindingName returns the compiled-in binding that backs the manifest.
func (m *Manifest) BindingName() string {
	if m.Binding != "" {
		return m.Binding
	}
	return m.Name
}

// ManifestLoader loads and validates installed package manifests.
type ManifestLoader struct {
	// BaseDir is the cache root directory.
	BaseDir string

	validate *validator.Validate
}

// NewManifestLoader creates a new manifest loader rooted at the cache directory.
func NewManifestLoader(baseDir string) *ManifestLoader {
	return &ManifestLoader{
		BaseDir:  baseDir,
		validate: validator.New(),
	}
}

// PackageDir returns the directory an installed package lives in.
func (m *ManifestLoader) PackageDir(packageName string) (string, error) {
	return PackageDir(m.BaseDir, packageName)
}

// PackageDir returns <baseDir>/node_modules/<packageName>, rejecting names
// that would escape the packages directory.
func PackageDir(baseDir, packageName string) (string, error) {
	if packageName == "" || strings.Contains(packageName, "..") || filepath.IsAbs(packageName) {
		return "", fmt.Errorf("invalid package name: %q", packageName)
	}
	return filepath.Join(baseDir, packagesDir, filepath.FromSlash(packageName)), nil
}

// LoadPackage loads the manifest of an installed package.
func (m *ManifestLoader) LoadPackage(packageName string) (*Manifest, error) {
	dir, err := m.PackageDir(packageName)
	if err != nil {
		return nil, err
	}

	manifest, err := m.LoadFromFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	if manifest.Name != packageName {
		return nil, fmt.Errorf("manifest name mismatch: expected %s, got %s", packageName, manifest.Name)
	}
	return manifest, nil
}

// LoadFromFile loads a manifest from a YAML file.
func (m *ManifestLoader) LoadFromFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	manifest, err := m.LoadFromBytes(data)
	if err != nil {
		return nil, err
	}
	manifest.Path = path
	return manifest, nil
}

// LoadFromBytes parses and validates a manifest.
func (m *ManifestLoader) LoadFromBytes(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}

	if err := m.validate.Struct(&manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return &manifest, nil
}

// ScanDirectory returns the manifests of every package installed under the
// cache root. Unreadable manifests are skipped.
func (m *ManifestLoader) ScanDirectory() ([]*Manifest, error) {
	root := filepath.Join(m.BaseDir, packagesDir)
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	var manifests []*Manifest
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != ManifestFile {
			return nil
		}
		manifest, err := m.LoadFromFile(path)
		if err != nil {
			return nil
		}
		manifests = append(manifests, manifest)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan package directory: %w", err)
	}

	return manifests, nil
}

// VerifyChecksum verifies data against a hex encoded sha256 checksum.
func VerifyChecksum(data []byte, checksum string) error {
	hash := sha256.Sum256(data)
	computed := hex.EncodeToString(hash[:])

	if !strings.EqualFold(computed, checksum) {
		return fmt.Errorf("manifest checksum mismatch: expected %s, got %s", checksum, computed)
	}
	return nil
}
