package modules

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/openfroyo/sdkbridge/pkg/engine"
)

// ClientConfig is the configuration a client export is constructed with.
// Any field may be empty.
type ClientConfig struct {
	// APIVersion is echoed back by the client for diagnostics.
	APIVersion string

	// Region is the region to configure; empty means resolve from the environment.
	Region string

	// Credentials overrides the ambient credential chain when non-nil.
	Credentials aws.CredentialsProvider
}

// Client is an instantiated service client.
type Client interface {
	// Send executes the command and returns the response as a generic tree
	// of map[string]interface{}, []interface{} and scalar values.
	Send(ctx context.Context, cmd Command) (interface{}, error)

	// APIVersion returns the configured API version, or "".
	APIVersion() string

	// Region returns the resolved region, or an error when none could be resolved.
	Region(ctx context.Context) (string, error)
}

// Command is a constructed operation ready to be sent by a Client.
type Command interface {
	// Name is the command export name, e.g. "ListBucketsCommand".
	Name() string

	// Input is the typed input the command was built with.
	Input() interface{}
}

// ClientConstructor builds a Client.
type ClientConstructor func(ctx context.Context, cfg ClientConfig) (Client, error)

// CommandConstructor builds a Command from a parameter map. The map is never nil.
type CommandConstructor func(input map[string]interface{}) (Command, error)

// Export is one named member of a client module. Exactly one constructor is set.
type Export struct {
	Name       string
	NewClient  ClientConstructor
	NewCommand CommandConstructor
}

// IsClient reports whether the export constructs clients.
func (e Export) IsClient() bool {
	return e.NewClient != nil
}

// IsCommand reports whether the export constructs commands.
func (e Export) IsCommand() bool {
	return e.NewCommand != nil
}

// Module is a loaded client module: a package's exports in a stable order.
type Module struct {
	// Package is the client package name.
	Package string

	// Version is the module version ("bundled" for compiled-in modules).
	Version string

	// Source records which resolution strategy produced the module.
	Source engine.ModuleSource

	exports []Export
	byFold  map[string]int
}

// NewModule creates a module from an ordered export list. When two exports
// share a case-insensitive name, the first one wins for folded lookups.
func NewModule(packageName, version string, source engine.ModuleSource, exports []Export) *Module {
	m := &Module{
		Package: packageName,
		Version: version,
		Source:  source,
		exports: append([]Export(nil), exports...),
		byFold:  make(map[string]int, len(exports)),
	}
	for i, e := range m.exports {
		folded := strings.ToLower(e.Name)
		if _, exists := m.byFold[folded]; !exists {
			m.byFold[folded] = i
		}
	}
	return m
}

// Stamp returns a copy of the module with a different version and source,
// sharing the export table.
func (m *Module) Stamp(version string, source engine.ModuleSource) *Module {
	return &Module{
		Package: m.Package,
		Version: version,
		Source:  source,
		exports: m.exports,
		byFold:  m.byFold,
	}
}

// Exports returns the module's exports in order.
func (m *Module) Exports() []Export {
	return append([]Export(nil), m.exports...)
}

// LookupFold finds an export by case-insensitive name.
func (m *Module) LookupFold(name string) (Export, bool) {
	i, ok := m.byFold[strings.ToLower(name)]
	if !ok {
		return Export{}, false
	}
	return m.exports[i], true
}
