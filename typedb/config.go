package typedb

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServiceConfig describes the transcoding surface of one backend service:
// where its descriptors come from and how HTTP routes map onto gRPC
// methods.
type ServiceConfig struct {
	// DescriptorSets lists descriptor-set files to load, relative to the
	// config file's directory unless absolute.
	DescriptorSets []string `yaml:"descriptor_sets"`

	// ProtoFiles lists raw .proto files to compile in-process.
	ProtoFiles []string `yaml:"proto_files"`

	// Methods maps HTTP routes to gRPC methods.
	Methods []MethodConfig `yaml:"methods"`
}

// MethodConfig binds one HTTP route to a gRPC method.
type MethodConfig struct {
	// HTTPMethod is the HTTP verb, e.g. "POST".
	HTTPMethod string `yaml:"http_method"`

	// Path is the route pattern; path parameters become variable bindings,
	// e.g. "/v1/shelves/{shelf}/books".
	Path string `yaml:"path"`

	// GRPCMethod is the full method name, e.g. "example.Library/CreateBook".
	GRPCMethod string `yaml:"grpc_method"`

	// RequestType and ResponseType are fully qualified message names.
	RequestType  string `yaml:"request_type"`
	ResponseType string `yaml:"response_type"`

	// Body is the body field path: "*" for the whole message, "" for no
	// body, or a dotted path to graft the body under.
	Body string `yaml:"body"`

	// ClientStreaming and ServerStreaming mark the gRPC method's shape.
	ClientStreaming bool `yaml:"client_streaming"`
	ServerStreaming bool `yaml:"server_streaming"`

	// RejectCollisions reports bindings that conflict with body values
	// instead of silently preferring the body.
	RejectCollisions bool `yaml:"reject_collisions"`
}

// LoadServiceConfig reads and validates a YAML service configuration.
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service config %s: %w", path, err)
	}
	cfg := &ServiceConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse service config %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i, ds := range cfg.DescriptorSets {
		if !filepath.IsAbs(ds) {
			cfg.DescriptorSets[i] = filepath.Join(base, ds)
		}
	}
	for i, pf := range cfg.ProtoFiles {
		if !filepath.IsAbs(pf) {
			cfg.ProtoFiles[i] = filepath.Join(base, pf)
		}
	}
	for _, m := range cfg.Methods {
		if m.HTTPMethod == "" || m.Path == "" || m.GRPCMethod == "" || m.RequestType == "" {
			return nil, fmt.Errorf("service config %s: method entries need http_method, path, grpc_method, and request_type", path)
		}
	}
	return cfg, nil
}

// BuildDB assembles the descriptor database named by the config.
func (c *ServiceConfig) BuildDB() (*DB, error) {
	b := NewBuilder()
	for _, ds := range c.DescriptorSets {
		if err := b.AddDescriptorSetFile(ds); err != nil {
			return nil, err
		}
	}
	if len(c.ProtoFiles) > 0 {
		sources := make(map[string]string, len(c.ProtoFiles))
		for _, pf := range c.ProtoFiles {
			data, err := os.ReadFile(pf)
			if err != nil {
				return nil, fmt.Errorf("failed to read proto file %s: %w", pf, err)
			}
			sources[filepath.Base(pf)] = string(data)
		}
		if err := b.AddProtoSources(sources); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
