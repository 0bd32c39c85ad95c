package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/systmms/devops/internal/credstore"
	opserrors "github.com/systmms/devops/internal/errors"
)

const (
	// DefaultDirName is the per-user directory holding the config file.
	DefaultDirName = ".devops-framework"
	// DefaultFileName is the config file name inside DefaultDirName.
	DefaultFileName = "config.yaml"
)

// DefaultPath returns ~/.devops-framework/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DefaultDirName, DefaultFileName)
	}
	return filepath.Join(home, DefaultDirName, DefaultFileName)
}

// Definition is the typed view of config.yaml. A nil section or field means
// the key is absent from the file.
type Definition struct {
	AWS     *AWSSettings     `yaml:"aws,omitempty"`
	EKS     *EKSSettings     `yaml:"eks,omitempty"`
	Datadog *DatadogSettings `yaml:"datadog,omitempty"`
}

// AWSSettings holds the aws: section.
type AWSSettings struct {
	Region  *string `yaml:"region,omitempty"`
	Profile *string `yaml:"profile,omitempty"`
	RoleARN *string `yaml:"role_arn,omitempty"`
}

// EKSSettings holds the eks: section.
type EKSSettings struct {
	Kubeconfig *string `yaml:"kubeconfig,omitempty"`
	Context    *string `yaml:"context,omitempty"`
	Namespace  *string `yaml:"namespace,omitempty"`
}

// DatadogSettings holds the datadog: section.
type DatadogSettings struct {
	APIKey *string `yaml:"api_key,omitempty"`
	AppKey *string `yaml:"app_key,omitempty"`
	Site   *string `yaml:"site,omitempty"`
}

// Config resolves settings from the environment, the YAML file and built-in
// defaults, in that order. Every accessor re-reads the environment, so values
// are never cached between calls. A Config is not modified after Load.
type Config struct {
	path   string
	exists bool
	raw    map[string]any
	def    Definition
	store  credstore.Store
}

// Option configures a Config at load time.
type Option func(*Config)

// WithCredentialStore enables the OS credential store as a last fallback for
// secret settings (Datadog keys), consulted after env and file.
func WithCredentialStore(store credstore.Store) Option {
	return func(c *Config) {
		c.store = store
	}
}

// Load reads the YAML file at path, or DefaultPath when path is empty. A
// missing file is not an error; a file that cannot be parsed is.
func Load(path string, opts ...Option) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	c := &Config{path: path}
	for _, opt := range opts {
		opt(c)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, opserrors.NewConfigErrorf("Failed to read config file %s: %v", path, err).WithCause(err)
	}
	c.exists = true

	if err := c.parse(data); err != nil {
		return nil, opserrors.NewConfigErrorf("Failed to parse config file %s: %v", path, err).WithCause(err)
	}
	return c, nil
}

// Empty returns a Config backed only by the environment and defaults.
func Empty(opts ...Option) *Config {
	c := &Config{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Config) parse(data []byte) error {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		// Only a top-level mapping carries settings.
		return nil
	}

	if err := root.Decode(&c.raw); err != nil {
		return err
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]
		switch key {
		case "aws":
			s := &AWSSettings{}
			if decodeSection(value, map[string]**string{
				"region":   &s.Region,
				"profile":  &s.Profile,
				"role_arn": &s.RoleARN,
			}) {
				c.def.AWS = s
			}
		case "eks":
			s := &EKSSettings{}
			if decodeSection(value, map[string]**string{
				"kubeconfig": &s.Kubeconfig,
				"context":    &s.Context,
				"namespace":  &s.Namespace,
			}) {
				c.def.EKS = s
			}
		case "datadog":
			s := &DatadogSettings{}
			if decodeSection(value, map[string]**string{
				"api_key": &s.APIKey,
				"app_key": &s.AppKey,
				"site":    &s.Site,
			}) {
				c.def.Datadog = s
			}
		}
	}
	return nil
}

// decodeSection fills fields from the scalar children of a mapping node.
// Non-scalar and null values are left absent. It reports false when node is
// not a mapping.
func decodeSection(node *yaml.Node, fields map[string]**string) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		field, ok := fields[key]
		if !ok || value.Kind != yaml.ScalarNode || value.ShortTag() == "!!null" {
			continue
		}
		v := value.Value
		*field = &v
	}
	return true
}

// Path returns the config file path this Config was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Exists reports whether the config file was present at load time.
func (c *Config) Exists() bool {
	return c.exists
}

// Definition returns the typed file contents.
func (c *Config) Definition() Definition {
	return c.def
}

// AWSRegion resolves aws_region (default us-east-1).
func (c *Config) AWSRegion() string { return c.value("aws_region") }

// AWSProfile resolves aws_profile; empty when unset.
func (c *Config) AWSProfile() string { return c.value("aws_profile") }

// AWSRoleARN resolves aws_role_arn; empty when unset.
func (c *Config) AWSRoleARN() string { return c.value("aws_role_arn") }

// EKSKubeconfig resolves eks_kubeconfig; empty when unset.
func (c *Config) EKSKubeconfig() string { return c.value("eks_kubeconfig") }

// EKSContext resolves eks_context; empty when unset.
func (c *Config) EKSContext() string { return c.value("eks_context") }

// EKSNamespace resolves eks_namespace (default "default").
func (c *Config) EKSNamespace() string { return c.value("eks_namespace") }

// DatadogAPIKey resolves datadog_api_key; empty when unset.
func (c *Config) DatadogAPIKey() string { return c.value("datadog_api_key") }

// DatadogAppKey resolves datadog_app_key; empty when unset.
func (c *Config) DatadogAppKey() string { return c.value("datadog_app_key") }

// DatadogSite resolves datadog_site (default datadoghq.com).
func (c *Config) DatadogSite() string { return c.value("datadog_site") }

func (c *Config) value(name string) string {
	v, _ := c.Lookup(name)
	return v
}

// Lookup resolves a setting by name. ok is false when the setting is
// unknown or resolves to nothing.
func (c *Config) Lookup(name string) (value string, ok bool) {
	s, found := settingByName(name)
	if !found {
		return "", false
	}
	r := c.resolve(s)
	return r.Value, r.Value != ""
}

// Require checks that every named setting resolves to a non-empty value and
// returns a configuration error naming the first one that does not.
func (c *Config) Require(names ...string) error {
	for _, name := range names {
		s, found := settingByName(name)
		if !found {
			return opserrors.NewConfigErrorf("Unknown configuration setting '%s'", name)
		}
		if c.resolve(s).Value == "" {
			return opserrors.NewConfigErrorf(
				"Required configuration '%s' is not set. Set the %s environment variable or add %s to your config.yaml.",
				name, strings.Join(s.EnvVars, " or "), strings.Join(s.Path, "."),
			)
		}
	}
	return nil
}

// Resolved is a setting together with its current value and origin.
type Resolved struct {
	Setting
	Value  string
	Source Source
}

// Settings resolves every known setting, in table order.
func (c *Config) Settings() []Resolved {
	out := make([]Resolved, 0, len(settings))
	for _, s := range settings {
		out = append(out, c.resolve(s))
	}
	return out
}

func (c *Config) resolve(s Setting) Resolved {
	for _, env := range s.EnvVars {
		if v := os.Getenv(env); v != "" {
			return Resolved{Setting: s, Value: v, Source: Source("env:" + env)}
		}
	}
	if p := s.field(&c.def); p != nil && *p != "" {
		return Resolved{Setting: s, Value: *p, Source: SourceFile}
	}
	if s.Secret && c.store != nil {
		if v, err := c.store.Get(s.Name); err == nil && v != "" {
			return Resolved{Setting: s, Value: v, Source: SourceKeyring}
		}
	}
	if s.Default != "" {
		return Resolved{Setting: s, Value: s.Default, Source: SourceDefault}
	}
	return Resolved{Setting: s}
}

// String renders the resolved value for display, hiding secrets.
func (r Resolved) String() string {
	if r.Value == "" {
		return ""
	}
	if r.Secret {
		return fmt.Sprintf("[REDACTED] (%d chars)", len(r.Value))
	}
	return r.Value
}
