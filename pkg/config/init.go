package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

const configHeader = `dandidav Configuration File

Every key can be overridden with an environment variable named
DANDIDAV_<SECTION>_<KEY>, e.g. DANDIDAV_LOGGING_LEVEL=DEBUG.`

// sections lists the top-level keys in output order with their comments.
var sections = []struct {
	key     string
	comment string
}{
	{"logging", "Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json, logfmt),\noutput (stdout, stderr or a file path)"},
	{"server", "Server-wide settings and the Prometheus metrics endpoint"},
	{"webdav", "WebDAV listener. rate_limit.requests_per_second 0 disables throttling;\nan empty cors_origins list disables CORS headers"},
	{"dandi", "The archive's metadata API"},
	{"s3", "S3 bucket holding Zarr assets. The public archive bucket allows\nanonymous listing; presign requires credentials"},
}

// InitConfig writes a default configuration file to the default location.
//
// Returns the path written. Fails if the file exists and force is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	data, err := GenerateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateYAMLWithComments renders cfg as a commented YAML document whose
// keys match the mapstructure names Load reads.
func GenerateYAMLWithComments(cfg *Config) ([]byte, error) {
	var values map[string]any
	if err := mapstructure.Decode(cfg, &values); err != nil {
		return nil, fmt.Errorf("failed to convert config: %w", err)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for i, s := range sections {
		value := &yaml.Node{}
		if err := value.Encode(values[s.key]); err != nil {
			return nil, fmt.Errorf("failed to encode %s section: %w", s.key, err)
		}
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: s.key, HeadComment: s.comment}
		if i == 0 {
			key.HeadComment = configHeader + "\n\n" + s.comment
		}
		root.Content = append(root.Content, key, value)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}
