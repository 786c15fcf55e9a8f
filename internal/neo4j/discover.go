package neo4j

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// composeFile models the slice of a docker compose file we care about:
// the neo4j service's environment and port mappings. Compose allows both
// list ("KEY=value") and map forms for environment, so the field decodes
// into yaml.Node and is normalized afterwards.
type composeFile struct {
	Services map[string]composeService `yaml:"services"`
}

type composeService struct {
	Environment yaml.Node `yaml:"environment"`
	Ports       []string  `yaml:"ports"`
}

// DiscoverConn reads Neo4j connection settings from the workspace compose
// file. Auth comes from the service's NEO4J_AUTH variable, the HTTP port
// from whichever port mapping publishes container port 7474.
func DiscoverConn(composePath, database string) (ConnConfig, error) {
	data, err := os.ReadFile(composePath)
	if err != nil {
		return ConnConfig{}, fmt.Errorf("reading %s: %w", filepath.Base(composePath), err)
	}

	var compose composeFile
	if err := yaml.Unmarshal(data, &compose); err != nil {
		return ConnConfig{}, fmt.Errorf("parsing %s: %w", filepath.Base(composePath), err)
	}

	service, ok := compose.Services["neo4j"]
	if !ok {
		return ConnConfig{}, fmt.Errorf("no neo4j service in %s", filepath.Base(composePath))
	}

	env := decodeEnvironment(service.Environment)

	username, password := parseAuth(env["NEO4J_AUTH"])

	httpPort := 7474
	for _, mapping := range service.Ports {
		host, container, ok := splitPortMapping(mapping)
		if ok && container == "7474" {
			if p, err := strconv.Atoi(host); err == nil {
				httpPort = p
			}
			break
		}
	}

	return ConnConfig{
		Host:     "localhost",
		HTTPPort: httpPort,
		Username: username,
		Password: password,
		Database: database,
	}, nil
}

// decodeEnvironment handles both compose environment forms.
func decodeEnvironment(node yaml.Node) map[string]string {
	env := map[string]string{}

	var asMap map[string]string
	if err := node.Decode(&asMap); err == nil {
		return asMap
	}

	var asList []string
	if err := node.Decode(&asList); err == nil {
		for _, item := range asList {
			if key, value, found := strings.Cut(item, "="); found {
				env[key] = value
			}
		}
	}
	return env
}

// parseAuth splits a NEO4J_AUTH value ("username/password"). A value
// without a slash is treated as the password for the default user, and
// an empty value falls back to neo4j/neo4j.
func parseAuth(auth string) (username, password string) {
	if auth == "" {
		return "neo4j", "neo4j"
	}
	if user, pass, found := strings.Cut(auth, "/"); found {
		return user, pass
	}
	return "neo4j", auth
}

// splitPortMapping splits "host:container" (optionally with a bind
// address prefix) into its host and container ports.
func splitPortMapping(mapping string) (host, container string, ok bool) {
	parts := strings.Split(mapping, ":")
	if len(parts) < 2 {
		return "", "", false
	}
	container = strings.TrimSuffix(parts[len(parts)-1], "/tcp")
	host = parts[len(parts)-2]
	return host, container, true
}
