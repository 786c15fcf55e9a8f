// Package kube wraps kubectl for namespace, deployment, and config lookups.
package kube

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/numberone-ai/machina-tools/internal/cmd"
)

// ErrKubectlNotFound indicates kubectl is not installed or not in PATH.
var ErrKubectlNotFound = fmt.Errorf("kubectl not found: please install kubectl (https://kubernetes.io/docs/tasks/tools/)")

// ErrNotFound indicates a Kubernetes resource does not exist.
var ErrNotFound = errors.New("resource not found")

// CheckKubectl verifies that kubectl is available.
func CheckKubectl() error {
	if !cmd.Available("kubectl") {
		return ErrKubectlNotFound
	}
	return nil
}

// Available reports whether kubectl is usable.
func Available() bool {
	return cmd.Available("kubectl")
}

func kubectlJSON(ctx context.Context, namespace string, out any, args ...string) error {
	full := []string{}
	if namespace != "" {
		full = append(full, "-n", namespace)
	}
	full = append(full, args...)
	full = append(full, "-o", "json")

	raw, err := cmd.OutputContext(ctx, "", "kubectl", full...)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return fmt.Errorf("%w: %s", ErrNotFound, err)
		}
		return fmt.Errorf("kubectl failed: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse kubectl output: %w", err)
	}
	return nil
}

// NamespaceAnnotations fetches a namespace's annotations.
// Returns nil without error when kubectl is unavailable or the lookup fails,
// matching the best-effort contract of the preview resolver.
func NamespaceAnnotations(ctx context.Context, namespace string) map[string]string {
	if !Available() {
		return nil
	}

	var ns struct {
		Metadata struct {
			Annotations map[string]string `json:"annotations"`
		} `json:"metadata"`
	}
	if err := kubectlJSON(ctx, "", &ns, "get", "namespace", namespace); err != nil {
		return nil
	}
	return ns.Metadata.Annotations
}

// Container is the subset of a pod container spec we consume.
type Container struct {
	Name    string        `json:"name"`
	Env     []EnvVarSpec  `json:"env"`
	EnvFrom []EnvFromSpec `json:"envFrom"`
}

// EnvVarSpec is a container env entry.
type EnvVarSpec struct {
	Name      string         `json:"name"`
	Value     *string        `json:"value"`
	ValueFrom *ValueFromSpec `json:"valueFrom"`
}

// ValueFromSpec is the indirect source of an env entry.
type ValueFromSpec struct {
	ConfigMapKeyRef  *KeyRef               `json:"configMapKeyRef"`
	SecretKeyRef     *KeyRef               `json:"secretKeyRef"`
	FieldRef         *FieldRefSpec         `json:"fieldRef"`
	ResourceFieldRef *ResourceFieldRefSpec `json:"resourceFieldRef"`
}

// FieldRefSpec references a pod field.
type FieldRefSpec struct {
	FieldPath string `json:"fieldPath"`
}

// ResourceFieldRefSpec references a container resource limit or request.
type ResourceFieldRefSpec struct {
	Resource string `json:"resource"`
}

// KeyRef references a single key of a ConfigMap or Secret.
type KeyRef struct {
	Name     string `json:"name"`
	Key      string `json:"key"`
	Optional bool   `json:"optional"`
}

// RefName references a whole ConfigMap or Secret.
type RefName struct {
	Name     string `json:"name"`
	Optional bool   `json:"optional"`
}

// EnvFromSpec is a container envFrom entry.
type EnvFromSpec struct {
	Prefix       string   `json:"prefix"`
	ConfigMapRef *RefName `json:"configMapRef"`
	SecretRef    *RefName `json:"secretRef"`
}

// GetDeploymentContainers fetches a deployment and returns its pod containers.
func GetDeploymentContainers(ctx context.Context, namespace, deployment string) ([]Container, error) {
	var deploy struct {
		Spec struct {
			Template struct {
				Spec struct {
					Containers []Container `json:"containers"`
				} `json:"spec"`
			} `json:"template"`
		} `json:"spec"`
	}
	if err := kubectlJSON(ctx, namespace, &deploy, "get", "deployment", deployment); err != nil {
		return nil, err
	}

	containers := deploy.Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return nil, fmt.Errorf("no containers found in deployment %s", deployment)
	}
	return containers, nil
}

// GetConfigMapData fetches a ConfigMap's data. Returns nil, nil when missing.
func GetConfigMapData(ctx context.Context, namespace, name string) (map[string]string, error) {
	var cm struct {
		Data map[string]string `json:"data"`
	}
	if err := kubectlJSON(ctx, namespace, &cm, "get", "configmap", name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if cm.Data == nil {
		cm.Data = map[string]string{}
	}
	return cm.Data, nil
}

// GetSecretData fetches a Secret's data with base64 values decoded.
// Values that fail to decode are kept verbatim. Returns nil, nil when missing.
func GetSecretData(ctx context.Context, namespace, name string) (map[string]string, error) {
	var secret struct {
		Data map[string]string `json:"data"`
	}
	if err := kubectlJSON(ctx, namespace, &secret, "get", "secret", name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	decoded := make(map[string]string, len(secret.Data))
	for k, v := range secret.Data {
		if raw, err := base64.StdEncoding.DecodeString(v); err == nil {
			decoded[k] = string(raw)
		} else {
			decoded[k] = v
		}
	}
	return decoded, nil
}

// PortForward runs kubectl port-forward for a service until the process exits
// or the context is cancelled.
func PortForward(ctx context.Context, namespace, service, portMapping string) error {
	return cmd.RunContext(ctx, "", "kubectl", "-n", namespace,
		"port-forward", "service/"+service, portMapping)
}
