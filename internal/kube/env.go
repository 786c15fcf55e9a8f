package kube

import (
	"context"
	"fmt"
	"strings"
)

// EnvVar is a resolved environment variable with its provenance.
type EnvVar struct {
	Name       string  `json:"name"`
	Value      *string `json:"value"`
	Source     string  `json:"source"` // direct, configmap, secret, fieldref, resourcefieldref, unknown
	SourceName string  `json:"source_name,omitempty"`
	SourceKey  string  `json:"source_key,omitempty"`
	Err        string  `json:"error,omitempty"`
}

// ImportResult is the outcome of extracting a deployment's environment.
type ImportResult struct {
	Namespace  string            `json:"namespace"`
	Deployment string            `json:"deployment"`
	Container  string            `json:"container"`
	Vars       map[string]EnvVar `json:"variables"`
	Warnings   []string          `json:"warnings"`
	Errors     []string          `json:"errors"`
}

// refCache memoizes ConfigMap/Secret fetches within one import so each
// resource is pulled at most once.
type refCache struct {
	ctx       context.Context
	namespace string
	cms       map[string]map[string]string
	secrets   map[string]map[string]string
}

func (c *refCache) configMap(name string) map[string]string {
	if data, ok := c.cms[name]; ok {
		return data
	}
	data, _ := GetConfigMapData(c.ctx, c.namespace, name)
	c.cms[name] = data
	return data
}

func (c *refCache) secret(name string) map[string]string {
	if data, ok := c.secrets[name]; ok {
		return data
	}
	data, _ := GetSecretData(c.ctx, c.namespace, name)
	c.secrets[name] = data
	return data
}

// ImportEnvironment extracts a container's environment variables from a
// deployment, resolving ConfigMap and Secret references. When containerName
// is empty the first container is used (with a warning if there are several).
func ImportEnvironment(ctx context.Context, namespace, deployment, containerName string) (*ImportResult, error) {
	result := &ImportResult{
		Namespace:  namespace,
		Deployment: deployment,
		Vars:       map[string]EnvVar{},
	}

	containers, err := GetDeploymentContainers(ctx, namespace, deployment)
	if err != nil {
		return nil, err
	}

	container, err := selectContainer(containers, containerName)
	if err != nil {
		return nil, err
	}
	if containerName == "" && len(containers) > 1 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Multiple containers found, using first: %q", container.Name))
	}
	result.Container = container.Name

	cache := &refCache{ctx: ctx, namespace: namespace,
		cms: map[string]map[string]string{}, secrets: map[string]map[string]string{}}

	// envFrom first: individual env entries override it.
	for _, ef := range container.EnvFrom {
		resolveEnvFrom(ef, cache, result)
	}
	for _, spec := range container.Env {
		v := resolveEnvVar(spec, cache)
		result.Vars[v.Name] = v
		if v.Err != "" {
			if strings.Contains(strings.ToLower(v.Err), "optional") {
				result.Warnings = append(result.Warnings, v.Name+": "+v.Err)
			} else {
				result.Errors = append(result.Errors, v.Name+": "+v.Err)
			}
		}
	}

	return result, nil
}

func selectContainer(containers []Container, name string) (Container, error) {
	if len(containers) == 0 {
		return Container{}, fmt.Errorf("deployment has no containers")
	}
	if name == "" {
		return containers[0], nil
	}
	for _, c := range containers {
		if c.Name == name {
			return c, nil
		}
	}
	var available []string
	for _, c := range containers {
		available = append(available, c.Name)
	}
	return Container{}, fmt.Errorf("container %q not found, available: %s", name, strings.Join(available, ", "))
}

func resolveEnvFrom(ef EnvFromSpec, cache *refCache, result *ImportResult) {
	if ref := ef.ConfigMapRef; ref != nil {
		data := cache.configMap(ref.Name)
		if data == nil {
			if !ref.Optional {
				result.Errors = append(result.Errors, fmt.Sprintf("ConfigMap %q not found (envFrom)", ref.Name))
			}
		} else {
			for k, v := range data {
				val := v
				name := ef.Prefix + k
				result.Vars[name] = EnvVar{Name: name, Value: &val, Source: "configmap", SourceName: ref.Name, SourceKey: k}
			}
		}
	}
	if ref := ef.SecretRef; ref != nil {
		data := cache.secret(ref.Name)
		if data == nil {
			if !ref.Optional {
				result.Errors = append(result.Errors, fmt.Sprintf("Secret %q not found (envFrom)", ref.Name))
			}
		} else {
			for k, v := range data {
				val := v
				name := ef.Prefix + k
				result.Vars[name] = EnvVar{Name: name, Value: &val, Source: "secret", SourceName: ref.Name, SourceKey: k}
			}
		}
	}
}

func resolveEnvVar(spec EnvVarSpec, cache *refCache) EnvVar {
	if spec.Value != nil {
		return EnvVar{Name: spec.Name, Value: spec.Value, Source: "direct"}
	}

	vf := spec.ValueFrom
	if vf == nil {
		return EnvVar{Name: spec.Name, Source: "unknown", Err: "no value or valueFrom"}
	}

	switch {
	case vf.ConfigMapKeyRef != nil:
		return resolveKeyRef(spec.Name, "configmap", *vf.ConfigMapKeyRef, cache.configMap, "ConfigMap")
	case vf.SecretKeyRef != nil:
		return resolveKeyRef(spec.Name, "secret", *vf.SecretKeyRef, cache.secret, "Secret")
	case vf.FieldRef != nil:
		return EnvVar{Name: spec.Name, Source: "fieldref", SourceName: vf.FieldRef.FieldPath,
			Err: fmt.Sprintf("FieldRef %q cannot be resolved locally", vf.FieldRef.FieldPath)}
	case vf.ResourceFieldRef != nil:
		return EnvVar{Name: spec.Name, Source: "resourcefieldref", SourceName: vf.ResourceFieldRef.Resource,
			Err: fmt.Sprintf("ResourceFieldRef %q cannot be resolved locally", vf.ResourceFieldRef.Resource)}
	default:
		return EnvVar{Name: spec.Name, Source: "unknown", Err: "unknown valueFrom type"}
	}
}

func resolveKeyRef(name, source string, ref KeyRef, fetch func(string) map[string]string, kind string) EnvVar {
	v := EnvVar{Name: name, Source: source, SourceName: ref.Name, SourceKey: ref.Key}

	data := fetch(ref.Name)
	if data == nil {
		v.Err = fmt.Sprintf("%s %q not found", kind, ref.Name)
		if ref.Optional {
			v.Err += " (optional)"
		}
		return v
	}
	val, ok := data[ref.Key]
	if !ok {
		v.Err = fmt.Sprintf("key %q not found in %s %q", ref.Key, kind, ref.Name)
		if ref.Optional {
			v.Err += " (optional)"
		}
		return v
	}
	v.Value = &val
	return v
}
