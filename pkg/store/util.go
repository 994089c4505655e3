package store

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MakeKey creates a standardized key for a resource.
func MakeKey(resourceType ResourceType, namespace, name string) []byte {
	return []byte(fmt.Sprintf("%s/%s/%s", resourceType, namespace, name))
}

// MakePrefix creates a prefix for listing resources by type and namespace.
func MakePrefix(resourceType ResourceType, namespace string) []byte {
	if namespace == AllNamespaces || namespace == "" {
		return []byte(fmt.Sprintf("%s/", resourceType))
	}
	return []byte(fmt.Sprintf("%s/%s/", resourceType, namespace))
}

// ParseKey parses a key into its components.
func ParseKey(key []byte) (resourceType, namespace, name string, ok bool) {
	parts := strings.SplitN(string(key), "/", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// UnmarshalResource converts source into target by a JSON round trip.
func UnmarshalResource(source interface{}, target interface{}) error {
	jsonData, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("failed to marshal resource: %w", err)
	}
	if err := json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("failed to unmarshal resource: %w", err)
	}
	return nil
}

func notFound(resourceType ResourceType, namespace, name string) error {
	return fmt.Errorf("%w: %s/%s/%s", ErrNotFound, resourceType, namespace, name)
}

func alreadyExists(resourceType ResourceType, namespace, name string) error {
	return fmt.Errorf("%w: %s/%s/%s", ErrAlreadyExists, resourceType, namespace, name)
}

// unmarshalList decodes raw JSON values into the slice pointed to by target.
func unmarshalList(values []json.RawMessage, target interface{}) error {
	if values == nil {
		values = []json.RawMessage{}
	}
	return UnmarshalResource(values, target)
}
