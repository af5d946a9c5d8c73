package portfolio

import (
	"fmt"
	"slices"
	"strings"
)

// Singular returns the name used in swap request bodies, e.g. "skills" -> "skill".
func Singular(resource string) string {
	switch resource {
	case ResourceEducation:
		return "education"
	case ResourceHobbies:
		return "hobby"
	case ResourceExperiences:
		return "experience"
	}
	return strings.TrimSuffix(resource, "s")
}

// SwapKeys returns the two body keys accepted by the swap-order endpoint.
func SwapKeys(resource string) (string, string) {
	s := Singular(resource)
	return s + "Id1", s + "Id2"
}

func IsOrderedResource(resource string) bool {
	return slices.Contains(OrderedResources, resource)
}

// ParseSwapRequest extracts the pair of ids from a swap-order body.
func ParseSwapRequest(resource string, body map[string]any) (SwapRequest, error) {
	k1, k2 := SwapKeys(resource)
	first, ok := body[k1].(string)
	if !ok || first == "" {
		return SwapRequest{}, fmt.Errorf("%s is required", k1)
	}
	second, ok := body[k2].(string)
	if !ok || second == "" {
		return SwapRequest{}, fmt.Errorf("%s is required", k2)
	}
	return SwapRequest{First: first, Second: second}, nil
}
