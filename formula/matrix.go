package formula

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
)

// Matrix describes the binary configurations of a recipe. Require holds
// the settings axes, Options the option axes. A Matrix whose axes all have
// a single value identifies exactly one binary package. DefaultOptions
// records the default of each option and is not part of the combinations.
type Matrix struct {
	Require        map[string][]string
	Options        map[string][]string
	DefaultOptions map[string][]string
}

// MatrixOf returns the single-configuration Matrix of resolved settings and
// options. Values are encoded as "key=value" so that the combination string
// is unambiguous.
func MatrixOf(settings, options map[string]string) Matrix {
	single := func(kv map[string]string) map[string][]string {
		if len(kv) == 0 {
			return nil
		}
		out := make(map[string][]string, len(kv))
		for k, v := range kv {
			out[k] = []string{k + "=" + v}
		}
		return out
	}
	return Matrix{Require: single(settings), Options: single(options)}
}

// cartesian computes the cartesian product of kvs. Keys are sorted
// alphabetically and values of successive keys are joined with "-".
func cartesian(kvs map[string][]string) []string {
	if len(kvs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(kvs))
	for k := range kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := make([]string, len(kvs[keys[0]]))
	copy(result, kvs[keys[0]])

	for _, key := range keys[1:] {
		values := kvs[key]
		next := make([]string, 0, len(result)*len(values))
		for _, prev := range result {
			for _, v := range values {
				next = append(next, prev+"-"+v)
			}
		}
		result = next
	}
	return result
}

// Combinations returns all cartesian product combinations of the matrix.
// Require fields are joined with "-", then combined with options using "|".
func (m *Matrix) Combinations() []string {
	requireCombos := cartesian(m.Require)
	optionsCombos := cartesian(m.Options)

	if len(requireCombos) == 0 {
		return optionsCombos
	}
	if len(optionsCombos) == 0 {
		return requireCombos
	}

	result := make([]string, 0, len(requireCombos)*len(optionsCombos))
	for _, req := range requireCombos {
		for _, opt := range optionsCombos {
			result = append(result, req+"|"+opt)
		}
	}
	return result
}

// CombinationCount returns the total number of cartesian product combinations.
func (m *Matrix) CombinationCount() int {
	countPart := func(kvs map[string][]string) int {
		if len(kvs) == 0 {
			return 0
		}
		count := 1
		for _, v := range kvs {
			count *= len(v)
		}
		return count
	}

	requireCount := countPart(m.Require)
	optionsCount := countPart(m.Options)

	if requireCount == 0 {
		return optionsCount
	}
	if optionsCount == 0 {
		return requireCount
	}
	return requireCount * optionsCount
}

// String returns the combination of a single-configuration matrix, or ""
// when the matrix spans zero or several configurations.
func (m *Matrix) String() string {
	if m.CombinationCount() != 1 {
		return ""
	}
	return m.Combinations()[0]
}

// PackageID returns the hex SHA-1 of String. Two builds share a package id
// exactly when their settings and options are equal.
func (m *Matrix) PackageID() string {
	sum := sha1.Sum([]byte(m.String()))
	return hex.EncodeToString(sum[:])
}
