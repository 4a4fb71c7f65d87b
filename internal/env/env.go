// Package env computes and compares environment variable maps used as
// task hash inputs: the explicit `env` list on a task, wildcard globs
// like `NEXT_PUBLIC_*`, and framework-inferred prefixes all resolve to a
// plain EnvironmentVariableMap by the time they reach the hasher.
package env

import (
	"crypto/sha256"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// EnvironmentVariableMap maps an env var name to its value.
type EnvironmentVariableMap map[string]string

// BySource breaks an environment down by where each variable came from:
// explicitly named in `env`, or matched by a wildcard/inference pattern.
type BySource struct {
	Explicit EnvironmentVariableMap
	Matching EnvironmentVariableMap
}

// DetailedMap carries both the flattened map (used as a hash input) and
// the BySource breakdown (used for dry-run/summary display).
type DetailedMap struct {
	All      EnvironmentVariableMap
	BySource BySource
}

// EnvironmentVariablePairs is a deterministically ordered "k=v" list.
type EnvironmentVariablePairs []string

// WildcardMaps separates variables matched by inclusion patterns from
// those matched by exclusion (`!pattern`) patterns, so exclusions can be
// applied after inclusions are resolved.
type WildcardMaps struct {
	Inclusions EnvironmentVariableMap
	Exclusions EnvironmentVariableMap
}

// Resolve collapses a WildcardMaps into one map: inclusions minus
// exclusions.
func (wm WildcardMaps) Resolve() EnvironmentVariableMap {
	output := EnvironmentVariableMap{}
	output.Union(wm.Inclusions)
	output.Difference(wm.Exclusions)
	return output
}

// GetEnvMap reads the current process environment into a map.
func GetEnvMap() EnvironmentVariableMap {
	envMap := make(EnvironmentVariableMap)
	for _, envVar := range os.Environ() {
		if i := strings.Index(envVar, "="); i >= 0 {
			envMap[envVar[:i]] = envVar[i+1:]
		}
	}
	return envMap
}

// Union merges another map into the receiver, overwriting on conflict.
func (evm EnvironmentVariableMap) Union(another EnvironmentVariableMap) {
	for k, v := range another {
		evm[k] = v
	}
}

// Difference removes every key present in another from the receiver.
func (evm EnvironmentVariableMap) Difference(another EnvironmentVariableMap) {
	for k := range another {
		delete(evm, k)
	}
}

// Add sets a single key/value pair.
func (evm EnvironmentVariableMap) Add(key string, value string) {
	evm[key] = value
}

// Names returns a sorted list of variable names.
func (evm EnvironmentVariableMap) Names() []string {
	names := make([]string, 0, len(evm))
	for k := range evm {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (evm EnvironmentVariableMap) mapToPair(transform func(k, v string) string) EnvironmentVariablePairs {
	if evm == nil {
		return nil
	}
	pairs := make([]string, 0, len(evm))
	for k, v := range evm {
		pairs = append(pairs, transform(k, v))
	}
	sort.Strings(pairs)
	return pairs
}

// ToSecretHashable renders "k=sha256(v)" pairs, sorted. Used when printing
// hash inputs for a dry run, so secret-looking values never show up in
// plaintext in logs or summary files.
func (evm EnvironmentVariableMap) ToSecretHashable() EnvironmentVariablePairs {
	return evm.mapToPair(func(k, v string) string {
		if v == "" {
			return fmt.Sprintf("%v=", k)
		}
		sum := sha256.Sum256([]byte(v))
		return fmt.Sprintf("%v=%x", k, sum)
	})
}

// ToHashable renders "k=v" pairs, sorted. This is what actually feeds the
// task hash - it must be deterministic regardless of map iteration order.
func (evm EnvironmentVariableMap) ToHashable() EnvironmentVariablePairs {
	return evm.mapToPair(func(k, v string) string {
		return fmt.Sprintf("%v=%v", k, v)
	})
}

const (
	wildcard              = '*'
	wildcardEscape        = '\\'
	regexWildcardSegment  = ".*"
)

// wildcardToRegexPattern converts a glob-style pattern (where `*` matches
// any run of characters and `\*` is a literal asterisk) into an
// unanchored regex fragment; fromWildcards adds the anchors.
func wildcardToRegexPattern(pattern string) string {
	var segments []string
	var previousIndex int
	var previousRune rune

	for i, char := range pattern {
		if char == wildcard {
			if previousRune == wildcardEscape {
				segments = append(segments, regexp.QuoteMeta(pattern[previousIndex:i-1]+"*"))
			} else {
				segments = append(segments, regexp.QuoteMeta(pattern[previousIndex:i]))
				if len(segments) == 0 || segments[len(segments)-1] != regexWildcardSegment {
					segments = append(segments, regexWildcardSegment)
				}
			}
			previousIndex = i + 1
		}
		previousRune = char
	}
	segments = append(segments, regexp.QuoteMeta(pattern[previousIndex:]))
	return strings.Join(segments, "")
}

func (evm EnvironmentVariableMap) fromWildcards(patterns []string) (WildcardMaps, error) {
	output := WildcardMaps{
		Inclusions: EnvironmentVariableMap{},
		Exclusions: EnvironmentVariableMap{},
	}

	var includePatterns, excludePatterns []string
	for _, pattern := range patterns {
		switch {
		case strings.HasPrefix(pattern, "\\!"):
			includePatterns = append(includePatterns, wildcardToRegexPattern(pattern[1:]))
		case strings.HasPrefix(pattern, "!"):
			excludePatterns = append(excludePatterns, wildcardToRegexPattern(pattern[1:]))
		default:
			includePatterns = append(includePatterns, wildcardToRegexPattern(pattern))
		}
	}

	includeRegex, err := regexp.Compile("^(" + strings.Join(includePatterns, "|") + ")$")
	if err != nil {
		return output, err
	}
	excludeRegex, err := regexp.Compile("^(" + strings.Join(excludePatterns, "|") + ")$")
	if err != nil {
		return output, err
	}

	for name, value := range evm {
		if len(includePatterns) > 0 && includeRegex.MatchString(name) {
			output.Inclusions[name] = value
		}
		if len(excludePatterns) > 0 && excludeRegex.MatchString(name) {
			output.Exclusions[name] = value
		}
	}
	return output, nil
}

// FromWildcards resolves patterns against evm and returns the final
// included-minus-excluded map.
func (evm EnvironmentVariableMap) FromWildcards(patterns []string) (EnvironmentVariableMap, error) {
	if patterns == nil {
		return nil, nil
	}
	resolved, err := evm.fromWildcards(patterns)
	if err != nil {
		return nil, err
	}
	return resolved.Resolve(), nil
}

// FromWildcardsUnresolved resolves patterns against evm but keeps
// inclusions and exclusions separate, so a caller merging several
// sources (declared env, framework-inferred env) can apply user
// exclusions last, with priority over any inferred inclusion.
func (evm EnvironmentVariableMap) FromWildcardsUnresolved(patterns []string) (WildcardMaps, error) {
	if patterns == nil {
		return WildcardMaps{}, nil
	}
	return evm.fromWildcards(patterns)
}
