package config

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// suggestMaxDistance bounds how different a typo may be from the key it
// is matched to.
const suggestMaxDistance = 3

// knownKeys maps each table to the keys it accepts, read from the toml
// tags of Config so the two cannot drift apart.
var knownKeys = schemaOf(reflect.TypeOf(Config{}))

var knownTables = slices.Sorted(maps.Keys(knownKeys))

func schemaOf(cfg reflect.Type) map[string][]string {
	schema := make(map[string][]string, cfg.NumField())

	for i := range cfg.NumField() {
		table := cfg.Field(i)

		keys := make([]string, 0, table.Type.NumField())
		for j := range table.Type.NumField() {
			keys = append(keys, tomlName(table.Type.Field(j)))
		}

		slices.Sort(keys)
		schema[tomlName(table)] = keys
	}

	return schema
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return name
}

// checkUnknownKeys reports every key the decoder did not consume. A
// misspelled table is reported once, not once per key inside it.
func checkUnknownKeys(md *toml.MetaData) error {
	var errs []error

	badTables := make(map[string]bool)

	for _, key := range md.Undecoded() {
		table := key[0]

		if _, ok := knownKeys[table]; !ok {
			if !badTables[table] {
				badTables[table] = true
				errs = append(errs, unknownKeyError(nil, table, knownTables))
			}

			continue
		}

		if len(key) > 1 {
			errs = append(errs, unknownKeyError([]string{table}, strings.Join(key[1:], "."), knownKeys[table]))
		}
	}

	return errors.Join(errs...)
}

// unknownKeyError names key under prefix and suggests a near candidate.
func unknownKeyError(prefix []string, key string, candidates []string) error {
	qualify := func(k string) string {
		return strings.Join(append(slices.Clone(prefix), k), ".")
	}

	if s, ok := suggest(key, candidates); ok {
		return fmt.Errorf("unknown config key %q, did you mean %q?", qualify(key), qualify(s))
	}

	return fmt.Errorf("unknown config key %q", qualify(key))
}

// suggest returns the candidate closest to typo, if any is close enough.
func suggest(typo string, candidates []string) (string, bool) {
	best, bestDist := "", suggestMaxDistance+1

	for _, c := range candidates {
		if d := editDistance(typo, c); d < bestDist {
			best, bestDist = c, d
		}
	}

	return best, bestDist <= suggestMaxDistance
}

// editDistance is the Levenshtein distance between a and b, counted in
// runes, using a single row of the dynamic programming table.
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		diag := row[0]
		row[0] = i

		for j := 1; j <= len(rb); j++ {
			above := row[j]

			sub := diag
			if ra[i-1] != rb[j-1] {
				sub++
			}

			row[j] = min(row[j-1]+1, above+1, sub)
			diag = above
		}
	}

	return row[len(rb)]
}
