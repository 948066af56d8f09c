// Package resolution implements the specifier resolution table: direct
// mappings plus scoped mappings that only apply to modules whose location
// falls under a scope prefix.
package resolution

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Mappings is the mutable form a resolution table is assembled from: the
// caller-supplied table and any manifests discovered near the entry module.
type Mappings struct {
	Imports map[string]string            `json:"imports,omitempty"`
	Scopes  map[string]map[string]string `json:"scopes,omitempty"`
}

// Empty reports whether the mappings carry no entries.
func (m Mappings) Empty() bool {
	return len(m.Imports) == 0 && len(m.Scopes) == 0
}

type scope struct {
	prefix  string
	entries map[string]string
}

// Table is an immutable resolution snapshot. Built once per top-level
// transform request; its identity participates in every cache key derived
// during that request.
type Table struct {
	direct map[string]string
	scopes []scope
	id     string
}

// Build assembles a table from mappings in increasing priority order:
// entries from later mappings replace earlier ones on conflicting keys.
// Scopes are ordered longest-prefix-first so the most specific scope wins
// when several apply to one referrer.
func Build(layers ...Mappings) *Table {
	direct := make(map[string]string)
	scoped := make(map[string]map[string]string)

	for _, layer := range layers {
		for k, v := range layer.Imports {
			direct[k] = v
		}
		for prefix, entries := range layer.Scopes {
			dst := scoped[prefix]
			if dst == nil {
				dst = make(map[string]string, len(entries))
				scoped[prefix] = dst
			}
			for k, v := range entries {
				dst[k] = v
			}
		}
	}

	scopes := make([]scope, 0, len(scoped))
	for prefix, entries := range scoped {
		scopes = append(scopes, scope{prefix: prefix, entries: entries})
	}
	sort.Slice(scopes, func(i, j int) bool {
		if len(scopes[i].prefix) != len(scopes[j].prefix) {
			return len(scopes[i].prefix) > len(scopes[j].prefix)
		}
		return scopes[i].prefix < scopes[j].prefix
	})

	t := &Table{direct: direct, scopes: scopes}
	t.id = hashSerialization(t.Serialize())
	return t
}

// Resolve maps a written specifier to its target. Scopes whose prefix
// covers the referrer's location are consulted most-specific-first, then
// the direct table. A specifier with no matching entry is returned
// unchanged: absence of a mapping is not an error.
func (t *Table) Resolve(referrer, spec string) string {
	for _, sc := range t.scopes {
		if !strings.HasPrefix(referrer, sc.prefix) {
			continue
		}
		if target, ok := matchEntry(sc.entries, spec); ok {
			return target
		}
	}
	if target, ok := matchEntry(t.direct, spec); ok {
		return target
	}
	return spec
}

// matchEntry finds an entry whose key equals spec, or whose key is a prefix
// of spec at a '/' boundary. Prefix matches consume the key and append the
// remaining suffix to the target, so {"@x/": "A/"} sends "@x/sub" to "A/sub"
// and {"@x": "A"} sends both "@x" and "@x/sub" to "A" and "A/sub".
func matchEntry(entries map[string]string, spec string) (string, bool) {
	if target, ok := entries[spec]; ok {
		return target, true
	}
	if !strings.ContainsRune(spec, '/') {
		return "", false
	}

	// Deterministic iteration: longest key first so the most specific
	// prefix mapping wins.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		target := entries[k]
		if strings.HasSuffix(k, "/") {
			if strings.HasPrefix(spec, k) {
				return target + spec[len(k):], true
			}
			continue
		}
		if strings.HasPrefix(spec, k+"/") {
			return target + spec[len(k):], true
		}
	}
	return "", false
}

// ID returns the table's stable identity, a hash of its canonical
// serialization. Two tables with the same entries share an ID regardless
// of how they were assembled.
func (t *Table) ID() string {
	return t.id
}

// Serialize renders the table in a canonical order: sorted direct entries,
// then scopes sorted as in resolution priority, each with sorted entries.
// The output feeds cache-key derivation, so it must be deterministic.
func (t *Table) Serialize() string {
	var b strings.Builder
	b.WriteString("imports\n")
	writeSortedEntries(&b, t.direct)
	for _, sc := range t.scopes {
		b.WriteString("scope ")
		b.WriteString(sc.prefix)
		b.WriteByte('\n')
		writeSortedEntries(&b, sc.entries)
	}
	return b.String()
}

// Len returns the total number of mapping entries.
func (t *Table) Len() int {
	n := len(t.direct)
	for _, sc := range t.scopes {
		n += len(sc.entries)
	}
	return n
}

func writeSortedEntries(b *strings.Builder, entries map[string]string) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(entries[k])
		b.WriteByte('\n')
	}
}

func hashSerialization(s string) string {
	sum := blake2b.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
