// Package sponsor maintains a snapshot of the licensed visa-sponsor
// register and answers company lookups against it.
package sponsor

import (
	"strings"
	"sync"
)

// Registry is a read-mostly snapshot of the sponsor register. Lookups
// report ok=false until the first snapshot is loaded, which keeps the
// posting flag nullable rather than defaulting to "not a sponsor".
type Registry struct {
	mu     sync.RWMutex
	names  map[string]bool
	loaded bool
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Replace swaps in a new register snapshot.
func (r *Registry) Replace(names []string) {
	next := make(map[string]bool, len(names))
	for _, n := range names {
		next[NormalizeName(n)] = true
	}
	r.mu.Lock()
	r.names = next
	r.loaded = true
	r.mu.Unlock()
}

// Lookup reports whether company is on the register. ok is false when no
// snapshot has been loaded yet.
func (r *Registry) Lookup(company string) (licensed bool, ok bool) {
	key := NormalizeName(company)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return false, false
	}
	return r.names[key], true
}

// legal-form suffixes dropped during name normalization.
var legalSuffixes = []string{"ltd", "limited", "plc", "llp", "inc", "llc", "gmbh"}

// NormalizeName canonicalizes a company name for register matching:
// lowercase, punctuation stripped, whitespace collapsed, trailing legal
// form dropped.
func NormalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	fields := strings.Fields(b.String())
	if len(fields) > 1 {
		last := fields[len(fields)-1]
		for _, suffix := range legalSuffixes {
			if last == suffix {
				fields = fields[:len(fields)-1]
				break
			}
		}
	}
	return strings.Join(fields, " ")
}
