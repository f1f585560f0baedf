package rbac

import "sort"

// Set is an unordered collection of permissions.
type Set map[Permission]struct{}

func NewSet(perms ...Permission) Set {
	s := make(Set, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// SetOf builds a Set from raw strings without validating them. Unknown tags
// are kept so that a decision on them can be made explicitly.
func SetOf(raw ...string) Set {
	s := make(Set, len(raw))
	for _, r := range raw {
		s[Permission(r)] = struct{}{}
	}
	return s
}

func (s Set) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// SubsetOf reports whether every element of s is in other.
func (s Set) SubsetOf(other Set) bool {
	for p := range s {
		if _, ok := other[p]; !ok {
			return false
		}
	}
	return true
}

func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for p := range s {
		out[p] = struct{}{}
	}
	for p := range other {
		out[p] = struct{}{}
	}
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// Sorted returns the elements ordered lexically.
func (s Set) Sorted() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted elements as plain strings, the shape used in
// token claims and JSON responses.
func (s Set) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, p := range sorted {
		out[i] = string(p)
	}
	return out
}
