package util

// Set is an unordered collection of values keyed by the value itself,
// used throughout the graph and hashing code where sets of package and
// task names are passed around constantly and a real map gives O(1)
// membership checks for free.
type Set map[interface{}]interface{}

// Add inserts v into the set.
func (s Set) Add(v interface{}) {
	s[v] = v
}

// Delete removes v from the set, if present.
func (s Set) Delete(v interface{}) {
	delete(s, v)
}

// Includes reports whether v is a member of the set.
func (s Set) Includes(v interface{}) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of members in the set.
func (s Set) Len() int {
	return len(s)
}

// Copy returns a shallow copy of the set.
func (s Set) Copy() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// List returns the set's members in unspecified order.
func (s Set) List() []interface{} {
	out := make([]interface{}, 0, len(s))
	for _, v := range s {
		out = append(out, v)
	}
	return out
}

// UnsafeListOfStrings returns the set's members as strings, panicking if
// any member is not a string. Callers only reach for this when they
// already know the set holds strings (task names, package names).
func (s Set) UnsafeListOfStrings() []string {
	out := make([]string, 0, len(s))
	for _, v := range s {
		out = append(out, v.(string))
	}
	return out
}

// Intersection returns the members present in both s and other.
func (s Set) Intersection(other Set) Set {
	out := make(Set)
	for k := range s {
		if other.Includes(k) {
			out.Add(k)
		}
	}
	return out
}

// Difference returns the members of s that are not present in other.
func (s Set) Difference(other Set) Set {
	out := make(Set)
	for k := range s {
		if !other.Includes(k) {
			out.Add(k)
		}
	}
	return out
}

// Union returns the members present in either s or other.
func (s Set) Union(other Set) Set {
	out := s.Copy()
	for k := range other {
		out.Add(k)
	}
	return out
}

// Filter returns the members of s for which keep returns true.
func (s Set) Filter(keep func(interface{}) bool) Set {
	out := make(Set)
	for k := range s {
		if keep(k) {
			out.Add(k)
		}
	}
	return out
}

// SetFromStrings builds a Set from a string slice.
func SetFromStrings(items []string) Set {
	out := make(Set, len(items))
	for _, item := range items {
		out.Add(item)
	}
	return out
}
