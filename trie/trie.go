// Package trie implements a simple trie data structure that maps "paths" (which
// are slices of strings) to values of any type.
//
// A path segment beginning with ':' is a parameter segment: it matches any
// single segment on lookup and the matched value is captured under the
// parameter's name.
package trie

const paramMarker = ':'

type Trie[T any] struct {
	Leaf     bool
	Entry    T
	Children map[string]*Trie[T]

	param     *Trie[T]
	paramName string
}

// Params holds the values captured by parameter segments during a lookup.
type Params map[string]string

// NewTrie makes a new empty Trie
func NewTrie[T any]() *Trie[T] {
	return &Trie[T]{
		Children: make(map[string]*Trie[T]),
	}
}

// Get retrieves an element from the Trie
//
// Takes a path (which can be empty, to denote the root element of the Trie),
// and returns the object if the path exists in the Trie, or the zero value and
// a status of false. Literal children are preferred over parameter children,
// so "/blog/archive" registered alongside "/blog/:slug" wins for that path.
// Example:
//
//	if res, params, ok := trie.Get([]string{"blog", "hello"}); ok {
//	  fmt.Println("Value at /blog/hello was", res, "slug", params["slug"])
//	}
func (t *Trie[T]) Get(path []string) (entry T, params Params, ok bool) {
	params = Params{}
	entry, ok = t.get(path, params)
	return entry, params, ok
}

func (t *Trie[T]) get(path []string, params Params) (entry T, ok bool) {
	if len(path) == 0 {
		return t.getentry()
	}

	key := path[0]
	newpath := path[1:]

	if res, found := t.Children[key]; found {
		if entry, ok = res.get(newpath, params); ok {
			return entry, ok
		}
	}

	if t.param == nil {
		// Path doesn't exist: shortcut return value
		var zero T
		return zero, false
	}

	entry, ok = t.param.get(newpath, params)
	if ok {
		params[t.paramName] = key
	}
	return entry, ok
}

// GetLongestPrefix retrieves an element from the Trie
//
// Takes a path (which can be empty, to denote the root element of the Trie).
// If a matching object exists, it is returned. Otherwise the object with the
// longest matching prefix is returned. If nothing matches at all, the zero
// value and a status of false is returned. Parameter segments are not
// consulted by prefix lookups.
func (t *Trie[T]) GetLongestPrefix(path []string) (entry T, ok bool) {
	if len(path) == 0 {
		return t.getentry()
	}

	key := path[0]
	newpath := path[1:]

	res, ok := t.Children[key]
	if !ok {
		// Path doesn't exist: return this node as possible best match
		return t.getentry()
	}

	entry, ok = res.GetLongestPrefix(newpath)
	if ok {
		return entry, ok
	}
	// We haven't found a match yet, return this node
	return t.getentry()
}

// Set creates an element in the Trie
//
// Takes a path (which can be empty, to denote the root element of the Trie),
// and a value to use as the leaf data. Registering a second parameter name at
// the same depth renames the existing parameter.
func (t *Trie[T]) Set(path []string, value T) {
	if len(path) == 0 {
		t.setentry(value)
		return
	}

	key := path[0]
	newpath := path[1:]

	if isParam(key) {
		if t.param == nil {
			t.param = NewTrie[T]()
		}
		t.paramName = key[1:]
		t.param.Set(newpath, value)
		return
	}

	res, ok := t.Children[key]
	if !ok {
		// Trie node that should hold entry doesn't already exist, so let's create it
		res = NewTrie[T]()
		t.Children[key] = res
	}

	res.Set(newpath, value)
}

// Del removes an element from the Trie. Returns a boolean indicating whether an
// element was actually deleted.
func (t *Trie[T]) Del(path []string) bool {
	if len(path) == 0 {
		return t.delentry()
	}

	key := path[0]
	newpath := path[1:]

	if isParam(key) {
		if t.param == nil {
			return false
		}
		return t.param.Del(newpath)
	}

	res, ok := t.Children[key]
	if !ok {
		return false
	}

	return res.Del(newpath)
}

func isParam(segment string) bool {
	return len(segment) > 1 && segment[0] == paramMarker
}

func (t *Trie[T]) setentry(value T) {
	t.Leaf = true
	t.Entry = value
}

func (t *Trie[T]) getentry() (entry T, ok bool) {
	if t.Leaf {
		return t.Entry, true
	}
	var zero T
	return zero, false
}

func (t *Trie[T]) delentry() (ok bool) {
	ok = t.Leaf
	var zero T
	t.Leaf = false
	t.Entry = zero
	return
}
