// Package category describes the scoring buckets of a period.
//
// The binary ledgers store a category by its position in an ordered list,
// so a list must only ever be appended to once frames reference it.
package category

// LowestPortals is the category ranked by portal count instead of time.
const LowestPortals = "lp"

// Descriptor describes one category of a period.
type Descriptor struct {
	Name    string `yaml:"name" json:"name"`
	Title   string `yaml:"title" json:"title"`
	Portals bool   `yaml:"portals" json:"portals"`
	Coop    bool   `yaml:"coop" json:"coop"`
	Points  bool   `yaml:"points" json:"points"`
	Proof   string `yaml:"proof" json:"proof"`
}

// Indexer resolves category names to positions and back.
type Indexer interface {
	Index(name string) (int, bool)
	Name(i int) (string, bool)
}

// Registry exposes a period's ordered category list.
type Registry interface {
	Categories() List
}

// List is an ordered category registry snapshot.
type List []Descriptor

// Categories returns l itself so a List satisfies Registry.
func (l List) Categories() List { return l }

// Index returns the position of name in l.
func (l List) Index(name string) (int, bool) {
	for i := range l {
		if l[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// Name returns the name at position i.
func (l List) Name(i int) (string, bool) {
	if i < 0 || i >= len(l) {
		return "", false
	}
	return l[i].Name, true
}

// Lookup returns the descriptor named name.
func (l List) Lookup(name string) (Descriptor, bool) {
	if i, ok := l.Index(name); ok {
		return l[i], true
	}
	return Descriptor{}, false
}

// Names returns the category names in order.
func (l List) Names() Names {
	out := make(Names, len(l))
	for i := range l {
		out[i] = l[i].Name
	}
	return out
}

// Names is an ordered list of bare category names, used where no descriptor
// metadata exists (e.g. a competitor's private profile index).
type Names []string

// Index returns the position of name in n.
func (n Names) Index(name string) (int, bool) {
	for i, v := range n {
		if v == name {
			return i, true
		}
	}
	return -1, false
}

// Name returns the name at position i.
func (n Names) Name(i int) (string, bool) {
	if i < 0 || i >= len(n) {
		return "", false
	}
	return n[i], true
}

// Add appends name when absent and returns its position.
func (n *Names) Add(name string) int {
	if i, ok := n.Index(name); ok {
		return i
	}
	*n = append(*n, name)
	return len(*n) - 1
}
