package grade

// Grade is a pay rank. Rank 1 is the most senior. ParentID links a sub-grade to
// its parent by ID only.
type Grade struct {
	ID        string
	CompanyID string
	Name      string
	Rank      int
	ParentID  *string
}

// Lookup indexes grades by ID.
type Lookup map[string]Grade

func NewLookup(grades []Grade) Lookup {
	l := make(Lookup, len(grades))
	for _, g := range grades {
		l[g.ID] = g
	}
	return l
}

// Get returns the grade with the given ID.
func (l Lookup) Get(id string) (Grade, bool) {
	g, ok := l[id]
	return g, ok
}

// Root walks ParentID links up to the top of the hierarchy. Cycles stop the walk.
func (l Lookup) Root(id string) (Grade, bool) {
	g, ok := l[id]
	if !ok {
		return Grade{}, false
	}
	seen := map[string]bool{g.ID: true}
	for g.ParentID != nil {
		parent, ok := l[*g.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		g = parent
	}
	return g, true
}
