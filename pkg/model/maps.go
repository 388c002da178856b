package model

// BuildRequirementMap creates a requirement_id -> requirement mapping for
// O(1) lookups. Views should use this instead of scanning the list.
func BuildRequirementMap(reqs []Requirement) map[string]*Requirement {
	m := make(map[string]*Requirement, len(reqs))
	for i := range reqs {
		m[reqs[i].RequirementID] = &reqs[i]
	}
	return m
}

// BuildChildrenMap creates a parent -> children mapping from the flat
// requirement list using each requirement's parent ids.
func BuildChildrenMap(reqs []Requirement) map[string][]string {
	children := make(map[string][]string)
	for _, r := range reqs {
		for _, parentID := range r.ParentIDs {
			children[parentID] = append(children[parentID], r.RequirementID)
		}
	}
	return children
}

// BuildGroupMap flattens a group tree into an id -> group mapping.
func BuildGroupMap(groups []Group) map[string]*Group {
	m := make(map[string]*Group)
	var walk func(gs []Group)
	walk = func(gs []Group) {
		for i := range gs {
			m[gs[i].ID] = &gs[i]
			walk(gs[i].Children)
		}
	}
	walk(groups)
	return m
}

// FindGroup walks a group tree looking for id. Returns nil if absent.
func FindGroup(groups []Group, id string) *Group {
	for i := range groups {
		if groups[i].ID == id {
			return &groups[i]
		}
		if g := FindGroup(groups[i].Children, id); g != nil {
			return g
		}
	}
	return nil
}
