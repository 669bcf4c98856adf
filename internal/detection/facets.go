package detection

// Facets holds the distinct filter values present in a detection snapshot.
type Facets struct {
	AnimalClasses []string `json:"animalClasses"`
	CameraNames   []string `json:"cameraNames"`
}

// DeriveFacets returns the distinct animal classes and camera names in first-occurrence order.
// The facet order doubles as the option order of filter menus.
func DeriveFacets(events []DetectionEvent) Facets {
	animals := newOrderedSet()
	cameras := newOrderedSet()

	for i := range events {
		animals.add(events[i].AnimalClass)
		cameras.add(events[i].CameraName)
	}

	return Facets{
		AnimalClasses: animals.values,
		CameraNames:   cameras.values,
	}
}

// orderedSet keeps unique strings in insertion order.
type orderedSet struct {
	seen   map[string]struct{}
	values []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{
		seen:   make(map[string]struct{}),
		values: []string{},
	}
}

func (s *orderedSet) add(value string) {
	if _, ok := s.seen[value]; ok {
		return
	}
	s.seen[value] = struct{}{}
	s.values = append(s.values, value)
}
