package library

// Snapshot is the whole library state in insertion order.
type Snapshot struct {
	Books   []*Book
	Members []*Member
}

// Persister loads and saves whole-state snapshots.
//
// Load on a persister that has never been saved returns an empty snapshot.
// Save replaces everything previously saved.
type Persister interface {
	Load() (*Snapshot, error)
	Save(*Snapshot) error
}

// MemoryPersister keeps the last saved snapshot in memory. It backs tests and
// the --backend=memory mode.
type MemoryPersister struct {
	snap  *Snapshot
	Saves int
}

func NewMemoryPersister() *MemoryPersister { return &MemoryPersister{} }

func (p *MemoryPersister) Load() (*Snapshot, error) {
	if p.snap == nil {
		return &Snapshot{}, nil
	}
	return p.snap.clone(), nil
}

func (p *MemoryPersister) Save(s *Snapshot) error {
	p.snap = s.clone()
	p.Saves++
	return nil
}

func (s *Snapshot) clone() *Snapshot {
	c := &Snapshot{
		Books:   make([]*Book, 0, len(s.Books)),
		Members: make([]*Member, 0, len(s.Members)),
	}
	for _, b := range s.Books {
		c.Books = append(c.Books, b.clone())
	}
	for _, m := range s.Members {
		c.Members = append(c.Members, m.clone())
	}
	return c
}
