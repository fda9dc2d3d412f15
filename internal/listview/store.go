package listview

import (
	"sort"

	"github.com/starford/marginalia/internal/annotation"
	"github.com/starford/marginalia/internal/document"
)

// Store holds one View per scope key, so lists for different documents or
// subtrees never share state.
type Store struct {
	scanner *annotation.Scanner
	opts    Options
	views   map[string]*View
}

// NewStore creates an empty store whose views use scanner and opts.
func NewStore(scanner *annotation.Scanner, opts Options) *Store {
	return &Store{scanner: scanner, opts: opts, views: make(map[string]*View)}
}

// Open returns the view for scope, building it on first use and
// refreshing it afterwards. An empty result closes the view and returns
// ok=false.
func (s *Store) Open(buf *document.Buffer, scope annotation.Scope) (*View, bool, error) {
	key := scope.Key()
	v, found := s.views[key]
	if found && v.buf != buf {
		v.Close()
		found = false
	}
	if !found {
		built, err := Build(buf, scope, s.scanner, s.opts)
		if err != nil {
			return nil, false, err
		}
		v = built
		s.views[key] = v
	} else if _, err := v.Refresh(); err != nil {
		return nil, false, err
	}
	if v.Empty() {
		s.Close(key)
		return v, false, nil
	}
	return v, true, nil
}

// Get returns the view for key without rescanning.
func (s *Store) Get(key string) (*View, bool) {
	v, ok := s.views[key]
	return v, ok
}

// Close drops the view for key.
func (s *Store) Close(key string) {
	if v, ok := s.views[key]; ok {
		v.Close()
		delete(s.views, key)
	}
}

// CloseAll drops every view.
func (s *Store) CloseAll() {
	for key := range s.views {
		s.Close(key)
	}
}

// RefreshAll rescans every view of buf, closing the ones left empty. It
// returns the keys that were closed.
func (s *Store) RefreshAll(buf *document.Buffer) ([]string, error) {
	var closed []string
	for key, v := range s.views {
		if v.buf != buf {
			continue
		}
		ok, err := v.Refresh()
		if err != nil {
			return closed, err
		}
		if !ok {
			closed = append(closed, key)
		}
	}
	for _, key := range closed {
		s.Close(key)
	}
	sort.Strings(closed)
	return closed, nil
}

// Keys lists the open scope keys.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.views))
	for k := range s.views {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
