package channel

import "github.com/adamavenir/office/internal/types"

// maxThreadDepth bounds reply-chain walks. Chains deeper than this (or
// containing a cycle from bad server data) are cut off rather than
// looping.
const maxThreadDepth = 80

// ThreadRoot walks parent links from a message up to its topmost loaded
// ancestor. truncated is true when the walk stopped at a parent id that
// is not in the timeline, at the depth bound, or on a cycle.
func (s *Store) ThreadRoot(id string) (rootID string, truncated bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	current := id
	for depth := 0; depth < maxThreadDepth; depth++ {
		if seen[current] {
			return current, true
		}
		seen[current] = true
		i, ok := s.byID[current]
		if !ok {
			return current, true
		}
		parent := s.messages[i].ParentID
		if parent == nil || *parent == "" {
			return current, false
		}
		if _, loaded := s.byID[*parent]; !loaded {
			return current, true
		}
		current = *parent
	}
	return current, true
}

// Thread returns the messages in the subtree rooted at rootID, in
// timeline order, root included. Depth-bounded and cycle-safe.
func (s *Store) Thread(rootID string) []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := make(map[string][]string)
	for _, m := range s.messages {
		if m.ParentID != nil && *m.ParentID != "" {
			children[*m.ParentID] = append(children[*m.ParentID], m.ID)
		}
	}

	member := map[string]bool{}
	frontier := []string{rootID}
	for depth := 0; depth < maxThreadDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			if member[id] {
				continue
			}
			member[id] = true
			next = append(next, children[id]...)
		}
		frontier = next
	}

	var out []types.Message
	for _, m := range s.messages {
		if member[m.ID] {
			out = append(out, m)
		}
	}
	return out
}
