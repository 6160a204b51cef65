package note

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// List returns notes ordered by ModifiedAt, most recent first. Equal
// timestamps fall back to ID ascending so the order is deterministic.
// The input slice is not modified.
func List(notes []*Note) []*Note {
	out := slices.Clone(notes)
	slices.SortStableFunc(out, func(a, b *Note) int {
		if c := b.ModifiedAt.Compare(a.ModifiedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Search filters notes whose title or content contains term, ignoring case.
// An empty term returns notes unchanged. Relative order is preserved and
// image bytes are never inspected.
func Search(notes []*Note, term string) []*Note {
	if term == "" {
		return notes
	}
	fold := cases.Fold()
	needle := fold.String(term)

	out := make([]*Note, 0, len(notes))
	for _, n := range notes {
		if strings.Contains(fold.String(n.Title), needle) ||
			strings.Contains(fold.String(n.Content), needle) {
			out = append(out, n)
		}
	}
	return out
}

// Delete returns notes without the given ids. Unknown ids are ignored.
func Delete(notes []*Note, ids ...string) []*Note {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make([]*Note, 0, len(notes))
	for _, n := range notes {
		if _, ok := drop[n.ID]; ok {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Add returns notes with n appended. Timestamps are left as constructed.
func Add(notes []*Note, n *Note) []*Note {
	out := make([]*Note, 0, len(notes)+1)
	out = append(out, notes...)
	return append(out, n)
}

// Find returns the note with the given id.
func Find(notes []*Note, id string) (*Note, bool) {
	for _, n := range notes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}
