package domain

// ChangeKind tags a state transition of the collection.
type ChangeKind string

const (
	ChangeSet    ChangeKind = "set"    // wholesale replace (load, replace-mode import)
	ChangeAdd    ChangeKind = "add"    // append one record
	ChangeUpdate ChangeKind = "update" // replace one record in place
	ChangeRemove ChangeKind = "remove" // drop one record by id
	ChangeImport ChangeKind = "import" // append a batch (merge-mode import)
)

// Change is a tagged collection mutation. The collection manager folds
// Changes over the previous state with Reduce; the same value drives the
// persistence relay and the event stream.
type Change struct {
	Kind      ChangeKind
	Location  Location   // add/update payload (update carries the merged record)
	ID        string     // remove target
	Locations []Location // set/import payload
}

// Reduce folds a Change over prev and returns the next state. prev is never
// mutated; unaffected elements are shared.
func Reduce(prev []Location, ch Change) []Location {
	switch ch.Kind {
	case ChangeSet:
		return append([]Location(nil), ch.Locations...)
	case ChangeAdd:
		next := make([]Location, 0, len(prev)+1)
		next = append(next, prev...)
		return append(next, ch.Location)
	case ChangeUpdate:
		next := append([]Location(nil), prev...)
		for i := range next {
			if next[i].ID == ch.Location.ID {
				next[i] = ch.Location
				break
			}
		}
		return next
	case ChangeRemove:
		next := make([]Location, 0, len(prev))
		for _, loc := range prev {
			if loc.ID != ch.ID {
				next = append(next, loc)
			}
		}
		return next
	case ChangeImport:
		next := make([]Location, 0, len(prev)+len(ch.Locations))
		next = append(next, prev...)
		return append(next, ch.Locations...)
	default:
		return prev
	}
}
