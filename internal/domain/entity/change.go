package entity

import "stroll/internal/errors"

// ChangeKind tags a pending route mutation. The set is closed so that ledger
// folding can switch exhaustively over it.
type ChangeKind string

const (
	ChangeInsert  ChangeKind = "insert"
	ChangeDelete  ChangeKind = "delete"
	ChangeReplace ChangeKind = "replace"
)

// PendingChange is one not-yet-committed edit. Index addresses a position in
// the intermediate stop list (start and end are not addressable). For inserts
// a negative Index means "before the end waypoint".
type PendingChange struct {
	Kind  ChangeKind
	POI   *POI // Set for insert and replace.
	Index int  // Stop-list index for delete and replace; optional for insert.
}

// FoldChanges applies a ledger to a base stop list in arrival order and
// returns the resulting candidate POI set for re-optimization. The base slice
// is not mutated.
func FoldChanges(base []*POI, changes []PendingChange) ([]*POI, error) {
	pois := make([]*POI, len(base))
	copy(pois, base)

	for _, change := range changes {
		switch change.Kind {
		case ChangeInsert:
			if change.POI == nil {
				return nil, errors.New("insert change without a POI")
			}
			if change.Index < 0 || change.Index >= len(pois) {
				pois = append(pois, change.POI)
			} else {
				rest := append([]*POI{change.POI}, pois[change.Index:]...)
				pois = append(pois[:change.Index], rest...)
			}
		case ChangeDelete:
			if change.Index < 0 || change.Index >= len(pois) {
				return nil, errors.Errorf("delete index %d out of range for %d stops", change.Index, len(pois))
			}
			pois = append(pois[:change.Index], pois[change.Index+1:]...)
		case ChangeReplace:
			if change.POI == nil {
				return nil, errors.New("replace change without a POI")
			}
			if change.Index < 0 || change.Index >= len(pois) {
				return nil, errors.Errorf("replace index %d out of range for %d stops", change.Index, len(pois))
			}
			pois[change.Index] = change.POI
		default:
			return nil, errors.Errorf("unknown change kind %q", change.Kind)
		}
	}

	return pois, nil
}
