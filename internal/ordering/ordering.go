// Package ordering keeps a dense, 1-based position column per parent row.
// For a parent with N children the positions are exactly {1..N} whenever a
// transaction of this package commits: inserts open a slot, moves rotate
// the range between the old and new slot, removals close the gap.
//
// Every operation runs in one transaction that first locks the parent row
// (SELECT ... FOR UPDATE), so two writers on the same parent serialize and
// never compute overlapping shift sets.  A failure at any step rolls the
// whole sequence back.
package ordering

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the child row does not exist.
	ErrNotFound = errors.New("ordered row not found")
	// ErrParentNotFound is returned when the parent row does not exist.
	ErrParentNotFound = errors.New("parent row not found")
)

// Scope names an ordered child table and its parent.  Values are trusted
// identifiers, never user input.
type Scope struct {
	Table       string // child table, e.g. lessons
	Parent      string // foreign key column on the child, e.g. course_id
	Position    string // ordering column, e.g. position
	ParentTable string // table locked while shifting, e.g. courses
}

var (
	Lessons = Scope{Table: "lessons", Parent: "course_id", Position: "position", ParentTable: "courses"}
	Videos  = Scope{Table: "videos", Parent: "lesson_id", Position: "order_lesson", ParentTable: "lessons"}
)

// Shift adds Delta to every sibling whose position lies in [From, To].
type Shift struct {
	From, To, Delta int
}

// Apply returns the position pos ends up at after s.
func (s Shift) Apply(pos int) int {
	if pos >= s.From && pos <= s.To {
		return pos + s.Delta
	}
	return pos
}

// PlanInsert picks the slot for a new child among max existing ones.  A
// non-positive or too large request appends.  Appending needs no shift.
func PlanInsert(requested, max int) (int, *Shift) {
	next := max + 1
	pos := requested
	if pos <= 0 || pos > next {
		pos = next
	}
	if pos == next {
		return pos, nil
	}
	return pos, &Shift{From: pos, To: max, Delta: 1}
}

// PlanMove moves the child at old to requested, clamped to [1, max].
func PlanMove(old, requested, max int) (int, *Shift) {
	pos := requested
	if pos > max {
		pos = max
	}
	if pos < 1 {
		pos = 1
	}
	switch {
	case pos < old:
		return pos, &Shift{From: pos, To: old - 1, Delta: 1}
	case pos > old:
		return pos, &Shift{From: old + 1, To: pos, Delta: -1}
	}
	return pos, nil
}

// PlanRemove closes the gap left by removing the child at old.
func PlanRemove(old, max int) *Shift {
	if old >= max {
		return nil
	}
	return &Shift{From: old + 1, To: max, Delta: -1}
}

// Maintainer executes the plans against MySQL.
type Maintainer struct {
	db *sql.DB
}

func NewMaintainer(db *sql.DB) *Maintainer { return &Maintainer{db: db} }

// TxExec is the subset of *sql.Tx handed to callbacks.
type TxExec interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxFunc runs extra statements inside the ordering transaction.
type TxFunc func(ctx context.Context, tx TxExec, pos int) error

// Insert reserves a slot under parentID and calls create to insert the row
// at the returned position.
func (m *Maintainer) Insert(ctx context.Context, sc Scope, parentID string, requested int, create TxFunc) (int, error) {
	var pos int
	err := m.inTx(ctx, func(tx *sql.Tx) error {
		if err := lockParent(ctx, tx, sc, parentID); err != nil {
			return err
		}
		max, err := maxPosition(ctx, tx, sc, parentID)
		if err != nil {
			return err
		}
		var sh *Shift
		pos, sh = PlanInsert(requested, max)
		if err := applyShift(ctx, tx, sc, parentID, sh); err != nil {
			return err
		}
		return create(ctx, tx, pos)
	})
	return pos, err
}

// Move relocates row id to requested and then calls update (may be nil) to
// write any other column of the row in the same transaction.
func (m *Maintainer) Move(ctx context.Context, sc Scope, id string, requested int, update TxFunc) (int, error) {
	var pos int
	err := m.inTx(ctx, func(tx *sql.Tx) error {
		parentID, old, err := lockRow(ctx, tx, sc, id)
		if err != nil {
			return err
		}
		max, err := maxPosition(ctx, tx, sc, parentID)
		if err != nil {
			return err
		}
		var sh *Shift
		pos, sh = PlanMove(old, requested, max)
		if sh != nil {
			// park the row on 0 so the shifted range never collides with it
			if err := setPosition(ctx, tx, sc, id, 0); err != nil {
				return err
			}
			if err := applyShift(ctx, tx, sc, parentID, sh); err != nil {
				return err
			}
			if err := setPosition(ctx, tx, sc, id, pos); err != nil {
				return err
			}
		}
		if update != nil {
			return update(ctx, tx, pos)
		}
		return nil
	})
	return pos, err
}

// Remove deletes row id and closes the gap behind it.
func (m *Maintainer) Remove(ctx context.Context, sc Scope, id string) error {
	return m.inTx(ctx, func(tx *sql.Tx) error {
		parentID, old, err := lockRow(ctx, tx, sc, id)
		if err != nil {
			return err
		}
		max, err := maxPosition(ctx, tx, sc, parentID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, deleteQuery(sc), id); err != nil {
			return fmt.Errorf("delete %s: %w", sc.Table, err)
		}
		return applyShift(ctx, tx, sc, parentID, PlanRemove(old, max))
	})
}

func (m *Maintainer) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func lockParent(ctx context.Context, tx *sql.Tx, sc Scope, parentID string) error {
	var id string
	err := tx.QueryRowContext(ctx, lockParentQuery(sc), parentID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrParentNotFound
	}
	return err
}

// lockRow resolves the parent of id, locks it, then re-reads the row's
// position under the lock so a concurrent move cannot slip in between.
func lockRow(ctx context.Context, tx *sql.Tx, sc Scope, id string) (string, int, error) {
	var parentID string
	var pos int
	err := tx.QueryRowContext(ctx, rowQuery(sc, false), id).Scan(&parentID, &pos)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, err
	}
	if err := lockParent(ctx, tx, sc, parentID); err != nil {
		return "", 0, err
	}
	err = tx.QueryRowContext(ctx, rowQuery(sc, true), id).Scan(&parentID, &pos)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	return parentID, pos, err
}

func maxPosition(ctx context.Context, tx *sql.Tx, sc Scope, parentID string) (int, error) {
	var max int
	err := tx.QueryRowContext(ctx, maxQuery(sc), parentID).Scan(&max)
	return max, err
}

func applyShift(ctx context.Context, tx *sql.Tx, sc Scope, parentID string, sh *Shift) error {
	if sh == nil || sh.From > sh.To {
		return nil
	}
	if _, err := tx.ExecContext(ctx, shiftQuery(sc, sh.Delta), sh.Delta, parentID, sh.From, sh.To); err != nil {
		return fmt.Errorf("shift %s: %w", sc.Table, err)
	}
	return nil
}

func setPosition(ctx context.Context, tx *sql.Tx, sc Scope, id string, pos int) error {
	_, err := tx.ExecContext(ctx, setPositionQuery(sc), pos, id)
	return err
}

func lockParentQuery(sc Scope) string {
	return fmt.Sprintf("SELECT id FROM %s WHERE id = ? FOR UPDATE", sc.ParentTable)
}

func rowQuery(sc Scope, forUpdate bool) string {
	q := fmt.Sprintf("SELECT %s, %s FROM %s WHERE id = ?", sc.Parent, sc.Position, sc.Table)
	if forUpdate {
		q += " FOR UPDATE"
	}
	return q
}

func maxQuery(sc Scope) string {
	return fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s WHERE %s = ?", sc.Position, sc.Table, sc.Parent)
}

// shiftQuery walks rows away from the direction of travel so the unique
// (parent, position) index never sees two rows on one slot mid-statement.
func shiftQuery(sc Scope, delta int) string {
	dir := "DESC"
	if delta < 0 {
		dir = "ASC"
	}
	return fmt.Sprintf("UPDATE %[1]s SET %[2]s = %[2]s + ? WHERE %[3]s = ? AND %[2]s BETWEEN ? AND ? ORDER BY %[2]s %[4]s",
		sc.Table, sc.Position, sc.Parent, dir)
}

func setPositionQuery(sc Scope) string {
	return fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", sc.Table, sc.Position)
}

func deleteQuery(sc Scope) string {
	return fmt.Sprintf("DELETE FROM %s WHERE id = ?", sc.Table)
}
