package ordering

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// siblings is an in-memory parent: id -> position.
type siblings map[string]int

func (s siblings) shift(sh *Shift) {
	if sh == nil {
		return
	}
	for id, p := range s {
		s[id] = sh.Apply(p)
	}
}

func (s siblings) insert(id string, requested int) int {
	pos, sh := PlanInsert(requested, len(s))
	s.shift(sh)
	s[id] = pos
	return pos
}

func (s siblings) move(id string, requested int) int {
	old := s[id]
	pos, sh := PlanMove(old, requested, len(s))
	if sh != nil {
		s[id] = 0
		s.shift(sh)
		s[id] = pos
	}
	return pos
}

func (s siblings) remove(id string) {
	old := s[id]
	max := len(s)
	delete(s, id)
	s.shift(PlanRemove(old, max))
}

func (s siblings) order() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s[ids[i]] < s[ids[j]] })
	return ids
}

func assertDense(t *testing.T, s siblings) {
	t.Helper()
	got := make([]int, 0, len(s))
	for _, p := range s {
		got = append(got, p)
	}
	sort.Ints(got)
	for i, p := range got {
		require.Equal(t, i+1, p, "positions %v are not 1..%d", got, len(s))
	}
}

func TestPlanInsert(t *testing.T) {
	pos, sh := PlanInsert(0, 3)
	assert.Equal(t, 4, pos)
	assert.Nil(t, sh)

	pos, sh = PlanInsert(9, 3)
	assert.Equal(t, 4, pos, "too large appends")
	assert.Nil(t, sh)

	pos, sh = PlanInsert(2, 3)
	assert.Equal(t, 2, pos)
	assert.Equal(t, &Shift{From: 2, To: 3, Delta: 1}, sh)

	pos, sh = PlanInsert(1, 0)
	assert.Equal(t, 1, pos)
	assert.Nil(t, sh)
}

func TestPlanMove(t *testing.T) {
	pos, sh := PlanMove(4, 2, 4)
	assert.Equal(t, 2, pos)
	assert.Equal(t, &Shift{From: 2, To: 3, Delta: 1}, sh)

	pos, sh = PlanMove(1, 3, 4)
	assert.Equal(t, 3, pos)
	assert.Equal(t, &Shift{From: 2, To: 3, Delta: -1}, sh)

	pos, sh = PlanMove(2, 99, 4)
	assert.Equal(t, 4, pos, "clamped to max")
	assert.Equal(t, &Shift{From: 3, To: 4, Delta: -1}, sh)

	pos, sh = PlanMove(2, 2, 4)
	assert.Equal(t, 2, pos)
	assert.Nil(t, sh)
}

func TestPlanRemove(t *testing.T) {
	assert.Nil(t, PlanRemove(3, 3))
	assert.Equal(t, &Shift{From: 2, To: 3, Delta: -1}, PlanRemove(1, 3))
}

func TestReorderScenario(t *testing.T) {
	s := siblings{}
	for _, id := range []string{"L1", "L2", "L3", "L4"} {
		s.insert(id, 0)
	}
	assert.Equal(t, 2, s.move("L4", 2))
	assert.Equal(t, []string{"L1", "L4", "L2", "L3"}, s.order())

	assert.Equal(t, 2, s.insert("L5", 2))
	assert.Equal(t, []string{"L1", "L5", "L4", "L2", "L3"}, s.order())

	s.remove("L1")
	assert.Equal(t, []string{"L5", "L4", "L2", "L3"}, s.order())
	assertDense(t, s)
}

func TestRandomOperationsStayDense(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := siblings{}
	next := 0
	for i := 0; i < 2000; i++ {
		ids := s.order()
		switch op := rng.Intn(3); {
		case op == 0 || len(ids) == 0:
			next++
			s.insert(fmt.Sprintf("n%d", next), rng.Intn(len(ids)+3)-1)
		case op == 1:
			s.move(ids[rng.Intn(len(ids))], rng.Intn(len(ids)+3)-1)
		default:
			s.remove(ids[rng.Intn(len(ids))])
		}
		assertDense(t, s)
	}
}

func newMock(t *testing.T) (*Maintainer, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMaintainer(db), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestInsertShiftsAndCommits(t *testing.T) {
	m, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q(lockParentQuery(Lessons))).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("c1"))
	mock.ExpectQuery(q(maxQuery(Lessons))).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(3))
	mock.ExpectExec(q(shiftQuery(Lessons, 1))).WithArgs(1, "c1", 2, 3).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("INSERT INTO lessons")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pos, err := m.Insert(context.Background(), Lessons, "c1", 2, func(ctx context.Context, tx TxExec, pos int) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO lessons (id, course_id, position) VALUES (?,?,?)", "l9", "c1", pos)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRollsBackOnFailure(t *testing.T) {
	m, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q(lockParentQuery(Videos))).WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("l1"))
	mock.ExpectQuery(q(maxQuery(Videos))).WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))
	mock.ExpectExec(q(shiftQuery(Videos, 1))).WithArgs(1, "l1", 1, 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectRollback()

	boom := errors.New("insert failed")
	_, err := m.Insert(context.Background(), Videos, "l1", 1, func(context.Context, TxExec, int) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUnknownParent(t *testing.T) {
	m, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q(lockParentQuery(Lessons))).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := m.Insert(context.Background(), Lessons, "nope", 0, func(context.Context, TxExec, int) error {
		t.Fatal("create must not run")
		return nil
	})
	assert.ErrorIs(t, err, ErrParentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectLockRow(mock sqlmock.Sqlmock, sc Scope, id, parent string, pos, max int) {
	mock.ExpectQuery(q(rowQuery(sc, false))).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"parent", "pos"}).AddRow(parent, pos))
	mock.ExpectQuery(q(lockParentQuery(sc))).WithArgs(parent).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(parent))
	mock.ExpectQuery(q(rowQuery(sc, true))).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"parent", "pos"}).AddRow(parent, pos))
	mock.ExpectQuery(q(maxQuery(sc))).WithArgs(parent).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(max))
}

func TestMoveParksShiftsAndPlaces(t *testing.T) {
	m, mock := newMock(t)
	mock.ExpectBegin()
	expectLockRow(mock, Lessons, "L4", "c1", 4, 4)
	mock.ExpectExec(q(setPositionQuery(Lessons))).WithArgs(0, "L4").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(shiftQuery(Lessons, 1))).WithArgs(1, "c1", 2, 3).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q(setPositionQuery(Lessons))).WithArgs(2, "L4").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pos, err := m.Move(context.Background(), Lessons, "L4", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, pos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveSamePositionOnlyUpdates(t *testing.T) {
	m, mock := newMock(t)
	mock.ExpectBegin()
	expectLockRow(mock, Videos, "v1", "l1", 1, 3)
	mock.ExpectExec(q("UPDATE videos SET title")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	pos, err := m.Move(context.Background(), Videos, "v1", 1, func(ctx context.Context, tx TxExec, pos int) error {
		_, err := tx.ExecContext(ctx, "UPDATE videos SET title = ? WHERE id = ?", "t", "v1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveClosesGap(t *testing.T) {
	m, mock := newMock(t)
	mock.ExpectBegin()
	expectLockRow(mock, Videos, "v2", "l1", 2, 4)
	mock.ExpectExec(q(deleteQuery(Videos))).WithArgs("v2").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q(shiftQuery(Videos, -1))).WithArgs(-1, "l1", 3, 4).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, m.Remove(context.Background(), Videos, "v2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveMissingRow(t *testing.T) {
	m, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q(rowQuery(Lessons, false))).WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"parent", "pos"}))
	mock.ExpectRollback()

	assert.ErrorIs(t, m.Remove(context.Background(), Lessons, "x"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
