package state

import (
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

type settings struct {
	Mode       string `json:"mode"`
	Brightness int    `json:"brightness"`
}

func TestTypedStore_GetMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload, version FROM resource_state")).
		WithArgs("lamp", "lampada1").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "version"}))

	store := NewTypedStore[settings](NewStore(db), "lamp")
	_, found, err := store.Get("lampada1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if found {
		t.Error("found should be false for a missing row")
	}
}

func TestTypedStore_GetDecodes(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT payload, version FROM resource_state")).
		WithArgs("lamp", "lampada1").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "version"}).AddRow(`{"mode":"automatic","brightness":40}`, 3))

	store := NewTypedStore[settings](NewStore(db), "lamp")
	got, found, err := store.Get("lampada1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !found || got.Mode != "automatic" || got.Brightness != 40 {
		t.Errorf("Get = %+v, found=%v", got, found)
	}
}

func TestTypedStore_Set(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO resource_state")).
		WithArgs("lamp", "lampada1", `{"mode":"manual","brightness":80}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewTypedStore[settings](NewStore(db), "lamp")
	if err := store.Set("lampada1", settings{Mode: "manual", Brightness: 80}); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
