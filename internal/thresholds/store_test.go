package thresholds

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestStore_GetStages(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer conn.Close()
	store := NewStore(conn)

	mock.ExpectQuery("SELECT action_stage, minor_stage, moderate_stage, major_stage").
		WithArgs("station-8447930").
		WillReturnRows(sqlmock.NewRows([]string{"action_stage", "minor_stage", "moderate_stage", "major_stage"}).
			AddRow(2.0, 3.0, 4.0, 5.0))

	stages, err := store.GetStages(context.Background(), "station-8447930")
	if err != nil {
		t.Fatalf("GetStages() error = %v", err)
	}
	if stages.Action != 2.0 || stages.Major != 5.0 {
		t.Errorf("stages = %+v", stages)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_GetStages_NotConfigured(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer conn.Close()
	store := NewStore(conn)

	mock.ExpectQuery("SELECT action_stage, minor_stage, moderate_stage, major_stage").
		WithArgs("station-404").
		WillReturnRows(sqlmock.NewRows([]string{"action_stage", "minor_stage", "moderate_stage", "major_stage"}))

	if _, err := store.GetStages(context.Background(), "station-404"); err == nil {
		t.Error("GetStages() error = nil for unconfigured station")
	}
}
