package shield

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/natal/dbopen"
)

func setupMaintenanceDB(t *testing.T) *sql.DB {
	t.Helper()
	return dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func TestMaintenance_Off(t *testing.T) {
	db := setupMaintenanceDB(t)
	mm := NewMaintenanceMode(db)

	handler := mm.Middleware(okHandler())
	req := httptest.NewRequest("POST", "/v1/reading", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 when maintenance off, got %d", w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("expected OK body, got %q", w.Body.String())
	}
}

func TestMaintenance_On(t *testing.T) {
	db := setupMaintenanceDB(t)
	db.Exec(`UPDATE maintenance SET active = 1, message = 'Back soon' WHERE id = 1`)

	mm := NewMaintenanceMode(db)

	handler := mm.Middleware(okHandler())
	req := httptest.NewRequest("POST", "/v1/reading", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when maintenance on, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "MAINTENANCE") {
		t.Errorf("expected MAINTENANCE code in body, got %q", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "Back soon") {
		t.Errorf("expected maintenance message in body, got %q", w.Body.String())
	}
	if ra := w.Header().Get("Retry-After"); ra != "300" {
		t.Errorf("expected Retry-After: 300, got %q", ra)
	}
}

func TestMaintenance_ExcludedPath(t *testing.T) {
	db := setupMaintenanceDB(t)
	db.Exec(`UPDATE maintenance SET active = 1 WHERE id = 1`)

	mm := NewMaintenanceMode(db, "/healthz")

	handler := mm.Middleware(okHandler())
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("/healthz should bypass maintenance, got %d", w.Code)
	}
}

func TestMaintenance_NoTable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// No maintenance table — should not panic, maintenance off.
	mm := NewMaintenanceMode(db)
	if mm.Active() {
		t.Error("expected maintenance off when table missing")
	}

	handler := mm.Middleware(okHandler())
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200 when no table, got %d", w.Code)
	}
}

func TestMaintenance_Toggle(t *testing.T) {
	db := setupMaintenanceDB(t)
	mm := NewMaintenanceMode(db)

	if mm.Active() {
		t.Fatal("expected off initially")
	}

	db.Exec(`UPDATE maintenance SET active = 1 WHERE id = 1`)
	mm.reload()
	if !mm.Active() {
		t.Fatal("expected on after toggle")
	}

	db.Exec(`UPDATE maintenance SET active = 0 WHERE id = 1`)
	mm.reload()
	if mm.Active() {
		t.Fatal("expected off after second toggle")
	}
}
