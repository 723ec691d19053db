package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/coachpo/swiperflix-gateway/pkg/common/database"
	"gorm.io/gorm"
)

// OpenStore opens a throwaway SQLite record store under t.TempDir and closes it
// when the test finishes. Callers run their own AutoMigrate.
func OpenStore(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "swiperflix.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
