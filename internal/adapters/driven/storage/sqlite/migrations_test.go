package sqlite

import (
	"io/fs"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
)

func readMigration(name string) ([]byte, error) {
	return fs.ReadFile(migrations.FS, name)
}
