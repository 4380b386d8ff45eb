package repomanager

import (
	"io/fs"

	"github.com/dmitrijs2005/payportal/internal/server/migrations"
)

func migrationsFS() fs.FS { return migrations.Migrations }
