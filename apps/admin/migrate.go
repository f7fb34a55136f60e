package main

import (
	"context"

	"github.com/crec/backoffice/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cl *commandLine) migrate(command string, args ...string) error {
	return migrateFunc(context.Background(), cl.db, command, args...)
}
