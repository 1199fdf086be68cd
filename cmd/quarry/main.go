// Command quarry is the database toolkit CLI: migrations, seeding and
// source scaffolding for projects built on the quarry data layer.
package main

import (
	"os"

	"github.com/quarrydb/quarry/internal/cli"

	_ "github.com/quarrydb/quarry/adapter/mongo"
	_ "github.com/quarrydb/quarry/adapter/mysql"
	_ "github.com/quarrydb/quarry/adapter/postgres"
	_ "github.com/quarrydb/quarry/adapter/sqlite"
)

func main() {
	os.Exit(cli.Execute())
}
