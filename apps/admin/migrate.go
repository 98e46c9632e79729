package main

import "errors"

var errNoMigrations = errors.New("the configured database engine has no migrations")

func (cli *commandLine) migrate(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	if cli.migrateFn == nil {
		return errNoMigrations
	}
	return cli.migrateFn(args[0], args[1:]...)
}
