package main

import "context"

func (cli *commandLine) resetPassword(workspaceID, email, pwd string) error {
	return cli.memberSvc.SetPassword(context.Background(), workspaceID, email, pwd)
}
