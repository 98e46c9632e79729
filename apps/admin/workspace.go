package main

import (
	"context"

	"github.com/trezcool/inclusiva/core/workspace"
)

func (cli *commandLine) createWorkspace(name, plan string) error {
	w, err := cli.wsSvc.Create(context.Background(), workspace.NewWorkspace{Name: name, Plan: plan})
	if err != nil {
		return err
	}
	cli.printf("workspace %q created\n  id:  %s\n  pin: %s\n", w.Name, w.ID, w.PIN)
	return nil
}

func (cli *commandLine) listWorkspaces() error {
	ws, err := cli.wsSvc.Query(context.Background())
	if err != nil {
		return err
	}
	for _, w := range ws {
		status := "active"
		if !w.IsActive {
			status = "inactive"
		}
		cli.printf("%s\t%s\t%s\t%s\n", w.ID, w.Name, w.Plan, status)
	}
	return nil
}

func (cli *commandLine) regeneratePIN(id string) error {
	w, err := cli.wsSvc.RegeneratePIN(context.Background(), id)
	if err != nil {
		return err
	}
	cli.printf("new pin for %q: %s\n", w.Name, w.PIN)
	return nil
}

func (cli *commandLine) setWorkspaceActive(id string, active bool) error {
	return cli.wsSvc.SetActive(context.Background(), id, active)
}

func (cli *commandLine) deleteWorkspace(id string) error {
	return cli.wsSvc.Delete(context.Background(), id)
}

func (cli *commandLine) setMaster(workspaceID, name, email, pwd string) error {
	_, err := cli.wsSvc.SetMaster(context.Background(), workspaceID, name, email, pwd)
	return err
}
