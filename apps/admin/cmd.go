package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/workspace"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	wsSvc     workspace.ServiceInterface
	memberSvc member.ServiceInterface
	migrateFn func(command string, args ...string) error
	out       io.Writer
}

func (cli *commandLine) printf(format string, args ...interface{}) {
	out := cli.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, format, args...)
}

func (cli *commandLine) printUsage() {
	cli.printf("Usage:\n")
	cli.printf("  migrate COMMAND [ARGS] - run a goose command (up, down, redo, status, version...)\n")
	cli.printf("  createworkspace -name NAME [-plan basic|premium] - create a workspace and print its PIN\n")
	cli.printf("  listworkspaces - list all workspaces\n")
	cli.printf("  regeneratepin -id ID - replace a workspace's PIN\n")
	cli.printf("  deactivateworkspace -id ID [-reactivate] - block (or restore) logins to a workspace\n")
	cli.printf("  deleteworkspace -id ID - delete a workspace and all of its data\n")
	cli.printf("  setmaster -workspace ID -name NAME -email EMAIL - set the workspace master; the password is prompted next\n")
	cli.printf("  resetpassword -workspace ID -email EMAIL - reset a member's password; the password is prompted next\n")
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])

	case "createworkspace":
		cmd := newFlagSet("createworkspace")
		name := cmd.String("name", "", "The workspace (school) name.")
		plan := cmd.String("plan", workspace.PlanBasic, "The subscription plan.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *name == "" {
			cli.printUsage()
			return errHelp
		}
		return cli.createWorkspace(*name, *plan)

	case "listworkspaces":
		return cli.listWorkspaces()

	case "regeneratepin", "deleteworkspace", "deactivateworkspace":
		cmd := newFlagSet(args[1])
		id := cmd.String("id", "", "The workspace ID.")
		reactivate := cmd.Bool("reactivate", false, "Restore logins instead of blocking them.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *id == "" {
			cli.printUsage()
			return errHelp
		}
		switch args[1] {
		case "regeneratepin":
			return cli.regeneratePIN(*id)
		case "deleteworkspace":
			return cli.deleteWorkspace(*id)
		default:
			return cli.setWorkspaceActive(*id, *reactivate)
		}

	case "setmaster":
		cmd := newFlagSet("setmaster")
		wsID := cmd.String("workspace", "", "The workspace ID.")
		name := cmd.String("name", "", "The master's name.")
		email := cmd.String("email", "", "The master's email.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *wsID == "" || *email == "" {
			cli.printUsage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cli.printUsage()
			return errHelp
		}
		return cli.setMaster(*wsID, *name, *email, pwd)

	case "resetpassword":
		cmd := newFlagSet("resetpassword")
		wsID := cmd.String("workspace", "", "The workspace ID.")
		email := cmd.String("email", "", "The member's email.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *wsID == "" || *email == "" {
			cli.printUsage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			cli.printUsage()
			return errHelp
		}
		return cli.resetPassword(*wsID, *email, pwd)

	default:
		cli.printUsage()
		return errHelp
	}
}
