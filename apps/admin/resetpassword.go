package main

import (
	"context"
)

// resetPassword sets the password of the user identified by ID or email.
func (cli *commandLine) resetPassword(identifier, pwd string) error {
	return cli.usrSvc.SetPassword(context.Background(), identifier, pwd)
}
