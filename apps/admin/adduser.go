package main

import (
	"context"
	"fmt"

	"github.com/trezcool/evalink/core/user"
)

// addUser validates nu against the password policy, then creates the user.
func (cli *commandLine) addUser(nu user.NewUser) error {
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Printf("%s %q created\n", usr.Role, usr.ID)
	return nil
}
