package main

import (
	"context"
	"fmt"

	"github.com/qazmun/mun/core/user"
)

func (cli *commandLine) createUser(ctx context.Context, email, fullName, pwd string, role user.Role, schoolID int) error {
	usr, prof, err := cli.usrSvc.CreateUser(ctx, email, fullName, pwd, role, schoolID)
	if err != nil {
		return err
	}
	fmt.Printf("created %s (%s) as %s\n", usr.Email, usr.ID, prof.Role)
	return nil
}
