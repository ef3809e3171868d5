package main

import (
	"context"
	"fmt"

	"github.com/qazmun/mun/core/user"
)

// operator acts on users from the command line.
var operator = user.Profile{FullName: "operator", Role: user.RoleFounder}

func (cli *commandLine) setRole(ctx context.Context, email string, role user.Role, schoolID int) error {
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	prof, err := cli.usrSvc.SetRole(ctx, operator, usr.ID, role)
	if err != nil {
		return err
	}
	if schoolID > 0 {
		if prof, err = cli.usrSvc.SetSchool(ctx, operator, usr.ID, schoolID); err != nil {
			return err
		}
	}
	fmt.Printf("%s is now %s\n", usr.Email, prof.Role)
	return nil
}
