package main

import (
	"context"

	"github.com/crec/backoffice/core/user"
)

// resetPassword sets a new password, subject to the same policy as the API.
func (cl *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	usr, err := cl.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	uu := user.UpdateUser{Password: pwd, PasswordConfirm: pwd}
	if err = uu.Validate(ctx, usr, cl.validate, cl.usrSvc); err != nil {
		return err
	}
	_, err = cl.usrSvc.Update(ctx, usr, uu)
	return err
}
