package main

import (
	"context"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/user"
)

// addUser creates a user, or activates an existing one with the new password and the extra roles.
func (cl *commandLine) addUser(name, uname, email, pwd string, roles []string) (user.User, error) {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	lookup := uname
	if lookup == "" {
		lookup = email
	}
	usr, err := cl.usrSvc.GetByUsernameOrEmail(ctx, lookup)
	if err != nil && !core.IsNotFound(err) {
		return user.User{}, err
	}

	if err != nil { // not found
		if name == "" {
			name = lookup
		}
		nu := user.NewUser{
			Name:            name,
			Username:        uname,
			Email:           email,
			Password:        pwd,
			PasswordConfirm: pwd,
			Roles:           roles,
		}
		if err = nu.Validate(ctx, cl.validate, cl.usrSvc); err != nil {
			return user.User{}, err
		}
		return cl.usrSvc.Create(ctx, nu)
	}

	active := true
	uu := user.UpdateUser{
		Name:            name,
		IsActive:        &active,
		Roles:           mergeRoles(usr.Roles, roles),
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err = uu.Validate(ctx, usr, cl.validate, cl.usrSvc); err != nil {
		return user.User{}, err
	}
	return cl.usrSvc.Update(ctx, usr, uu)
}

func mergeRoles(current, extra []string) []string {
	seen := make(map[string]bool, len(current)+len(extra))
	merged := make([]string, 0, len(current)+len(extra))
	for _, role := range append(append([]string{}, current...), extra...) {
		if role = core.CleanString(role, true /* lower */); role != "" && !seen[role] {
			seen[role] = true
			merged = append(merged, role)
		}
	}
	return merged
}
