package main

import (
	"context"
	"errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

var errOwnerExists = errors.New("an owner account already exists")

// addUser updates or creates a user.User.
// The owner role can only ever be granted here; at most one owner may exist.
func (cli *commandLine) addUser(name, email, pwd string, isAdmin, isOwner bool) error {
	var usr user.User
	var err error
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	if usr, err = cli.usrRepo.GetUserByEmail(ctx, email); err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{Email: email}
	}
	if name != "" {
		usr.Name = name
	}

	switch {
	case isOwner:
		owners, err := cli.usrRepo.FilterUsers(ctx, user.QueryFilter{Roles: []string{user.RoleAdminOwner}})
		if err != nil {
			return err
		}
		for _, owner := range owners {
			if owner.ID != usr.ID {
				return errOwnerExists
			}
		}
		usr.Roles = user.AllRoles
	case isAdmin:
		usr.Roles = []string{user.RoleAdmin}
	case len(usr.Roles) == 0:
		usr.Roles = []string{user.RoleStudent}
	}

	usr.IsActive = true
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	if _, err := cli.usrRepo.UpdateOrCreateUser(ctx, usr); err != nil {
		return err
	}
	return nil
}
