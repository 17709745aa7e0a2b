package main

import (
	"context"
	"database/sql"
	"io/fs"
	"reflect"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/ratiba/core/user"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
)

func mockPassword(t *testing.T, pwd string) {
	t.Helper()
	orig := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

func newTestCLI() *commandLine {
	return &commandLine{
		db:      &sqlx.DB{},
		usrRepo: inmemdb.NewUserRepository(inmemdb.NewDB()),
	}
}

func TestCommandLineHelp(t *testing.T) {
	cli := newTestCLI()

	tests := []struct {
		name string
		args []string
	}{
		{"no command", []string{"admin"}},
		{"unknown command", []string{"admin", "frobnicate"}},
		{"adduser without email", []string{"admin", "adduser", "-name", "X"}},
		{"resetpassword without email", []string{"admin", "resetpassword"}},
		{"migrate without subcommand", []string{"admin", "migrate"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(tt.args); err != errHelp {
				t.Errorf("run(%v) = %v, want errHelp", tt.args, err)
			}
		})
	}

	t.Run("empty password", func(t *testing.T) {
		mockPassword(t, "")
		if err := cli.run([]string{"admin", "adduser", "-email", "x@kluniversity.in"}); err != errHelp {
			t.Errorf("run() = %v, want errHelp", err)
		}
	})
}

func TestCommandLineAddUser(t *testing.T) {
	cli := newTestCLI()
	ctx := context.Background()
	mockPassword(t, "G00d#Pass")

	t.Run("creates a student by default", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser", "-name", "Asha Patel", "-email", "Asha@KLUniversity.in"}); err != nil {
			t.Fatalf("run() = %v", err)
		}
		usr, err := cli.usrRepo.GetUserByEmail(ctx, "asha@kluniversity.in")
		if err != nil {
			t.Fatalf("GetUserByEmail() = %v", err)
		}
		if usr.Name != "Asha Patel" {
			t.Errorf("Name = %v, want %v", usr.Name, "Asha Patel")
		}
		if !reflect.DeepEqual(usr.Roles, []string{user.RoleStudent}) {
			t.Errorf("Roles = %v, want %v", usr.Roles, []string{user.RoleStudent})
		}
		if !usr.IsActive {
			t.Error("IsActive = false, want true")
		}
		if err := usr.CheckPassword("G00d#Pass"); err != nil {
			t.Errorf("CheckPassword() = %v", err)
		}
	})

	t.Run("updates an existing user in place", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser", "-email", "asha@kluniversity.in", "-admin"}); err != nil {
			t.Fatalf("run() = %v", err)
		}
		usr, err := cli.usrRepo.GetUserByEmail(ctx, "asha@kluniversity.in")
		if err != nil {
			t.Fatalf("GetUserByEmail() = %v", err)
		}
		if usr.Name != "Asha Patel" {
			t.Errorf("Name = %v, want it untouched", usr.Name)
		}
		if !usr.IsAdmin() {
			t.Errorf("Roles = %v, want the admin role", usr.Roles)
		}
		users, err := cli.usrRepo.QueryAllUsers(ctx)
		if err != nil {
			t.Fatalf("QueryAllUsers() = %v", err)
		}
		if len(users) != 1 {
			t.Errorf("len(users) = %v, want 1", len(users))
		}
	})

	t.Run("grants the owner role once", func(t *testing.T) {
		if err := cli.run([]string{"admin", "adduser", "-name", "Neema Zadi", "-email", "neema@kluniversity.in", "-owner"}); err != nil {
			t.Fatalf("run() = %v", err)
		}
		owner, err := cli.usrRepo.GetUserByEmail(ctx, "neema@kluniversity.in")
		if err != nil {
			t.Fatalf("GetUserByEmail() = %v", err)
		}
		if !owner.IsOwner() {
			t.Errorf("Roles = %v, want the owner role", owner.Roles)
		}

		// the existing owner can be re-added
		if err := cli.run([]string{"admin", "adduser", "-email", "neema@kluniversity.in", "-owner"}); err != nil {
			t.Errorf("run() = %v, want nil for the same owner", err)
		}
		// but a second owner cannot
		err = cli.run([]string{"admin", "adduser", "-name", "Upstart", "-email", "upstart@kluniversity.in", "-owner"})
		if err != errOwnerExists {
			t.Errorf("run() = %v, want errOwnerExists", err)
		}
	})
}

func TestCommandLineResetPassword(t *testing.T) {
	cli := newTestCLI()
	ctx := context.Background()

	mockPassword(t, "01d#Pass!")
	if err := cli.run([]string{"admin", "adduser", "-name", "Asha Patel", "-email", "asha@kluniversity.in"}); err != nil {
		t.Fatalf("run() = %v", err)
	}

	mockPassword(t, "N3w#Pass!")
	if err := cli.run([]string{"admin", "resetpassword", "-email", "asha@kluniversity.in"}); err != nil {
		t.Fatalf("run() = %v", err)
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, "asha@kluniversity.in")
	if err != nil {
		t.Fatalf("GetUserByEmail() = %v", err)
	}
	if err := usr.CheckPassword("N3w#Pass!"); err != nil {
		t.Errorf("CheckPassword(new) = %v", err)
	}
	if err := usr.CheckPassword("01d#Pass!"); err == nil {
		t.Error("CheckPassword(old) = nil, want an error")
	}

	t.Run("unknown email", func(t *testing.T) {
		if err := cli.run([]string{"admin", "resetpassword", "-email", "ghost@kluniversity.in"}); err != user.ErrNotFound {
			t.Errorf("run() = %v, want ErrNotFound", err)
		}
	})
}

func TestCommandLineMigrate(t *testing.T) {
	cli := newTestCLI()

	var gotCmd, gotDir string
	var gotArgs []string
	orig := gooseRunFunc
	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		gotCmd, gotDir, gotArgs = command, dir, args
		return nil
	}
	t.Cleanup(func() { gooseRunFunc = orig })

	if err := cli.run([]string{"admin", "migrate", "up-to", "2"}); err != nil {
		t.Fatalf("run() = %v", err)
	}
	if gotCmd != "up-to" {
		t.Errorf("command = %v, want up-to", gotCmd)
	}
	if gotDir != "migrations" {
		t.Errorf("dir = %v, want migrations", gotDir)
	}
	if !reflect.DeepEqual(gotArgs, []string{"2"}) {
		t.Errorf("args = %v, want [2]", gotArgs)
	}
}
