package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/user"
	emailsvc "github.com/trezcool/evalink/services/email"
	logsvc "github.com/trezcool/evalink/services/logger"
	dummydb "github.com/trezcool/evalink/storage/database/dummy"
	testutil "github.com/trezcool/evalink/tests"
)

var (
	usrRepo user.Repository
	logger  core.Logger
)

func TestMain(m *testing.M) {
	l := logsvc.NewRollbarLogger(io.Discard, "TEST", core.Conf)
	l.Enable(false)
	logger = l
	user.LoadCommonPasswords(logger)

	os.Exit(m.Run())
}

func setup(t *testing.T) *commandLine {
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo = dummydb.NewUserRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	return &commandLine{
		usrSvc:   user.NewService(usrRepo, emailsvc.NewConsoleServiceMock(core.Conf, logger), validate),
		validate: validate,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(_ *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_semesters", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	testutil.CreateUser(t, usrRepo, "admin", "Admin", "admin@test.cd", "", user.RoleAdmin, true)

	t.Run("usage", func(t *testing.T) {
		mockPassword(testutil.Password)
		assert.Equal(t, errHelp, cli.run([]string{"admin", "adduser"}))
		assert.Equal(t, errHelp, cli.run([]string{"admin", "adduser", "-id", "f-001"}))

		mockPassword("")
		assert.Equal(t, errHelp, cli.run([]string{"admin", "adduser", "-id", "f-001", "-name", "Grace Hopper"}))
	})

	t.Run("weak password", func(t *testing.T) {
		mockPassword("lol")
		err := cli.run([]string{"admin", "adduser", "-id", "f-001", "-name", "Grace Hopper"})
		assert.IsType(t, validator.ValidationErrors{}, err)
	})

	t.Run("duplicate ID", func(t *testing.T) {
		mockPassword(testutil.Password)
		err := cli.run([]string{"admin", "adduser", "-id", "admin", "-name", "Another Admin"})
		assert.True(t, core.IsConflict(err), "got %v", err)
	})

	t.Run("created", func(t *testing.T) {
		mockPassword(testutil.Password)
		err := cli.run([]string{"admin", "adduser", "-id", "f-001", "-name", "Grace Hopper", "-email", "GRACE@test.cd", "-role", "faculty"})
		require.NoError(t, err)

		usr, err := usrRepo.GetUserByID(context.Background(), "f-001")
		require.NoError(t, err)
		assert.Equal(t, user.RoleFaculty, usr.Role)
		assert.Equal(t, "grace@test.cd", usr.Email)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(testutil.Password))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "2021-00017", "Hero", "hero@test.cd", "Old#Pass123", user.RoleStudent, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "ID but no password", args: []string{"resetpassword", "-id", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-id", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with ID", args: []string{"resetpassword", "-id", usr.ID}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-id", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		var pwd string
		if ex, ok := tt.extra.(extra); ok {
			pwd = ex.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)

			refreshed, err := usrRepo.GetUserByID(context.Background(), usr.ID)
			require.NoError(t, err)
			assert.NoError(t, refreshed.CheckPassword(pwd))
		})
	}
}
