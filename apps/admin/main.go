package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/evalink/core"
	"github.com/trezcool/evalink/core/user"
	emailsvc "github.com/trezcool/evalink/services/email"
	logsvc "github.com/trezcool/evalink/services/logger"
	"github.com/trezcool/evalink/storage/database"
	sqlxrepos "github.com/trezcool/evalink/storage/database/sqlx"
)

func main() {
	conf := core.Conf

	logger := logsvc.NewRollbarLogger(nil, "ADMIN", conf)
	logger.Enable(false)

	// set up DB
	db, err := database.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	// start CLI
	cli := commandLine{
		db:       db.DB,
		usrSvc:   user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf, logger), validate),
		validate: validate,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
