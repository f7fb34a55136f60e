package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crec/backoffice/core"
	emailsvc "github.com/crec/backoffice/services/email"
	logsvc "github.com/crec/backoffice/services/logger"
	"github.com/crec/backoffice/storage/database"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	std := logsvc.NewStdLogger(conf)
	logger := std.WithField("app", "admin")

	// set up DB
	if err = database.CreateIfNotExist(context.Background(), conf); err != nil {
		logger.WithError(err).Fatal("creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.WithError(err).Fatal("opening database")
	}

	// the CLI never sends real emails
	mailSvc := emailsvc.NewConsoleService(conf, logsvc.NewRollbarLogger(std, conf))

	// start CLI
	cl := newCommandLine(db, conf, std, mailSvc)
	err = cl.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			report(logger, cl, err)
		}
		os.Exit(1)
	}
}

func report(logger *logrus.Entry, cl *commandLine, err error) {
	if verrs, ok := errors.Cause(err).(validator.ValidationErrors); ok {
		logger.WithField("fields", verrs.Translate(cl.translator)).Error("invalid input")
		return
	}
	if verr, ok := errors.Cause(err).(*core.ValidationError); ok {
		fields := make(map[string]string, len(verr.Fields))
		for _, f := range verr.Fields {
			fields[f.Field] = f.Error
		}
		logger.WithField("fields", fields).Error("invalid input")
		return
	}
	logger.WithError(err).Error("command failed")
}
