package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/urfave/cli.v1"

	"github.com/crec/backoffice/core"
	"github.com/crec/backoffice/core/event"
	"github.com/crec/backoffice/core/fablab"
	"github.com/crec/backoffice/core/formation"
	"github.com/crec/backoffice/core/inscription"
	"github.com/crec/backoffice/core/user"
	"github.com/crec/backoffice/storage/database"
	"github.com/crec/backoffice/storage/database/sqlxrepos"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db           *database.DB
	conf         *core.Config
	logger       *logrus.Logger
	out          io.Writer
	validate     *validator.Validate
	translator   ut.Translator
	usrSvc       *user.Service
	formations   *formation.Service
	events       *event.Service
	fablab       *fablab.Service
	inscriptions *inscription.Service
}

func newCommandLine(db *database.DB, conf *core.Config, logger *logrus.Logger, mailSvc core.EmailService) *commandLine {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	formationSvc := formation.NewService(sqlxrepos.NewFormationRepository(db), validate)
	eventSvc := event.NewService(sqlxrepos.NewEventRepository(db), validate)
	fablabSvc := fablab.NewService(sqlxrepos.NewFabLabRepository(db), db, mailSvc, conf, validate)

	return &commandLine{
		db:         db,
		conf:       conf,
		logger:     logger,
		out:        os.Stdout,
		validate:   validate,
		translator: translator,
		usrSvc:     user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf),
		formations: formationSvc,
		events:     eventSvc,
		fablab:     fablabSvc,
		inscriptions: inscription.NewService(
			sqlxrepos.NewInscriptionRepository(db), db, mailSvc, formationSvc, eventSvc, fablabSvc, validate,
		),
	}
}

func (cl *commandLine) app() *cli.App {
	app := cli.NewApp()
	app.Name = "admin"
	app.Usage = "Administer the CREC back-office"
	app.Version = cl.conf.Build
	app.Writer = cl.out
	app.ErrWriter = cl.out
	app.Action = func(c *cli.Context) error {
		_ = cli.ShowAppHelp(c)
		return errHelp
	}

	app.Commands = []cli.Command{
		{
			Name:            "migrate",
			Usage:           "Run a database migration command",
			ArgsUsage:       "up|up-by-one|up-to VERSION|down|down-to VERSION|redo|reset|status|version",
			SkipFlagParsing: true,
			Action: func(c *cli.Context) error {
				if !c.Args().Present() {
					_ = cli.ShowCommandHelp(c, "migrate")
					return errHelp
				}
				return cl.migrate(c.Args().First(), c.Args().Tail()...)
			},
		},
		{
			Name:  "adduser",
			Usage: "Create or update a staff user; the password is prompted next",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "name", Usage: "full name"},
				cli.StringFlag{Name: "username, u", Usage: "username"},
				cli.StringFlag{Name: "email, e", Usage: "email address"},
				cli.StringSliceFlag{Name: "role, r", Usage: "role to grant (repeatable)"},
				cli.BoolFlag{Name: "owner", Usage: "grant the admin:owner role"},
			},
			Action: func(c *cli.Context) error {
				if c.String("username") == "" && c.String("email") == "" {
					_ = cli.ShowCommandHelp(c, "adduser")
					return errHelp
				}
				pwd, err := promptPassword(cl.out)
				if err != nil {
					return err
				}
				if pwd == "" {
					_ = cli.ShowCommandHelp(c, "adduser")
					return errHelp
				}
				roles := c.StringSlice("role")
				if c.Bool("owner") {
					roles = append(roles, user.RoleAdminOwner)
				}
				usr, err := cl.addUser(c.String("name"), c.String("username"), c.String("email"), pwd, roles)
				if err != nil {
					return err
				}
				cl.logger.WithField("user", usr.ID).Info("user saved")
				return nil
			},
		},
		{
			Name:  "resetpassword",
			Usage: "Reset a user's password; the password is prompted next",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "username, u", Usage: "the user's username or email"},
			},
			Action: func(c *cli.Context) error {
				uname := c.String("username")
				if uname == "" {
					_ = cli.ShowCommandHelp(c, "resetpassword")
					return errHelp
				}
				pwd, err := promptPassword(cl.out)
				if err != nil {
					return err
				}
				if pwd == "" {
					_ = cli.ShowCommandHelp(c, "resetpassword")
					return errHelp
				}
				return cl.resetPassword(uname, pwd)
			},
		},
		{
			Name:  "seed",
			Usage: "Load the demo content into empty tables",
			Action: func(c *cli.Context) error {
				return cl.seed()
			},
		},
		{
			Name:      "export",
			Usage:     "Dump the site content and the inscriptions as JSON",
			ArgsUsage: "[FILE]",
			Action: func(c *cli.Context) error {
				path := c.Args().First()
				if path == "" {
					path = defaultExportFile
				}
				return cl.export(path)
			},
		},
	}
	return app
}

func (cl *commandLine) run(args []string) error {
	return cl.app().Run(args)
}

func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
