// Package app initializes and runs the studytrack command-line client.
// It wires configuration, logging, the persisted session store, the backend
// API client and the session manager, and dispatches the subcommands.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	validator "github.com/go-playground/validator/v10"

	"github.com/patric-chuzhbe/studytrack/internal/accessgate"
	"github.com/patric-chuzhbe/studytrack/internal/apiclient"
	"github.com/patric-chuzhbe/studytrack/internal/config"
	"github.com/patric-chuzhbe/studytrack/internal/logger"
	"github.com/patric-chuzhbe/studytrack/internal/models"
	"github.com/patric-chuzhbe/studytrack/internal/session"
	"github.com/patric-chuzhbe/studytrack/internal/sessionfile"
)

const usage = `usage: studytrack [flags] <command>

commands:
  register   -u <username> -e <email> -p <password>
  login      -e <email> -p <password>
  logout
  whoami
  modules    list | create | get | update | delete
  tasks      list | add | update | delete`

// App encapsulates the configuration, session state and backend client
// needed to run the studytrack CLI.
type App struct {
	cfg      *config.Config
	store    *sessionfile.SessionFile
	client   *apiclient.Client
	manager  *session.Manager
	out      io.Writer
	validate *validator.Validate
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - opening the persisted session store
// - building the API client and the session manager
func New() (*App, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	return NewWithConfig(cfg, os.Stdout)
}

// NewWithConfig wires the App against an already built configuration. Output
// goes to out, which tests replace with a buffer.
func NewWithConfig(cfg *config.Config, out io.Writer) (*App, error) {
	err := logger.Init(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:      cfg,
		out:      out,
		validate: validator.New(),
	}

	app.store, err = sessionfile.New(cfg.SessionFileName)
	if err != nil {
		return nil, err
	}

	app.client = apiclient.New(
		cfg.APIBaseURL,
		cfg.RequestTimeout,
		app.store,
		apiclient.WithUnauthorizedHandler(func() {
			// keeps the session consistent with what the backend thinks
			if app.manager != nil {
				app.manager.Logout()
			}
		}),
	)

	app.manager = session.NewManager(app.client, app.store)

	return app, nil
}

// Args returns the subcommand arguments left over after global flag parsing.
func (a *App) Args() []string {
	return a.cfg.Args
}

// Run dispatches the subcommand named by the first argument.
func (a *App) Run(args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	command, rest := args[0], args[1:]

	switch command {
	case "register":
		return a.runRegister(rest)
	case "login":
		return a.runLogin(rest)
	case "logout":
		return a.runLogout()
	case "whoami":
		return a.runWhoami()
	case "modules":
		return a.runModules(rest)
	case "tasks":
		return a.runTasks(rest)
	}

	return fmt.Errorf("unknown command %q\n%s", command, usage)
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func (a *App) requireSignedIn() error {
	return accessgate.Require(a.manager.Current())
}

func (a *App) validationMessage(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fields := []string{}
	for _, fieldError := range validationErrors {
		fields = append(fields, strings.ToLower(fieldError.Field()))
	}

	return fmt.Errorf("missing or invalid fields: %s", strings.Join(fields, ", "))
}

func (a *App) runRegister(args []string) error {
	flags := flag.NewFlagSet("register", flag.ContinueOnError)
	username := flags.String("u", "", "username")
	email := flags.String("e", "", "email")
	password := flags.String("p", "", "password")
	if err := flags.Parse(args); err != nil {
		return err
	}

	request := models.RegisterRequest{
		Username: *username,
		Email:    *email,
		Password: *password,
	}
	if err := a.validate.Struct(request); err != nil {
		return a.validationMessage(err)
	}

	err := a.manager.Register(context.Background(), *username, *email, *password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "registered %s, run `studytrack login` to sign in\n", *username)

	return nil
}

func (a *App) runLogin(args []string) error {
	flags := flag.NewFlagSet("login", flag.ContinueOnError)
	email := flags.String("e", "", "email")
	password := flags.String("p", "", "password")
	if err := flags.Parse(args); err != nil {
		return err
	}

	request := models.LoginRequest{
		Email:    *email,
		Password: *password,
	}
	if err := a.validate.Struct(request); err != nil {
		return a.validationMessage(err)
	}

	err := a.manager.Login(context.Background(), *email, *password)
	if err != nil {
		return err
	}

	usr, _ := a.manager.Current().User()
	fmt.Fprintf(a.out, "signed in as %s\n", usr.Username)

	return nil
}

func (a *App) runLogout() error {
	a.manager.Logout()

	fmt.Fprintln(a.out, "signed out")

	return nil
}

func (a *App) runWhoami() error {
	usr, found := a.manager.Current().User()
	if !found {
		fmt.Fprintln(a.out, "not signed in")
		return nil
	}

	fmt.Fprintf(a.out, "%s <%s>\n", usr.Username, usr.Email)

	return nil
}

func (a *App) runModules(args []string) error {
	if err := a.requireSignedIn(); err != nil {
		return err
	}

	if len(args) == 0 {
		return errors.New("usage: studytrack modules list|create|get|update|delete")
	}

	subcommand, rest := args[0], args[1:]

	switch subcommand {
	case "list":
		return a.runModulesList()
	case "create":
		return a.runModulesCreate(rest)
	case "get":
		return a.runModulesGet(rest)
	case "update":
		return a.runModulesUpdate(rest)
	case "delete":
		return a.runModulesDelete(rest)
	}

	return fmt.Errorf("unknown modules subcommand %q", subcommand)
}

func (a *App) printModule(module models.Module) {
	fmt.Fprintf(a.out, "%s\t%s\t%s\n", module.ID, module.Name, module.Description)
}

func (a *App) runModulesList() error {
	modules, err := a.client.ListModules(context.Background())
	if err != nil {
		return err
	}

	for _, module := range modules {
		a.printModule(module)
	}

	return nil
}

func (a *App) runModulesCreate(args []string) error {
	flags := flag.NewFlagSet("modules create", flag.ContinueOnError)
	name := flags.String("n", "", "module name")
	description := flags.String("d", "", "module description")
	if err := flags.Parse(args); err != nil {
		return err
	}

	request := models.ModuleRequest{
		Name:        *name,
		Description: *description,
	}
	if err := a.validate.Struct(request); err != nil {
		return a.validationMessage(err)
	}

	module, err := a.client.CreateModule(context.Background(), request)
	if err != nil {
		return err
	}

	a.printModule(*module)

	return nil
}

func (a *App) runModulesGet(args []string) error {
	flags := flag.NewFlagSet("modules get", flag.ContinueOnError)
	moduleID := flags.String("id", "", "module ID")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *moduleID == "" {
		return errors.New("missing required flag -id")
	}

	module, err := a.client.GetModule(context.Background(), *moduleID)
	if err != nil {
		return err
	}

	a.printModule(*module)

	return nil
}

func (a *App) runModulesUpdate(args []string) error {
	flags := flag.NewFlagSet("modules update", flag.ContinueOnError)
	moduleID := flags.String("id", "", "module ID")
	name := flags.String("n", "", "module name")
	description := flags.String("d", "", "module description")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *moduleID == "" {
		return errors.New("missing required flag -id")
	}

	request := models.ModuleRequest{
		Name:        *name,
		Description: *description,
	}
	if err := a.validate.Struct(request); err != nil {
		return a.validationMessage(err)
	}

	module, err := a.client.UpdateModule(context.Background(), *moduleID, request)
	if err != nil {
		return err
	}

	a.printModule(*module)

	return nil
}

func (a *App) runModulesDelete(args []string) error {
	flags := flag.NewFlagSet("modules delete", flag.ContinueOnError)
	moduleID := flags.String("id", "", "module ID")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *moduleID == "" {
		return errors.New("missing required flag -id")
	}

	err := a.client.DeleteModule(context.Background(), *moduleID)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "deleted")

	return nil
}

func (a *App) runTasks(args []string) error {
	if err := a.requireSignedIn(); err != nil {
		return err
	}

	if len(args) == 0 {
		return errors.New("usage: studytrack tasks list|add|update|delete")
	}

	subcommand, rest := args[0], args[1:]

	switch subcommand {
	case "list":
		return a.runTasksList(rest)
	case "add":
		return a.runTasksAdd(rest)
	case "update":
		return a.runTasksUpdate(rest)
	case "delete":
		return a.runTasksDelete(rest)
	}

	return fmt.Errorf("unknown tasks subcommand %q", subcommand)
}

func (a *App) printTask(task models.Task) {
	dueDate := task.DueDate
	if dueDate == "" {
		dueDate = "-"
	}
	fmt.Fprintf(a.out, "%s\t%s\t%s\t%s\n", task.ID, task.Title, task.Status, dueDate)
}

func (a *App) runTasksList(args []string) error {
	flags := flag.NewFlagSet("tasks list", flag.ContinueOnError)
	moduleID := flags.String("m", "", "module ID")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *moduleID == "" {
		return errors.New("missing required flag -m")
	}

	tasks, err := a.client.ListTasks(context.Background(), *moduleID)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		a.printTask(task)
	}

	return nil
}

func (a *App) runTasksAdd(args []string) error {
	flags := flag.NewFlagSet("tasks add", flag.ContinueOnError)
	moduleID := flags.String("m", "", "module ID")
	title := flags.String("title", "", "task title")
	description := flags.String("d", "", "task description")
	dueDate := flags.String("due", "", "due date (YYYY-MM-DD)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *moduleID == "" {
		return errors.New("missing required flag -m")
	}

	request := models.CreateTaskRequest{
		Title:       *title,
		Description: *description,
		DueDate:     *dueDate,
	}
	if err := a.validate.Struct(request); err != nil {
		return a.validationMessage(err)
	}

	task, err := a.client.CreateTask(context.Background(), *moduleID, request)
	if err != nil {
		return err
	}

	a.printTask(*task)

	return nil
}

func (a *App) runTasksUpdate(args []string) error {
	flags := flag.NewFlagSet("tasks update", flag.ContinueOnError)
	taskID := flags.String("id", "", "task ID")
	title := flags.String("title", "", "task title")
	description := flags.String("d", "", "task description")
	status := flags.String("status", "", "task status (todo|in-progress|done)")
	dueDate := flags.String("due", "", "due date (YYYY-MM-DD)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *taskID == "" {
		return errors.New("missing required flag -id")
	}

	// only the flags the user actually set go into the partial update
	request := models.UpdateTaskRequest{}
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			request.Title = title
		case "d":
			request.Description = description
		case "due":
			request.DueDate = dueDate
		case "status":
			parsed, err := models.ParseTaskStatus(*status)
			if err == nil {
				request.Status = &parsed
			}
		}
	})
	if *status != "" && request.Status == nil {
		return models.ErrUnknownTaskStatus
	}

	task, err := a.client.UpdateTask(context.Background(), *taskID, request)
	if err != nil {
		return err
	}

	a.printTask(*task)

	return nil
}

func (a *App) runTasksDelete(args []string) error {
	flags := flag.NewFlagSet("tasks delete", flag.ContinueOnError)
	taskID := flags.String("id", "", "task ID")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *taskID == "" {
		return errors.New("missing required flag -id")
	}

	err := a.client.DeleteTask(context.Background(), *taskID)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "deleted")

	return nil
}
