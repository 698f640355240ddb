// Package app assembles the application: it builds every component once, wires their
// subscriptions and runs all model access on a single executor goroutine.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"umlforge/local-app/internal/clipboard"
	"umlforge/local-app/internal/command"
	"umlforge/local-app/internal/config"
	"umlforge/local-app/internal/engine"
	"umlforge/local-app/internal/factory"
	"umlforge/local-app/internal/log"
	"umlforge/local-app/internal/metrics"
	"umlforge/local-app/internal/model"
	"umlforge/local-app/internal/project"
	"umlforge/local-app/internal/repository"
	"umlforge/local-app/internal/selection"
	"umlforge/local-app/internal/storage"
)

// ErrClosed is returned for work submitted after Close
var ErrClosed = errors.New("application closed")

// Context holds every component of one running application
type Context struct {
	Config    *model.Config
	Logger    *log.Logger
	Storage   storage.Database
	Repo      *repository.Repository
	Engine    *engine.Engine
	Projects  *project.Manager
	Backups   *project.BackupManager
	Clipboard *clipboard.Clipboard
	Selection *selection.Manager
	Factory   *factory.Factory
	Commands  *command.Manager
	Metrics   *metrics.Collector

	queue   chan execution
	stop    chan struct{}
	quit    chan struct{}
	cancel  context.CancelFunc
	watcher *config.Watcher
	wg      sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once
	quitOnce  sync.Once

	unsubscribe []func()
}

// execution is a command or a function to run on the executor, and where its outcome goes
type execution struct {
	ctx     context.Context
	command model.Command
	fn      func()
	result  chan interface{}
	err     chan error
}

// New builds the application on an open storage. The clipboard board is the system
// clipboard when configured and available, otherwise an in-process one.
func New(cfg *model.Config, logger *log.Logger, store storage.Database) (*Context, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger not initialized")
	}
	ctx := context.Background()
	if cfg == nil {
		logger.Error(ctx, "Config not initialized", nil)
		return nil, fmt.Errorf("config not initialized")
	}
	if store == nil {
		logger.Error(ctx, "Storage not initialized", nil)
		return nil, fmt.Errorf("storage not initialized")
	}

	a := &Context{
		Config:  cfg,
		Logger:  logger,
		Storage: store,
		Metrics: metrics.NewCollector(),
		queue:   make(chan execution),
		stop:    make(chan struct{}),
		quit:    make(chan struct{}),
	}

	var err error
	if a.Repo, err = repository.NewRepository(repository.DefaultRegistry(), logger, repository.WithHistoryLimit(cfg.HistoryLimit)); err != nil {
		return nil, fmt.Errorf("failed to create repository: %w", err)
	}
	if a.Engine, err = engine.NewEngine(a.Repo, logger); err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if a.Projects, err = project.NewManager(a.Repo, a.Engine, store, logger); err != nil {
		return nil, fmt.Errorf("failed to create project manager: %w", err)
	}
	if a.Backups, err = project.NewBackupManager(a.Repo, store, config.BackupPath(cfg), logger); err != nil {
		return nil, fmt.Errorf("failed to create backup manager: %w", err)
	}
	if a.Clipboard, err = clipboard.NewClipboard(a.Repo, newBoard(cfg, logger), logger); err != nil {
		return nil, fmt.Errorf("failed to create clipboard: %w", err)
	}
	if a.Selection, err = selection.NewManager(a.Repo, logger); err != nil {
		return nil, fmt.Errorf("failed to create selection: %w", err)
	}
	if a.Factory, err = factory.NewFactory(a.Engine, logger); err != nil {
		return nil, fmt.Errorf("failed to create factory: %w", err)
	}
	if a.Commands, err = command.NewManager(logger, a.Metrics); err != nil {
		return nil, fmt.Errorf("failed to create command manager: %w", err)
	}

	a.Backups.SetEnabled(cfg.AutoBackup)
	a.wire()
	if err := a.registerCommands(); err != nil {
		return nil, fmt.Errorf("failed to register commands: %w", err)
	}

	logger.Info(ctx, "Application context created", log.Fields{"commands": len(a.Commands.Commands())})
	return a, nil
}

func newBoard(cfg *model.Config, logger *log.Logger) clipboard.Board {
	if cfg.SystemClipboard {
		board, err := clipboard.NewSystemBoard()
		if err == nil {
			return board
		}
		logger.Warn(context.Background(), "System clipboard unavailable, using memory clipboard", log.Fields{"error": err})
	}
	return clipboard.NewMemoryBoard()
}

// wire connects metrics, selection and backups to repository and project events
func (a *Context) wire() {
	refresh := func(project.Event) { a.Metrics.SetElements(a.Repo.Len()) }
	a.unsubscribe = append(a.unsubscribe,
		a.Metrics.ObserveRepository(a.Repo),
		a.Projects.On(project.ProjectCreated, refresh),
		a.Projects.On(project.ProjectLoaded, refresh),
		a.Projects.On(project.ProjectClosed, func(e project.Event) {
			a.Selection.DeselectAll()
			refresh(e)
		}),
		a.Projects.On(project.Imported, func(e project.Event) { a.Selection.Select(e.Element) }),
	)
	a.Backups.OnResult(func(result project.BackupResult) {
		a.Metrics.RecordBackup(string(result))
	})
}

// Start recovers a leftover backup or reopens the last working file, then starts the
// executor and the backup ticker
func (a *Context) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		a.openInitialProject()

		runCtx, cancel := context.WithCancel(ctx)
		a.cancel = cancel

		a.wg.Add(2)
		go a.commandExecutor()
		go func() {
			defer a.wg.Done()
			a.Backups.Run(runCtx, a.Config.AutoBackupInterval, a.schedule)
		}()
		a.Logger.Info(ctx, "Application started", log.Fields{"autoBackup": a.Config.AutoBackup, "interval": a.Config.AutoBackupInterval.String()})
	})
}

func (a *Context) openInitialProject() {
	ctx := context.Background()
	recovered, err := a.Backups.Recover(a.Projects)
	if err != nil {
		a.Logger.Error(ctx, "Failed to recover backup", log.Fields{"error": err})
	}
	if recovered {
		return
	}
	if filename, ok := a.Projects.WorkingFile(); ok {
		if _, err := a.Projects.Load(filename); err == nil {
			return
		}
		a.Logger.Warn(ctx, "Failed to reopen working file", log.Fields{"filename": filename})
	}
	if _, err := a.Projects.New(); err != nil {
		a.Logger.Error(ctx, "Failed to create project", log.Fields{"error": err})
	}
}

// WatchConfig reloads path on change and applies auto-backup, log level and history settings
func (a *Context) WatchConfig(path string) error {
	w, err := config.NewWatcher(path, a.Config, a.Logger)
	if err != nil {
		return err
	}
	previous := a.Config
	w.OnChange(func(cfg *model.Config) {
		a.applyConfig(previous, cfg)
		previous = cfg
	})
	a.watcher = w
	return nil
}

// applyConfig runs on the watcher goroutine; the repository and Config are updated on the executor
func (a *Context) applyConfig(previous, cfg *model.Config) {
	a.Backups.SetEnabled(cfg.AutoBackup)
	if cfg.AutoBackupInterval != previous.AutoBackupInterval {
		a.Backups.SetInterval(cfg.AutoBackupInterval)
	}
	if cfg.LogLevel != previous.LogLevel {
		if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
			a.Logger.SetLevel(level)
		}
	}
	a.schedule(func() {
		a.Config = cfg
		a.Repo.SetHistoryLimit(cfg.HistoryLimit)
	})
	a.Logger.Info(context.Background(), "Configuration applied", log.Fields{"autoBackup": cfg.AutoBackup, "logLevel": cfg.LogLevel})
}

// commandExecutor runs queued commands and functions one at a time
func (a *Context) commandExecutor() {
	defer a.wg.Done()
	for {
		select {
		case <-a.stop:
			return
		case exec := <-a.queue:
			if exec.fn != nil {
				a.runFunc(exec.fn)
				continue
			}
			result, err := a.Commands.Execute(exec.ctx, exec.command)
			if err != nil {
				exec.err <- err
			} else {
				exec.result <- result
			}
		}
	}
}

func (a *Context) runFunc(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			a.Logger.Error(context.Background(), "Panic in queued function", log.Fields{"panic": r})
		}
	}()
	fn()
}

// Execute runs cmd on the executor and waits for its result
func (a *Context) Execute(ctx context.Context, cmd model.Command) (interface{}, error) {
	exec := execution{
		ctx:     ctx,
		command: cmd,
		result:  make(chan interface{}, 1),
		err:     make(chan error, 1),
	}
	select {
	case a.queue <- exec:
	case <-a.stop:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-exec.result:
		return res, nil
	case err := <-exec.err:
		return nil, err
	}
}

// Do runs fn on the executor and waits for it
func (a *Context) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	exec := execution{fn: func() {
		defer close(done)
		fn()
	}}
	select {
	case a.queue <- exec:
	case <-a.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// schedule queues fn on the executor without waiting
func (a *Context) schedule(fn func()) {
	go func() {
		select {
		case a.queue <- execution{fn: fn}:
		case <-a.stop:
		}
	}()
}

// Status reports the open project for the prompt
func (a *Context) Status(ctx context.Context) (Status, error) {
	var s Status
	err := a.Do(ctx, func() { s = a.status() })
	return s, err
}

func (a *Context) status() Status {
	s := Status{
		Filename: a.Projects.Filename(),
		Modified: a.Repo.IsModified(),
		CanUndo:  a.Repo.CanUndo(),
		CanRedo:  a.Repo.CanRedo(),
	}
	if root := a.Projects.Project(); root != nil {
		s.Project = root.Name()
	}
	return s
}

// CommandSpecs lists the registered commands sorted by id
func (a *Context) CommandSpecs() []command.Spec {
	return a.Commands.Commands()
}

// Quit is closed once application:quit succeeded
func (a *Context) Quit() <-chan struct{} { return a.quit }

func (a *Context) requestQuit() {
	a.quitOnce.Do(func() { close(a.quit) })
}

// Close stops the executor, the backup ticker and the config watcher. A clean close
// removes the backup file.
func (a *Context) Close() error {
	var err error
	a.closeOnce.Do(func() {
		ctx := context.Background()
		if a.watcher != nil {
			a.watcher.Stop()
		}
		if a.cancel != nil {
			a.cancel()
		}
		close(a.stop)
		a.wg.Wait()

		if clearErr := a.Backups.Clear(); clearErr != nil {
			a.Logger.Error(ctx, "Failed to clear backup", log.Fields{"error": clearErr})
			err = clearErr
		}
		for _, unsubscribe := range a.unsubscribe {
			unsubscribe()
		}
		a.Selection.Close()
		a.Logger.Info(ctx, "Application closed", nil)
	})
	return err
}
