package tui

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ajramos/mailtui/internal/cache"
	"github.com/ajramos/mailtui/internal/config"
	"github.com/ajramos/mailtui/internal/db"
	"github.com/ajramos/mailtui/internal/events"
	"github.com/ajramos/mailtui/internal/render"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/ajramos/mailtui/internal/webmail"
	"github.com/derailed/tview"
)

// Deps are the collaborators the App is built from
type Deps struct {
	Config *config.Manager
	// Tokens resolves the bearer token of an account
	Tokens services.TokenSource
	// DB holds saved searches; nil disables them
	DB *db.Store
	// API overrides the HTTP client built from the config (tests, demos)
	API services.MailAPI
	// Logger overrides the file logger
	Logger *log.Logger
}

// App is the terminal front end driving the mailbox view-state services
type App struct {
	*tview.Application
	Pages  *tview.Pages
	Keys   config.KeyBindings
	config *config.Manager
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.RWMutex
	views  map[string]tview.Primitive

	logger  *log.Logger
	logFile *os.File

	bus        *events.Bus
	queryCache *cache.Store
	dbStore    *db.Store
	tokens     services.TokenSource
	api        services.MailAPI
	apiFixed   bool

	emailRenderer *render.EmailRenderer
	currentTheme  *config.ColorsConfig

	// Services
	repository         *services.MessageRepositoryImpl
	mutationService    *services.MutationServiceImpl
	labelService       *services.LabelServiceImpl
	mailboxService     *services.MailboxServiceImpl
	compositionService *services.CompositionServiceImpl
	queryService       *services.QueryServiceImpl
	accountService     *services.AccountServiceImpl
	themeService       *services.ThemeServiceImpl
	errorHandler       *ErrorHandler

	// Mailbox state
	account    *services.Account
	viewState  *services.ViewState
	page       *services.MailboxPage
	unread     map[services.Category]int
	rows       []listRow
	labels     []*webmail.Label
	cacheSubs  []func()
	busSubs    []func()
	reloadTmr  *time.Timer
	reloadSeq  int
	labelMenu  *services.LabelMenu
	labelsOpen bool

	// Conversation pane
	threadView   *services.ThreadView
	openThreadID string
	openMessage  *webmail.Message
	threadCursor int

	// Modal state
	composer        *CompositionPanel
	currentFocus    string
	cmdMode         string // "", promptCommand, promptSearch, promptLabel, promptSave
	cmdHistory      []string
	cmdHistoryIndex int
	running         bool
}

// NewApp builds the application; call Run to start it
func NewApp(deps Deps) (*App, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config manager is required")
	}
	cfg := deps.Config.GetConfig()
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		Application:   tview.NewApplication(),
		Pages:         tview.NewPages(),
		Keys:          cfg.Keys,
		config:        deps.Config,
		ctx:           ctx,
		cancel:        cancel,
		views:         make(map[string]tview.Primitive),
		logger:        deps.Logger,
		bus:           events.NewBus(),
		dbStore:       deps.DB,
		tokens:        deps.Tokens,
		api:           deps.API,
		apiFixed:      deps.API != nil,
		emailRenderer: render.NewEmailRenderer(),
		currentTheme:  config.DefaultColors(),
		currentFocus:  "list",
	}
	if a.logger == nil {
		a.initLogger(cfg.LogFile)
	}

	store, err := cache.NewStore(cfg.Cache.MaxEntries)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}
	store.SetLogger(a.logger)
	a.queryCache = store

	a.accountService = services.NewAccountService(deps.Config, deps.Tokens)
	a.accountService.SetBus(a.bus)
	a.accountService.SetCache(store)
	a.accountService.SetLogger(a.logger)

	a.themeService = services.NewThemeService(themeDir(cfg))
	a.queryService = services.NewQueryService(a.queryStore())

	inboxType := services.InboxType(cfg.Mailbox.InboxType)
	category, err := services.ParseCategory(cfg.Mailbox.DefaultCategory)
	if err != nil {
		category = services.CategoryInbox
	}
	a.viewState = services.NewViewState("", category, inboxType, cfg.Mailbox.PageSize)
	a.viewState.SetThreaded(cfg.Mailbox.Threaded)

	a.initComponents()
	a.initErrorHandler()
	a.initViews()
	a.bindKeys()
	a.subscribeBus()
	a.initTheme(cfg.Theme)

	deps.Config.AddWatcher(a.onConfigChanged)
	return a, nil
}

func themeDir(cfg *config.Config) string {
	if cfg.ThemeDir != "" {
		return cfg.ThemeDir
	}
	return config.DefaultThemeDir()
}

func (a *App) queryStore() *db.QueryStore {
	if a.dbStore == nil {
		return nil
	}
	return db.NewQueryStore(a.dbStore)
}

// initErrorHandler wires the status bar toasts
func (a *App) initErrorHandler() {
	status, _ := a.views["status"].(*tview.TextView)
	a.errorHandler = NewErrorHandler(a.Application, status, a.logger)
	a.errorHandler.SetBaseline(a.statusBaseline)
	a.errorHandler.SetColors(a.theme)
}

// connect resolves the active account and builds the backend client for it
func (a *App) connect(ctx context.Context) error {
	acc, err := a.accountService.GetActiveAccount(ctx)
	if err != nil {
		return err
	}

	if !a.apiFixed {
		token, err := a.accountService.Token(ctx, acc.Name)
		if err != nil {
			return fmt.Errorf("no token for account %s: %w", acc.Name, err)
		}
		cfg := a.config.GetConfig()
		client, err := webmail.NewClient(cfg.API.BaseURL, token,
			webmail.WithTimeout(cfg.GetAPITimeout()),
			webmail.WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst),
			webmail.WithLogger(a.logger),
		)
		if err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		a.mu.Lock()
		a.api = client
		a.mu.Unlock()
	}

	a.mu.Lock()
	a.account = acc
	a.mu.Unlock()
	a.viewState.SetMailbox(acc.MailboxID)
	a.queryService.SetMailboxID(acc.MailboxID)
	a.initServices()

	if a.logger != nil {
		a.logger.Printf("connect: account=%s mailbox=%s", acc.Name, acc.MailboxID)
	}
	return nil
}

// initServices (re)builds the API-backed services for the current client
func (a *App) initServices() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.repository = services.NewMessageRepository(a.api, a.queryCache)
	a.repository.SetLogger(a.logger)

	a.mutationService = services.NewMutationService(a.api, a.queryCache)
	a.mutationService.SetNotifier(a.errorHandler)
	a.mutationService.SetLogger(a.logger)

	a.labelService = services.NewLabelService(a.api, a.queryCache)
	a.labelService.SetNotifier(a.errorHandler)
	a.labelService.SetLogger(a.logger)

	a.mailboxService = services.NewMailboxService(a.repository)
	a.mailboxService.SetLogger(a.logger)

	a.compositionService = services.NewCompositionService(a.api, a.queryCache)
	a.compositionService.SetLogger(a.logger)
	if a.account != nil {
		a.compositionService.SetUserEmail(a.account.Email)
	}

	if a.logger != nil {
		a.logger.Printf("initServices: services ready (api=%v)", a.api != nil)
	}
}

// Run connects to the active account, loads the first view and blocks until quit
func (a *App) Run() error {
	defer a.shutdown()

	a.SetRoot(a.Pages, true)
	a.setRunning(true)
	if err := a.config.Watch(a.ctx); err != nil && a.logger != nil {
		a.logger.Printf("config: not watching: %v", err)
	}

	if err := a.connect(a.ctx); err != nil {
		a.showWelcome(err)
	} else {
		go a.reload()
		go a.loadLabels()
	}
	return a.Application.Run()
}

// shutdown releases subscriptions, the open conversation and the log file
func (a *App) shutdown() {
	a.setRunning(false)
	a.cancel()
	a.config.StopWatching()

	a.mu.Lock()
	subs := append(a.cacheSubs, a.busSubs...)
	a.cacheSubs, a.busSubs = nil, nil
	if a.reloadTmr != nil {
		a.reloadTmr.Stop()
	}
	tv := a.threadView
	a.threadView = nil
	a.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
	if tv != nil {
		tv.Close()
		tv.Wait()
	}
	a.closeLogger()
}

func (a *App) setRunning(running bool) {
	a.mu.Lock()
	a.running = running
	a.mu.Unlock()
}

// IsRunning reports whether the UI loop is active
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// GetErrorHandler returns the status bar handler
func (a *App) GetErrorHandler() *ErrorHandler {
	return a.errorHandler
}

// Bus returns the event bus shared by the views
func (a *App) Bus() *events.Bus {
	return a.bus
}

// activeAccount returns the connected account, or nil before connect
func (a *App) activeAccount() *services.Account {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.account
}

// mailboxID returns the mailbox the view is bound to
func (a *App) mailboxID() string {
	return a.viewState.MailboxID()
}

// theme returns the active color configuration
func (a *App) theme() *config.ColorsConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currentTheme
}

// onConfigChanged picks up key bindings edited on disk
func (a *App) onConfigChanged(cfg *config.Config) {
	a.QueueUpdateDraw(func() {
		a.Keys = cfg.Keys
		if a.logger != nil {
			a.logger.Printf("config: reloaded key bindings")
		}
	})
}

// ready reports whether a backend connection exists; it toasts otherwise
func (a *App) ready() bool {
	a.mu.RLock()
	ok := a.api != nil && a.mutationService != nil
	a.mu.RUnlock()
	if !ok {
		a.errorHandler.ShowWarning(a.ctx, "Not connected; add an account token with --login")
	}
	return ok
}
