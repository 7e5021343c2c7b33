package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/ajramos/mailtui/internal/config"
	"github.com/ajramos/mailtui/internal/credential"
	"github.com/ajramos/mailtui/internal/db"
	"github.com/ajramos/mailtui/internal/services"
	"github.com/ajramos/mailtui/internal/tui"
	"github.com/ajramos/mailtui/internal/version"
	"golang.org/x/term"
)

// configEnv overrides the default config file path
const configEnv = "MAILTUI_CONFIG"

func main() {
	configPathFlag := flag.String("config", "", "Path to JSON configuration file (default: ~/.config/mailtui/config.json)")
	accountFlag := flag.String("account", "", "Account to open, by name (default: active_account from the config)")
	loginFlag := flag.Bool("login", false, "Store a bearer token for the account and exit")
	setupFlag := flag.Bool("setup", false, "Create the default configuration file and exit")
	versionFlag := flag.Bool("version", false, "Show version information and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n\n", version.GetVersionString())
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  %s                        # Open the active account\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --setup                # Create ~/.config/mailtui/config.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --login --account work # Store the token of account 'work'\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --config custom.json   # Use a custom configuration\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %-15s Override default config file path\n", configEnv)
		fmt.Fprintf(os.Stderr, "  %-15s Bearer token to use instead of the keyring\n", credential.TokenEnv)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Println(version.GetDetailedVersionString())
		return
	}

	configPath := getConfigPath(*configPathFlag)
	if *setupFlag {
		if err := runSetup(configPath, os.Stdout); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	manager := config.NewManager()
	if err := manager.LoadFromFile(configPath); err != nil {
		log.Printf("Warning: could not load configuration: %v", err)
		manager.LoadFromDefaults()
	}
	if *accountFlag != "" {
		if _, err := manager.SetActiveAccount(*accountFlag); err != nil {
			log.Fatalf("Could not select account: %v", err)
		}
	}

	creds, err := credential.Open()
	if err != nil {
		log.Printf("Warning: keyring unavailable, only %s will be used: %v", credential.TokenEnv, err)
	}

	if *loginFlag {
		if creds == nil {
			log.Fatal("Cannot store a token without a keyring")
		}
		if err := runLogin(manager.GetConfig(), creds, os.Stdin, os.Stdout); err != nil {
			log.Fatalf("Login failed: %v", err)
		}
		return
	}

	cfg := manager.GetConfig()
	ctx := context.Background()
	var store *db.Store
	dbPath := cfg.DatabasePath
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	if st, err := db.Open(ctx, dbPath); err == nil {
		store = st
		defer store.Close()
	} else {
		log.Printf("Warning: could not open saved search store: %v", err)
	}

	deps := tui.Deps{Config: manager, DB: store}
	if creds != nil {
		deps.Tokens = creds
	}
	app, err := tui.NewApp(deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting application: %v\n", err)
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path using the following priority:
// 1. CLI flag
// 2. Environment variable MAILTUI_CONFIG
// 3. Default path ~/.config/mailtui/config.json
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if envPath := os.Getenv(configEnv); envPath != "" {
		return expandPath(envPath)
	}

	return config.DefaultConfigPath()
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	return filepath.Join(home, path[2:])
}

// tokenStore is the part of the keyring login needs
type tokenStore interface {
	SetToken(account, token string) error
}

// runLogin reads a bearer token and stores it for the active account
func runLogin(cfg *config.Config, store tokenStore, in io.Reader, out io.Writer) error {
	acc, err := cfg.GetActiveAccount()
	if err != nil {
		return fmt.Errorf("%w: add an account to the config file first", services.ErrNoActiveAccount)
	}

	fmt.Fprintf(out, "🔐 Token for %s (mailbox %s): ", acc.Name, acc.MailboxID)
	token, err := readToken(in)
	fmt.Fprintln(out)
	if err != nil {
		return err
	}
	if err := store.SetToken(acc.Name, token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	fmt.Fprintf(out, "✅ Token stored for %s\n", acc.Name)
	return nil
}

// readToken reads one line, without echo when in is a terminal
func readToken(in io.Reader) (string, error) {
	var raw string
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("reading token: %w", err)
		}
		raw = string(b)
	} else {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading token: %w", err)
		}
		raw = line
	}
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", errors.New("token cannot be empty")
	}
	return token, nil
}

// runSetup writes the default configuration unless one exists
func runSetup(configPath string, out io.Writer) error {
	fmt.Fprintln(out, "📧 mailtui setup")
	fmt.Fprintln(out, "================")
	fmt.Fprintln(out)

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintf(out, "✅ Configuration file already exists: %s\n", configPath)
	} else {
		if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
			return fmt.Errorf("creating config file: %w", err)
		}
		fmt.Fprintf(out, "✅ Created configuration file: %s\n", configPath)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "📋 Next steps:")
	fmt.Fprintln(out, "1. Add an account (name, mailbox_id, email) under \"accounts\"")
	fmt.Fprintln(out, "2. Set \"active_account\" to its name")
	fmt.Fprintf(out, "3. Store its token: %s --login\n", os.Args[0])
	return nil
}
