package main

import (
	"context"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gsetrade/gsebook/internal/api"
	"github.com/gsetrade/gsebook/internal/auth"
	"github.com/gsetrade/gsebook/internal/config"
	"github.com/gsetrade/gsebook/internal/db"
	"github.com/gsetrade/gsebook/internal/filestore"
	"github.com/gsetrade/gsebook/internal/inventory"
	"github.com/gsetrade/gsebook/internal/store"
	"github.com/gsetrade/gsebook/internal/web"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

const usage = `Usage: gsebook [command] [flags]

Commands:
  serve        run the web server (default)
  adduser      create a login with a generated password
  drive-auth   authorize Google Drive access and save the token

Flags:
  -d, -db <path>          SQLite database path (default: $GSE_DB or gsebook.sqlite3)
  -a, -addr <host:port>   listen address (default: $GSE_ADDR or :8080)
  -l, -log <path>         log file path (default: $GSE_LOG, stdout/stderr only)
  -s, -storage <backend>  file storage, local or drive (default: $GSE_STORAGE or local)
  -uploads <dir>          local storage directory (default: $GSE_UPLOAD_DIR or uploads)
  -drive-root <name>      top-level folder for item files (default: $GSE_DRIVE_ROOT or GSE)
  -drive-credentials <f>  OAuth client secret file (default: $GOOGLE_DRIVE_CREDENTIALS_FILE or credentials.json)
  -drive-token <f>        OAuth token file (default: $GOOGLE_DRIVE_TOKEN_FILE or token.json)
  -expense-policy <p>     keep or overwrite purchase expenses on sale (default: $GSE_EXPENSE_POLICY or keep)
  -u, -user <name>        username for adduser
  -h, -help               show this help and exit

Other settings are read from the environment or a .env file.
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	flags := flag.NewFlagSet("gsebook", flag.ContinueOnError)

	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	flags.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")

	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	flags.StringVar(&cfg.Addr, "a", cfg.Addr, "")

	flags.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	flags.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	flags.StringVar(&cfg.Storage, "storage", cfg.Storage, "")
	flags.StringVar(&cfg.Storage, "s", cfg.Storage, "")

	flags.StringVar(&cfg.UploadDir, "uploads", cfg.UploadDir, "")
	flags.StringVar(&cfg.DriveRoot, "drive-root", cfg.DriveRoot, "")
	flags.StringVar(&cfg.CredentialsFile, "drive-credentials", cfg.CredentialsFile, "")
	flags.StringVar(&cfg.TokenFile, "drive-token", cfg.TokenFile, "")

	flags.Func("expense-policy", "", func(v string) (err error) {
		cfg.ExpensePolicy, err = inventory.ParseExpensePolicy(v)
		return err
	})

	var username string
	flags.StringVar(&username, "user", "", "")
	flags.StringVar(&username, "u", "", "")

	flags.Usage = func() { fmt.Fprint(os.Stdout, usage) }

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if flags.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", flags.Arg(0))
		flags.Usage()
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	switch command {
	case "serve":
		err = serve(cfg)
	case "adduser":
		err = addUser(cfg, username)
	case "drive-auth":
		err = filestore.Authorize(context.Background(), cfg.CredentialsFile, cfg.TokenFile, os.Stdin, os.Stdout)
		if err == nil {
			fmt.Printf("\nToken saved to %s\n", cfg.TokenFile)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		flags.Usage()
		os.Exit(1)
	}

	if err != nil {
		slog.Error(command+" failed", "error", err)
		os.Exit(1)
	}
}

func serve(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.Migrate(database); err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.DBPath)

	secret := cfg.SessionSecret
	if secret == "" {
		// Generated on first run and kept in the database.
		if secret, err = store.GetSessionSecret(ctx, database); err != nil {
			return fmt.Errorf("loading session secret: %w", err)
		}
	}

	files, uploads, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	svc := inventory.NewService(database, files, cfg.ExpensePolicy)

	// Set up routers.
	apiRouter := api.NewRouter(database, secret, svc)
	webRouter, err := web.NewRouter(web.Options{
		DB:            database,
		Secret:        secret,
		Inventory:     svc,
		Uploads:       uploads,
		SecureCookies: cfg.SecureCookies,
		MaxUpload:     cfg.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// Combine: API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	handler := api.LoggingMiddleware(mux)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "storage", cfg.Storage, "expense_policy", cfg.ExpensePolicy)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}

// openStorage builds the configured file store. Local storage also returns
// the directory to serve /uploads/ links from.
func openStorage(ctx context.Context, cfg *config.Config) (filestore.Store, fs.FS, error) {
	switch cfg.Storage {
	case config.StorageDrive:
		client, err := filestore.NewOAuthClient(ctx, cfg.CredentialsFile, cfg.TokenFile)
		if err != nil {
			return nil, nil, fmt.Errorf("google drive: %w (run gsebook drive-auth first)", err)
		}
		drive, err := filestore.NewDrive(ctx, client, cfg.DriveRoot)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("storing files in google drive", "root", cfg.DriveRoot)
		return drive, nil, nil
	default:
		local, err := filestore.NewLocal(cfg.UploadDir, cfg.DriveRoot, "/uploads")
		if err != nil {
			return nil, nil, err
		}
		slog.Info("storing files locally", "dir", cfg.UploadDir)
		return local, local.FS(), nil
	}
}

// addUser creates a login with a random password and prints it.
func addUser(cfg *config.Config, username string) error {
	if username == "" {
		return errors.New("-user is required")
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return err
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(context.Background(), database, username, hash); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	fmt.Println("Account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("It can be changed in the settings page after logging in.")
	return nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
