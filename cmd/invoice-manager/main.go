package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/invoice-manager/internal/extraction"
	"github.com/zombor/invoice-manager/internal/inbox"
	"github.com/zombor/invoice-manager/internal/invoice"
	"github.com/zombor/invoice-manager/internal/recognition"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type recognizerConfig struct {
	kind           string
	geminiKey      string
	geminiModel    string
	ollamaURL      string
	ollamaModel    string
	openAIKey      string
	openAIModel    string
	openAIURL      string
	tesseractLangs string
}

// recognizerKinds lists the recognizers this build supports.
func recognizerKinds() []string {
	kinds := []string{"gemini", "ollama", "openai"}
	if recognition.TesseractAvailable {
		kinds = append(kinds, "tesseract")
	}
	return append(kinds, "none")
}

func newRecognizer(cfg recognizerConfig) (recognition.Recognizer, error) {
	switch cfg.kind {
	case "none", "":
		return nil, nil
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		}
		slog.Info("Initializing Gemini recognizer...", "model", cfg.geminiModel)
		return recognition.NewGemini(apiKey, cfg.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama recognizer...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return recognition.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
	case "openai":
		apiKey := cfg.openAIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" && cfg.openAIURL == "" {
			return nil, errors.New("openai API key is required. Set --openai-key flag or OPENAI_API_KEY environment variable")
		}
		slog.Info("Initializing OpenAI recognizer...", "model", cfg.openAIModel, "url", cfg.openAIURL)
		return recognition.NewOpenAI(recognition.OpenAIConfig{
			APIKey:  apiKey,
			Model:   cfg.openAIModel,
			BaseURL: cfg.openAIURL,
		})
	case "tesseract":
		slog.Info("Initializing Tesseract recognizer...", "languages", cfg.tesseractLangs)
		return recognition.NewTesseract(strings.Split(cfg.tesseractLangs, "+")...)
	default:
		return nil, fmt.Errorf("invalid recognizer type %q: valid types are %s", cfg.kind, strings.Join(recognizerKinds(), ", "))
	}
}

func openStore(kind, path string) (invoice.DB, error) {
	switch kind {
	case "bolt":
		return invoice.NewBoltDB(path)
	case "sqlite":
		return invoice.NewSQLiteDB(path)
	default:
		return nil, fmt.Errorf("invalid store type %q: valid types are bolt, sqlite", kind)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env", "error", err)
	}

	fs := ff.NewFlagSet("invoice-manager")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		storeType      = fs.StringLong("store", "bolt", "Database type: 'bolt' or 'sqlite'")
		dbPath         = fs.StringLong("db", "invoices.db", "Database file path")
		storagePath    = fs.StringLong("storage", "./uploads", "Invoice image storage directory")
		recognizerType = fs.StringLong("recognizer", "gemini", "Recognizer: "+strings.Join(recognizerKinds(), ", "))
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
		openAIKey      = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openAIModel    = fs.StringLong("openai-model", "gpt-4o-mini", "OpenAI model name")
		openAIURL      = fs.StringLong("openai-url", "", "OpenAI-compatible API base URL (optional)")
		tesseractLangs = fs.StringLong("tesseract-langs", "chi_sim+eng", "Tesseract languages")
		retries        = fs.IntLong("retries", 3, "Recognition attempts before giving up")
		rulesPath      = fs.StringLong("rules", "", "YAML file overriding extraction rules (optional)")
		watchDir       = fs.StringLong("watch", "", "Inbox directory to pre-extract dropped images (optional)")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		_              = fs.StringLong("config", "", "Config file with one 'flag value' per line (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_MANAGER"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	rules, err := extraction.LoadRules(*rulesPath)
	if err != nil {
		slog.Error("Failed to load extraction rules", "path", *rulesPath, "error", err)
		os.Exit(1)
	}
	extractor, err := extraction.NewExtractor(rules)
	if err != nil {
		slog.Error("Invalid extraction rules", "path", *rulesPath, "error", err)
		os.Exit(1)
	}

	slog.Info("Initializing database...", "store", *storeType, "path", *dbPath)
	db, err := openStore(*storeType, *dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	recognizer, err := newRecognizer(recognizerConfig{
		kind:           *recognizerType,
		geminiKey:      *geminiKey,
		geminiModel:    *geminiModel,
		ollamaURL:      *ollamaURL,
		ollamaModel:    *ollamaModel,
		openAIKey:      *openAIKey,
		openAIModel:    *openAIModel,
		openAIURL:      *openAIURL,
		tesseractLangs: *tesseractLangs,
	})
	if err != nil {
		slog.Error("Failed to initialize recognizer", "type", *recognizerType, "error", err)
		os.Exit(1)
	}
	if recognizer != nil {
		recognizer = recognition.NewRetrying(recognizer, uint(max(*retries, 1)), 2*time.Second)
		defer recognizer.Close()
	} else {
		slog.Warn("Recognition disabled; invoices must be entered by hand")
	}

	slog.Info("Initializing storage...", "path", *storagePath)
	store, err := invoice.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *watchDir != "" {
		if recognizer == nil {
			slog.Error("--watch needs a recognizer")
			os.Exit(1)
		}
		watcher := inbox.NewWatcher(*watchDir, inbox.NewProcessor(recognizer, extractor), inbox.DefaultDebounce)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("Inbox watcher stopped", "error", err)
			}
		}()
	}

	service := invoice.NewService(db, recognizer, store, extractor)
	server := invoice.NewServer(service, invoice.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	})

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shut down")
}
