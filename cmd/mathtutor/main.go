package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/sjlee-edu/mathtutor/internal/handler"
	appI18n "github.com/sjlee-edu/mathtutor/internal/i18n"
	"github.com/sjlee-edu/mathtutor/internal/llm"
	"github.com/sjlee-edu/mathtutor/internal/model"
	"github.com/sjlee-edu/mathtutor/internal/sheets"
	"github.com/sjlee-edu/mathtutor/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mathtutor",
		Short: "Math essay-question feedback server for classrooms",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `mathtutor --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP feedback server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "mathtutor.db", "SQLite session database path")
	f.String("sheet-id", "", "Google Sheets spreadsheet ID (required)")
	f.String("google-credentials", "credentials.json", "Path to Google service account JSON")
	f.String("llm-url", "https://api.openai.com/v1", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for LLM (or set MATHTUTOR_LLM_KEY / OPENAI_API_KEY)")
	f.String("feedback-model", "gpt-4o-mini", "Model used for solution feedback")
	f.String("vision-model", "gpt-4o", "Model used for handwriting image analysis")
	f.String("hint-model", "gpt-4.1", "Model used for hints")
	f.Int("feedback-max-tokens", 300, "Token cap for feedback completions")
	f.Int("hint-max-tokens", 100, "Token cap for hint completions")
	f.String("password", "1234", "Shared class password students log in with")
	f.String("question-label", "수학 서술형 문제", "Label used to reference the question in prompts")
	f.StringP("lang", "l", "ko", "UI language (ko, en)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /class1)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("sheet-id")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the answers sheet as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("sheet-id", "", "Google Sheets spreadsheet ID (required)")
	f.String("google-credentials", "credentials.json", "Path to Google service account JSON")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("sheet-id")

	return cmd
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	// Local .env files are the usual place for API keys during development.
	_ = godotenv.Load()

	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("MATHTUTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("mathtutor")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mathtutor")
	v.AddConfigPath("/etc/mathtutor")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func newGateway(ctx context.Context, v *viper.Viper) (*sheets.Client, error) {
	creds, err := os.ReadFile(v.GetString("google-credentials"))
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	gw, err := sheets.New(ctx, creds, v.GetString("sheet-id"))
	if err != nil {
		return nil, fmt.Errorf("create sheets client: %w", err)
	}
	return gw, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	// Open session database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Connect to the spreadsheet backing the class.
	gw, err := newGateway(cmd.Context(), v)
	if err != nil {
		return err
	}

	// Create LLM client.
	llmKey := v.GetString("llm-key")
	if llmKey == "" {
		llmKey = os.Getenv("OPENAI_API_KEY")
	}
	if llmKey == "" {
		return fmt.Errorf("LLM API key is required: set --llm-key or OPENAI_API_KEY")
	}
	llmClient := llm.New(v.GetString("llm-url"), llmKey, llm.Config{
		FeedbackModel:     v.GetString("feedback-model"),
		VisionModel:       v.GetString("vision-model"),
		HintModel:         v.GetString("hint-model"),
		FeedbackMaxTokens: v.GetInt("feedback-max-tokens"),
		HintMaxTokens:     v.GetInt("hint-max-tokens"),
	})
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK",
		"url", v.GetString("llm-url"),
		"feedback_model", v.GetString("feedback-model"),
		"vision_model", v.GetString("vision-model"),
		"hint_model", v.GetString("hint-model"),
	)

	password := v.GetString("password")
	if password == "" {
		return fmt.Errorf("class password is required: set --password or MATHTUTOR_PASSWORD")
	}
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash class password: %w", err)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.ServerConfig{
		QuestionLabel: v.GetString("question-label"),
		BasePath:      basePath,
		SecureCookies: v.GetBool("secure-cookies"),
	}

	h := handler.New(db, gw, llmClient, passwordHash, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"sheet_id", v.GetString("sheet-id"),
		"lang", lang,
		"question_label", cfg.QuestionLabel,
		"base_path", basePath,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	setupLogging(v)

	gw, err := newGateway(cmd.Context(), v)
	if err != nil {
		return err
	}

	rows, err := gw.Answers(cmd.Context())
	if err != nil {
		return fmt.Errorf("read answers sheet: %w", err)
	}

	data, err := json.MarshalIndent(buildExport(v.GetString("sheet-id"), rows), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

// buildExport wraps the audit rows in the export envelope.
func buildExport(sheetID string, rows []model.AuditRow) model.AuditExport {
	return model.AuditExport{
		SheetID:    sheetID,
		ExportedAt: time.Now().Format(time.RFC3339),
		RowCount:   len(rows),
		Rows:       rows,
	}
}
