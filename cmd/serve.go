package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/self-interview/internal/access"
	"github.com/spigell/self-interview/internal/logger"
	"github.com/spigell/self-interview/internal/questions"
	"github.com/spigell/self-interview/internal/web"
	"github.com/spigell/self-interview/internal/webhook"
	"github.com/spigell/self-interview/internal/wizard"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the gate and the interview wizard over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "address to listen on (default :8080)")
	viper.BindPFlag("listen", serveCmd.Flags().Lookup("listen"))
}

func serve() {
	logger, config := setup(logger.Stdout)

	logger.Info("starting the self-interview server", zap.String("version", version))

	secret, err := resolveSecret(config)
	if err != nil {
		logger.Fatal(
			"loading access secret",
			zap.Error(err),
			zap.String("hint", "set SELF_INTERVIEW_SECRET_FILE environment variable or the 'secret-file' key in the configuration file"),
		)
	}

	qs, err := loadQuestions(config)
	if err != nil {
		logger.Fatal("loading questions", zap.Error(err))
	}
	logger.Info("questions loaded", zap.Int("count", len(qs)))

	client := newWebhookClient(logger, config)

	registry := web.NewRegistry(func(code string, l *zap.Logger) *wizard.Wizard {
		return newWizard(code, qs, client, config, l)
	}, config.Sessions.IdleTimeout, logger.Named("sessions"))

	gate := access.NewDefault(secret, time.Now, logger.Named("gate"))

	handler, err := web.New(web.Config{
		Links:       *config.Links,
		SubmitLimit: config.Sessions.SubmitLimit,
	}, gate, registry, logger.Named("http"))
	if err != nil {
		logger.Fatal("building the web server", zap.Error(err))
	}

	server := &http.Server{
		Addr:              config.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", config.Listen))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return registry.Run(gctx, config.Sessions.ReapInterval)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Int("sessions", registry.Len()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("stopped")
}

func newWebhookClient(logger *zap.Logger, config *Config) *webhook.Client {
	client := webhook.New(logger.Named("webhook"), config.Webhook.URL, config.Webhook.Timeout)
	if config.Webhook.UserAgent != "" {
		client.UserAgent = config.Webhook.UserAgent
	}
	return client
}

func newWizard(code string, qs []questions.Question, submitter wizard.Submitter, config *Config, l *zap.Logger) *wizard.Wizard {
	return wizard.New(code, qs, submitter, config.Interview.Config, wizard.WithLogger(l))
}
