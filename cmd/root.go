package cmd

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/self-interview/internal/logger"
	"github.com/spigell/self-interview/internal/questions"
	"github.com/spigell/self-interview/internal/secrets"
	"github.com/spigell/self-interview/internal/web"
	"github.com/spigell/self-interview/internal/webhook"
	"github.com/spigell/self-interview/internal/wizard"
)

const (
	app = "self-interview"
)

type Config struct {
	Listen     string           `mapstructure:"listen"`
	SecretFile string           `mapstructure:"secret-file"`
	Secret     string           `mapstructure:"secret"`
	Webhook    *WebhookConfig   `mapstructure:"webhook"`
	Interview  *InterviewConfig `mapstructure:"interview"`
	Sessions   *SessionsConfig  `mapstructure:"sessions"`
	Links      *web.Links       `mapstructure:"links"`
}

type WebhookConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user-agent"`
}

type InterviewConfig struct {
	wizard.Config    `mapstructure:",squash"`
	questions.Limits `mapstructure:",squash"`
	QuestionsFile    string `mapstructure:"questions-file"`
}

type SessionsConfig struct {
	IdleTimeout  time.Duration `mapstructure:"idle-timeout"`
	ReapInterval time.Duration `mapstructure:"reap-interval"`
	SubmitLimit  int           `mapstructure:"submit-limit"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "self-interview hosts the guided applicant self-interview",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"secret-file": "SELF_INTERVIEW_SECRET_FILE",
		"secret":      "SELF_INTERVIEW_SECRET",
		"webhook.url": "SELF_INTERVIEW_WEBHOOK_URL",
		"listen":      "SELF_INTERVIEW_LISTEN",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is self-interview.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	links := web.DefaultLinks()
	limits := questions.DefaultLimits()

	viper.SetDefault("listen", ":8080")
	viper.SetDefault("webhook.url", webhook.DefaultURL)
	viper.SetDefault("webhook.timeout", webhook.DefaultTimeout)
	viper.SetDefault("interview.session-duration", wizard.DefaultSessionDuration)
	viper.SetDefault("interview.low-time-threshold", wizard.DefaultLowTimeThreshold)
	viper.SetDefault("interview.intro-time-limit", limits.Intro)
	viper.SetDefault("interview.question-time-limit", limits.Standard)
	viper.SetDefault("interview.skip-screen-share-stage", false)
	viper.SetDefault("sessions.idle-timeout", 2*time.Hour)
	viper.SetDefault("sessions.reap-interval", time.Minute)
	viper.SetDefault("sessions.submit-limit", 5)
	viper.SetDefault("links.apply", links.Apply)
	viper.SetDefault("links.briefing-video", links.BriefingVideo)
	viper.SetDefault("links.extension", links.Extension)
	viper.SetDefault("links.mic-test", links.MicTest)
	viper.SetDefault("links.meet", links.Meet)
}

func initConfig() {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit --config every key has a default or an env override.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}

// setup builds the logger and config every command needs. Logs go to output.
func setup(output string) (*zap.Logger, *Config) {
	logger, err := logger.New(logger.Config{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: output,
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		logger.Fatal("config is required")
	}

	return logger, config
}

func resolveSecret(config *Config) (string, error) {
	return secrets.Load(secrets.Source{
		Name:  "access secret",
		Value: config.Secret,
		File:  strings.TrimSpace(config.SecretFile),
	})
}

func loadQuestions(config *Config) ([]questions.Question, error) {
	bank, err := questions.LoadFile(config.Interview.QuestionsFile)
	if err != nil {
		return nil, err
	}

	return questions.Generate(bank, config.Interview.Limits), nil
}
