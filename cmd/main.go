package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"smartcal/internal/config"
	"smartcal/internal/google"
	"smartcal/internal/icloud"
	"smartcal/internal/llm"
	"smartcal/internal/pipeline"
	"smartcal/internal/server"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "smartcal",
		Usage: "Turn free-form Korean text into calendar events.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "Path to a YAML config file (default ~/.smartcal/config.yaml)."},
		},
		Commands: []*cli.Command{
			authCommand(),
			extractCommand(),
			createCommand(),
			icsCommand(),
			summarizeCommand(),
			classifyCommand(),
			tagsCommand(),
			settingsCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

var textFlags = []cli.Flag{
	&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the text from a file instead of the arguments."},
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account and store its token.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "account", Usage: "Name to store the token under (default from config)."},
		},
		Action: func(c *cli.Context) error {
			env, err := loadEnv(c)
			if err != nil {
				return err
			}
			env.logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(env.cfg.Google.ClientID, env.cfg.Google.ClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			account := c.String("account")
			if account == "" {
				account = env.cfg.Google.Account
			}
			if err := google.SaveToken(env.store, account, token); err != nil {
				return err
			}

			env.logger.Info("Successfully authenticated and saved token.", "account", account, "store", env.store.Path())
			return nil
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Extract event details and print the payload without creating it.",
		ArgsUsage: "[text]",
		Flags:     textFlags,
		Action: func(c *cli.Context) error {
			env, err := loadEnv(c)
			if err != nil {
				return err
			}
			text, err := readText(c)
			if err != nil {
				return err
			}
			ex, err := env.extractor()
			if err != nil {
				return err
			}

			res, err := env.pipeline(ex, nil, false).Preview(c.Context, text)
			if err != nil {
				return printResponse(pipeline.Respond(nil, err))
			}
			return printJSON(map[string]any{"info": res.Info, "payload": res.Payload})
		},
	}
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Extract event details and create the event in the configured calendar.",
		ArgsUsage: "[text]",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Do everything except creating the event."},
		}, textFlags...),
		Action: func(c *cli.Context) error {
			env, err := loadEnv(c)
			if err != nil {
				return err
			}
			text, err := readText(c)
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				env.logger.Info("Performing a dry run. No event will be created.")
			}

			ex, err := env.extractor()
			if err != nil {
				return err
			}
			cal, err := env.calendar(c.Context)
			if err != nil {
				return err
			}

			res, err := env.pipeline(ex, cal, c.Bool("dry-run")).Register(c.Context, text)
			return printResponse(pipeline.Respond(res, err))
		},
	}
}

func icsCommand() *cli.Command {
	return &cli.Command{
		Name:      "ics",
		Usage:     "Extract event details and write them as an iCalendar file.",
		ArgsUsage: "[text]",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default stdout)."},
		}, textFlags...),
		Action: func(c *cli.Context) error {
			env, err := loadEnv(c)
			if err != nil {
				return err
			}
			text, err := readText(c)
			if err != nil {
				return err
			}
			ex, err := env.extractor()
			if err != nil {
				return err
			}

			res, err := env.pipeline(ex, nil, false).Preview(c.Context, text)
			if err != nil {
				return printResponse(pipeline.Respond(nil, err))
			}

			w := os.Stdout
			if out := c.String("out"); out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := icloud.EncodeEvent(w, icloud.GenerateUID(), res.Payload, time.Now()); err != nil {
				return err
			}
			env.logger.Info("Wrote iCalendar event", "summary", res.Payload.Summary, "out", c.String("out"))
			return nil
		},
	}
}

func summarizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "Summarize text.",
		ArgsUsage: "[text]",
		Flags: append([]cli.Flag{
			&cli.IntFlag{Name: "max-length", Value: 200, Usage: "Maximum summary length in characters."},
		}, textFlags...),
		Action: func(c *cli.Context) error {
			env, err := loadEnv(c)
			if err != nil {
				return err
			}
			text, err := readText(c)
			if err != nil {
				return err
			}
			ex, err := env.extractor()
			if err != nil {
				return err
			}
			fmt.Println(ex.Summarize(c.Context, text, c.Int("max-length")))
			return nil
		},
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Classify text as calendar, note, message or other.",
		ArgsUsage: "[text]",
		Flags:     textFlags,
		Action: func(c *cli.Context) error {
			env, err := loadEnv(c)
			if err != nil {
				return err
			}
			text, err := readText(c)
			if err != nil {
				return err
			}
			ex, err := env.extractor()
			if err != nil {
				return err
			}
			cls, err := ex.Classify(c.Context, text)
			if err != nil {
				return err
			}
			return printJSON(cls)
		},
	}
}

func tagsCommand() *cli.Command {
	return &cli.Command{
		Name:      "tags",
		Usage:     "Suggest keyword tags for text.",
		ArgsUsage: "[text]",
		Flags:     textFlags,
		Action: func(c *cli.Context) error {
			env, err := loadEnv(c)
			if err != nil {
				return err
			}
			text, err := readText(c)
			if err != nil {
				return err
			}
			ex, err := env.extractor()
			if err != nil {
				return err
			}
			tags, err := ex.Tags(c.Context, text)
			if err != nil {
				return err
			}
			fmt.Println(strings.Join(tags, ", "))
			return nil
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change stored LLM settings.",
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Store a setting.",
				ArgsUsage: "<key> <value>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return fmt.Errorf("usage: settings set <key> <value> (keys: %s)", strings.Join(settingKeys, ", "))
					}
					key, value := c.Args().Get(0), c.Args().Get(1)
					if !isSettingKey(key) {
						return fmt.Errorf("unknown setting %q (keys: %s)", key, strings.Join(settingKeys, ", "))
					}
					if key == config.StoreKeyLLMProvider && !isProvider(value) {
						return fmt.Errorf("unknown LLM provider %q (supported: %s)", value, strings.Join(llm.Providers(), ", "))
					}
					env, err := loadEnv(c)
					if err != nil {
						return err
					}
					if err := env.store.Set(key, value); err != nil {
						return err
					}
					env.logger.Info("Setting saved", "key", key)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "Print stored settings and authenticated Google accounts. API keys are masked.",
				Action: func(c *cli.Context) error {
					env, err := loadEnv(c)
					if err != nil {
						return err
					}
					for _, key := range settingKeys {
						fmt.Printf("%s=%s\n", key, displaySetting(key, env.store.GetString(key)))
					}
					fmt.Printf("google.accounts=%s\n", strings.Join(google.TokenAccounts(env.store), ","))
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove a stored setting.",
				ArgsUsage: "<key>",
				Action: func(c *cli.Context) error {
					key := c.Args().First()
					if !isSettingKey(key) {
						return fmt.Errorf("unknown setting %q (keys: %s)", key, strings.Join(settingKeys, ", "))
					}
					env, err := loadEnv(c)
					if err != nil {
						return err
					}
					return env.store.Delete(key)
				},
			},
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local HTTP API.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "Address to listen on (default from config)."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Never create events; report what would be created."},
		},
		Action: func(c *cli.Context) error {
			env, err := loadEnv(c)
			if err != nil {
				return err
			}
			ex, err := env.extractor()
			if err != nil {
				return err
			}
			cal, err := env.calendar(c.Context)
			if err != nil {
				return err
			}

			addr := c.String("listen")
			if addr == "" {
				addr = env.cfg.Listen
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(env.logger, env.pipeline(ex, cal, c.Bool("dry-run")), ex)
			return srv.Run(ctx, addr)
		},
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// printResponse prints resp and turns a failure into a non-zero exit.
func printResponse(resp pipeline.Response) error {
	if err := printJSON(resp); err != nil {
		return err
	}
	if !resp.Success {
		return cli.Exit("", 1)
	}
	return nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
