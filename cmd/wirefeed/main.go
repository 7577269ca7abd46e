// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/capture"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/dispatch"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/gate"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/news"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/pipeline"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/sender"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/signature"
	"go.astrophena.name/wirefeed/cmd/wirefeed/internal/telegram"
	"go.astrophena.name/wirefeed/internal/cli"
	"go.astrophena.name/wirefeed/internal/cli/envflag"
	"go.astrophena.name/wirefeed/internal/logger"
	"go.astrophena.name/wirefeed/internal/systemd"
	"go.astrophena.name/wirefeed/internal/web"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

var (
	errMissingConfig = errors.New("missing required environment variables")
	errUnknownSource = errors.New("unknown capture source")
)

// Required environment variables.
var (
	runEnv    = []string{"TG_TOKEN", "TG_CHANNEL_ID", "FJ_URL", "FJ_EMAIL", "FJ_PASSWORD"}
	replayEnv = []string{"TG_TOKEN", "TG_CHANNEL_ID"}
)

func main() { cli.Main(new(engine)) }

type engine struct {
	// configuration, set by flags
	adminAddr         *string
	buffer            *time.Duration
	configFile        *string
	debug             *bool
	dry               *bool
	heartbeat         *time.Duration
	ingestURL         *string
	kafkaBrokers      *string
	kafkaControlTopic *string
	kafkaGroup        *string
	kafkaTopic        *string
	logLevel          *string
	maxSignatures     *int
	poll              *time.Duration
	rate              *int
	replayFile        *string
	sendTimeout       *time.Duration
	settle            *time.Duration
	source            *string

	envFileErr error

	// set in tests
	now      func() time.Time
	httpc    *http.Client
	tgAPIURL string

	// adminReady, if set, receives the bound admin server address.
	adminReady func(addr string)

	// initialized by doInit
	session  string
	logger   *logger.Logger
	streamer logger.Streamer
}

func (e *engine) Flags(fs *flag.FlagSet, env *cli.Env) {
	e.loadEnvFile(env)

	e.adminAddr = envflag.Value("admin-addr", "ADMIN_ADDR", "localhost:3000", "Admin server `address`. Empty disables it.", fs, env.Getenv)
	e.buffer = envflag.Value("buffer", "BUFFER_DURATION", 2*time.Minute, "Accept items published up to this `duration` before startup.", fs, env.Getenv)
	e.configFile = envflag.Value("config", "CONFIG_FILE", "config.star", "Starlark rules `file`.", fs, env.Getenv)
	e.debug = envflag.Value("debug", "DEBUG", false, "Enable debug logging.", fs, env.Getenv)
	e.dry = envflag.Value("dry", "DRY_RUN", false, "Enable dry-run mode: log messages instead of sending them.", fs, env.Getenv)
	e.heartbeat = envflag.Value("heartbeat", "HEARTBEAT_INTERVAL", pipeline.DefaultHeartbeat, "Give up when frames produce no items for this `duration`. Zero disables the check.", fs, env.Getenv)
	e.ingestURL = envflag.Value("ingest-url", "INGEST_URL", "", "Frames endpoint `URL` embedded into the hook script. Defaults to the admin server address.", fs, env.Getenv)
	e.kafkaBrokers = envflag.Value("kafka-brokers", "KAFKA_BROKERS", "localhost:9092", "Comma-separated Kafka broker `addresses`.", fs, env.Getenv)
	e.kafkaControlTopic = envflag.Value("kafka-control-topic", "KAFKA_CONTROL_TOPIC", "", "Kafka `topic` for hook reinstall requests.", fs, env.Getenv)
	e.kafkaGroup = envflag.Value("kafka-group", "KAFKA_GROUP", "wirefeed", "Kafka consumer `group`.", fs, env.Getenv)
	e.kafkaTopic = envflag.Value("kafka-topic", "KAFKA_TOPIC", "wirefeed.frames", "Kafka `topic` carrying raw frames.", fs, env.Getenv)
	e.logLevel = envflag.Value("log-level", "LOG_LEVEL", "info", "Log `level`: debug, info, warn or error.", fs, env.Getenv)
	e.maxSignatures = envflag.Value("max-signatures", "MAX_SIGNATURES", 0, "Remember at most this many sent items, forgetting the oldest first. Zero means no limit.", fs, env.Getenv)
	e.poll = envflag.Value("poll", "POLL_INTERVAL", pipeline.DefaultPollInterval, "Pause between polls of the capture source.", fs, env.Getenv)
	e.rate = envflag.Value("rate", "SEND_RATE_PER_MINUTE", dispatch.DefaultRatePerMinute, "Maximum messages sent per minute. Zero disables the limit.", fs, env.Getenv)
	e.replayFile = envflag.Value("replay-file", "REPLAY_FILE", "", "Frame `file` for the replay capture source.", fs, env.Getenv)
	e.sendTimeout = envflag.Value("send-timeout", "SEND_TIMEOUT", dispatch.DefaultTimeout, "Timeout of a single message send, and separately of the wait for the rate limiter.", fs, env.Getenv)
	e.settle = envflag.Value("settle", "SETTLE_DELAY", pipeline.DefaultSettleDelay, "Wait this long after installing the capture hook.", fs, env.Getenv)
	e.source = envflag.Value("source", "CAPTURE_SOURCE", "http", "Capture `source`: http, kafka or replay.", fs, env.Getenv)
}

// loadEnvFile makes values from the .env file visible through env.Getenv.
// Real environment variables take precedence.
func (e *engine) loadEnvFile(env *cli.Env) {
	path := cmp.Or(env.Getenv("ENV_FILE"), ".env")
	vals, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		e.envFileErr = fmt.Errorf("reading %s: %w", path, err)
		return
	}
	getenv := env.Getenv
	env.Getenv = func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return vals[key]
	}
}

func (e *engine) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if e.envFileErr != nil {
		return e.envFileErr
	}

	e.doInit(ctx)
	ctx = logger.Put(ctx, e.logger)

	command, args := "run", env.Args
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "run":
		if len(args) != 0 {
			return fmt.Errorf("%w: run takes no arguments", cli.ErrInvalidArgs)
		}
		return e.run(ctx)
	case "replay":
		if len(args) != 1 {
			return fmt.Errorf("%w: replay expects a frame file", cli.ErrInvalidArgs)
		}
		return e.replay(ctx, args[0])
	case "check":
		return e.check(ctx)
	default:
		return fmt.Errorf("%w: no such command %q", cli.ErrInvalidArgs, command)
	}
}

func (e *engine) doInit(ctx context.Context) {
	env := cli.GetEnv(ctx)
	if e.now == nil {
		e.now = time.Now
	}
	e.session = uuid.NewString()
	e.streamer = logger.NewStreamer(1000)
	e.logger = logger.New(env.Stderr, e.streamer)
	e.logger.Logger = e.logger.With(slog.String("session", e.session))

	e.logger.Level.Set(logger.ParseLevel(*e.logLevel))
	// Enable debug logging in dry-run mode.
	if *e.debug || *e.dry {
		e.logger.Level.Set(slog.LevelDebug)
	}
}

// requireEnv returns the values of names, or an error listing every missing
// one.
func requireEnv(getenv func(string) string, names ...string) (map[string]string, error) {
	vals := make(map[string]string, len(names))
	var missing []string
	for _, name := range names {
		v := strings.TrimSpace(getenv(name))
		if v == "" {
			missing = append(missing, name)
			continue
		}
		vals[name] = v
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", errMissingConfig, strings.Join(missing, ", "))
	}
	return vals, nil
}

// seenStore is a signature store that can report its size.
type seenStore interface {
	signature.Store
	signature.Claimer
	Len() int
}

// components is the part of the pipeline shared by run and replay.
type components struct {
	store      seenStore
	normalizer *news.Normalizer
	dispatcher *dispatch.Dispatcher
}

func (e *engine) newComponents(ctx context.Context, settings map[string]string) (*components, error) {
	l := logger.Get(ctx).Logger

	rules, err := loadRules(*e.configFile, l)
	if err != nil {
		return nil, err
	}

	var snd sender.Sender = sender.Log{Logger: l}
	if !*e.dry {
		snd = telegram.New(telegram.Config{
			ChatID:     settings["TG_CHANNEL_ID"],
			Token:      settings["TG_TOKEN"],
			APIURL:     e.tgAPIURL,
			HTTPClient: e.httpc,
		})
	}

	var store seenStore = signature.NewMemory()
	if *e.maxSignatures > 0 {
		store = signature.NewBounded(*e.maxSignatures)
	}
	g := gate.New(e.now(), *e.buffer)
	l.DebugContext(ctx, "session clock set", slog.Time("threshold", g.Threshold()), slog.Int("blacklist_terms", len(rules.Blacklist)))

	return &components{
		store: store,
		normalizer: &news.Normalizer{
			Blacklist: rules.Blacklist,
			Store:     store,
			Gate:      g,
			BlockRule: rules.blockFunc(l),
		},
		dispatcher: dispatch.New(dispatch.Config{
			Sender:        snd,
			Timeout:       *e.sendTimeout,
			RatePerMinute: *e.rate,
			Logger:        l,
		}),
	}, nil
}

func (e *engine) run(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	l := logger.Get(ctx).Logger

	settings, err := requireEnv(env.Getenv, runEnv...)
	if err != nil {
		return err
	}
	c, err := e.newComponents(ctx, settings)
	if err != nil {
		return err
	}

	router := web.NewRouter()
	src, cleanup, err := e.newSource(ctx, settings, router)
	if err != nil {
		return err
	}
	defer cleanup()

	var readySent bool
	heartbeat := *e.heartbeat
	if heartbeat <= 0 {
		heartbeat = -1
	}
	settle := *e.settle
	if settle <= 0 {
		settle = -1
	}
	driver := pipeline.New(pipeline.Config{
		Source:       src,
		Normalizer:   c.normalizer,
		Dispatcher:   c.dispatcher,
		PollInterval: *e.poll,
		SettleDelay:  settle,
		Heartbeat:    heartbeat,
		Logger:       l,
		OnStateChange: func(s pipeline.State) {
			if s == pipeline.Armed && !readySent {
				readySent = true
				systemd.Notify(l, systemd.Ready)
			}
			systemd.Notify(l, systemd.Status(s.String()))
		},
	})
	e.mountAdmin(router, driver, c.store)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srvErr := make(chan error, 1)
	if *e.adminAddr != "" {
		go func() {
			err := e.serveAdmin(ctx, router)
			if err != nil {
				l.Error("admin server failed", slog.Any("err", err))
				cancel()
			}
			srvErr <- err
		}()
	} else {
		srvErr <- nil
	}
	go systemd.WatchdogLoop(ctx, l)

	l.Info("starting", slog.String("source", *e.source), slog.Bool("dry", *e.dry))
	err = driver.Run(ctx)
	systemd.Notify(l, systemd.Stopping)
	cancel()

	if serr := <-srvErr; serr != nil && err == nil {
		return serr
	}
	return err
}

func (e *engine) newSource(ctx context.Context, settings map[string]string, router chi.Router) (src capture.Source, cleanup func(), err error) {
	l := logger.Get(ctx).Logger
	cleanup = func() {}

	switch *e.source {
	case "http":
		if *e.adminAddr == "" {
			return nil, nil, fmt.Errorf("%w: http capture source needs the admin server", cli.ErrInvalidArgs)
		}
		h := capture.NewHTTP(capture.HTTPConfig{
			SessionID: e.session,
			TargetURL: settings["FJ_URL"],
			Email:     settings["FJ_EMAIL"],
			IngestURL: cmp.Or(*e.ingestURL, "http://"+*e.adminAddr+"/capture/frames"),
			Logger:    l,
		})
		router.Route("/capture", h.Routes)
		return h, cleanup, nil
	case "kafka":
		k := capture.NewKafka(capture.KafkaConfig{
			Brokers:      splitList(*e.kafkaBrokers),
			Topic:        *e.kafkaTopic,
			GroupID:      *e.kafkaGroup,
			ControlTopic: *e.kafkaControlTopic,
			SessionID:    e.session,
			Logger:       l,
		})
		return k, func() {
			if err := k.Close(); err != nil {
				l.Warn("closing kafka source", slog.Any("err", err))
			}
		}, nil
	case "replay":
		if *e.replayFile == "" {
			return nil, nil, fmt.Errorf("%w: replay capture source needs -replay-file", cli.ErrInvalidArgs)
		}
		r, err := capture.OpenReplay(*e.replayFile)
		if err != nil {
			return nil, nil, err
		}
		return r, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("%w %q", errUnknownSource, *e.source)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (e *engine) replay(ctx context.Context, path string) error {
	env := cli.GetEnv(ctx)

	var settings map[string]string
	if !*e.dry {
		var err error
		if settings, err = requireEnv(env.Getenv, replayEnv...); err != nil {
			return err
		}
	}
	c, err := e.newComponents(ctx, settings)
	if err != nil {
		return err
	}

	src, err := capture.OpenReplay(path)
	if err != nil {
		return err
	}
	frames := src.Len()

	driver := pipeline.New(pipeline.Config{
		Source:     src,
		Normalizer: c.normalizer,
		Dispatcher: c.dispatcher,
		Heartbeat:  -1,
		Logger:     logger.Get(ctx).Logger,
	})
	items := driver.Process(ctx, src.Drain(ctx))

	fmt.Fprintf(env.Stdout, "Replayed %d frames: %d items, %d remembered.\n", frames, items, c.store.Len())
	return nil
}

func (e *engine) check(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if _, err := os.Stat(*e.configFile); errors.Is(err, os.ErrNotExist) {
		env.Logf("%s does not exist, no rules apply", *e.configFile)
	}
	rules, err := loadRules(*e.configFile, logger.Get(ctx).Logger)
	if err != nil {
		return err
	}
	printRules(env.Stdout, rules)
	return nil
}

func printRules(w io.Writer, r *rules) {
	if len(r.Blacklist) == 0 {
		fmt.Fprintln(w, "Blacklist is empty.")
	} else {
		fmt.Fprintf(w, "Blacklist (%d terms):\n", len(r.Blacklist))
		for _, term := range r.Blacklist {
			fmt.Fprintf(w, "  %s\n", term)
		}
	}
	if r.BlockRule != nil {
		fmt.Fprintf(w, "Block rule: %s\n", r.BlockRule.Name())
	} else {
		fmt.Fprintln(w, "Block rule: none")
	}
}
