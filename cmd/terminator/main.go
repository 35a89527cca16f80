package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lmittmann/tint"
	log "log/slog"

	"terminator/internal/actions"
	"terminator/internal/assistant"
	"terminator/internal/audio"
	"terminator/internal/config"
	"terminator/internal/index"
	"terminator/internal/intent"
	"terminator/internal/ipc"
	"terminator/internal/media"
	"terminator/internal/notify"
	"terminator/internal/proxy"
	"terminator/internal/reminder"
	"terminator/internal/speech"
	"terminator/internal/tts"
	"terminator/internal/ui"
	"terminator/internal/voice"
	"terminator/internal/wake"
	"terminator/pkg/protocol"
	"terminator/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type flags struct {
	envFile   string
	proxyAddr string
	modelPath string
	audioFile string
	noWake    bool
}

func main() {
	var f flags
	cli.StringVarP(&f.envFile, "env", "e", ".env", "Env file path")
	cli.StringVarP(&f.proxyAddr, "proxy", "p", "", "Socks proxy address for online features (empty = direct)")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.StringVarP(&f.modelPath, "model", "m", "models/ggml-base.en.bin", "Whisper model path")
	cli.StringVar(&f.audioFile, "audio-file", "", "Replay a wav/mp3/ogg file to the wake-word monitor instead of the microphone")
	cli.BoolVar(&f.noWake, "no-wake", false, "Disable the wake word and listen for commands directly")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevelMap[*logLevel],
		TimeFormat: time.TimeOnly,
	})))

	log.Info("Booting up")

	if err := run(f); err != nil {
		log.Error("terminator stopped", "err", err)
		os.Exit(1)
	}
}

func run(f flags) error {
	if err := godotenv.Load(f.envFile); err != nil {
		log.Debug("No env file loaded", "path", f.envFile, "err", err)
	}
	cfg, err := config.Load(os.Getenv)
	if err != nil {
		return err
	}
	logger := log.Default()

	httpClient, err := proxy.NewSocksClient(f.proxyAddr)
	if err != nil {
		return err
	}
	log.Debug("Loaded http client", "proxy", f.proxyAddr)

	if err := audio.Init(); err != nil {
		return err
	}
	defer audio.Terminate()
	log.Debug("Loaded audio")

	whisper, err := stt.NewTranscriber(f.modelPath, stt.Options{
		Language:      cfg.Language,
		InitialPrompt: strings.Join(cfg.WakeKeywords, ", "),
	})
	if err != nil {
		return err
	}
	defer whisper.Close()
	log.Debug("Loaded whisper", "model", f.modelPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	console := ui.NewConsole(os.Stdout)
	espeak := tts.NewEspeak(cfg.EspeakVoice, cfg.EspeakRate)
	defer espeak.Close()
	gate := speech.NewGate(espeak,
		speech.WithView(console),
		speech.WithDucker(audio.NewDucker([]string{"terminator", "espeak"}, 20)),
		speech.WithSender(assistant.DefaultName),
		speech.WithLogger(logger),
	)

	listener := voice.New(
		func() (audio.FrameSource, error) { return audio.NewMic(), nil },
		whisper,
		voice.WithBusy(gate),
		voice.WithView(console),
		voice.WithLogger(logger),
	)

	reminders := reminder.New(gate,
		reminder.WithTick(cfg.ReminderTick),
		reminder.WithView(console),
		reminder.WithLogger(logger),
	)

	var monitor *wake.Monitor
	if !f.noWake {
		monitor = newMonitor(f.audioFile, whisper, cfg, gate, logger)
	}

	var hub *protocol.Client
	if cfg.HubURL != "" {
		hub, err = protocol.Dial(ctx, protocol.Config{
			URL:   cfg.HubURL,
			Shard: cfg.HubShard,
			OnMessage: func(m protocol.Message) {
				console.Log("HUB", m.String())
			},
			Logger: logger,
		})
		if err != nil {
			log.Warn("Device hub unavailable", "url", cfg.HubURL, "err", err)
			hub = nil
		}
	}

	apps, music := index.NewRef(nil), index.NewRef(nil)
	session := &intent.Session{UserName: cfg.UserName}
	deps := collaborators(cfg, httpClient, hub, logger)
	deps.Speaker = gate
	deps.Listener = listener
	deps.View = console
	deps.Apps = apps
	deps.Music = music
	deps.Reminders = reminders
	dispatcher := intent.New(deps, session)

	commands := make(chan string, 4)
	chime := notify.NewChime(cfg.ChimeFile, logger)

	opts := []assistant.Option{
		assistant.WithView(console),
		assistant.WithReminders(reminders),
		assistant.WithCommands(commands),
		assistant.WithName(cfg.WakeKeywords[0]),
		assistant.WithLogger(logger),
		assistant.WithChime(func() {
			notify.Desktop(ctx, "terminator", "Listening...")
			chime.Play()
		}),
		assistant.WithIndexers(
			assistant.Indexer{Announce: "Scanning for installed applications.", Build: func() int {
				apps.Store(index.Build(cfg.AppDirs, cfg.AppExts))
				return apps.Len()
			}},
			assistant.Indexer{Announce: "Indexing local music files.", Build: func() int {
				music.Store(index.Build(cfg.MusicDirs, media.Extensions))
				return music.Len()
			}},
		),
	}
	if monitor != nil {
		opts = append(opts, assistant.WithWake(monitor))
	}
	asst := assistant.New(gate, listener, dispatcher, session, opts...)

	control := &ipc.Controller{Commands: commands, Speaker: gate, Reminders: reminders, Source: wake.SourceIPC}
	if monitor != nil {
		control.Wake = monitor
	}
	srv, err := ipc.Listen(cfg.SocketPath, control.Handle, logger)
	if err != nil {
		log.Warn("Control socket disabled", "path", cfg.SocketPath, "err", err)
	}

	log.Info("Boot up - successful")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		err := asst.Run(gctx)
		dispatcher.Wait()
		return err
	})
	if srv != nil {
		g.Go(func() error { return srv.Serve(gctx) })
	}
	if hub != nil {
		g.Go(func() error { return hub.Run(gctx) })
	}

	err = g.Wait()
	if monitor != nil {
		select {
		case <-monitor.Done():
		case <-time.After(2 * time.Second):
			log.Warn("Wake-word monitor did not stop in time")
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newMonitor builds the wake-word monitor. A monitor that cannot work is
// still returned; its Start reports the failure and the assistant falls back
// to listening directly.
func newMonitor(audioFile string, tr *stt.Transcriber, cfg config.Config, busy wake.Busy, logger *log.Logger) *wake.Monitor {
	var src audio.FrameSource = audio.NewMic()
	if audioFile != "" {
		src = audio.NewFileSource(audioFile, audio.Loop())
	}

	var spotter wake.Spotter
	ws, err := wake.NewWhisperSpotter(tr, wake.SpotterOptions{Keywords: cfg.WakeKeywords, Logger: logger})
	if err != nil {
		log.Error("Wake-word spotter failed", "err", err)
	} else {
		spotter = ws
	}

	return wake.NewMonitor(src, spotter, wake.WithBusy(busy), wake.WithLogger(logger))
}

// collaborators wires the action backends. Features without credentials are
// left nil so the dispatcher reports them as not configured.
func collaborators(cfg config.Config, client *http.Client, hub *protocol.Client, logger *log.Logger) intent.Deps {
	deps := intent.Deps{
		Encyclopedia: &actions.Wikipedia{Client: client},
		Browser:      actions.SystemBrowser{},
		Launcher:     actions.Launcher{},
		Processes:    actions.Processes{},
		System:       actions.System{},
		Desktop:      actions.Desktop{},
		Clipboard:    actions.Clipboard{},
		Screenshots:  actions.Screenshots{Dir: cfg.ScreenshotDir},
		Notes:        &actions.NoteFile{Path: cfg.NotesFile},
		Volume:       audio.NewVolume(cfg.VolumeStep),
		Player:       media.NewPlayer(logger),
		Joke:         actions.Joke,
		DefaultCity:  cfg.DefaultCity,
		Logger:       logger,
	}

	if cfg.OpenWeatherKey != "" {
		deps.Weather = &actions.OpenWeather{Key: cfg.OpenWeatherKey, Client: client}
	}
	if cfg.NewsKey != "" {
		deps.News = &actions.NewsAPI{Key: cfg.NewsKey, Country: cfg.NewsCountry, Client: client}
	}
	if img := actions.NewImages(cfg.OpenAIKey, client); img != nil {
		deps.Images = img
	}
	if mail := actions.NewMail(cfg.Mail); mail != nil {
		deps.Mail = mail
	}
	if tg := actions.NewTelegram(cfg.TelegramToken, cfg.TelegramContacts, client); tg != nil {
		deps.Messenger = tg
	}
	if hub != nil {
		deps.Devices = actions.NewDevices(hub, cfg.HubDevices)
	}
	return deps
}
