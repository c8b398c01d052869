package app

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ayusman/facewatch/internal/alert"
	"github.com/ayusman/facewatch/internal/capture"
	"github.com/ayusman/facewatch/internal/config"
	"github.com/ayusman/facewatch/internal/hook"
	"github.com/ayusman/facewatch/internal/journal"
	"github.com/ayusman/facewatch/internal/pipeline"
	"github.com/ayusman/facewatch/internal/recognizer"
	"github.com/ayusman/facewatch/internal/server"
	"github.com/ayusman/facewatch/internal/snapshot"
	"github.com/ayusman/facewatch/internal/store"
)

// Runtime is a fully wired App with the collaborators the CLI exposes.
type Runtime struct {
	App    *App
	Store  *store.Store
	Hooks  *hook.Manager
	Events *server.EventHub
	// Server is nil when no HTTP address is configured.
	Server *server.Server
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// Build opens every collaborator named by cfg and returns the wired runtime.
// Optional collaborators that fail to initialize are logged and left out;
// only the store, journal, snapshot directory and recognizer are required.
// progress, if set, reports gallery loading.
func Build(cfg *config.Config, progress func(done, total int)) (rt *Runtime, err error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var closers []io.Closer
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i].Close()
			}
		}
	}()

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	closers = append(closers, st)

	jf, err := journal.Open(cfg.LogDir)
	if err != nil {
		return nil, err
	}
	closers = append(closers, jf)

	snaps, err := snapshot.NewDir(cfg.SnapshotDir)
	if err != nil {
		return nil, err
	}

	hooks := hook.NewManager(cfg.HooksDir)
	if err := hooks.Discover(); err != nil {
		log.Printf("app: hook discovery failed: %v", err)
	}
	hookExec := hook.NewExecutor(hook.DefaultTimeout)

	senders, senderClosers := AlertSenders(cfg, hooks, hookExec)
	closers = append(closers, senderClosers...)

	rec, err := NewRecognizer(cfg, progress)
	if err != nil {
		return nil, err
	}

	rt = &Runtime{Store: st, Hooks: hooks}

	var observers []pipeline.Observer
	if cfg.HTTPAddr != "" {
		rt.Events = server.NewEventHub()
		observers = append(observers, rt.Events)
		closers = append(closers, closerFunc(func() error {
			rt.Events.Close()
			return nil
		}))
	}

	rt.App = New(Config{
		Camera:       capture.NewCamera(cfg.CameraID, cfg.Width, cfg.Height),
		Recognizer:   rec,
		Journal:      jf,
		Snapshots:    snaps,
		Alerts:       senders,
		Cooldown:     cfg.Cooldown,
		AlertWorkers: cfg.AlertWorkers,
		Caption:      cfg.Caption,
		Store:        st,
		Observers:    observers,
		Preview:      cfg.HTTPAddr != "",
		Closers:      closers,
	})

	if cfg.HTTPAddr != "" {
		rt.Server = server.New(server.Config{
			StaticDir:    cfg.FindWebDir(),
			Store:        st,
			Preview:      rt.App,
			Events:       rt.Events,
			Stats:        func() any { return rt.App.Stats() },
			Hooks:        hooks,
			HookExecutor: hookExec,
		})
	}

	return rt, nil
}

// AlertSenders builds every configured alert channel and combines them.
// The sender is nil when no channel is configured. The closers release
// broker connections.
func AlertSenders(cfg *config.Config, hooks *hook.Manager, exec *hook.Executor) (alert.Sender, []io.Closer) {
	var senders []alert.Sender
	var closers []io.Closer

	if tg := alert.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID); tg != nil {
		senders = append(senders, tg)
		log.Println("app: Telegram alerts enabled")
	}

	if mq := alert.NewMQTT(alert.MQTTConfig{
		Broker:      cfg.MQTTBroker,
		ClientID:    cfg.MQTTClientID,
		TopicPrefix: cfg.MQTTTopicPrefix,
	}); mq != nil {
		if err := mq.Connect(); err != nil {
			log.Printf("app: MQTT alerts disabled: %v", err)
		} else {
			senders = append(senders, mq)
			closers = append(closers, closerFunc(func() error {
				mq.Close()
				return nil
			}))
			log.Printf("app: MQTT alerts enabled on %s", cfg.MQTTBroker)
		}
	}

	if h := alert.NewHooks(hooks, exec); h != nil {
		senders = append(senders, h)
		log.Printf("app: %d alert hooks enabled", len(hooks.Subscribers(hook.EventAlert)))
	}

	return alert.Combine(senders...), closers
}

// NewRecognizer loads the dlib face recognizer with the gallery from
// cfg.GalleryDir. When the models cannot be loaded it falls back to the Haar
// cascade detector, which labels every face Unknown.
func NewRecognizer(cfg *config.Config, progress func(done, total int)) (recognizer.Recognizer, error) {
	fr, err := recognizer.NewFaceRecognizer(cfg.ModelsDir, recognizer.Config{
		Scale:     cfg.Scale,
		Tolerance: cfg.Tolerance,
	})
	if err == nil {
		gallery, err := recognizer.LoadGallery(fr, cfg.GalleryDir, progress)
		if err != nil {
			fr.Close()
			return nil, fmt.Errorf("load gallery: %w", err)
		}
		fr.SetGallery(gallery)
		if gallery.Len() == 0 {
			log.Println("app: gallery is empty, every face will be Unknown")
		}
		return fr, nil
	}

	log.Printf("app: face models unavailable (%v), using cascade detector", err)
	cr, cerr := recognizer.NewCascadeRecognizer(cfg.CascadePath, cfg.Scale)
	if cerr != nil {
		return nil, fmt.Errorf("no recognizer available: %w", cerr)
	}
	return cr, nil
}
