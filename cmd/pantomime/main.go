package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ayusman/pantomime/internal/capture"
	"github.com/ayusman/pantomime/internal/config"
	"github.com/ayusman/pantomime/internal/detector"
	"github.com/ayusman/pantomime/internal/gesture"
	"github.com/ayusman/pantomime/internal/interpret"
	"github.com/ayusman/pantomime/internal/pipeline"
	"github.com/ayusman/pantomime/internal/plugin"
	"github.com/ayusman/pantomime/internal/present"
	"github.com/ayusman/pantomime/internal/server"
	"github.com/ayusman/pantomime/internal/server/api"
	"github.com/ayusman/pantomime/internal/smoothing"
	"github.com/ayusman/pantomime/internal/store"
	"github.com/ayusman/pantomime/internal/stream"
	"github.com/ayusman/pantomime/internal/tray"
)

// shutdownTimeout bounds how long the stages get to drain after a stop.
const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	replayPath := flag.String("replay", "", "replay recorded pose frames (JSON lines) instead of the camera")
	loop := flag.Bool("loop", false, "loop the replay file")
	flag.Parse()

	fmt.Println("Pantomime - Pose Gesture Responder")

	cfg := config.Empty()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataDir, err := dataDir()
	if err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	dbPath := cfg.GetDBPath()
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "pantomime.db")
	}
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	var (
		src      gesture.Source
		exporter api.Exporter
		clips    = map[gesture.Name]time.Duration{}
	)
	if dir := cfg.GetReferenceDir(); dir != "" {
		exporter = gesture.DirSource{Dir: dir}
	}
	switch cfg.GetLibrarySource() {
	case config.SourceDir:
		src = gesture.DirSource{Dir: cfg.GetReferenceDir()}
	default:
		storeSrc := st.LibrarySource()
		lengths, err := storeSrc.ClipLengths()
		if err != nil {
			log.Fatalf("Failed to read clip lengths: %v", err)
		}
		clips = lengths
		src = storeSrc
	}
	for name, d := range cfg.GetClips() {
		clips[name] = d
	}

	lib, err := gesture.Load(ctx, src, cfg.GetDefaultGesture())
	if err != nil {
		log.Fatalf("Failed to load gesture library: %v", err)
	}
	log.Printf("Loaded %d gestures from %s: %v", lib.Len(), src, lib.Names())

	source, err := openSource(cfg, *replayPath, *loop)
	if err != nil {
		log.Fatalf("Failed to open pose source: %v", err)
	}

	interp, err := newInterpreter(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up interpreter: %v", err)
	}
	log.Printf("Interpreter: %s", interp.Name())

	signals := pipeline.NewSignals()

	pcfg := pipeline.DefaultConfig()
	pcfg.Quantizer = capture.QuantizerConfig{Window: cfg.GetWindow(), MinSamples: cfg.GetMinSamples()}
	pcfg.Metric = cfg.GetMetric()
	pcfg.SnapshotQueue = cfg.GetQueueSize()
	pcfg.OutboundQueue = cfg.GetQueueSize()
	pcfg.FallbackOnDegenerate = cfg.GetFallbackOnDegenerate()
	pcfg.StatsInterval = cfg.GetStatsInterval()
	coordinator := pipeline.New(pcfg, lib, source, signals, nil)

	cues := stream.NewQueue[gesture.Name](cfg.GetQueueSize())
	stage := interpret.NewStage(interp, lib, coordinator.Outbound(), cues, cfg.GetInterpretTimeout())
	director := present.NewDirector(present.Config{
		DefaultHold: cfg.GetDefaultHold(),
		MaxHold:     cfg.GetMaxHold(),
		Clips:       clips,
	}, lib, cues, signals, nil)

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	if err := coordinator.Start(runCtx); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	go stage.Run(runCtx)
	go director.Run(runCtx)

	srv := server.New(server.Config{
		StaticDir:  findWebDir(cfg.GetStaticDir(), dataDir),
		Store:      st,
		Exporter:   exporter,
		Controller: coordinator,
		Signals:    signals,
		Cues:       director,
		Interpret:  stage,
	})
	httpServer := &http.Server{Addr: cfg.GetListen(), Handler: srv}
	go func() {
		log.Printf("Starting server on %s", cfg.GetListen())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			signals.Stop()
		}
	}()

	// Ctrl-C and /api/stop both end up raising the stop signal.
	go func() {
		<-ctx.Done()
		signals.Stop()
	}()

	if cfg.GetTray() {
		t := tray.New()
		t.OnToggle(coordinator.SetEnabled)
		t.OnStatus(func() { log.Printf("Status: %s", coordinator.Status()) })
		t.OnQuit(signals.Stop)
		ch, unsubscribe := director.Subscribe(4)
		defer unsubscribe()
		go t.Follow(runCtx, ch)
		go func() {
			<-signals.Done()
			t.Quit()
		}()
		t.Run()
	}

	<-signals.Done()
	log.Println("Shutting down...")
	shutdown(coordinator, httpServer, cancelRun)
}

// shutdown waits for the pipeline to drain, then stops the HTTP server.
// Stages that do not return within shutdownTimeout are abandoned.
func shutdown(coordinator *pipeline.Coordinator, httpServer *http.Server, cancelRun context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		coordinator.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		log.Printf("Pipeline did not stop within %s", shutdownTimeout)
	}
	cancelRun()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

func openSource(cfg *config.Config, replayPath string, loop bool) (capture.Source, error) {
	if replayPath != "" {
		f, err := os.Open(filepath.Clean(replayPath))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		frames, err := capture.LoadReplay(f)
		if err != nil {
			return nil, err
		}
		log.Printf("Replaying %d frames from %s", len(frames), replayPath)
		return capture.NewReplaySource(frames, loop), nil
	}

	dcfg := detector.DefaultConfig()
	dcfg.ModelComplexity = cfg.GetModelComplexity()
	dcfg.PythonPath = cfg.GetPythonPath()
	det, err := detector.NewMediaPipeDetector(dcfg)
	if err != nil {
		return nil, err
	}

	camCfg := capture.DefaultCameraConfig()
	camCfg.DeviceID = cfg.GetCameraDevice()
	camCfg.FPS = cfg.GetIdleFPS()

	var smoother capture.Smoother
	if cfg.GetSmoothing() {
		smoother = smoothing.New(smoothing.DefaultConfig())
	}

	return capture.NewCameraSource(capture.CameraSourceConfig{
		Camera:   capture.NewCamera(camCfg),
		Detector: det,
		Rate: capture.RateConfig{
			IdleFPS:     cfg.GetIdleFPS(),
			ActiveFPS:   cfg.GetActiveFPS(),
			IdleTimeout: cfg.GetIdleTimeout(),
		},
		MotionThresh: cfg.GetMotionThreshold(),
		Smoother:     smoother,
	})
}

func newInterpreter(ctx context.Context, cfg *config.Config) (interpret.Interpreter, error) {
	switch cfg.GetInterpreter() {
	case config.InterpreterGemini:
		return interpret.NewGemini(ctx, interpret.GeminiConfig{
			APIKey: os.Getenv(cfg.GetGeminiKeyEnv()),
			Model:  cfg.GetGeminiModel(),
		})
	case config.InterpreterPlugin:
		manager := plugin.NewManager(cfg.GetPluginDir())
		if err := manager.Discover(); err != nil {
			return nil, err
		}
		p, err := manager.Get(cfg.GetPlugin())
		if err != nil {
			return nil, err
		}
		return interpret.NewPlugin(plugin.NewExecutor(cfg.GetInterpretTimeout()), p, cfg.PluginConfig)
	default:
		return interpret.Echo{}, nil
	}
}

func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(homeDir, ".pantomime")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// findWebDir returns the configured static directory, or the first of
// "web", "../web" and <dataDir>/web that exists.
func findWebDir(configured, dataDir string) string {
	if configured != "" {
		return configured
	}
	for _, p := range []string{"web", "../web", filepath.Join(dataDir, "web")} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
