package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ayusman/signstream/internal/app"
	"github.com/ayusman/signstream/internal/config"
	"github.com/ayusman/signstream/internal/server"
	"github.com/ayusman/signstream/internal/store"
	"github.com/ayusman/signstream/internal/tray"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	addr     string
	tray     bool
	noCamera bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the recognition service and web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&opts.tray, "tray", false, "show the system tray menu")
	cmd.Flags().BoolVar(&opts.noCamera, "no-camera", false, "accept frames over the API only")
	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.tray {
		cfg.Server.Tray = true
	}
	if opts.noCamera {
		cfg.Camera.Enabled = false
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	a, err := app.New(cfg, st)
	if err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return err
	}
	defer a.Stop()

	webDir := findWebDir(cfg.Server.WebDir)
	if webDir != "" {
		log.Printf("Serving static files from: %s", webDir)
	}

	srv := server.New(server.Config{StaticDir: webDir, App: a, AllowedOrigins: cfg.Server.AllowedOrigins})

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe(cfg.Server.Addr)
	}()

	if cfg.Server.Tray {
		go func() {
			<-ctx.Done()
			tray.Quit()
		}()
		runTray(a, cfg.Server.Addr, stop)
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	return nil
}

// runTray blocks until the tray quits.
func runTray(a *app.App, addr string, quit func()) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnSpeak(func() { a.Session().SpeakSentence() })
	t.OnClear(a.Session().ClearSentence)
	t.OnSettings(func() {
		if err := openBrowser(browserURL(addr)); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	})
	t.OnQuit(quit)

	events, unsubscribe := a.Session().Subscribe()
	defer unsubscribe()
	go t.Watch(events)

	t.Run()
}

// browserURL turns a listen address into a local URL.
func browserURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir returns the first existing web directory among the
// configured one, "web", "../web", "../../web" and ~/.signstream/web.
func findWebDir(configured string) string {
	candidates := []string{configured, "web", "../web", "../../web"}
	if dir, err := config.Dir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "web"))
	}

	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
