package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ayusman/facewatch/internal/app"
	"github.com/ayusman/facewatch/internal/config"
	"github.com/ayusman/facewatch/internal/pipeline"
	"github.com/spf13/cobra"
	"gocv.io/x/gocv"
)

const windowTitle = "facewatch"

func newRunCmd(cfg *config.Config) *cobra.Command {
	var window bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Watch the camera and alert on known faces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cfg, window)
		},
	}

	f := cmd.Flags()
	f.IntVar(&cfg.CameraID, "camera", cfg.CameraID, "camera device index")
	f.IntVar(&cfg.Width, "width", cfg.Width, "capture width")
	f.IntVar(&cfg.Height, "height", cfg.Height, "capture height")
	f.StringVar(&cfg.GalleryDir, "gallery", cfg.GalleryDir, "known faces directory")
	f.StringVar(&cfg.CascadePath, "cascade", cfg.CascadePath, "Haar cascade used when the face models are missing")
	f.Float64Var(&cfg.Scale, "scale", cfg.Scale, "downscale factor applied before recognition")
	f.Float64Var(&cfg.Tolerance, "tolerance", cfg.Tolerance, "largest encoding distance accepted as a match")
	f.DurationVar(&cfg.Cooldown, "cooldown", cfg.Cooldown, "minimum time between alerts for one person")
	f.IntVar(&cfg.AlertWorkers, "alert-workers", cfg.AlertWorkers, "concurrent alert deliveries")
	f.StringVar(&cfg.Caption, "caption", cfg.Caption, "caption attached to alerts")
	f.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for detections.log")
	f.StringVar(&cfg.SnapshotDir, "snapshot-dir", cfg.SnapshotDir, "directory for face snapshots")
	f.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "serve the preview and history API on this address (e.g. :8080)")
	f.BoolVar(&window, "window", cfg.Preview, "show the annotated preview window, press q to quit")

	return cmd
}

func runWatch(ctx context.Context, cfg *config.Config, window bool) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	bar := &galleryBar{}
	rt, err := app.Build(cfg, bar.update)
	bar.finish()
	if err != nil {
		return err
	}
	defer rt.App.Stop()

	if err := rt.App.Start(); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}

	if rt.Server != nil {
		go func() {
			if err := rt.Server.ListenAndServe(cfg.HTTPAddr); err != nil {
				log.Printf("server: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := rt.Server.Shutdown(ctx); err != nil {
				log.Printf("server: shutdown: %v", err)
			}
		}()
	}

	var display app.Display
	if window {
		w := gocv.NewWindow(windowTitle)
		defer w.Close()
		display = func(ann pipeline.Annotated) bool {
			w.IMShow(*ann.Frame.Mat)
			key := w.WaitKey(1)
			return key != 'q' && key != 'Q'
		}
	}

	fmt.Println("Watching camera, press Ctrl+C to stop")
	if err := rt.App.Run(ctx, display); err != nil {
		return err
	}

	st := rt.App.Stats()
	fmt.Printf("Processed %d frames, %d recognition jobs (%d failed), %d alerts sent\n",
		st.Pipeline.Ticks, st.Pipeline.Completed, st.Pipeline.Failed, st.Alerts.Started)
	return nil
}
