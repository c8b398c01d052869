package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ayusman/facewatch/internal/config"
	"github.com/ayusman/facewatch/internal/recognizer"
	"github.com/spf13/cobra"
)

func newGalleryCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "gallery [dir]",
		Short: "Load the known faces gallery and summarize it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cfg.GalleryDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runGallery(cfg, dir)
		},
	}
}

func runGallery(cfg *config.Config, dir string) error {
	fr, err := recognizer.NewFaceRecognizer(cfg.ModelsDir, recognizer.Config{
		Scale:     cfg.Scale,
		Tolerance: cfg.Tolerance,
	})
	if err != nil {
		return err
	}
	defer fr.Close()

	bar := &galleryBar{}
	g, err := recognizer.LoadGallery(fr, dir, bar.update)
	bar.finish()
	if err != nil {
		return err
	}

	if g.Len() == 0 {
		fmt.Printf("No usable faces found in %s\n", dir)
		return nil
	}

	counts := g.Counts()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PERSON\tENCODINGS")
	fmt.Fprintln(w, "------\t---------")
	for _, name := range g.People() {
		fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
	}
	w.Flush()

	fmt.Printf("\n%d encodings for %d people\n", g.Len(), len(counts))
	return nil
}
