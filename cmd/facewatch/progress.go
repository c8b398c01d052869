package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
)

// galleryBar renders gallery loading on stderr. The bar is created on the
// first update, once the number of images is known.
type galleryBar struct {
	bar *progressbar.ProgressBar
}

func (g *galleryBar) update(done, total int) {
	if g.bar == nil {
		g.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Loading gallery"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
		)
	}
	g.bar.Set(done)
}

func (g *galleryBar) finish() {
	if g.bar != nil {
		g.bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
}
