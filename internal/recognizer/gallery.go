package recognizer

import (
	"log"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Kagami/go-face"
)

// GalleryExtensions lists the image file extensions LoadGallery reads.
var GalleryExtensions = []string{".jpg", ".jpeg", ".png"}

// Sample is one reference encoding for a person.
type Sample struct {
	Name       string
	Descriptor face.Descriptor
}

// Gallery holds the reference encodings of known people.
// It is built once at startup and only read afterwards.
type Gallery struct {
	samples []Sample
}

// NewGallery creates an empty gallery.
func NewGallery() *Gallery {
	return &Gallery{}
}

// Add appends a reference encoding for name.
func (g *Gallery) Add(name string, d face.Descriptor) {
	g.samples = append(g.samples, Sample{Name: name, Descriptor: d})
}

// Len returns the number of encodings.
func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.samples)
}

// People returns the distinct names in the gallery, sorted.
func (g *Gallery) People() []string {
	if g == nil {
		return nil
	}
	seen := make(map[string]bool)
	var names []string
	for _, s := range g.samples {
		if !seen[s.Name] {
			seen[s.Name] = true
			names = append(names, s.Name)
		}
	}
	sort.Strings(names)
	return names
}

// Counts returns the number of encodings held for each person.
func (g *Gallery) Counts() map[string]int {
	counts := make(map[string]int)
	if g == nil {
		return counts
	}
	for _, s := range g.samples {
		counts[s.Name]++
	}
	return counts
}

// Match returns the name of the closest encoding if its euclidean distance is
// within tolerance, otherwise Unknown. The distance to the closest encoding is
// returned as well; it is +Inf for an empty gallery.
func (g *Gallery) Match(d face.Descriptor, tolerance float64) (string, float64) {
	if g.Len() == 0 {
		return Unknown, math.Inf(1)
	}

	best := -1
	bestDist := math.Inf(1)
	for i, s := range g.samples {
		dist := math.Sqrt(face.SquaredEuclideanDistance(s.Descriptor, d))
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}

	if bestDist <= tolerance {
		return g.samples[best].Name, bestDist
	}
	return Unknown, bestDist
}

// Describer produces face encodings for an image file.
type Describer interface {
	DescribeFile(path string) ([]face.Descriptor, error)
}

// galleryEntry is one image to encode and the person it belongs to.
type galleryEntry struct {
	name string
	path string
}

// LoadGallery builds a gallery from dir.
//
// Each subdirectory is a person and every image inside it is one of their
// references. Images placed directly in dir are references for the person named
// by the file stem. A missing directory, unreadable images and images without a
// face are logged and skipped: the result may be empty but is never nil.
// progress, if set, is called after each image with the number done and total.
func LoadGallery(d Describer, dir string, progress func(done, total int)) (*Gallery, error) {
	g := NewGallery()

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Printf("gallery: folder not found: %s", dir)
		return g, nil
	}

	entries, err := listGallery(dir)
	if err != nil {
		log.Printf("gallery: error listing %s: %v", dir, err)
		return g, nil
	}

	for i, e := range entries {
		descs, err := d.DescribeFile(e.path)
		switch {
		case err != nil:
			log.Printf("gallery: error reading %s: %v", e.path, err)
		case len(descs) == 0:
			log.Printf("gallery: no face found in: %s", e.path)
		default:
			for _, desc := range descs {
				g.Add(e.name, desc)
			}
		}
		if progress != nil {
			progress(i+1, len(entries))
		}
	}

	log.Printf("gallery: loaded %d encodings for %d people", g.Len(), len(g.People()))
	return g, nil
}

// listGallery returns subfolder images first, then top-level images, each in name order.
func listGallery(dir string) ([]galleryEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var entries []galleryEntry
	for _, de := range dirEntries {
		if !de.IsDir() {
			continue
		}
		personDir := filepath.Join(dir, de.Name())
		files, err := os.ReadDir(personDir)
		if err != nil {
			log.Printf("gallery: error listing %s: %v", personDir, err)
			continue
		}
		n := 0
		for _, f := range files {
			if f.IsDir() || !isGalleryImage(f.Name()) {
				continue
			}
			entries = append(entries, galleryEntry{name: de.Name(), path: filepath.Join(personDir, f.Name())})
			n++
		}
		if n == 0 {
			log.Printf("gallery: no images in subfolder: %s", personDir)
		}
	}

	for _, de := range dirEntries {
		if de.IsDir() || !isGalleryImage(de.Name()) {
			continue
		}
		stem := strings.TrimSuffix(de.Name(), filepath.Ext(de.Name()))
		entries = append(entries, galleryEntry{name: stem, path: filepath.Join(dir, de.Name())})
	}

	return entries, nil
}

func isGalleryImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range GalleryExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
