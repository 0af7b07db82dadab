package extractor

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"sheet2docs/internal/config"
	"sheet2docs/internal/models"

	"github.com/PuerkitoBio/goquery"
)

var srcsetItem = regexp.MustCompile(`(\S+)\s+(\d+)w`)

// ImageFilter decides which <img> elements become ImageRefs. Data URIs and
// files whose name hints at a logo or icon are dropped.
type ImageFilter struct {
	badHint *regexp.Regexp
}

func NewImageFilter() ImageFilter {
	return ImageFilter{badHint: config.Regexes()["badHint"]}
}

// Accept returns the ImageRef for a single img selection
func (f ImageFilter) Accept(s *goquery.Selection, base *url.URL) (models.ImageRef, bool) {
	src := imageSource(s)
	if src == "" || strings.HasPrefix(strings.ToLower(src), "data:") {
		return models.ImageRef{}, false
	}

	abs := toAbsoluteURL(src, base)
	if f.badHint != nil && f.badHint.MatchString(imageFilename(abs)) {
		return models.ImageRef{}, false
	}

	alt, _ := s.Attr("alt")
	return models.ImageRef{Src: abs, Alt: Normalize(alt)}, true
}

// Collect filters every img in sel, keeping document order and dropping
// repeated sources.
func (f ImageFilter) Collect(sel *goquery.Selection, base *url.URL) []models.ImageRef {
	images := []models.ImageRef{}
	seen := make(map[string]bool)

	sel.Each(func(i int, s *goquery.Selection) {
		ref, ok := f.Accept(s, base)
		if !ok || seen[ref.Src] {
			return
		}
		seen[ref.Src] = true
		images = append(images, ref)
	})

	return images
}

// imageSource reads src or one of the lazy-loading variants, then srcset
func imageSource(s *goquery.Selection) string {
	for _, name := range []string{"src", "data-src", "data-original", "data-lazy-src"} {
		if v, exists := s.Attr(name); exists && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}

	if srcset, exists := s.Attr("srcset"); exists {
		return pickFromSrcset(srcset)
	}
	return ""
}

// pickFromSrcset selects the candidate closest to 1000px wide, preferring larger images
func pickFromSrcset(srcset string) string {
	type candidate struct {
		url string
		w   int
	}

	var candidates []candidate
	for _, item := range strings.Split(srcset, ",") {
		matches := srcsetItem.FindStringSubmatch(strings.TrimSpace(item))
		if len(matches) > 2 {
			if w, err := strconv.Atoi(matches[2]); err == nil {
				candidates = append(candidates, candidate{matches[1], w})
			}
		}
	}

	if len(candidates) == 0 {
		return ""
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		cDiff := absInt(c.w - 1000)
		bestDiff := absInt(best.w - 1000)
		if cDiff < bestDiff || (cDiff == bestDiff && c.w > best.w) {
			best = c
		}
	}
	return best.url
}

// toAbsoluteURL resolves src against base; unresolvable values pass through
func toAbsoluteURL(src string, base *url.URL) string {
	if base == nil {
		return src
	}
	rel, err := url.Parse(src)
	if err != nil {
		return src
	}
	return base.ResolveReference(rel).String()
}

// imageFilename is the last path segment of an image URL
func imageFilename(src string) string {
	if u, err := url.Parse(src); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(src)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
