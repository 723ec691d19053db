package ingestion

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/coachpo/swiperflix-gateway/pkg/catalog"
	"gopkg.in/yaml.v3"
)

type SeedVideo struct {
	Path        string `yaml:"path" json:"path"`
	Title       string `yaml:"title" json:"title"`
	URL         string `yaml:"url" json:"url"`
	Cover       string `yaml:"cover,omitempty" json:"cover,omitempty"`
	Duration    int    `yaml:"duration,omitempty" json:"duration,omitempty"`
	Orientation string `yaml:"orientation,omitempty" json:"orientation,omitempty"`
}

// Seed is the fallback catalogue stored when the listing cannot be reached
// on a first start.
type Seed struct {
	Videos []SeedVideo `yaml:"videos" json:"videos"`
}

func LoadSeed(path string) (Seed, error) {
	if path == "" {
		return DefaultSeed(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultSeed(), err
	}

	var seed Seed
	if err := yaml.Unmarshal(content, &seed); err != nil {
		return Seed{}, err
	}
	if len(seed.Videos) == 0 {
		return Seed{}, errors.New("seed file lists no videos")
	}
	for _, v := range seed.Videos {
		if strings.TrimSpace(v.Path) == "" || strings.TrimSpace(v.URL) == "" {
			return Seed{}, errors.New("seed videos need a path and a url")
		}
		switch v.Orientation {
		case "", catalog.OrientationPortrait, catalog.OrientationLandscape:
		default:
			return Seed{}, errors.New("seed orientation must be portrait or landscape")
		}
	}
	return seed, nil
}

func DefaultSeed() Seed {
	return Seed{Videos: []SeedVideo{
		{
			Path:        "/samples/big-buck-bunny.mp4",
			Title:       "Big Buck Bunny",
			URL:         "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
			Duration:    596,
			Orientation: catalog.OrientationLandscape,
		},
		{
			Path:        "/samples/elephants-dream.mp4",
			Title:       "Elephants Dream",
			URL:         "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ElephantsDream.mp4",
			Duration:    653,
			Orientation: catalog.OrientationLandscape,
		},
		{
			Path:        "/samples/for-bigger-blazes.mp4",
			Title:       "For Bigger Blazes",
			URL:         "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/ForBiggerBlazes.mp4",
			Duration:    15,
			Orientation: catalog.OrientationLandscape,
		},
		{
			Path:        "/samples/sintel.mp4",
			Title:       "Sintel",
			URL:         "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/Sintel.mp4",
			Duration:    888,
			Orientation: catalog.OrientationLandscape,
		},
	}}
}

func (s SeedVideo) toVideo() catalog.Video {
	v := catalog.Video{
		SourcePath: catalog.NormalizePath(s.Path),
		Title:      s.Title,
		URL:        s.URL,
	}
	if v.Title == "" {
		v.Title = filepath.Base(v.SourcePath)
	}
	if s.Cover != "" {
		cover := s.Cover
		v.Cover = &cover
	}
	if s.Duration > 0 {
		d := s.Duration
		v.Duration = &d
	}
	if s.Orientation != "" {
		o := s.Orientation
		v.Orientation = &o
	}
	return v
}
