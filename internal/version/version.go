// Package version хранит сведения о сборке: -ldflags имеют приоритет,
// пробелы добираются из VCS-меток, которые go build вшивает в бинарник.
package version

import (
	"fmt"
	"runtime/debug"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Задаются через -ldflags "-X .../internal/version.version=...".
var (
	version = "dev"
	commit  = ""
	date    = ""
)

const unknown = "unknown"

// Build описывает собранный бинарник.
type Build struct {
	Version  string
	Commit   string
	Date     string
	Modified bool
}

var (
	once    sync.Once
	current Build
)

// Current возвращает сведения о текущей сборке.
func Current() Build {
	once.Do(func() {
		info, _ := debug.ReadBuildInfo()
		current = resolve(version, commit, date, info)
	})
	return current
}

func resolve(v, c, d string, info *debug.BuildInfo) Build {
	b := Build{Version: v, Commit: c, Date: d}
	if info != nil {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.Date == "" {
					b.Date = s.Value
				}
			case "vcs.modified":
				b.Modified = s.Value == "true"
			}
		}
		if b.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			b.Version = info.Main.Version
		}
	}

	if b.Version == "" {
		b.Version = "dev"
	}
	if b.Commit == "" {
		b.Commit = unknown
	}
	if b.Date == "" {
		b.Date = unknown
	}
	return b
}

// ShortCommit обрезает хеш до 12 символов.
func (b Build) ShortCommit() string {
	if len(b.Commit) > 12 {
		return b.Commit[:12]
	}
	return b.Commit
}

func (b Build) String() string {
	s := fmt.Sprintf("%s (%s, %s)", b.Version, b.ShortCommit(), b.Date)
	if b.Modified {
		s += " dirty"
	}
	return s
}

// Fields для стартовой записи в лог.
func (b Build) Fields() log.Fields {
	return log.Fields{
		"version":    b.Version,
		"commit":     b.ShortCommit(),
		"build_date": b.Date,
	}
}
