package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

var (
	logLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	logFormats = map[string]bool{"json": true, "console": true}
)

// NormalizeAndValidate returns a normalized copy of cfg with its findings.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	out.App.Host = strings.TrimSpace(out.App.Host)
	out.Folders.InputDir = cleanDir(out.Folders.InputDir)
	out.Folders.OutputDir = cleanDir(out.Folders.OutputDir)
	out.Folders.Extension = strings.TrimSpace(out.Folders.Extension)
	if out.Folders.Extension != "" && !strings.HasPrefix(out.Folders.Extension, ".") {
		out.Folders.Extension = "." + out.Folders.Extension
	}
	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))
	out.Log.Format = strings.ToLower(strings.TrimSpace(out.Log.Format))

	// ---- Validation rules ----

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	if out.Folders.InputDir == "" {
		res.addErr("folders.input_dir is required")
	}
	if out.Folders.OutputDir == "" {
		res.addErr("folders.output_dir is required")
	}
	if out.Folders.InputDir != "" && out.Folders.InputDir == out.Folders.OutputDir {
		res.addErr("folders.input_dir and folders.output_dir must differ (batch ingest deletes its inputs)")
	}
	if out.Folders.Extension == "" {
		res.addErr("folders.extension is required")
	} else if out.Folders.Extension == ".json" || out.Folders.Extension == ".csv" {
		res.addWarn("folders.extension %q matches an output format", out.Folders.Extension)
	}

	if out.Polling.IntervalSeconds < 0 {
		res.addErr("polling.interval_seconds must be >= 0")
	} else if out.Polling.IntervalSeconds > 0 && out.Polling.IntervalSeconds < 5 {
		res.addWarn("polling.interval_seconds is very low (%d)", out.Polling.IntervalSeconds)
	}
	if out.Polling.IntervalSeconds > 0 || out.Polling.Watch {
		res.addWarn("background polling deletes uploaded transcripts from %s once processed", out.Folders.InputDir)
	}

	if out.Upload.MaxBytes <= 0 {
		res.addErr("upload.max_bytes must be > 0")
	}
	if out.Upload.RatePerSec < 0 {
		res.addErr("upload.rate_per_sec must be >= 0")
	}
	if out.Upload.RatePerSec > 0 && out.Upload.Burst < 1 {
		res.addErr("upload.burst must be >= 1 when upload.rate_per_sec is set")
	}

	if out.Search.CacheSize < 0 {
		res.addErr("search.cache_size must be >= 0")
	} else if out.Search.CacheSize == 0 {
		res.addWarn("search.cache_size is 0; every search re-reads all output files")
	}

	if !logLevels[out.Log.Level] {
		res.addErr("log.level must be one of debug, info, warn, error")
	}
	if !logFormats[out.Log.Format] {
		res.addErr("log.format must be json or console")
	}

	return out, res
}

func cleanDir(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	return filepath.Clean(p)
}
