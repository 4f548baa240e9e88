package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"referral-engine/internal/domain"
	"referral-engine/internal/logging"
)

const (
	jsonExt = ".json"
	csvExt  = ".csv"
)

// Files keeps referral output files in one folder: a JSON and a CSV per
// source transcript. Writers overwrite wholesale.
type Files struct {
	fs  afero.Fs
	dir string
	log *zap.Logger

	// decoded JSON outputs, keyed by path; nil when caching is off
	cache *lru.Cache[string, cachedFile]
}

type cachedFile struct {
	modTime time.Time
	size    int64
	recs    []domain.Referral
}

// Paths names the files written by Save.
type Paths struct {
	JSON string `json:"json"`
	CSV  string `json:"csv"`
}

func NewFiles(fs afero.Fs, dir string, cacheSize int, log *zap.Logger) (*Files, error) {
	f := &Files{fs: fs, dir: dir, log: logging.OrNop(log)}
	if cacheSize > 0 {
		c, err := lru.New[string, cachedFile](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("search cache: %w", err)
		}
		f.cache = c
	}
	return f, nil
}

func (f *Files) Dir() string { return f.dir }

func (f *Files) EnsureDir() error {
	if err := f.fs.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create output folder %s: %w", f.dir, err)
	}
	return nil
}

// OutputBase maps a transcript filename to the base name of its outputs:
// "chat.txt" -> "chat".
func OutputBase(name string) string {
	name = filepath.Base(name)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Save writes recs as <base>.json and <base>.csv.
func (f *Files) Save(base string, recs []domain.Referral) (Paths, error) {
	p := Paths{
		JSON: filepath.Join(f.dir, base+jsonExt),
		CSV:  filepath.Join(f.dir, base+csvExt),
	}
	if err := f.EnsureDir(); err != nil {
		return Paths{}, err
	}

	var jb, cb bytes.Buffer
	if err := EncodeJSON(&jb, recs); err != nil {
		return Paths{}, fmt.Errorf("encode %s: %w", p.JSON, err)
	}
	if err := EncodeCSV(&cb, recs); err != nil {
		return Paths{}, fmt.Errorf("encode %s: %w", p.CSV, err)
	}

	if f.cache != nil {
		f.cache.Remove(p.JSON)
	}
	if err := afero.WriteFile(f.fs, p.JSON, jb.Bytes(), 0o644); err != nil {
		return Paths{}, fmt.Errorf("write %s: %w", p.JSON, err)
	}
	if err := afero.WriteFile(f.fs, p.CSV, cb.Bytes(), 0o644); err != nil {
		return Paths{}, fmt.Errorf("write %s: %w", p.CSV, err)
	}

	f.log.Debug("saved referrals", zap.String("json", p.JSON), zap.String("csv", p.CSV), zap.Int("count", len(recs)))
	return p, nil
}

// Load reads one JSON output file by name or path.
func (f *Files) Load(name string) ([]domain.Referral, error) {
	path := name
	if filepath.Dir(name) == "." {
		path = filepath.Join(f.dir, name)
	}
	fh, err := f.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	recs, err := DecodeJSON(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// Search returns every record whose message contains query, ignoring case.
// Files are visited in name order and records keep their file order. A
// missing output folder yields no results.
func (f *Files) Search(ctx context.Context, query string) ([]domain.Referral, error) {
	results := []domain.Referral{}

	entries, err := afero.ReadDir(f.fs, f.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return results, nil
		}
		return nil, fmt.Errorf("list %s: %w", f.dir, err)
	}

	needle := strings.ToLower(query)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), jsonExt) {
			continue
		}
		recs, err := f.loadCached(filepath.Join(f.dir, e.Name()), e)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if strings.Contains(strings.ToLower(r.Message), needle) {
				results = append(results, r)
			}
		}
	}
	return results, nil
}

func (f *Files) loadCached(path string, info os.FileInfo) ([]domain.Referral, error) {
	if f.cache != nil {
		if c, ok := f.cache.Get(path); ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
			return c.recs, nil
		}
	}
	recs, err := f.Load(path)
	if err != nil {
		return nil, err
	}
	if f.cache != nil {
		f.cache.Add(path, cachedFile{modTime: info.ModTime(), size: info.Size(), recs: recs})
	}
	return recs, nil
}
