package poll

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral-engine/internal/config"
	"referral-engine/internal/events"
	"referral-engine/internal/extract"
	"referral-engine/internal/metrics"
	"referral-engine/internal/store"
)

const chatWithReferrals = "[01/02/24, 8:00 AM] Ann: I recommend Fast Fix 555-000-1111\n" +
	"[01/02/24, 8:01 AM] Ben: thanks!\n" +
	"[01/02/24, 8:02 AM] Cy: great roofer, Top Roof\n"

const chatWithout = "[01/02/24, 8:01 AM] Ben: thanks!\n"

type fakeLock struct {
	ok       bool
	err      error
	unlocked int
}

func (l *fakeLock) TryLock() (bool, error) { return l.ok, l.err }
func (l *fakeLock) Unlock() error          { l.unlocked++; return nil }

func newIngestor(t *testing.T) (*Ingestor, afero.Fs, *bytes.Buffer) {
	t.Helper()
	fs := afero.NewMemMapFs()
	files, err := store.NewFiles(fs, "data", 4, nil)
	require.NoError(t, err)
	out := &bytes.Buffer{}
	return &Ingestor{
		FS:      fs,
		Folders: config.Default().Folders,
		Files:   files,
		Metrics: metrics.New(),
		Hub:     events.NewHub(),
		Out:     out,
	}, fs, out
}

func exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	return ok
}

func TestPollOnce(t *testing.T) {
	in, fs, out := newIngestor(t)
	require.NoError(t, fs.MkdirAll("uploads/sub.txt", 0o755))
	require.NoError(t, afero.WriteFile(fs, "uploads/a.txt", []byte(chatWithReferrals), 0o644))
	require.NoError(t, afero.WriteFile(fs, "uploads/b.txt", []byte(chatWithout), 0o644))
	require.NoError(t, afero.WriteFile(fs, "uploads/c.txt", []byte("\xff"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "uploads/notes.md", []byte(chatWithReferrals), 0o644))

	sub := in.Hub.Subscribe()
	defer in.Hub.Unsubscribe(sub)

	sum, err := in.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Processed: 2, Extracted: 2, Failed: 1}, sum)

	assert.Equal(t, "Processing a.txt...\n"+
		"Extracted 2 referrals from a.txt.\n"+
		"Processing b.txt...\n"+
		"No referrals found in b.txt.\n"+
		"Processing c.txt...\n"+
		"Failed to process c.txt: decode c.txt: invalid UTF-8 at byte 0\n", out.String())

	// processed sources are gone whether or not they held referrals
	assert.False(t, exists(t, fs, "uploads/a.txt"))
	assert.False(t, exists(t, fs, "uploads/b.txt"))
	assert.True(t, exists(t, fs, "uploads/c.txt"))
	assert.True(t, exists(t, fs, "uploads/notes.md"))
	assert.True(t, exists(t, fs, "uploads/sub.txt"))

	assert.True(t, exists(t, fs, "data/a.json"))
	assert.True(t, exists(t, fs, "data/a.csv"))
	assert.False(t, exists(t, fs, "data/b.json"))
	assert.False(t, exists(t, fs, "data/b.csv"))

	recs, err := in.Files.Load("a.json")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Ann", recs[0].Sender)
	assert.Equal(t, "Cy", recs[1].Sender)

	assert.Equal(t, 1.0, testutil.ToFloat64(in.Metrics.FilesProcessed.WithLabelValues("batch", metrics.OutcomeExtracted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(in.Metrics.FilesProcessed.WithLabelValues("batch", metrics.OutcomeEmpty)))
	assert.Equal(t, 1.0, testutil.ToFloat64(in.Metrics.FilesProcessed.WithLabelValues("batch", metrics.OutcomeDecodeError)))
	assert.Len(t, sub, 3)
}

func TestPollOnce_CreatesFolders(t *testing.T) {
	in, fs, out := newIngestor(t)

	sum, err := in.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
	assert.Empty(t, out.String())
	assert.True(t, exists(t, fs, "uploads"))
	assert.True(t, exists(t, fs, "data"))
}

func TestPollOnce_Locked(t *testing.T) {
	in, fs, _ := newIngestor(t)
	require.NoError(t, afero.WriteFile(fs, "uploads/a.txt", []byte(chatWithReferrals), 0o644))
	in.Lock = &fakeLock{ok: false}

	_, err := in.PollOnce(context.Background())
	assert.ErrorIs(t, err, ErrLocked)
	assert.True(t, exists(t, fs, "uploads/a.txt"))
}

func TestPollOnce_LockError(t *testing.T) {
	in, _, _ := newIngestor(t)
	in.Lock = &fakeLock{err: errors.New("permission denied")}

	_, err := in.PollOnce(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}

func TestPollOnce_ReleasesLock(t *testing.T) {
	in, fs, _ := newIngestor(t)
	require.NoError(t, afero.WriteFile(fs, "uploads/a.txt", []byte(chatWithReferrals), 0o644))
	lock := &fakeLock{ok: true}
	in.Lock = lock

	_, err := in.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, lock.unlocked)
}

func TestPollOnce_ReadOnlyOutputIsFatal(t *testing.T) {
	in, fs, _ := newIngestor(t)
	require.NoError(t, fs.MkdirAll("data", 0o755))
	require.NoError(t, afero.WriteFile(fs, "uploads/a.txt", []byte(chatWithReferrals), 0o644))
	require.NoError(t, afero.WriteFile(fs, "uploads/b.txt", []byte(chatWithReferrals), 0o644))

	ro := afero.NewReadOnlyFs(fs)
	files, err := store.NewFiles(ro, "data", 0, nil)
	require.NoError(t, err)
	in.FS = ro
	in.Files = files

	_, err = in.PollOnce(context.Background())
	require.Error(t, err)
	assert.True(t, exists(t, fs, "uploads/a.txt"))
	assert.True(t, exists(t, fs, "uploads/b.txt"))
}

func TestIngestOne(t *testing.T) {
	in, fs, _ := newIngestor(t)

	recs, err := in.IngestOne(context.Background(), "req-1", "chat.txt", []byte(chatWithReferrals))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.True(t, exists(t, fs, "uploads/chat.txt"), "uploads are kept")
	assert.True(t, exists(t, fs, "data/chat.json"))
	assert.True(t, exists(t, fs, "data/chat.csv"))
	assert.Equal(t, 1.0, testutil.ToFloat64(in.Metrics.FilesProcessed.WithLabelValues("upload", metrics.OutcomeExtracted)))
}

func TestIngestOne_NoReferrals(t *testing.T) {
	in, fs, _ := newIngestor(t)

	recs, err := in.IngestOne(context.Background(), "", "quiet.txt", []byte(chatWithout))
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.True(t, exists(t, fs, "uploads/quiet.txt"))
	assert.False(t, exists(t, fs, "data/quiet.json"))
}

func TestIngestOne_DecodeError(t *testing.T) {
	in, fs, _ := newIngestor(t)

	recs, err := in.IngestOne(context.Background(), "", "bad.txt", []byte("ok\xfe"))
	assert.ErrorIs(t, err, extract.ErrDecode)
	assert.Nil(t, recs)
	assert.False(t, exists(t, fs, "data/bad.json"))
}
