package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func newStager(t *testing.T) *Stager {
	t.Helper()
	s, err := NewStager(filepath.Join(t.TempDir(), "public", "temp"))
	require.NoError(t, err)
	return s
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestNewStager_CreatesDir(t *testing.T) {
	t.Parallel()

	s := newStager(t)
	info, err := os.Stat(s.Dir())
	require.NoError(t, err)
	require.True(t, info.IsDir())
	require.True(t, filepath.IsAbs(s.Dir()))
}

func TestStage_WritesFileWithUniqueName(t *testing.T) {
	t.Parallel()

	s := newStager(t)
	s.now = func() time.Time { return time.UnixMilli(1700000000123) }

	f, err := s.Stage(models.RoleAvatar, "../../etc/me.png", "image/png", strings.NewReader("png"))
	require.NoError(t, err)

	require.Equal(t, models.RoleAvatar, f.Role)
	require.Equal(t, "image/png", f.ContentType)
	require.EqualValues(t, 3, f.Size)
	require.Equal(t, s.Dir(), filepath.Dir(f.Path), "имя сводится к базовому")
	require.True(t, strings.HasPrefix(filepath.Base(f.Path), "me.png-1700000000123-"))

	data, err := os.ReadFile(f.Path)
	require.NoError(t, err)
	require.Equal(t, "png", string(data))
}

func TestStage_LongNameIsTruncated(t *testing.T) {
	t.Parallel()

	s := newStager(t)
	name := strings.Repeat("a", 300) + ".png"

	f, err := s.Stage(models.RoleAvatar, name, "image/png", strings.NewReader("png"))
	require.NoError(t, err)
	require.Equal(t, name, f.OriginalName)
	require.True(t, strings.HasPrefix(filepath.Base(f.Path), strings.Repeat("a", maxBaseNameBytes)+"-"))

	_, err = os.Stat(f.Path)
	require.NoError(t, err)
}

func TestTruncateName_RuneBoundary(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short.png", truncateName("short.png", 16))
	// "ж" занимает два байта: обрезка посередине символа откатывается назад.
	require.Equal(t, "жж", truncateName("жжж", 5))
	require.Equal(t, "abc", truncateName("abcdef", 3))
}

func TestStage_Errors_LeaveNothingBehind(t *testing.T) {
	t.Parallel()

	s := newStager(t)

	_, err := s.Stage(models.MediaRole("banner"), "x.png", "", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrInvalidRole)

	_, err = s.Stage(models.RoleAvatar, "x.png", "", strings.NewReader(""))
	require.ErrorIs(t, err, ErrEmptyFile)

	_, err = s.Stage(models.RoleAvatar, "x.png", "", iotest.ErrReader(errors.New("conn reset")))
	require.ErrorContains(t, err, "conn reset")

	require.Empty(t, dirEntries(t, s.Dir()))
}

func TestDiscard_IgnoresMissing(t *testing.T) {
	t.Parallel()

	s := newStager(t)
	f, err := s.Stage(models.RoleCoverImage, "c.jpg", "", strings.NewReader("c"))
	require.NoError(t, err)

	s.Discard(context.Background(), f, nil, &models.StagedFile{Path: filepath.Join(s.Dir(), "missing")})
	s.Discard(context.Background(), f)

	require.Empty(t, dirEntries(t, s.Dir()))
}

func TestSweep_RemovesOnlyOldFiles(t *testing.T) {
	t.Parallel()

	s := newStager(t)

	old, err := s.Stage(models.RoleAvatar, "old.png", "", strings.NewReader("o"))
	require.NoError(t, err)
	fresh, err := s.Stage(models.RoleAvatar, "fresh.png", "", strings.NewReader("f"))
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old.Path, past, past))

	n, err := s.Sweep(context.Background(), time.Hour)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = os.Stat(old.Path)
	require.ErrorIs(t, err, os.ErrNotExist)
	_, err = os.Stat(fresh.Path)
	require.NoError(t, err)
}

func TestPublish_Success_RemovesLocalFile(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockObjectStorage(ctrl)
	s := newStager(t)
	p := NewPublisher(store, time.Second, nil)

	f, err := s.Stage(models.RoleAvatar, "Me.PNG", "image/png", strings.NewReader("png"))
	require.NoError(t, err)

	store.EXPECT().
		PutObject(gomock.Any(), gomock.Any(), f.Path, "image/png").
		DoAndReturn(func(_ context.Context, key, localPath, _ string) (string, error) {
			require.True(t, strings.HasPrefix(key, "avatar/"))
			require.True(t, strings.HasSuffix(key, ".png"))
			_, statErr := os.Stat(localPath)
			require.NoError(t, statErr, "файл существует во время загрузки")
			return "http://cdn/" + key, nil
		})

	url, err := p.Publish(context.Background(), f)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://cdn/avatar/"))

	_, err = os.Stat(f.Path)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestPublish_Failure_RemovesLocalFile(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockObjectStorage(ctrl)
	s := newStager(t)
	p := NewPublisher(store, time.Second, nil)

	f, err := s.Stage(models.RoleCoverImage, "c.jpg", "image/jpeg", strings.NewReader("jpg"))
	require.NoError(t, err)

	store.EXPECT().PutObject(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("503 slow down"))

	url, err := p.Publish(context.Background(), f)
	require.ErrorIs(t, err, ErrPublishFailed)
	require.Empty(t, url)

	require.Empty(t, dirEntries(t, s.Dir()))
}

func TestPublish_Timeout_RemovesLocalFile(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockObjectStorage(ctrl)
	s := newStager(t)
	p := NewPublisher(store, 20*time.Millisecond, nil)

	f, err := s.Stage(models.RoleAvatar, "a.png", "", strings.NewReader("a"))
	require.NoError(t, err)

	store.EXPECT().PutObject(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	_, err = p.Publish(context.Background(), f)
	require.ErrorIs(t, err, ErrPublishFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Empty(t, dirEntries(t, s.Dir()))
}

func TestPublish_NilFile(t *testing.T) {
	t.Parallel()

	p := NewPublisher(nil, 0, nil)
	require.Equal(t, DefaultPublishTimeout, p.timeout)

	_, err := p.Publish(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoFile)
}

func TestObjectKey(t *testing.T) {
	t.Parallel()

	a := objectKey(&models.StagedFile{Role: models.RoleAvatar, OriginalName: "dir/Pic.JPG"})
	b := objectKey(&models.StagedFile{Role: models.RoleAvatar, OriginalName: "dir/Pic.JPG"})

	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "avatar/"))
	require.True(t, strings.HasSuffix(a, ".jpg"))

	noExt := objectKey(&models.StagedFile{Role: models.RoleCoverImage, OriginalName: "blob"})
	require.True(t, strings.HasPrefix(noExt, "coverImage/"))
	require.NotContains(t, strings.TrimPrefix(noExt, "coverImage/"), ".")
}

func TestRemove_DerivesKeyFromURL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	store := mocks.NewMockObjectStorage(ctrl)
	p := NewPublisher(store, time.Second, nil)

	gomock.InOrder(
		store.EXPECT().RemoveObject(gomock.Any(), "avatar/0b9c.png").Return(nil),
		store.EXPECT().RemoveObject(gomock.Any(), "coverImage/1a2b.jpg").Return(errors.New("denied")),
	)

	require.NoError(t, p.Remove(context.Background(), "http://127.0.0.1:9000/media/avatar/0b9c.png"))
	require.ErrorContains(t, p.Remove(context.Background(), "https://cdn.example.com/coverImage/1a2b.jpg"), "denied")
}

func TestRemove_ForeignURL(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	p := NewPublisher(mocks.NewMockObjectStorage(ctrl), time.Second, nil)

	for _, raw := range []string{"", "https://cdn.example.com/banner/x.png", "https://cdn.example.com/avatar/", "%zz"} {
		require.ErrorIs(t, p.Remove(context.Background(), raw), ErrForeignURL, raw)
	}
}
