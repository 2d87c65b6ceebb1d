package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/OnkarJ/youtube-backend/internal/models"
	"github.com/OnkarJ/youtube-backend/internal/security/password"
	"github.com/OnkarJ/youtube-backend/internal/storage"
	"github.com/OnkarJ/youtube-backend/mocks"
)

func TestRegister_OK(t *testing.T) {
	t.Parallel()

	svc, pub := newMemSvc(t)

	in := registerInput("  Alice ", " Alice@Example.com")
	in.Attachments[models.RoleCoverImage] = staged(models.RoleCoverImage, "c.png")

	acc, err := svc.Register(context.Background(), in)
	require.NoError(t, err)

	require.NotEmpty(t, acc.ID)
	require.Equal(t, "alice", acc.Username)
	require.Equal(t, "alice@example.com", acc.Email)
	require.Equal(t, "Test User", acc.FullName)
	require.Equal(t, "https://cdn.test/avatar/a.png", acc.Avatar)
	require.Equal(t, "https://cdn.test/coverImage/c.png", acc.CoverImage)
	require.Empty(t, acc.PasswordHash)
	require.Empty(t, acc.RefreshToken)
	require.False(t, acc.CreatedAt.IsZero())

	require.ElementsMatch(t, []models.MediaRole{models.RoleAvatar, models.RoleCoverImage}, pub.called())
}

func TestRegister_WithoutCover_LeavesEmptyReference(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)

	acc := mustRegister(t, svc, "bob", "bob@example.com")
	require.Empty(t, acc.CoverImage)
}

func TestRegister_BlankFields(t *testing.T) {
	t.Parallel()

	svc, pub := newMemSvc(t)

	for _, mutate := range []func(*RegisterInput){
		func(in *RegisterInput) { in.Username = " " },
		func(in *RegisterInput) { in.Email = "" },
		func(in *RegisterInput) { in.FullName = "\t" },
		func(in *RegisterInput) { in.Password = "" },
	} {
		in := registerInput("carol", "carol@example.com")
		mutate(&in)

		_, err := svc.Register(context.Background(), in)
		requireMessage(t, err, ErrValidation, "all fields are required")
	}

	require.Empty(t, pub.called())
}

func TestRegister_InvalidEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)

	_, err := svc.Register(context.Background(), registerInput("dave", "not-an-email"))
	require.ErrorIs(t, err, ErrValidation)
}

func TestRegister_MissingAvatar(t *testing.T) {
	t.Parallel()

	svc, pub := newMemSvc(t)

	in := registerInput("erin", "erin@example.com")
	in.Attachments = models.Attachments{models.RoleCoverImage: staged(models.RoleCoverImage, "c.png")}

	_, err := svc.Register(context.Background(), in)
	requireMessage(t, err, ErrValidation, "avatar file is required")
	require.Empty(t, pub.called())
}

func TestRegister_Conflict(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	mustRegister(t, svc, "frank", "frank@example.com")

	tests := []struct {
		name     string
		username string
		email    string
	}{
		{"same username other email", "frank", "other@example.com"},
		{"same username other case", "FRANK", "other2@example.com"},
		{"same email other username", "frank2", "FRANK@example.com"},
	}

	for _, tt := range tests {
		_, err := svc.Register(context.Background(), registerInput(tt.username, tt.email))
		requireMessage(t, err, ErrConflict, "user with email or username already exists")
	}
}

func TestRegister_ConcurrentSameUsername_OneWins(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := svc.Register(context.Background(), registerInput("grace", "grace"+string(rune('a'+i))+"@example.com"))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, ok)
	require.Equal(t, n-1, conflicts)
}

func TestRegister_AvatarPublishFails_NoAccountCreated(t *testing.T) {
	t.Parallel()

	svc, pub := newMemSvc(t)
	pub.fail = map[models.MediaRole]error{models.RoleAvatar: errors.New("bucket down")}

	_, err := svc.Register(context.Background(), registerInput("heidi", "heidi@example.com"))
	requireMessage(t, err, ErrUploadFailed, "avatar file upload failed")

	_, err = svc.Login(context.Background(), LoginInput{Username: "heidi", Password: "s3cret-pass"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRegister_CoverPublishFails_Degrades(t *testing.T) {
	t.Parallel()

	svc, pub := newMemSvc(t)
	pub.fail = map[models.MediaRole]error{models.RoleCoverImage: errors.New("bucket down")}

	in := registerInput("ivan", "ivan@example.com")
	in.Attachments[models.RoleCoverImage] = staged(models.RoleCoverImage, "c.png")

	acc, err := svc.Register(context.Background(), in)
	require.NoError(t, err)
	require.NotEmpty(t, acc.Avatar)
	require.Empty(t, acc.CoverImage)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	t.Parallel()

	svc, pub := newMemSvc(t)

	in := registerInput("judy", "judy@example.com")
	in.Password = strings.Repeat("x", 73)

	_, err := svc.Register(context.Background(), in)
	requireMessage(t, err, ErrValidation, "password is too long")
	require.Equal(t, []string{"https://cdn.test/avatar/a.png"}, pub.removedURLs())
}

func TestRegister_LookupError_Internal(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().AccountByHandleOrEmail(gomock.Any(), "kate", "kate@example.com").
		Return(nil, errors.New("db down"))

	_, err := svc.Register(context.Background(), registerInput("kate", "kate@example.com"))
	require.ErrorIs(t, err, ErrInternal)
}

func TestRegister_InsertRace_Conflict(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().AccountByHandleOrEmail(gomock.Any(), "leo", "leo@example.com").
		Return(nil, storage.ErrNotFound)
	st.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrAlreadyExists)

	_, err := svc.Register(context.Background(), registerInput("leo", "leo@example.com"))
	require.ErrorIs(t, err, ErrConflict)
}

func TestRegister_InsertFails_RemovesPublishedMedia(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	st := mocks.NewMockAccountStorage(ctrl)
	pub := &fakePublisher{}
	svc := New(st, password.New(bcrypt.MinCost), newTestTokens(t), pub)

	st.EXPECT().AccountByHandleOrEmail(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrNotFound).Times(2)
	gomock.InOrder(
		st.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(nil, storage.ErrAlreadyExists),
		st.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset")),
	)

	in := registerInput("mia", "mia@example.com")
	in.Attachments[models.RoleCoverImage] = staged(models.RoleCoverImage, "c.png")

	_, err := svc.Register(context.Background(), in)
	require.ErrorIs(t, err, ErrConflict)
	require.ElementsMatch(t, []string{
		"https://cdn.test/avatar/a.png",
		"https://cdn.test/coverImage/c.png",
	}, pub.removedURLs())

	_, err = svc.Register(context.Background(), registerInput("mia", "mia@example.com"))
	require.ErrorIs(t, err, ErrInternal)
	require.Len(t, pub.removedURLs(), 3)
}

func TestRegister_OK_KeepsPublishedMedia(t *testing.T) {
	t.Parallel()

	svc, pub := newMemSvc(t)
	mustRegister(t, svc, "nina", "nina@example.com")
	require.Empty(t, pub.removedURLs())
}

func TestRegister_ReadBackMissing_Internal(t *testing.T) {
	t.Parallel()

	svc, st, ctrl := newSvc(t)
	defer ctrl.Finish()

	st.EXPECT().AccountByHandleOrEmail(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrNotFound)
	st.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, acc *models.Account) (*models.Account, error) {
			require.NotEmpty(t, acc.PasswordHash)
			require.NotEqual(t, "s3cret-pass", acc.PasswordHash)
			out := *acc
			out.ID = "id-1"
			return &out, nil
		})
	st.EXPECT().AccountByID(gomock.Any(), "id-1").Return(nil, storage.ErrNotFound)

	_, err := svc.Register(context.Background(), registerInput("mia", "mia@example.com"))
	require.ErrorIs(t, err, ErrInternal)
}

func TestCurrentAccount_And_AccountByID(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	acc := mustRegister(t, svc, "nina", "nina@example.com")

	cur, err := svc.CurrentAccount(context.Background(), acc.ID)
	require.NoError(t, err)
	require.Equal(t, acc.ID, cur.ID)
	require.Empty(t, cur.PasswordHash)

	byID, err := svc.AccountByID(context.Background(), acc.ID)
	require.NoError(t, err)
	require.Equal(t, "nina", byID.Username)

	_, err = svc.AccountByID(context.Background(), "missing")
	requireMessage(t, err, ErrNotFound, "user does not exist")

	_, err = svc.AccountByID(context.Background(), " ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateAccountDetails(t *testing.T) {
	t.Parallel()

	svc, _ := newMemSvc(t)
	acc := mustRegister(t, svc, "oscar", "oscar@example.com")
	mustRegister(t, svc, "peggy", "peggy@example.com")

	upd, err := svc.UpdateAccountDetails(context.Background(), acc.ID, " Oscar W ", "OSCAR.W@example.com")
	require.NoError(t, err)
	require.Equal(t, "Oscar W", upd.FullName)
	require.Equal(t, "oscar.w@example.com", upd.Email)

	_, err = svc.UpdateAccountDetails(context.Background(), acc.ID, "Oscar", "peggy@example.com")
	require.ErrorIs(t, err, ErrConflict)

	_, err = svc.UpdateAccountDetails(context.Background(), acc.ID, "", "x@example.com")
	requireMessage(t, err, ErrValidation, "all fields are required")

	_, err = svc.UpdateAccountDetails(context.Background(), acc.ID, "Oscar", "nope")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.UpdateAccountDetails(context.Background(), "missing", "Oscar", "o@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAvatar(t *testing.T) {
	t.Parallel()

	svc, pub := newMemSvc(t)
	acc := mustRegister(t, svc, "quinn", "quinn@example.com")

	upd, err := svc.UpdateAvatar(context.Background(), acc.ID, staged(models.RoleAvatar, "new.png"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/avatar/new.png", upd.Avatar)

	_, err = svc.UpdateAvatar(context.Background(), acc.ID, nil)
	requireMessage(t, err, ErrValidation, "avatar file is missing")

	pub.fail = map[models.MediaRole]error{models.RoleAvatar: errors.New("timeout")}
	_, err = svc.UpdateAvatar(context.Background(), acc.ID, staged(models.RoleAvatar, "x.png"))
	require.ErrorIs(t, err, ErrUploadFailed)

	cur, err := svc.CurrentAccount(context.Background(), acc.ID)
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/avatar/new.png", cur.Avatar)
}

func TestUpdateCoverImage(t *testing.T) {
	t.Parallel()

	svc, pub := newMemSvc(t)
	acc := mustRegister(t, svc, "rita", "rita@example.com")

	upd, err := svc.UpdateCoverImage(context.Background(), acc.ID, staged(models.RoleCoverImage, "cover.png"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.test/coverImage/cover.png", upd.CoverImage)

	_, err = svc.UpdateCoverImage(context.Background(), acc.ID, nil)
	require.ErrorIs(t, err, ErrValidation)

	pub.fail = map[models.MediaRole]error{models.RoleCoverImage: errors.New("denied")}
	_, err = svc.UpdateCoverImage(context.Background(), acc.ID, staged(models.RoleCoverImage, "x.png"))
	requireMessage(t, err, ErrUploadFailed, "error while uploading cover image")
}
