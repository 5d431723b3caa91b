package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"issuetracker/internal/access"
	"issuetracker/internal/auth"
	"issuetracker/internal/lock"
	"issuetracker/internal/ordering"
	"issuetracker/internal/testutil"
)

type fixture struct {
	store    *testutil.Store
	recorder *testutil.Recorder
	locker   *lock.MemoryLocker

	auth     *AuthService
	users    *UserService
	projects *ProjectService
	issues   *IssueService
	comments *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore()
	rec := &testutil.Recorder{}
	logger := testutil.DiscardLogger()
	locker := lock.NewMemoryLocker()
	guard := access.NewResolver(store.Projects(), store.Issues(), store.Comments())
	engine := ordering.NewEngine(store.Issues(), locker, time.Second, 100*time.Millisecond)

	return &fixture{
		store:    store,
		recorder: rec,
		locker:   locker,
		auth: NewAuthService(store.Users(), auth.NewTokenIssuer("test-secret", time.Hour), rec, logger, AuthOptions{
			BcryptCost:    bcrypt.MinCost,
			ResetTokenTTL: 10 * time.Minute,
		}),
		users:    NewUserService(store.Users()),
		projects: NewProjectService(store.Projects(), store.Issues(), store.Users(), guard, rec, logger),
		issues:   NewIssueService(store.Issues(), store.Projects(), guard, engine, rec, logger),
		comments: NewCommentService(store.Comments(), guard, rec, logger),
	}
}

func assertKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, kind, KindOf(err), "unexpected error: %v", err)
}
