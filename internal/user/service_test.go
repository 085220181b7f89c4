package user_test

import (
	"context"
	"strings"
	"testing"

	"electric-inventory/internal/audit"
	"electric-inventory/internal/branch"
	"electric-inventory/internal/crypto"
	"electric-inventory/internal/dbtest"
	"electric-inventory/internal/errs"
	"electric-inventory/internal/models"
	"electric-inventory/internal/user"
	"electric-inventory/internal/validation"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	svc      *user.Service
	branches *branch.Service
	audit    *audit.Writer
	main     *models.Branch
	downtown *models.Branch
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	aw := audit.NewWriter(db, zap.NewNop())
	branches := branch.NewService(db, aw, zap.NewNop())

	ctx := context.Background()
	main, err := branches.Create(ctx, branch.CreateInput{Name: "Main Branch"}, 0)
	require.NoError(t, err)
	downtown, err := branches.Create(ctx, branch.CreateInput{Name: "Downtown Branch"}, 0)
	require.NoError(t, err)

	return &fixture{
		svc:      user.NewService(db, branches, aw, zap.NewNop()),
		branches: branches,
		audit:    aw,
		main:     main,
		downtown: downtown,
	}
}

func strPtr(s string) *string { return &s }

func TestCreate_ResolvesBranchAndHashes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, user.CreateInput{
		Username: "ali", Password: "secret1", Role: "branch", BranchName: "Downtown Branch",
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, f.downtown.ID, u.BranchID)
	assert.Equal(t, models.RoleBranch, u.Role)
	assert.NotEqual(t, "secret1", u.PasswordHash)
	assert.True(t, crypto.VerifyPassword(u.PasswordHash, "secret1"))
}

func TestCreate_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, user.CreateInput{Username: "ali", Password: "secret1", Role: "BRANCH", BranchName: "Nowhere"}, 0)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.Create(ctx, user.CreateInput{Username: "ali", Password: "secret1", Role: "OWNER", BranchName: "Main Branch"}, 0)
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Create(ctx, user.CreateInput{Username: "ali", Role: "BRANCH", BranchName: "Main Branch"}, 0)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCreate_PasswordLimitIsInBytes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// 40 runes, 80 bytes
	long := strings.Repeat("é", 40)

	_, err := f.svc.Create(ctx, user.CreateInput{Username: "ali", Password: long, Role: "BRANCH", BranchName: "Main Branch"}, 0)
	require.ErrorIs(t, err, errs.ErrValidation)
	var verr *validation.RequestValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Fields()[0].Field)

	u, err := f.svc.Create(ctx, user.CreateInput{Username: "ali", Password: strings.Repeat("é", 36), Role: "BRANCH", BranchName: "Main Branch"}, 0)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, u.ID, user.UpdateInput{Password: strPtr(long)}, 0)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestCreateWithBranch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.svc.CreateWithBranch(ctx, user.CreateInput{
		Username: "root", Password: "secret1", Role: "ADMIN", BranchName: " Uptown Branch ",
	}, f.branches)
	require.NoError(t, err)

	b, err := f.branches.GetByName(ctx, "Uptown Branch")
	require.NoError(t, err)
	assert.Equal(t, b.ID, u.BranchID)

	logs, err := f.audit.List(ctx, audit.Query{EntityType: audit.EntityBranch, EntityID: b.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, u.ID, logs[0].UserID)

	// existing branch is reused, a failing user leaves nothing behind
	_, err = f.svc.CreateWithBranch(ctx, user.CreateInput{
		Username: "root", Password: "secret1", Role: "ADMIN", BranchName: "Uptown Branch",
	}, f.branches)
	assert.ErrorIs(t, err, errs.ErrConflict)

	_, err = f.svc.CreateWithBranch(ctx, user.CreateInput{
		Username: "root", Password: "123", Role: "ADMIN", BranchName: "Ghost Branch",
	}, f.branches)
	assert.ErrorIs(t, err, errs.ErrValidation)
	_, err = f.branches.GetByName(ctx, "Ghost Branch")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	branches, err := f.branches.List(ctx)
	require.NoError(t, err)
	assert.Len(t, branches, 3)
}

func TestCreate_UsernameUniquePerBranch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	in := user.CreateInput{Username: "ali", Password: "secret1", Role: "BRANCH", BranchName: "Main Branch"}
	first, err := f.svc.Create(ctx, in, 0)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, in, 0)
	assert.ErrorIs(t, err, errs.ErrConflict)

	// same name in another branch is fine
	in.BranchName = "Downtown Branch"
	_, err = f.svc.Create(ctx, in, 0)
	require.NoError(t, err)

	// and free again once the first one is removed
	_, err = f.svc.Remove(ctx, first.ID, 0)
	require.NoError(t, err)
	in.BranchName = "Main Branch"
	_, err = f.svc.Create(ctx, in, 0)
	require.NoError(t, err)
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, user.CreateInput{Username: "ali", Password: "secret1", Role: "BRANCH", BranchName: "Main Branch"}, 0)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, user.CreateInput{Username: "veli", Password: "secret1", Role: "BRANCH", BranchName: "Downtown Branch"}, 0)
	require.NoError(t, err)

	// empty password keeps the current hash
	updated, err := f.svc.Update(ctx, u.ID, user.UpdateInput{Password: strPtr(""), Role: strPtr("admin")}, 0)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, u.PasswordHash, updated.PasswordHash)

	updated, err = f.svc.Update(ctx, u.ID, user.UpdateInput{Password: strPtr("newpass1")}, 0)
	require.NoError(t, err)
	assert.True(t, crypto.VerifyPassword(updated.PasswordHash, "newpass1"))

	// moving next to an existing "veli" conflicts
	_, err = f.svc.Update(ctx, u.ID, user.UpdateInput{Username: strPtr("veli"), BranchName: strPtr("Downtown Branch")}, 0)
	assert.ErrorIs(t, err, errs.ErrConflict)

	moved, err := f.svc.Update(ctx, u.ID, user.UpdateInput{BranchName: strPtr("Downtown Branch")}, 0)
	require.NoError(t, err)
	assert.Equal(t, f.downtown.ID, moved.BranchID)
	require.NotNil(t, moved.Branch)
	assert.Equal(t, "Downtown Branch", moved.Branch.Name)

	_, err = f.svc.Update(ctx, u.ID, user.UpdateInput{BranchName: strPtr("Nowhere")}, 0)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.Update(ctx, 999, user.UpdateInput{Role: strPtr("ADMIN")}, 0)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRemove(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, user.CreateInput{Username: "ali", Password: "secret1", Role: "BRANCH", BranchName: "Main Branch"}, 0)
	require.NoError(t, err)

	_, err = f.svc.Remove(ctx, u.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.Remove(ctx, u.ID, 0)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.Get(ctx, u.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestFindActiveByUsername(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, user.CreateInput{Username: "ali", Password: "secret1", Role: "BRANCH", BranchName: "Main Branch"}, 0)
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, user.CreateInput{Username: "ali", Password: "secret2", Role: "BRANCH", BranchName: "Downtown Branch"}, 0)
	require.NoError(t, err)

	all, err := f.svc.FindActiveByUsername(ctx, "ali", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.ID, all[0].ID)
	assert.Equal(t, b.ID, all[1].ID)

	narrowed, err := f.svc.FindActiveByUsername(ctx, "ali", "Downtown Branch")
	require.NoError(t, err)
	require.Len(t, narrowed, 1)
	assert.Equal(t, b.ID, narrowed[0].ID)

	none, err := f.svc.FindActiveByUsername(ctx, "ali", "Nowhere")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCountByRole(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	n, err := f.svc.CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.Create(ctx, user.CreateInput{Username: "root", Password: "secret1", Role: "ADMIN", BranchName: "Main Branch"}, 0)
	require.NoError(t, err)

	n, err = f.svc.CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestToResponse_OmitsPasswordHash(t *testing.T) {
	u := &models.User{ID: 1, Username: "ali", PasswordHash: "$2a$10$hash", Role: models.RoleBranch, BranchID: 2,
		Branch: &models.Branch{ID: 2, Name: "Main Branch"}}

	b, err := json.Marshal(user.ToResponse(u))
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hash")
	assert.Contains(t, string(b), `"branch":"Main Branch"`)
}
