package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/omnidesk/internal/common"
	"github.com/dmitrijs2005/omnidesk/internal/remote"
	"github.com/dmitrijs2005/omnidesk/internal/server/store"
	"github.com/dmitrijs2005/omnidesk/internal/server/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	store.Store
	err error
}

func (f failingStore) Select(context.Context, string, string, remote.Query) ([]remote.Row, error) {
	return nil, f.err
}

type errAuth struct{}

func (errAuth) CurrentUser(context.Context) (remote.Identity, bool, error) {
	return remote.Identity{}, false, errors.New("keychain locked")
}

// staticAuth reports a fixed identity; it replaces the removed auth.Static.
type staticAuth struct {
	ID remote.Identity
	OK bool
}

func (s staticAuth) CurrentUser(context.Context) (remote.Identity, bool, error) {
	return s.ID, s.OK, nil
}

func signedIn(id string) remote.Authenticator {
	return staticAuth{ID: remote.Identity{ID: id}, OK: true}
}

func TestLocal_ScopesToCurrentUser(t *testing.T) {
	s, err := memory.New()
	require.NoError(t, err)
	ctx := context.Background()

	a := store.Local(s, signedIn("t1"))
	b := store.Local(s, signedIn("t2"))

	row, err := a.Insert(ctx, common.TableContacts, remote.Row{"name": "mine"})
	require.NoError(t, err)
	assert.Equal(t, "t1", row[common.ColumnTenantID])

	rows, err := b.Select(ctx, common.TableContacts, remote.Query{})
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = b.Update(ctx, common.TableContacts, row["id"].(string), remote.Row{"name": "x"})
	require.ErrorIs(t, err, common.ErrNotFound)
	require.ErrorIs(t, b.Delete(ctx, common.TableContacts, row["id"].(string)), common.ErrNotFound)
	require.NoError(t, a.Delete(ctx, common.TableContacts, row["id"].(string)))
}

func TestLocal_NoSession(t *testing.T) {
	s, err := memory.New()
	require.NoError(t, err)
	c := store.Local(s, staticAuth{})

	_, err = c.Select(context.Background(), common.TableContacts, remote.Query{})
	require.ErrorIs(t, err, common.ErrUnauthenticated)
	_, err = c.Insert(context.Background(), common.TableContacts, remote.Row{})
	require.ErrorIs(t, err, common.ErrUnauthenticated)
}

func TestLocal_WrapsUnexpectedErrors(t *testing.T) {
	cause := errors.New("disk on fire")
	c := store.Local(failingStore{err: cause}, signedIn("t1"))

	_, err := c.Select(context.Background(), common.TableContacts, remote.Query{})
	var re *common.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "select", re.Op)
	assert.ErrorIs(t, err, cause)

	c = store.Local(failingStore{err: common.ErrValidation}, signedIn("t1"))
	_, err = c.Select(context.Background(), common.TableContacts, remote.Query{})
	assert.False(t, common.IsRemote(err))

	c = store.Local(failingStore{}, errAuth{})
	_, err = c.Select(context.Background(), common.TableContacts, remote.Query{})
	assert.True(t, common.IsRemote(err))
}

func TestCheckTable(t *testing.T) {
	require.NoError(t, store.CheckTable(common.TableDeals))
	require.ErrorIs(t, store.CheckTable("secrets"), common.ErrValidation)
}
