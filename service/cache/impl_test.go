package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nifty-xyz/gomarket/base/ctx"
	"github.com/nifty-xyz/gomarket/service/cache/provider/primitive"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newService(t *testing.T) Service {
	t.Helper()
	return New(ServiceConfig{
		Ttl:   time.Minute,
		Pfx:   "test",
		Cache: primitive.NewPrimitive("test", 1),
	})
}

func TestSetGet(t *testing.T) {
	c := ctx.Background()
	svc := newService(t)

	in := &payload{Name: "a", Count: 3}
	require.NoError(t, svc.Set(c, "k", in))

	out := &payload{}
	require.NoError(t, svc.Get(c, "k", out))
	require.Equal(t, in, out)
}

func TestGetMissing(t *testing.T) {
	c := ctx.Background()
	svc := newService(t)

	out := &payload{}
	require.Equal(t, ErrNotFound, svc.Get(c, "absent", out))
}

func TestGetByFunc(t *testing.T) {
	c := ctx.Background()
	svc := newService(t)

	calls := 0
	getter := func() (interface{}, error) {
		calls++
		return &payload{Name: "b", Count: 7}, nil
	}

	out := &payload{}
	require.NoError(t, svc.GetByFunc(c, "k", out, getter))
	require.Equal(t, 1, calls)
	require.Equal(t, "b", out.Name)

	// second read hits the cache
	out = &payload{}
	require.NoError(t, svc.GetByFunc(c, "k", out, getter))
	require.Equal(t, 1, calls)
	require.Equal(t, 7, out.Count)
}

func TestDel(t *testing.T) {
	c := ctx.Background()
	svc := newService(t)

	require.NoError(t, svc.Set(c, "k", &payload{Name: "a"}))
	require.NoError(t, svc.Del(c, "k"))
	require.Equal(t, ErrNotFound, svc.Get(c, "k", &payload{}))
}
