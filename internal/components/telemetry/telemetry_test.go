package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	rec := NewRecorderAPI()
	scoped := NewScopedAPI("letterboxd", NewScopedAPI("fetcher", rec))

	scoped.ReportBroken("page.fetch", errors.New("boom"), 3)
	scoped.ReportWarning("page.settle")
	scoped.ReportDebug("navigate")
	scoped.ReportCount("entries", 12)

	broken := rec.Reports("broken")
	require.Len(t, broken, 1)
	require.Equal(t, "fetcher: letterboxd: page.fetch", broken[0].Id)
	require.Len(t, broken[0].Params, 2)

	require.Len(t, rec.Matching("warning", "page.settle"), 1)
	require.Len(t, rec.Reports(""), 3)

	n, ok := rec.Count("fetcher: letterboxd: entries")
	require.True(t, ok)
	require.EqualValues(t, 12, n)
}

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}
