package restyutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestInstrumentClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-fixture", "yes")
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<html>diary</html>"))
	}))
	defer srv.Close()

	output := NewMemoryOutput()
	client := resty.New().SetBaseURL(srv.URL)
	InstrumentClient(client, "pages", nil, output)

	_, err := client.R().Get("/someone/films/diary/")
	require.NoError(t, err)
	_, err = client.R().Get("/missing")
	require.NoError(t, err)

	messages := output.Messages()
	require.Len(t, messages, 2)
	require.Contains(t, messages["pages-1"], "GET "+srv.URL+"/someone/films/diary/")
	require.Contains(t, messages["pages-1"], "<html>diary</html>")
	require.Contains(t, messages["pages-1"], "X-Fixture: yes")
	require.Contains(t, messages["pages-2"], "404 Not Found")
}

func TestDirOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dump")
	output, err := NewDirOutput(dir)
	require.NoError(t, err)

	output.Write("posters-1", "contents")
	data, err := os.ReadFile(filepath.Join(dir, "posters-1.txt"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(data))
}

func TestFormatHeaders(t *testing.T) {
	require.Equal(t, "", formatHeaders(http.Header{}))
	require.Equal(t, "A: 1\nB: 2\nB: 3", formatHeaders(http.Header{
		"B": {"2", "3"},
		"A": {"1"},
	}))
}
