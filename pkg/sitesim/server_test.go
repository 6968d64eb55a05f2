// sitecheck
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package sitesim

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caas-team/sitecheck/web"
)

func TestHandler(t *testing.T) {
	srv := httptest.NewServer(Handler(context.Background(), web.Site()))
	defer srv.Close()

	tests := []struct {
		name            string
		method          string
		path            string
		wantStatus      int
		wantContentType string
		wantBody        string
		wantCache       bool
	}{
		{name: "root", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantContentType: "text/html", wantBody: "Welcome"},
		{name: "index", method: http.MethodGet, path: "/index.html", wantStatus: http.StatusOK, wantContentType: "text/html", wantBody: "Welcome"},
		{name: "stylesheet", method: http.MethodGet, path: "/style.css", wantStatus: http.StatusOK, wantContentType: "text/css", wantBody: ".container", wantCache: true},
		{name: "head root", method: http.MethodHead, path: "/", wantStatus: http.StatusOK, wantContentType: "text/html"},
		{name: "missing", method: http.MethodGet, path: "/nonexistent.html", wantStatus: http.StatusNotFound, wantContentType: "text/html", wantBody: "404 Not Found"},
		{name: "favicon", method: http.MethodHead, path: "/favicon.ico", wantStatus: http.StatusNotFound},
		{name: "post", method: http.MethodPost, path: "/", wantStatus: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequestWithContext(context.Background(), tt.method, srv.URL+tt.path, http.NoBody)
			require.NoError(t, err)

			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), tt.wantContentType)
			assert.Contains(t, string(body), tt.wantBody)
			if tt.method == http.MethodHead {
				assert.Empty(t, body)
			}

			assert.Equal(t, ServerHeader, resp.Header.Get("Server"))
			assert.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
			assert.Equal(t, "1; mode=block", resp.Header.Get("X-XSS-Protection"))
			if tt.wantCache {
				assert.Contains(t, resp.Header.Get("Cache-Control"), "public")
				assert.NotEmpty(t, resp.Header.Get("Expires"))
			} else {
				assert.Empty(t, resp.Header.Get("Cache-Control"))
			}
		})
	}
}

func TestHandler_Gzip(t *testing.T) {
	srv := httptest.NewServer(Handler(context.Background(), fstest.MapFS{
		"style.css": {Data: []byte("body { margin: 0; padding: 0; }\n" + string(make([]byte, 2048)))},
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/style.css", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")

	// the default transport would transparently decompress
	resp, err := (&http.Transport{DisableCompression: true}).RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "gzip", resp.Header.Get("Content-Encoding"))
}

func TestServer_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(ctx, web.Site())

	require.NoError(t, s.Start(ctx, "127.0.0.1:0"))
	assert.True(t, s.Running())
	addr := s.Addr()
	require.NotEmpty(t, addr)

	assert.ErrorIs(t, s.Start(ctx, "127.0.0.1:0"), ErrAlreadyRunning)

	resp, err := http.Get("http://" + addr + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(ctx))
	assert.False(t, s.Running())
	assert.Empty(t, s.Addr())

	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err, "listener must be released after shutdown")

	assert.ErrorIs(t, s.Shutdown(ctx), ErrNotRunning)

	// restartable on the same address
	require.NoError(t, s.Start(ctx, addr))
	require.NoError(t, s.Shutdown(ctx))
}

func TestServer_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, web.Site())

	errC := make(chan error, 1)
	go func() { errC <- s.Run(ctx, "127.0.0.1:0") }()

	require.Eventually(t, s.Running, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errC:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, s.Running())
}

func TestServer_StartInvalidAddress(t *testing.T) {
	s := New(context.Background(), web.Site())
	assert.Error(t, s.Start(context.Background(), "256.0.0.1:http"))
	assert.False(t, s.Running())
}
