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

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/index.html" {
			http.Redirect(w, r, "/", http.StatusMovedPermanently)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(time.Second, 2*time.Second)
	if c.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want %v", c.Timeout, 2*time.Second)
	}

	resp, err := c.Get(srv.URL + "/index.html")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMovedPermanently {
		t.Errorf("redirect was followed, got status %d", resp.StatusCode)
	}
}

func TestNew_ConnectError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(500*time.Millisecond, time.Second)
	resp, err := c.Get(url)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected an error against a closed listener")
	}
}

func TestIntoContext(t *testing.T) {
	mockClient := &http.Client{}

	tests := []struct {
		name    string
		client  *http.Client
		wantNil bool
	}{
		{
			name:    "nil client",
			client:  nil,
			wantNil: true,
		},
		{
			name:    "valid client",
			client:  mockClient,
			wantNil: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := IntoContext(context.Background(), tt.client)
			if ctx == nil {
				t.Fatal("IntoContext returned a nil context")
			}

			c, ok := ctx.Value(client{}).(*http.Client)
			if !ok && !tt.wantNil {
				t.Errorf("Expected a client, got none")
			}

			if !reflect.DeepEqual(c, tt.client) {
				t.Errorf("Client got = %v, want %v", c, tt.client)
			}
		})
	}
}

func TestFromContext(t *testing.T) {
	mockClient := &http.Client{}

	tests := []struct {
		name      string
		ctxClient *http.Client
		want      *http.Client
	}{
		{
			name:      "no client in context",
			ctxClient: nil,
			want:      http.DefaultClient,
		},
		{
			name:      "client in context",
			ctxClient: mockClient,
			want:      mockClient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.ctxClient != nil {
				ctx = IntoContext(ctx, tt.ctxClient)
			}

			if got := FromContext(ctx); got != tt.want {
				t.Errorf("FromContext() = %v, want %v", got, tt.want)
			}
		})
	}
}
