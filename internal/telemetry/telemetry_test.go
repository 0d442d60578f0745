/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	events  [][]byte
	crashes [][]byte
}

func (r *recorder) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.events = append(r.events, b)
		r.mu.Unlock()
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		r.mu.Lock()
		r.crashes = append(r.crashes, b)
		r.mu.Unlock()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (r *recorder) snapshot() (events, crashes [][]byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.events...), append([][]byte(nil), r.crashes...)
}

func TestEventAndUploadCrash(t *testing.T) {
	var rec recorder
	srv := rec.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}
	c.Event("pdf_export", map[string]any{"preset": "a4", "pages": 11})
	// Close drains the queue
	c.Close()

	events, _ := rec.snapshot()
	if len(events) != 1 {
		t.Fatalf("events sent = %d, want 1", len(events))
	}
	var m map[string]any
	if err := json.Unmarshal(events[0], &m); err != nil {
		t.Fatalf("bad event json: %v", err)
	}
	if m["name"] != "pdf_export" || m["preset"] != "a4" {
		t.Fatalf("event = %v", m)
	}
	if _, ok := m["ts"].(string); !ok {
		t.Fatalf("missing ts field")
	}

	if err := c.UploadCrash(context.Background(), []byte("STACKTRACE")); err != nil {
		t.Fatalf("UploadCrash: %v", err)
	}
	if _, crashes := rec.snapshot(); len(crashes) != 1 || string(crashes[0]) != "STACKTRACE" {
		t.Fatalf("crashes = %q", crashes)
	}
}

func TestDisabledClientSendsNothing(t *testing.T) {
	var rec recorder
	srv := rec.server(t)

	c := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: time.Second})
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	if err := c.UploadCrash(context.Background(), []byte("ignored")); err != nil {
		t.Fatalf("UploadCrash: %v", err)
	}
	c.Close()

	c2 := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	c2.Event("", nil)
	c2.Close()
	c2.Event("after close", nil)

	if events, crashes := rec.snapshot(); len(events) != 0 || len(crashes) != 0 {
		t.Fatalf("expected no requests, got %d events %d crashes", len(events), len(crashes))
	}
}

func TestSendErrorsAreDropped(t *testing.T) {
	c := New(Config{OptIn: true, EventsURL: "http://127.0.0.1:1/events", CrashURL: "http://127.0.0.1:1/crash", Timeout: 50 * time.Millisecond})
	c.Event("err", map[string]any{"a": 1})
	c.Close()
	if err := c.UploadCrash(context.Background(), []byte("oops")); err == nil {
		t.Fatalf("expected crash upload error")
	}
}

func TestFromEnvAndDefault(t *testing.T) {
	t.Setenv(EnvOptIn, "true")
	t.Setenv(EnvEventsURL, "http://127.0.0.1:1")
	t.Setenv(EnvCrashURL, "")
	t.Setenv(EnvTimeoutMs, "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}

	Shutdown()
	t.Cleanup(Shutdown)
	if !Default().Enabled() {
		t.Fatalf("default client should be enabled from env")
	}
	old := SetDefault(New(Config{}))
	old.Close()
	if Default().Enabled() {
		t.Fatalf("SetDefault not applied")
	}
}
