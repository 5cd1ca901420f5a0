// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package cli

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/otakumatch/internal/events"
	"github.com/tomtom215/otakumatch/internal/storage"
	"github.com/tomtom215/otakumatch/internal/taste"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// startServe runs the serve command in the background and waits until the
// API reports ready. It returns the API base URL and a stop function that
// cancels the command and checks it exits cleanly.
func startServe(t *testing.T) (string, func()) {
	t.Helper()
	port := freePort(t)
	t.Setenv("HTTP_HOST", "127.0.0.1")
	t.Setenv("HTTP_PORT", strconv.Itoa(port))
	base := "http://127.0.0.1:" + strconv.Itoa(port) + "/api/v1"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		cmd := NewRootCommand()
		cmd.SetArgs([]string{"serve"})
		cmd.SetOut(io.Discard)
		done <- cmd.ExecuteContext(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/health/ready")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				break
			}
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("server never became ready: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("serve returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("serve did not stop")
		}
	}
	return base, stop
}

// waitForEvents polls the events endpoint until at least n events appear.
func waitForEvents(t *testing.T, base string, n int) []events.ProfileEvent {
	t.Helper()
	var recent []events.ProfileEvent
	deadline := time.Now().Add(2 * time.Second)
	for len(recent) < n && time.Now().Before(deadline) {
		resp, err := http.Get(base + "/profile/events")
		if err != nil {
			t.Fatal(err)
		}
		var env struct {
			Data []events.ProfileEvent `json:"data"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&env)
		_ = resp.Body.Close()
		recent = env.Data
		if len(recent) < n {
			time.Sleep(10 * time.Millisecond)
		}
	}
	return recent
}

func TestServeEndToEnd(t *testing.T) {
	setupEnv(t)
	base, stop := startServe(t)
	defer stop()

	resp, err := http.Post(base+"/profile/watched", "application/json", strings.NewReader(`{"id":1}`))
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("watched status = %d", resp.StatusCode)
	}

	recent := waitForEvents(t, base, 1)
	if len(recent) != 1 || recent[0].AnimeID != 1 || recent[0].Title != "Cowboy Bebop" {
		t.Errorf("events = %+v", recent)
	}
}

func TestServeReportsCorruptProfileReset(t *testing.T) {
	setupEnv(t)

	seed, err := storage.OpenBadger(os.Getenv("BADGER_PATH"), true)
	if err != nil {
		t.Fatalf("OpenBadger() error = %v", err)
	}
	if err := seed.Put(context.Background(), taste.DefaultProfileKey, []byte("{not json")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := seed.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	base, stop := startServe(t)
	defer stop()

	recent := waitForEvents(t, base, 1)
	if len(recent) != 1 || recent[0].Action != taste.ActionCorruptReset {
		t.Fatalf("events = %+v, want one %s", recent, taste.ActionCorruptReset)
	}
	if recent[0].WatchedCount != 0 || recent[0].WantCount != 0 {
		t.Errorf("corrupt reset counts = %d/%d, want empty profile", recent[0].WatchedCount, recent[0].WantCount)
	}
}
