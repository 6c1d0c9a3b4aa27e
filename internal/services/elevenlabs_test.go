package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobarin/podforge/internal/auth"
	"github.com/bobarin/podforge/internal/retry"
)

type staticTokenSource struct {
	token   string
	signIns int
	fail    bool
}

func (s *staticTokenSource) SignIn(_ context.Context, _ auth.Identity) (string, error) {
	if s.fail {
		return "", errors.New("sign-in rejected")
	}
	s.signIns++
	return s.token, nil
}

func newTestDialogueClient(t *testing.T, baseURL string, accounts int) (*DialogueClient, *staticTokenSource) {
	t.Helper()

	var lines []string
	for i := 0; i < accounts; i++ {
		lines = append(lines, fmt.Sprintf("acct%d@example.com:pw%d", i, i))
	}
	pool, err := auth.ParseCredentialPool(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("parse pool: %v", err)
	}

	src := &staticTokenSource{token: "tok-abc"}
	c := &DialogueClient{
		session: auth.NewSession(pool, src),
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		policy:  retry.Fixed(5, time.Millisecond),
	}
	return c, src
}

func TestSynthesizeDialogueSuccess(t *testing.T) {
	var gotReq dialogueRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-dialogue/stream" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	c, _ := newTestDialogueClient(t, server.URL, 1)
	resp, err := c.SynthesizeDialogue(context.Background(), "Hello there!", "voice-1", []string{"excited"})
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}

	if string(resp.AudioData) != "mp3-bytes" {
		t.Errorf("unexpected audio %q", resp.AudioData)
	}
	if gotAuth != "Bearer tok-abc" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
	if gotReq.ModelID != dialogueModelID {
		t.Errorf("expected model %s, got %s", dialogueModelID, gotReq.ModelID)
	}
	if len(gotReq.Inputs) != 1 || gotReq.Inputs[0].Text != "Hello there!" || gotReq.Inputs[0].VoiceID != "voice-1" {
		t.Errorf("unexpected inputs %+v", gotReq.Inputs)
	}
	if gotReq.Settings.Stability != StabilityDynamic {
		t.Errorf("excited marker should yield stability 0.0, got %v", gotReq.Settings.Stability)
	}
	if !gotReq.Settings.UseSpeakerBoost {
		t.Error("expected use_speaker_boost=true")
	}
}

func TestSynthesizeDialogueRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	c, _ := newTestDialogueClient(t, server.URL, 1)
	resp, err := c.SynthesizeDialogue(context.Background(), "hi", "voice-1", nil)
	if err != nil {
		t.Fatalf("synthesize failed: %v", err)
	}

	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if string(resp.AudioData) != "audio" {
		t.Errorf("unexpected audio %q", resp.AudioData)
	}
}

func TestSynthesizeDialogueExhaustsRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	c, _ := newTestDialogueClient(t, server.URL, 1)
	_, err := c.SynthesizeDialogue(context.Background(), "hi", "voice-1", nil)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}

	if attempts != 5 {
		t.Errorf("expected 5 attempts, got %d", attempts)
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		t.Error("synthesis exhaustion must not be reported as an auth failure")
	}
}

func TestSynthesizeDialogueAuthFailureSkipsRequest(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	c, src := newTestDialogueClient(t, server.URL, 1)
	src.fail = true

	_, err := c.SynthesizeDialogue(context.Background(), "hi", "voice-1", nil)

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *AuthError, got %v", err)
	}
	if requests != 0 {
		t.Errorf("synthesis endpoint must not be called without a token, got %d requests", requests)
	}
}

func TestSynthesizeDialogueRotatesAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	c, src := newTestDialogueClient(t, server.URL, 2)
	for i := 0; i < 3; i++ {
		if _, err := c.SynthesizeDialogue(context.Background(), "hi", "voice-1", nil); err != nil {
			t.Fatalf("call %d failed: %v", i+1, err)
		}
	}

	// Calls 1 and 2 share account 0's token; call 3 rotates and signs in again.
	if src.signIns != 2 {
		t.Errorf("expected 2 sign-ins across 3 calls, got %d", src.signIns)
	}
	if c.session.Cursor() != 1 {
		t.Errorf("expected cursor 1 after rotation, got %d", c.session.Cursor())
	}
}

func TestSynthesizeDialogueStabilityMapping(t *testing.T) {
	var gotStability float64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req dialogueRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotStability = req.Settings.Stability
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	c, _ := newTestDialogueClient(t, server.URL, 1)

	cases := []struct {
		markers []string
		want    float64
	}{
		{[]string{"whispers"}, StabilityRobust},
		{nil, StabilityNatural},
		{[]string{"thoughtful", "dramatic"}, StabilityDynamic},
	}
	for _, tc := range cases {
		if _, err := c.SynthesizeDialogue(context.Background(), "hi", "voice-1", tc.markers); err != nil {
			t.Fatalf("synthesize failed: %v", err)
		}
		if gotStability != tc.want {
			t.Errorf("markers %v: expected stability %v, got %v", tc.markers, tc.want, gotStability)
		}
	}
}

func TestFallbackGenerateSpeech(t *testing.T) {
	var gotKey string
	var gotReq elevenLabsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/text-to-speech/voice-7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte("fallback-audio"))
	}))
	defer server.Close()

	s := NewElevenLabsService("api-key-1")
	s.baseURL = server.URL

	resp, err := s.GenerateSpeech(context.Background(), "some line", "voice-7")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	if string(resp.AudioData) != "fallback-audio" {
		t.Errorf("unexpected audio %q", resp.AudioData)
	}
	if gotKey != "api-key-1" {
		t.Errorf("expected xi-api-key header, got %q", gotKey)
	}
	vs := gotReq.VoiceSettings
	if vs == nil {
		t.Fatal("expected voice_settings in request")
	}
	if vs.Stability != 0.5 || vs.SimilarityBoost != 0.75 || vs.Style != 0.0 || !vs.UseSpeakerBoost {
		t.Errorf("unexpected voice settings %+v", vs)
	}
}

func TestFallbackDoesNotRetry(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	s := NewElevenLabsService("api-key-1")
	s.baseURL = server.URL

	if _, err := s.GenerateSpeech(context.Background(), "some line", "voice-7"); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("fallback must be single-attempt, got %d attempts", attempts)
	}
}
