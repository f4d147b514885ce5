package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizcard/internal/domain"
)

func TestCreateCardSendsBearerAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cards", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var req CreateCardRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Jane Doe", req.Name)
		assert.Equal(t, "modern", req.Template)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(domain.BusinessCard{ID: "c1", Name: req.Name, Title: req.Title, QRCode: "http://x/card/c1"})
	}))
	defer srv.Close()

	client := New(srv.URL, "tok", nil)
	card, err := client.CreateCard(context.Background(), CreateCardRequest{Name: "Jane Doe", Title: "Engineer", Template: "modern"})
	require.NoError(t, err)
	assert.Equal(t, "c1", card.ID)
	assert.Equal(t, "http://x/card/c1", card.QRCode)
}

func TestErrorResponseCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"you already have a card named \"Freelance\""}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok", nil).CreateCard(context.Background(), CreateCardRequest{Name: "Freelance", Title: "X"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, `you already have a card named "Freelance"`, apiErr.Message)
	assert.Equal(t, http.StatusConflict, StatusOf(err))
}

func TestNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", nil).ListCards(context.Background())
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
}

func TestListCardsEmptyIsNonNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	}))
	defer srv.Close()

	cards, err := New(srv.URL, "tok", nil).ListCards(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, cards)
	assert.Empty(t, cards)
}

func TestCheckNameQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cards/check-name", r.URL.Path)
		assert.Equal(t, "Jane Doe", r.URL.Query().Get("name"))
		assert.Equal(t, "c1", r.URL.Query().Get("exclude_id"))
		_, _ = w.Write([]byte(`{"is_valid":true}`))
	}))
	defer srv.Close()

	check, err := New(srv.URL, "tok", nil).CheckName(context.Background(), "Jane Doe", "c1")
	require.NoError(t, err)
	assert.True(t, check.IsValid)
}

func TestDeleteAndPublicCard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete && r.URL.Path == "/cards/c1":
			_, _ = w.Write([]byte(`{"message":"card deleted"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/public-cards/c1":
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"id":"c1","name":"Jane","title":"CTO","color":"#000000","template":"modern"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, "tok", nil)
	require.NoError(t, client.DeleteCard(context.Background(), "c1"))

	public, err := client.WithToken("").GetPublicCard(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Jane", public.Name)
	assert.Equal(t, domain.TemplateModern, public.Template)
}

func TestContextCancellationAbortsRequest(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := New(srv.URL, "tok", nil).CreateCard(ctx, CreateCardRequest{Name: "A", Title: "B"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, StatusOf(err))
}

func TestVerifyOTPDecodesTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/otp/verify", r.URL.Path)
		_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"jane@example.com"},"tokens":{"access_token":"a","refresh_token":"r","expires_in":900}}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, "", nil).VerifyOTP(context.Background(), "jane@example.com", "123456", "Jane")
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, "a", resp.Tokens.AccessToken)
}
