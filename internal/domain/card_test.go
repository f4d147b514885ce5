package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIsOwner(t *testing.T) {
	card := BusinessCard{ID: "c1", UserID: "user-a"}

	require.True(t, IsOwner(card, "user-a"))
	require.False(t, IsOwner(card, "user-b"))
	require.False(t, IsOwner(card, "  "), "empty session")
	require.False(t, IsOwner(BusinessCard{ID: "c2"}, ""), "card without owner and empty session")
}

func TestPublicProjectionOmitsPrivateFields(t *testing.T) {
	cards := []BusinessCard{
		{ID: "c1", UserID: "owner-1", Name: "Jane", Title: "Engineer", Color: "#fff", Template: TemplateModern,
			Email: "jane@example.com", Phone: "+1 555 0100", Company: "Acme", QRCode: "http://x/card/c1", CreatedAt: time.Now().UTC()},
		{ID: "c2", UserID: "owner-2", Name: "Bob", Title: "CTO", Phone: "123"},
		{},
	}

	for _, card := range cards {
		raw, err := json.Marshal(card.Public())
		require.NoError(t, err)
		body := string(raw)
		for _, forbidden := range []string{"user_id", "email", "phone", "company"} {
			require.NotContains(t, body, `"`+forbidden+`"`)
		}
		if card.UserID != "" {
			require.NotContains(t, body, card.UserID, "public projection leaks owner id")
		}
	}
}

func TestParseTemplate(t *testing.T) {
	cases := []struct {
		in   string
		want Template
		ok   bool
	}{
		{"", TemplateModern, true},
		{"Classic", TemplateClassic, true},
		{" minimalist ", TemplateMinimalist, true},
		{"retro", Template("retro"), false},
	}
	for _, tc := range cases {
		got, ok := ParseTemplate(tc.in)
		require.Equal(t, tc.want, got, "ParseTemplate(%q)", tc.in)
		require.Equal(t, tc.ok, ok, "ParseTemplate(%q)", tc.in)
	}
}

func TestShareURLUsesID(t *testing.T) {
	require.Equal(t, "https://cards.example.com/card/abc", ShareURL("https://cards.example.com/", "abc"))
}

func TestShapeValidators(t *testing.T) {
	for _, color := range []string{"#6366f1", "#FFF"} {
		require.True(t, IsHexColor(color), color)
	}
	for _, color := range []string{"6366f1", "#12345"} {
		require.False(t, IsHexColor(color), color)
	}

	require.True(t, IsEmail("jane@example.com"))
	for _, email := range []string{"jane@example", "jane example.com", ""} {
		require.False(t, IsEmail(email), email)
	}
}
