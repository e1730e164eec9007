package session

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"golang.org/x/oauth2"
)

// idClaims are the id_token claims used to label the account. The token is
// received directly from the token endpoint over TLS, so its signature is
// not verified here.
type idClaims struct {
	PreferredUsername string `json:"preferred_username"`
	UPN               string `json:"upn"`
	Email             string `json:"email"`
	Name              string `json:"name"`
}

// accountFromToken reads the account from tok's id_token. Missing or
// malformed id_tokens yield an empty Account.
func accountFromToken(tok *oauth2.Token) Account {
	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		return Account{}
	}

	claims, ok := parseIDToken(raw)
	if !ok {
		return Account{}
	}

	username := claims.PreferredUsername
	if username == "" {
		username = claims.UPN
	}

	if username == "" {
		username = claims.Email
	}

	return Account{Username: username, Name: claims.Name}
}

func parseIDToken(raw string) (idClaims, bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return idClaims{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return idClaims{}, false
	}

	var c idClaims
	if err := json.Unmarshal(payload, &c); err != nil {
		return idClaims{}, false
	}

	return c, true
}
