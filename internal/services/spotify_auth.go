package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// TokenResult is the token endpoint response.
//
// RefreshToken is empty when upstream did not rotate it on refresh.
type TokenResult struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// ExchangeCode trades an authorization code for tokens (grant_type=authorization_code).
//
// redirectURI must equal the one sent with the authorization request; empty uses the configured URI.
func (s *SpotifyClient) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResult, error) {
	const op = "exchange authorization code"

	if err := s.wait(ctx, op); err != nil {
		return nil, err
	}

	var opts []oauth2.AuthCodeOption
	if redirectURI != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", redirectURI))
	}

	tok, err := s.config.Exchange(s.tokenContext(ctx), code, opts...)
	if err != nil {
		return nil, tokenError(op, err)
	}
	if tok.RefreshToken == "" {
		return nil, &SchemaError{Op: op, Field: "refresh_token"}
	}
	return tokenResult(tok), nil
}

// Refresh mints a new access token from a refresh token (grant_type=refresh_token).
func (s *SpotifyClient) Refresh(ctx context.Context, refreshToken string) (*TokenResult, error) {
	const op = "refresh access token"

	if err := s.wait(ctx, op); err != nil {
		return nil, err
	}

	tok, err := s.config.TokenSource(s.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, tokenError(op, err)
	}

	result := tokenResult(tok)
	if result.RefreshToken == refreshToken {
		result.RefreshToken = ""
	}
	return result, nil
}

// tokenContext routes token requests through the client's HTTP client.
func (s *SpotifyClient) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

func tokenResult(tok *oauth2.Token) *TokenResult {
	scope, _ := tok.Extra("scope").(string)
	return &TokenResult{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		Scope:        scope,
		ExpiresIn:    int(tok.ExpiresIn),
		RefreshToken: tok.RefreshToken,
	}
}

// tokenError maps x/oauth2 failures onto [UpstreamError], [SchemaError] or a transport error.
//
// oauth2 reports an undecodable 2xx body and a missing access_token as plain errors.
func tokenError(op string, err error) error {
	var retrieve *oauth2.RetrieveError
	if errors.As(err, &retrieve) && retrieve.Response != nil {
		if isSuccess(retrieve.Response) {
			return &SchemaError{Op: op, Err: err}
		}
		return upstreamError(op, retrieve.Response)
	}

	var urlErr *url.Error
	switch {
	case errors.As(err, &urlErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		strings.Contains(err.Error(), "cannot fetch token"):
		return transportError(op, err)
	case strings.Contains(err.Error(), "missing access_token"):
		return &SchemaError{Op: op, Field: "access_token"}
	default:
		return &SchemaError{Op: op, Err: err}
	}
}
