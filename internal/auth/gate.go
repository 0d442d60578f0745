/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package auth guards the editor behind a single shared password.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	applog "tourdeck/internal/log"
	"tourdeck/internal/storage"
)

// ErrInvalidPassword is returned by Login for a wrong password.
var ErrInvalidPassword = errors.New("invalid password")

// ErrNoPassword means no password hash has been configured.
var ErrNoPassword = errors.New("no password configured")

// Gate checks passwords against a bcrypt hash and records the outcome in a
// session-scoped store. There is no lockout or throttling.
type Gate struct {
	session storage.Store
	hash    []byte
	log     *slog.Logger
}

// NewGate returns a gate for hash. An empty hash makes every Login fail with ErrNoPassword.
func NewGate(session storage.Store, hash string) *Gate {
	return &Gate{session: session, hash: []byte(hash), log: applog.WithComponent("auth")}
}

// HashPassword returns the bcrypt hash for password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Login marks the session authenticated when password matches.
func (g *Gate) Login(ctx context.Context, password string) error {
	l := applog.WithOperation(g.log, "login")
	if len(g.hash) == 0 {
		return ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		l.InfoContext(ctx, "login rejected")
		return ErrInvalidPassword
	}
	if err := g.session.Set(ctx, storage.KeyTourAuthenticated, []byte("true")); err != nil {
		return err
	}
	l.InfoContext(ctx, "login accepted")
	return nil
}

// Authenticated reports whether the session has passed Login.
func (g *Gate) Authenticated(ctx context.Context) bool {
	b, ok, err := g.session.Get(ctx, storage.KeyTourAuthenticated)
	return err == nil && ok && string(b) == "true"
}

// Logout clears the session flag.
func (g *Gate) Logout(ctx context.Context) {
	storage.Delete(ctx, g.session, storage.KeyTourAuthenticated)
}
