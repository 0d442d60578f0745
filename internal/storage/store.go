/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	applog "tourdeck/internal/log"
)

// Persisted record keys.
const (
	KeyTourData          = "tourData"
	KeyPageConfigs       = "pageConfigs"
	KeyBlurData          = "blurData"
	KeyTourAuthenticated = "tour-authenticated"
)

// StateKeys are the keys that make up a workspace's editor state.
var StateKeys = []string{KeyTourData, KeyPageConfigs, KeyBlurData}

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown storage backend")

// Store is a persistent key-value store of raw JSON records.
// Get reports found=false without error for a missing key.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// GetJSON decodes the record under key into a T. A missing key, a read error
// or a parse error yields def; errors are logged, never returned.
func GetJSON[T any](ctx context.Context, s Store, key string, def T) T {
	l := applog.WithOperation(applog.WithComponent("storage"), "get").With(slog.String("key", key))
	b, ok, err := s.Get(ctx, key)
	if err != nil {
		l.WarnContext(ctx, "read failed, using default", slog.Any("err", err))
		return def
	}
	if !ok || len(b) == 0 {
		return def
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		l.WarnContext(ctx, "parse failed, using default", slog.Any("err", err))
		return def
	}
	return v
}

// SetJSON encodes v and writes it under key. Failures are logged and dropped.
func SetJSON(ctx context.Context, s Store, key string, v any) {
	l := applog.WithOperation(applog.WithComponent("storage"), "set").With(slog.String("key", key))
	b, err := json.Marshal(v)
	if err != nil {
		l.ErrorContext(ctx, "encode failed", slog.Any("err", err))
		return
	}
	if err := s.Set(ctx, key, b); err != nil {
		l.ErrorContext(ctx, "write failed", slog.Any("err", err))
	}
}

// Delete removes key, logging and dropping any failure.
func Delete(ctx context.Context, s Store, key string) {
	if err := s.Remove(ctx, key); err != nil {
		applog.WithOperation(applog.WithComponent("storage"), "remove").ErrorContext(ctx, "remove failed",
			slog.String("key", key), slog.Any("err", err))
	}
}
